// Package record implements the variable-length record file of BeeDB.
//
// # File Layout
//
// A record file starts with a HeaderSize byte header followed by slots:
//
//	+--------+-----------------------------+-----------------------------+
//	| header | cap | len | payload[cap]    | cap | len | payload[cap]    | ...
//	+--------+-----------------------------+-----------------------------+
//
// A record address is the byte offset of its slot. Free slots store
// FreeMarker as their length and the address of the next free slot in the
// first 8 payload bytes, forming a stack whose head lives in the header.
//
// Slots never move. A payload that outgrows its slot is written to a new
// slot by the caller and the old one is freed.
package record

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Record file constants.
const (
	// HeaderSize is the size of the record file header.
	HeaderSize = 64

	// SlotHeaderSize is the cap and len prefix of every slot.
	SlotHeaderSize = 8

	// MinCapacity is the smallest slot payload; it holds a free-list link.
	MinCapacity = 8

	// FreeMarker is stored in the length field of a free slot.
	FreeMarker uint32 = 0xFFFFFFFF

	// CurrentVersion is the current record file format version.
	CurrentVersion uint32 = 1
)

// Header flags.
const (
	// FlagSnappy marks payloads as snappy-compressed by the writer.
	FlagSnappy uint32 = 1 << 0
)

// Magic identifies a BeeDB record file: "BDAT".
var Magic = [4]byte{'B', 'D', 'A', 'T'}

// Header is the record file header.
// Layout:
//   - Bytes 0-3:   Magic ("BDAT")
//   - Bytes 4-7:   Version (uint32)
//   - Bytes 8-11:  Flags (uint32)
//   - Bytes 12-15: Reserved
//   - Bytes 16-23: Free slot list head (uint64)
//   - Bytes 24-31: End offset (uint64)
//   - Bytes 32-39: Live record count (uint64)
//   - Bytes 40-43: CRC32 of bytes 0-39
//   - Bytes 44-63: Reserved
type Header struct {
	Magic    [4]byte
	Version  uint32
	Flags    uint32
	FreeHead storage.RecordAddr
	End      uint64
	Records  uint64
	Checksum uint32
}

// NewHeader creates the header of an empty record file.
func NewHeader(flags uint32) *Header {
	return &Header{
		Magic:   Magic,
		Version: CurrentVersion,
		Flags:   flags,
		End:     HeaderSize,
	}
}

// Serialize encodes the header into a HeaderSize byte buffer.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.FreeHead))
	binary.LittleEndian.PutUint64(buf[24:32], h.End)
	binary.LittleEndian.PutUint64(buf[32:40], h.Records)

	h.Checksum = crc32.ChecksumIEEE(buf[0:40])
	binary.LittleEndian.PutUint32(buf[40:44], h.Checksum)

	return buf
}

// DeserializeAndValidate decodes buf and checks magic, version, checksum
// and the end offset.
func (h *Header) DeserializeAndValidate(buf []byte) error {
	if len(buf) < HeaderSize {
		return storage.Corruptf("record header too short: %d bytes", len(buf))
	}

	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.FreeHead = storage.RecordAddr(binary.LittleEndian.Uint64(buf[16:24]))
	h.End = binary.LittleEndian.Uint64(buf[24:32])
	h.Records = binary.LittleEndian.Uint64(buf[32:40])
	h.Checksum = binary.LittleEndian.Uint32(buf[40:44])

	if h.Magic != Magic {
		return storage.Corruptf("invalid magic %q: not a BeeDB record file", h.Magic[:])
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return storage.Corruptf("unsupported record file version %d", h.Version)
	}
	if crc32.ChecksumIEEE(buf[0:40]) != h.Checksum {
		return storage.Corruptf("record header checksum mismatch")
	}
	if h.End < HeaderSize {
		return storage.Corruptf("record file end %d inside header", h.End)
	}
	if h.FreeHead != 0 && (uint64(h.FreeHead) < HeaderSize || uint64(h.FreeHead) >= h.End) {
		return storage.Corruptf("free slot head %d outside [%d, %d)", h.FreeHead, HeaderSize, h.End)
	}

	return nil
}

// Compressed reports whether FlagSnappy is set.
func (h *Header) Compressed() bool {
	return h.Flags&FlagSnappy != 0
}

// roundCapacity returns the slot capacity used for an n byte payload.
func roundCapacity(n int) uint32 {
	if n < MinCapacity {
		n = MinCapacity
	}
	return uint32((n + 7) &^ 7)
}
