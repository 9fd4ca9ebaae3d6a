package storage

import (
	"encoding/binary"
	"hash/crc32"
)

// Index file header constants.
const (
	// IndexHeaderSize is the number of meaningful bytes at the start of sector 0.
	IndexHeaderSize = 56

	// CurrentVersion is the current index file format version.
	CurrentVersion uint32 = 1
)

// IndexMagic identifies a BeeDB index file: "BIDX".
var IndexMagic = [4]byte{'B', 'I', 'D', 'X'}

// SectorAddr is a zero-based sector number in the index file.
// Sector 0 holds the header, so 0 doubles as the null address.
type SectorAddr uint64

// RecordAddr is a byte offset of a record slot in the record file.
// 0 is the null address.
type RecordAddr uint64

// IndexHeader is the header stored at the start of sector 0.
// Layout:
//   - Bytes 0-3:   Magic ("BIDX")
//   - Bytes 4-7:   Version (uint32)
//   - Bytes 8-11:  SectorSize (uint32)
//   - Bytes 12-15: KeySize (uint32)
//   - Bytes 16-23: Root sector (uint64)
//   - Bytes 24-31: Free sector list head (uint64)
//   - Bytes 32-39: TotalSectors (uint64)
//   - Bytes 40-47: EntryCount (uint64)
//   - Bytes 48-51: Height (uint32)
//   - Bytes 52-55: CRC32 of bytes 0-51
type IndexHeader struct {
	Magic        [4]byte
	Version      uint32
	SectorSize   uint32
	KeySize      uint32
	Root         SectorAddr
	FreeHead     SectorAddr
	TotalSectors uint64
	EntryCount   uint64
	Height       uint32
	Checksum     uint32
}

// Meta is the part of the header owned by the tree layered on top.
type Meta struct {
	Root    SectorAddr
	Entries uint64
	Height  uint32
}

// NewIndexHeader creates a header for a fresh file with geometry g.
func NewIndexHeader(g Geometry) *IndexHeader {
	return &IndexHeader{
		Magic:        IndexMagic,
		Version:      CurrentVersion,
		SectorSize:   uint32(g.SectorSize),
		KeySize:      uint32(g.KeySize),
		TotalSectors: 1,
	}
}

// SerializeTo writes the header into buf, which must hold IndexHeaderSize bytes.
func (h *IndexHeader) SerializeTo(buf []byte) error {
	if len(buf) < IndexHeaderSize {
		return ErrInvalidSectorSize
	}

	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.SectorSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.KeySize)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.Root))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.FreeHead))
	binary.LittleEndian.PutUint64(buf[32:40], h.TotalSectors)
	binary.LittleEndian.PutUint64(buf[40:48], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[48:52], h.Height)

	h.Checksum = crc32.ChecksumIEEE(buf[0:52])
	binary.LittleEndian.PutUint32(buf[52:56], h.Checksum)

	return nil
}

// Deserialize reads the header from buf without validating it.
func (h *IndexHeader) Deserialize(buf []byte) error {
	if len(buf) < IndexHeaderSize {
		return ErrInvalidSectorSize
	}

	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.SectorSize = binary.LittleEndian.Uint32(buf[8:12])
	h.KeySize = binary.LittleEndian.Uint32(buf[12:16])
	h.Root = SectorAddr(binary.LittleEndian.Uint64(buf[16:24]))
	h.FreeHead = SectorAddr(binary.LittleEndian.Uint64(buf[24:32]))
	h.TotalSectors = binary.LittleEndian.Uint64(buf[32:40])
	h.EntryCount = binary.LittleEndian.Uint64(buf[40:48])
	h.Height = binary.LittleEndian.Uint32(buf[48:52])
	h.Checksum = binary.LittleEndian.Uint32(buf[52:56])

	return nil
}

// DeserializeAndValidate reads the header and checks magic, version,
// checksum and geometry.
func (h *IndexHeader) DeserializeAndValidate(buf []byte) error {
	if err := h.Deserialize(buf); err != nil {
		return err
	}

	if h.Magic != IndexMagic {
		return Corruptf("invalid magic %q: not a BeeDB index file", h.Magic[:])
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return Corruptf("unsupported index version %d", h.Version)
	}
	if crc32.ChecksumIEEE(buf[0:52]) != h.Checksum {
		return Corruptf("index header checksum mismatch")
	}
	if err := h.Geometry().Validate(); err != nil {
		return Corruptf("stored geometry: %v", err)
	}
	if h.TotalSectors == 0 || uint64(h.Root) >= h.TotalSectors || uint64(h.FreeHead) >= h.TotalSectors {
		return Corruptf("header addresses outside %d sectors", h.TotalSectors)
	}

	return nil
}

// Geometry returns the sector and key sizes recorded in the header.
func (h *IndexHeader) Geometry() Geometry {
	return Geometry{SectorSize: int(h.SectorSize), KeySize: int(h.KeySize)}
}

// Meta returns the tree-owned header fields.
func (h *IndexHeader) Meta() Meta {
	return Meta{Root: h.Root, Entries: h.EntryCount, Height: h.Height}
}
