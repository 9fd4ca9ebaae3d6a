package btree

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Node sector layout:
//   - Byte 0:      kind (KindLeaf or KindInternal)
//   - Byte 1:      reserved
//   - Bytes 2-3:   entry count (uint16)
//   - Bytes 4-7:   CRC32 of bytes 0-3 and 8..end
//   - Bytes 8-15:  prev leaf
//   - Bytes 16-23: next leaf
//   - Bytes 24-31: leftmost child (internal only)
//   - Bytes 32..:  entries of key[keySize] | record u64 | child u64
const (
	offKind     = 0
	offCount    = 2
	offChecksum = 4
	offPrev     = 8
	offNext     = 16
	offChildLT  = 24
)

// nodeChecksum covers every byte of the sector except the checksum field.
func nodeChecksum(buf []byte) uint32 {
	sum := crc32.ChecksumIEEE(buf[0:offChecksum])
	return crc32.Update(sum, crc32.IEEETable, buf[offPrev:])
}

// encodeNode serializes n into a zeroed sector buffer.
func encodeNode(n *Node, buf []byte, keySize, maxCt int) error {
	if len(n.Keys) > maxCt {
		return storage.Corruptf("node %d holds %d entries, capacity %d", n.Addr, len(n.Keys), maxCt)
	}

	for i := range buf {
		buf[i] = 0
	}

	if n.Leaf {
		buf[offKind] = KindLeaf
		binary.LittleEndian.PutUint64(buf[offPrev:], uint64(n.Prev))
		binary.LittleEndian.PutUint64(buf[offNext:], uint64(n.Next))
	} else {
		buf[offKind] = KindInternal
		binary.LittleEndian.PutUint64(buf[offChildLT:], uint64(n.Children[0]))
	}
	binary.LittleEndian.PutUint16(buf[offCount:], uint16(len(n.Keys)))

	entrySize := keySize + storage.RecordAddrSize + storage.ChildAddrSize
	off := storage.NodeHeaderSize
	for i, key := range n.Keys {
		if len(key) != keySize {
			return storage.Corruptf("node %d key %d has %d bytes, want %d", n.Addr, i, len(key), keySize)
		}
		copy(buf[off:], key)
		binary.LittleEndian.PutUint64(buf[off+keySize:], uint64(n.Records[i]))
		if !n.Leaf {
			binary.LittleEndian.PutUint64(buf[off+keySize+storage.RecordAddrSize:], uint64(n.Children[i+1]))
		}
		off += entrySize
	}

	binary.LittleEndian.PutUint32(buf[offChecksum:], nodeChecksum(buf))
	return nil
}

// decodeNode parses a node sector read from addr.
func decodeNode(addr storage.SectorAddr, buf []byte, keySize, maxCt int) (*Node, error) {
	if len(buf) < storage.NodeHeaderSize {
		return nil, storage.Corruptf("sector %d too short for a node", addr)
	}

	kind := buf[offKind]
	switch kind {
	case KindLeaf, KindInternal:
	case storage.SectorKindFree:
		return nil, storage.Corruptf("sector %d is on the free list", addr)
	default:
		return nil, storage.Corruptf("sector %d has unknown node kind %d", addr, kind)
	}

	if binary.LittleEndian.Uint32(buf[offChecksum:]) != nodeChecksum(buf) {
		return nil, storage.Corruptf("sector %d checksum mismatch", addr)
	}

	count := int(binary.LittleEndian.Uint16(buf[offCount:]))
	if count > maxCt {
		return nil, storage.Corruptf("sector %d claims %d entries, capacity %d", addr, count, maxCt)
	}

	var n *Node
	if kind == KindLeaf {
		n = newLeaf(addr)
		n.Prev = storage.SectorAddr(binary.LittleEndian.Uint64(buf[offPrev:]))
		n.Next = storage.SectorAddr(binary.LittleEndian.Uint64(buf[offNext:]))
	} else {
		if count == 0 {
			return nil, storage.Corruptf("internal sector %d has no separators", addr)
		}
		n = newInternal(addr)
		n.Children = make([]storage.SectorAddr, 0, count+1)
		n.Children = append(n.Children, storage.SectorAddr(binary.LittleEndian.Uint64(buf[offChildLT:])))
	}
	n.Keys = make([][]byte, 0, count)
	n.Records = make([]storage.RecordAddr, 0, count)

	entrySize := keySize + storage.RecordAddrSize + storage.ChildAddrSize
	off := storage.NodeHeaderSize
	for i := 0; i < count; i++ {
		n.Keys = append(n.Keys, cloneKey(buf[off:off+keySize]))
		n.Records = append(n.Records, storage.RecordAddr(binary.LittleEndian.Uint64(buf[off+keySize:])))
		if kind == KindInternal {
			n.Children = append(n.Children, storage.SectorAddr(binary.LittleEndian.Uint64(buf[off+keySize+storage.RecordAddrSize:])))
		}
		off += entrySize
	}

	if kind == KindInternal {
		for _, child := range n.Children {
			if child == 0 {
				return nil, storage.Corruptf("internal sector %d has a null child", addr)
			}
		}
	}

	return n, nil
}
