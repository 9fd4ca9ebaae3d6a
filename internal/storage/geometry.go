package storage

import "fmt"

// Node layout constants shared with the btree package.
const (
	// NodeHeaderSize is the fixed prefix of every node sector.
	NodeHeaderSize = 32

	// ChildAddrSize is the on-disk width of a child sector address.
	ChildAddrSize = 8

	// RecordAddrSize is the on-disk width of a record address.
	RecordAddrSize = 8

	// MinSectorSize is the smallest sector the header and a node prefix fit in.
	MinSectorSize = 64

	// MaxSectorSize caps the sector size so node arrays stay small.
	MaxSectorSize = 4096

	// MinNodeEntries is the smallest acceptable maxCt. A split of a full
	// node then leaves at least 3 entries on each side.
	MinNodeEntries = 6
)

// StandardSectorSizes lists the sector sizes tried by SectorSizeFor.
var StandardSectorSizes = []int{256, 512, 1024, 2048, 4096}

// Geometry describes the fixed sector and key widths of an index file.
type Geometry struct {
	SectorSize int
	KeySize    int
}

// MaxCount returns how many entries fit in one node sector.
func MaxCount(sectorSize, keySize int) int {
	if keySize <= 0 || sectorSize <= NodeHeaderSize {
		return 0
	}
	return (sectorSize - NodeHeaderSize) / (ChildAddrSize + keySize + RecordAddrSize)
}

// MaxCount returns the node capacity for g.
func (g Geometry) MaxCount() int {
	return MaxCount(g.SectorSize, g.KeySize)
}

// MinCount returns the underflow threshold for non-root nodes.
func (g Geometry) MinCount() int {
	return g.MaxCount() / 2
}

// Validate checks that g can back a B+Tree.
func (g Geometry) Validate() error {
	if err := validateSectorSize(g.SectorSize); err != nil {
		return err
	}
	if g.KeySize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeySize, g.KeySize)
	}
	if ct := g.MaxCount(); ct < MinNodeEntries {
		return fmt.Errorf("%w: sector %d key %d holds %d entries, need %d",
			ErrSectorSize, g.SectorSize, g.KeySize, ct, MinNodeEntries)
	}
	return nil
}

func validateSectorSize(size int) error {
	if size < MinSectorSize || size > MaxSectorSize {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidSectorSize, size, MinSectorSize, MaxSectorSize)
	}
	if size%4 != 0 || size&(size-1) != 0 {
		return fmt.Errorf("%w: %d is not a power of two", ErrInvalidSectorSize, size)
	}
	return nil
}

// SectorSizeFor returns the smallest standard sector size whose nodes hold
// at least MinNodeEntries keys of keySize bytes.
func SectorSizeFor(keySize int) (int, error) {
	if keySize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidKeySize, keySize)
	}
	for _, size := range StandardSectorSizes {
		if MaxCount(size, keySize) >= MinNodeEntries {
			return size, nil
		}
	}
	return 0, fmt.Errorf("%w: no sector size up to %d fits key size %d", ErrSectorSize, MaxSectorSize, keySize)
}

// MaxKeySize returns the largest key size any allowed sector can hold.
func MaxKeySize() int {
	return (MaxSectorSize-NodeHeaderSize)/MinNodeEntries - ChildAddrSize - RecordAddrSize
}

// SectorSizeEntry is one row of the key size to sector size table.
type SectorSizeEntry struct {
	KeySize    int
	SectorSize int
	MaxCount   int
}

// SectorSizeTable lists, for every key size from 1 up to MaxKeySize, the
// smallest standard sector size that accepts it.
func SectorSizeTable() []SectorSizeEntry {
	var table []SectorSizeEntry
	for ks := 1; ks <= MaxKeySize(); ks++ {
		size, err := SectorSizeFor(ks)
		if err != nil {
			break
		}
		table = append(table, SectorSizeEntry{KeySize: ks, SectorSize: size, MaxCount: MaxCount(size, ks)})
	}
	return table
}

// ValidateGeometry checks a (sectorSize, keySize) pair.
func ValidateGeometry(sectorSize, keySize int) error {
	return Geometry{SectorSize: sectorSize, KeySize: keySize}.Validate()
}
