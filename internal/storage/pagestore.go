package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// PageStore performs fixed-size sector I/O over a single index file.
// Every call is synchronous; caching belongs to the layers above.
// A PageStore is not safe for concurrent use.
type PageStore struct {
	file     *os.File
	path     string
	header   IndexHeader
	geometry Geometry
	freeList *FreeList

	headerDirty bool
	unsynced    bool
	readOnly    bool
	noSync      bool
	closed      bool

	reads  uint64
	writes uint64
}

// CreatePageStore creates a new index file at path with geometry g.
// It fails with ErrFileExists if the file already exists.
func CreatePageStore(path string, g Geometry, opts Options) (*PageStore, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if opts.ReadOnly {
		return nil, ErrReadOnly
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return nil, fmt.Errorf("failed to create index file: %w", err)
	}

	ps := &PageStore{
		file:     file,
		path:     path,
		header:   *NewIndexHeader(g),
		geometry: g,
		freeList: NewFreeList(),
		noSync:   opts.NoSync,
	}

	if err := ps.file.Truncate(int64(g.SectorSize)); err != nil {
		ps.abort()
		return nil, fmt.Errorf("failed to size index file: %w", err)
	}
	ps.headerDirty = true
	if err := ps.Sync(); err != nil {
		ps.abort()
		return nil, err
	}

	return ps, nil
}

// OpenPageStore opens an existing index file. Non-zero fields of want must
// match the stored geometry, otherwise ErrIncompatibleFormat is returned.
func OpenPageStore(path string, want Geometry, opts Options) (*PageStore, error) {
	flags := os.O_RDWR
	if opts.ReadOnly {
		flags = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}

	ps := &PageStore{
		file:     file,
		path:     path,
		freeList: NewFreeList(),
		readOnly: opts.ReadOnly,
		noSync:   opts.NoSync,
	}

	if err := ps.loadExisting(want); err != nil {
		file.Close()
		return nil, err
	}

	return ps, nil
}

// loadExisting reads and checks the header, then rebuilds the free list.
func (ps *PageStore) loadExisting(want Geometry) error {
	buf := make([]byte, IndexHeaderSize)
	if _, err := ps.file.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return Corruptf("index file too short for header")
		}
		return fmt.Errorf("failed to read index header: %w", err)
	}

	if err := ps.header.DeserializeAndValidate(buf); err != nil {
		return err
	}
	ps.geometry = ps.header.Geometry()

	if want.KeySize != 0 && want.KeySize != ps.geometry.KeySize {
		return fmt.Errorf("%w: key size %d, file has %d", ErrIncompatibleFormat, want.KeySize, ps.geometry.KeySize)
	}
	if want.SectorSize != 0 && want.SectorSize != ps.geometry.SectorSize {
		return fmt.Errorf("%w: sector size %d, file has %d", ErrIncompatibleFormat, want.SectorSize, ps.geometry.SectorSize)
	}

	info, err := ps.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}
	if info.Size() < int64(ps.header.TotalSectors)*int64(ps.geometry.SectorSize) {
		return Corruptf("index file holds %d bytes, header claims %d sectors", info.Size(), ps.header.TotalSectors)
	}

	return ps.loadFreeList()
}

// loadFreeList walks the on-disk chain starting at the header's free head.
func (ps *PageStore) loadFreeList() error {
	var chain []SectorAddr
	seen := make(map[SectorAddr]struct{})

	for addr := ps.header.FreeHead; addr != 0; {
		if _, dup := seen[addr]; dup {
			return Corruptf("free sector list loops at sector %d", addr)
		}
		seen[addr] = struct{}{}

		buf, err := ps.Read(addr)
		if err != nil {
			return err
		}
		next, ok := DecodeFreeSector(buf)
		if !ok {
			return Corruptf("sector %d on free list is not free", addr)
		}
		chain = append(chain, addr)
		addr = next
	}

	ps.freeList.loadChain(chain)
	return nil
}

// Allocate returns a sector for a new node. It reuses the free list head
// when one exists and otherwise grows the file by one sector.
func (ps *PageStore) Allocate() (SectorAddr, error) {
	if err := ps.checkWritable(); err != nil {
		return 0, err
	}

	if addr, ok := ps.freeList.Pop(); ok {
		ps.header.FreeHead = ps.freeList.Head()
		ps.headerDirty = true
		return addr, nil
	}

	addr := SectorAddr(ps.header.TotalSectors)
	size := int64(ps.header.TotalSectors+1) * int64(ps.geometry.SectorSize)
	if err := ps.file.Truncate(size); err != nil {
		return 0, fmt.Errorf("failed to grow index file: %w", err)
	}

	ps.header.TotalSectors++
	ps.headerDirty = true
	ps.unsynced = true

	return addr, nil
}

// Read returns a copy of the sector at addr.
func (ps *PageStore) Read(addr SectorAddr) ([]byte, error) {
	if ps.closed {
		return nil, ErrClosed
	}
	if err := ps.checkRange(addr); err != nil {
		return nil, err
	}

	buf := make([]byte, ps.geometry.SectorSize)
	n, err := ps.file.ReadAt(buf, ps.offset(addr))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read sector %d: %w", addr, err)
	}
	if n < len(buf) {
		return nil, Corruptf("short read of sector %d: %d of %d bytes", addr, n, len(buf))
	}

	ps.reads++
	return buf, nil
}

// Write overwrites the sector at addr with buf.
func (ps *PageStore) Write(addr SectorAddr, buf []byte) error {
	if err := ps.checkWritable(); err != nil {
		return err
	}
	if len(buf) != ps.geometry.SectorSize {
		return fmt.Errorf("%w: buffer of %d bytes for %d byte sectors", ErrInvalidSectorSize, len(buf), ps.geometry.SectorSize)
	}
	if err := ps.checkRange(addr); err != nil {
		return err
	}

	if _, err := ps.file.WriteAt(buf, ps.offset(addr)); err != nil {
		return fmt.Errorf("failed to write sector %d: %w", addr, err)
	}

	ps.writes++
	ps.unsynced = true
	return nil
}

// Free pushes addr onto the free list, writing the link into the sector.
func (ps *PageStore) Free(addr SectorAddr) error {
	if err := ps.checkWritable(); err != nil {
		return err
	}
	if err := ps.checkRange(addr); err != nil {
		return err
	}
	if ps.freeList.Contains(addr) {
		return Corruptf("sector %d freed twice", addr)
	}

	buf := make([]byte, ps.geometry.SectorSize)
	EncodeFreeSector(buf, ps.freeList.Head())
	if err := ps.Write(addr, buf); err != nil {
		return err
	}

	ps.freeList.Push(addr)
	ps.header.FreeHead = addr
	ps.headerDirty = true
	return nil
}

// Meta returns the tree-owned header fields.
func (ps *PageStore) Meta() Meta {
	return ps.header.Meta()
}

// SetMeta records new tree-owned header fields. The header is only marked
// dirty when something changed.
func (ps *PageStore) SetMeta(m Meta) {
	if ps.header.Meta() == m {
		return
	}
	ps.header.Root = m.Root
	ps.header.EntryCount = m.Entries
	ps.header.Height = m.Height
	ps.headerDirty = true
}

// Sync writes the header if it changed and fsyncs if anything was written
// since the previous Sync. A clean store performs no I/O.
func (ps *PageStore) Sync() error {
	if ps.closed {
		return ErrClosed
	}
	if ps.readOnly {
		return nil
	}

	if ps.headerDirty {
		buf := make([]byte, IndexHeaderSize)
		if err := ps.header.SerializeTo(buf); err != nil {
			return err
		}
		if _, err := ps.file.WriteAt(buf, 0); err != nil {
			return fmt.Errorf("failed to write index header: %w", err)
		}
		ps.writes++
		ps.headerDirty = false
		ps.unsynced = true
	}

	if ps.unsynced {
		if !ps.noSync {
			if err := ps.file.Sync(); err != nil {
				return fmt.Errorf("failed to sync index file: %w", err)
			}
		}
		ps.unsynced = false
	}

	return nil
}

// Close syncs the store and releases the file.
func (ps *PageStore) Close() error {
	if ps.closed {
		return ErrClosed
	}

	if err := ps.Sync(); err != nil {
		ps.abort()
		return err
	}

	ps.closed = true
	return ps.file.Close()
}

// Release closes the file without writing the header.
func (ps *PageStore) Release() error {
	if ps.closed {
		return ErrClosed
	}
	ps.closed = true
	return ps.file.Close()
}

// abort releases the handle after a failed create or close.
func (ps *PageStore) abort() {
	ps.closed = true
	ps.file.Close()
}

func (ps *PageStore) checkWritable() error {
	if ps.closed {
		return ErrClosed
	}
	if ps.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (ps *PageStore) checkRange(addr SectorAddr) error {
	if addr == 0 || uint64(addr) >= ps.header.TotalSectors {
		return Corruptf("sector %d outside allocated range [1, %d)", addr, ps.header.TotalSectors)
	}
	return nil
}

func (ps *PageStore) offset(addr SectorAddr) int64 {
	return int64(addr) * int64(ps.geometry.SectorSize)
}

// Geometry returns the sector and key sizes of the file.
func (ps *PageStore) Geometry() Geometry {
	return ps.geometry
}

// SectorSize returns the sector size in bytes.
func (ps *PageStore) SectorSize() int {
	return ps.geometry.SectorSize
}

// Path returns the file path.
func (ps *PageStore) Path() string {
	return ps.path
}

// IsReadOnly reports whether the store was opened read-only.
func (ps *PageStore) IsReadOnly() bool {
	return ps.readOnly
}

// FreeChain returns the free sectors in on-disk order, head first.
func (ps *PageStore) FreeChain() []SectorAddr {
	return ps.freeList.Chain()
}

// Stats holds counters for a PageStore.
type Stats struct {
	SectorSize    int
	KeySize       int
	TotalSectors  uint64
	FreeSectors   uint64
	UsedSectors   uint64
	Reads         uint64
	Writes        uint64
	FileSizeBytes int64
}

// Stats returns current statistics.
func (ps *PageStore) Stats() Stats {
	free := uint64(ps.freeList.Len())
	return Stats{
		SectorSize:    ps.geometry.SectorSize,
		KeySize:       ps.geometry.KeySize,
		TotalSectors:  ps.header.TotalSectors,
		FreeSectors:   free,
		UsedSectors:   ps.header.TotalSectors - free - 1, // -1 for header
		Reads:         ps.reads,
		Writes:        ps.writes,
		FileSizeBytes: int64(ps.header.TotalSectors) * int64(ps.geometry.SectorSize),
	}
}
