package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Record store errors.
var (
	// ErrRecordTooLarge is returned by Write when a payload exceeds the
	// slot capacity. The caller allocates a larger slot instead.
	ErrRecordTooLarge = errors.New("record larger than slot capacity")

	// ErrPayloadTooLarge is returned for payloads no slot can describe.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum record size")
)

// MaxPayload is the largest payload a slot can hold.
const MaxPayload = 1<<31 - 8

// Record is a slot and its payload.
type Record struct {
	Addr     storage.RecordAddr
	Capacity uint32
	Data     []byte
}

// freeSlot is one element of the in-memory free list.
type freeSlot struct {
	addr     storage.RecordAddr
	capacity uint32

	// diskNext is the link currently written in the slot; linked is false
	// until the slot has been written as free at least once.
	diskNext storage.RecordAddr
	linked   bool
}

// Store manages a record file. It is not safe for concurrent use.
type Store struct {
	file   *os.File
	path   string
	header Header

	// free is the free slot stack; the last element is the head.
	free    []*freeSlot
	freeSet map[storage.RecordAddr]struct{}

	// capacities remembers slots allocated since open, which may not be
	// written yet.
	capacities map[storage.RecordAddr]uint32

	headerDirty bool
	unsynced    bool
	readOnly    bool
	noSync      bool
	closed      bool

	reads  uint64
	writes uint64
}

// Create creates a new record file. It fails with storage.ErrFileExists if
// the file already exists.
func Create(path string, flags uint32, opts storage.Options) (*Store, error) {
	if opts.ReadOnly {
		return nil, storage.ErrReadOnly
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrFileExists, path)
		}
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}

	s := newStore(file, path, opts)
	s.header = *NewHeader(flags)
	s.headerDirty = true

	if err := s.Sync(); err != nil {
		s.closed = true
		file.Close()
		return nil, err
	}
	return s, nil
}

// Open opens an existing record file and rebuilds its free list.
func Open(path string, opts storage.Options) (*Store, error) {
	flags := os.O_RDWR
	if opts.ReadOnly {
		flags = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}

	s := newStore(file, path, opts)
	if err := s.loadExisting(); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func newStore(file *os.File, path string, opts storage.Options) *Store {
	return &Store{
		file:       file,
		path:       path,
		freeSet:    make(map[storage.RecordAddr]struct{}),
		capacities: make(map[storage.RecordAddr]uint32),
		readOnly:   opts.ReadOnly,
		noSync:     opts.NoSync,
	}
}

func (s *Store) loadExisting() error {
	buf := make([]byte, HeaderSize)
	if _, err := s.file.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return storage.Corruptf("record file too short for header")
		}
		return fmt.Errorf("failed to read record header: %w", err)
	}
	if err := s.header.DeserializeAndValidate(buf); err != nil {
		return err
	}

	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat record file: %w", err)
	}
	if uint64(info.Size()) < s.header.End {
		return storage.Corruptf("record file holds %d bytes, header end is %d", info.Size(), s.header.End)
	}

	return s.loadFreeList()
}

// loadFreeList walks the on-disk chain from the header's head.
func (s *Store) loadFreeList() error {
	var chain []*freeSlot

	for addr := s.header.FreeHead; addr != 0; {
		if _, dup := s.freeSet[addr]; dup {
			return storage.Corruptf("free record list loops at %d", addr)
		}

		capacity, length, err := s.readSlotHeader(addr)
		if err != nil {
			return err
		}
		if length != FreeMarker {
			return storage.Corruptf("record %d on free list is not free", addr)
		}

		link := make([]byte, 8)
		if _, err := s.file.ReadAt(link, int64(addr)+SlotHeaderSize); err != nil {
			return fmt.Errorf("failed to read free link at %d: %w", addr, err)
		}
		next := storage.RecordAddr(binary.LittleEndian.Uint64(link))

		chain = append(chain, &freeSlot{addr: addr, capacity: capacity, diskNext: next, linked: true})
		s.freeSet[addr] = struct{}{}
		addr = next
	}

	s.free = make([]*freeSlot, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		s.free = append(s.free, chain[i])
	}
	return nil
}

// readSlotHeader reads and range-checks the slot prefix at addr.
func (s *Store) readSlotHeader(addr storage.RecordAddr) (capacity, length uint32, err error) {
	if uint64(addr) < HeaderSize || uint64(addr)+SlotHeaderSize > s.header.End {
		return 0, 0, storage.Corruptf("record address %d outside [%d, %d)", addr, HeaderSize, s.header.End)
	}

	buf := make([]byte, SlotHeaderSize)
	if _, err := s.file.ReadAt(buf, int64(addr)); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, storage.Corruptf("record %d beyond end of file", addr)
		}
		return 0, 0, fmt.Errorf("failed to read record %d: %w", addr, err)
	}
	s.reads++

	capacity = binary.LittleEndian.Uint32(buf[0:4])
	length = binary.LittleEndian.Uint32(buf[4:8])
	if capacity < MinCapacity || uint64(addr)+SlotHeaderSize+uint64(capacity) > s.header.End {
		return 0, 0, storage.Corruptf("record %d has invalid capacity %d", addr, capacity)
	}
	return capacity, length, nil
}

// Alloc reserves a slot for an n byte payload. The first free slot with
// enough capacity is reused, otherwise the file grows.
func (s *Store) Alloc(n int) (storage.RecordAddr, uint32, error) {
	if err := s.checkWritable(); err != nil {
		return 0, 0, err
	}
	if n < 0 || n > MaxPayload {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, n)
	}
	need := roundCapacity(n)

	for i := len(s.free) - 1; i >= 0; i-- {
		slot := s.free[i]
		if slot.capacity < need {
			continue
		}
		s.free = append(s.free[:i], s.free[i+1:]...)
		delete(s.freeSet, slot.addr)
		s.capacities[slot.addr] = slot.capacity
		s.header.Records++
		s.headerDirty = true
		return slot.addr, slot.capacity, nil
	}

	addr := storage.RecordAddr(s.header.End)
	s.header.End += SlotHeaderSize + uint64(need)
	s.header.Records++
	s.headerDirty = true
	s.capacities[addr] = need

	return addr, need, nil
}

// Read returns the record stored at addr.
func (s *Store) Read(addr storage.RecordAddr) (*Record, error) {
	if s.closed {
		return nil, storage.ErrClosed
	}
	if _, isFree := s.freeSet[addr]; isFree {
		return nil, storage.Corruptf("record %d is free", addr)
	}

	capacity, length, err := s.readSlotHeader(addr)
	if err != nil {
		return nil, err
	}
	if length == FreeMarker {
		return nil, storage.Corruptf("record %d is a free slot", addr)
	}
	if length > capacity {
		return nil, storage.Corruptf("record %d length %d exceeds capacity %d", addr, length, capacity)
	}

	data := make([]byte, length)
	if length > 0 {
		if _, err := s.file.ReadAt(data, int64(addr)+SlotHeaderSize); err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", addr, err)
		}
	}

	return &Record{Addr: addr, Capacity: capacity, Data: data}, nil
}

// Write stores rec.Data in its slot. A payload larger than the slot
// returns ErrRecordTooLarge.
func (s *Store) Write(rec *Record) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if uint64(len(rec.Data)) > uint64(rec.Capacity) {
		return fmt.Errorf("%w: %d bytes into %d", ErrRecordTooLarge, len(rec.Data), rec.Capacity)
	}
	if uint64(rec.Addr) < HeaderSize || uint64(rec.Addr)+SlotHeaderSize+uint64(rec.Capacity) > s.header.End {
		return storage.Corruptf("record %d with capacity %d outside file", rec.Addr, rec.Capacity)
	}

	buf := make([]byte, SlotHeaderSize+len(rec.Data))
	binary.LittleEndian.PutUint32(buf[0:4], rec.Capacity)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(rec.Data)))
	copy(buf[SlotHeaderSize:], rec.Data)

	if _, err := s.file.WriteAt(buf, int64(rec.Addr)); err != nil {
		return fmt.Errorf("failed to write record %d: %w", rec.Addr, err)
	}
	s.writes++
	s.unsynced = true
	return nil
}

func (s *Store) ensureSize(size int64) error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat record file: %w", err)
	}
	if info.Size() < size {
		if err := s.file.Truncate(size); err != nil {
			return fmt.Errorf("failed to grow record file: %w", err)
		}
	}
	return nil
}

// Free releases the slot at addr. The link into the free chain is written
// by the next Sync.
func (s *Store) Free(addr storage.RecordAddr) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if _, isFree := s.freeSet[addr]; isFree {
		return storage.Corruptf("record %d freed twice", addr)
	}

	capacity, ok := s.capacities[addr]
	if !ok {
		c, length, err := s.readSlotHeader(addr)
		if err != nil {
			return err
		}
		if length == FreeMarker {
			return storage.Corruptf("record %d freed twice", addr)
		}
		capacity = c
	}

	delete(s.capacities, addr)
	s.free = append(s.free, &freeSlot{addr: addr, capacity: capacity})
	s.freeSet[addr] = struct{}{}
	if s.header.Records > 0 {
		s.header.Records--
	}
	s.headerDirty = true
	return nil
}

// Sync writes changed free-list links, then the header if it changed,
// then fsyncs if anything was written. A clean store performs no I/O.
func (s *Store) Sync() error {
	if s.closed {
		return storage.ErrClosed
	}
	if s.readOnly {
		return nil
	}

	// Walk head first; each slot must link to the one after it.
	for i := len(s.free) - 1; i >= 0; i-- {
		slot := s.free[i]
		var next storage.RecordAddr
		if i > 0 {
			next = s.free[i-1].addr
		}
		if slot.linked && slot.diskNext == next {
			continue
		}
		if err := s.writeFreeSlot(slot, next); err != nil {
			return err
		}
	}

	var head storage.RecordAddr
	if len(s.free) > 0 {
		head = s.free[len(s.free)-1].addr
	}
	if s.header.FreeHead != head {
		s.header.FreeHead = head
		s.headerDirty = true
	}

	if s.headerDirty {
		// Slots appended but only partly written must still lie inside the file.
		if err := s.ensureSize(int64(s.header.End)); err != nil {
			return err
		}
		if _, err := s.file.WriteAt(s.header.Serialize(), 0); err != nil {
			return fmt.Errorf("failed to write record header: %w", err)
		}
		s.writes++
		s.headerDirty = false
		s.unsynced = true
	}

	if s.unsynced {
		if !s.noSync {
			if err := s.file.Sync(); err != nil {
				return fmt.Errorf("failed to sync record file: %w", err)
			}
		}
		s.unsynced = false
	}
	return nil
}

// Dirty reports whether Sync has anything to write.
func (s *Store) Dirty() bool {
	if s.closed || s.readOnly {
		return false
	}
	if s.headerDirty || s.unsynced {
		return true
	}
	for i := len(s.free) - 1; i >= 0; i-- {
		var next storage.RecordAddr
		if i > 0 {
			next = s.free[i-1].addr
		}
		if !s.free[i].linked || s.free[i].diskNext != next {
			return true
		}
	}
	return false
}

func (s *Store) writeFreeSlot(slot *freeSlot, next storage.RecordAddr) error {
	buf := make([]byte, SlotHeaderSize+8)
	binary.LittleEndian.PutUint32(buf[0:4], slot.capacity)
	binary.LittleEndian.PutUint32(buf[4:8], FreeMarker)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(next))

	if _, err := s.file.WriteAt(buf, int64(slot.addr)); err != nil {
		return fmt.Errorf("failed to write free record %d: %w", slot.addr, err)
	}
	s.writes++
	s.unsynced = true

	slot.diskNext = next
	slot.linked = true
	return nil
}

// Close syncs the store and releases the file.
func (s *Store) Close() error {
	if s.closed {
		return storage.ErrClosed
	}
	if err := s.Sync(); err != nil {
		s.closed = true
		s.file.Close()
		return err
	}
	s.closed = true
	return s.file.Close()
}

// Release closes the file without syncing.
func (s *Store) Release() error {
	if s.closed {
		return storage.ErrClosed
	}
	s.closed = true
	return s.file.Close()
}

func (s *Store) checkWritable() error {
	if s.closed {
		return storage.ErrClosed
	}
	if s.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

// Compressed reports whether payloads are snappy-compressed.
func (s *Store) Compressed() bool {
	return s.header.Compressed()
}

// Flags returns the header flags.
func (s *Store) Flags() uint32 {
	return s.header.Flags
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// FreeChain returns free slot addresses head first.
func (s *Store) FreeChain() []storage.RecordAddr {
	out := make([]storage.RecordAddr, 0, len(s.free))
	for i := len(s.free) - 1; i >= 0; i-- {
		out = append(out, s.free[i].addr)
	}
	return out
}

// Stats holds record store counters.
type Stats struct {
	Records   uint64
	FreeSlots int
	FreeBytes uint64
	End       uint64
	Reads     uint64
	Writes    uint64
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	var freeBytes uint64
	for _, slot := range s.free {
		freeBytes += uint64(slot.capacity)
	}
	return Stats{
		Records:   s.header.Records,
		FreeSlots: len(s.free),
		FreeBytes: freeBytes,
		End:       s.header.End,
		Reads:     s.reads,
		Writes:    s.writes,
	}
}
