package record

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// createTestStore creates a record file in a temporary directory.
func createTestStore(t *testing.T, flags uint32) (*Store, string) {
	t.Helper()

	dir, err := os.MkdirTemp("", "record_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "test.dat")
	s, err := Create(path, flags, storage.DefaultOptions().WithNoSync(true))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { s.Release() })
	return s, path
}

func reopenStore(t *testing.T, s *Store, path string) *Store {
	t.Helper()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened, err := Open(path, storage.DefaultOptions().WithNoSync(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { reopened.Release() })
	return reopened
}

// storeData allocates a slot for data and writes it.
func storeData(t *testing.T, s *Store, data []byte) *Record {
	t.Helper()
	addr, capacity, err := s.Alloc(len(data))
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	rec := &Record{Addr: addr, Capacity: capacity, Data: data}
	if err := s.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return rec
}

// =============================================================================
// Header Tests
// =============================================================================

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(FlagSnappy)
	h.FreeHead = 128
	h.End = 512
	h.Records = 9

	got := &Header{}
	if err := got.DeserializeAndValidate(h.Serialize()); err != nil {
		t.Fatalf("DeserializeAndValidate failed: %v", err)
	}
	if *got != *h {
		t.Errorf("header = %+v, want %+v", *got, *h)
	}
	if !got.Compressed() {
		t.Error("Compressed() = false, want true")
	}
}

func TestHeaderCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(buf []byte)
	}{
		{"magic", func(buf []byte) { buf[1] = 'X' }},
		{"checksum", func(buf []byte) { buf[30] ^= 0xFF }},
		{"short", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewHeader(0).Serialize()
			if tt.mutate != nil {
				tt.mutate(buf)
			} else {
				buf = buf[:10]
			}
			h := &Header{}
			if err := h.DeserializeAndValidate(buf); !errors.Is(err, storage.ErrCorrupted) {
				t.Errorf("error = %v, want ErrCorrupted", err)
			}
		})
	}
}

func TestRoundCapacity(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 8}, {1, 8}, {8, 8}, {9, 16}, {100, 104}, {5000, 5000},
	}
	for _, tt := range tests {
		if got := roundCapacity(tt.n); int(got) != tt.want {
			t.Errorf("roundCapacity(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

// =============================================================================
// Store Tests
// =============================================================================

func TestStoreWriteRead(t *testing.T) {
	s, _ := createTestStore(t, 0)

	rec := storeData(t, s, []byte("hello, record"))
	if rec.Addr != HeaderSize {
		t.Errorf("first record at %d, want %d", rec.Addr, HeaderSize)
	}

	got, err := s.Read(rec.Addr)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got.Data, rec.Data) || got.Capacity != rec.Capacity {
		t.Errorf("Read = %q/%d, want %q/%d", got.Data, got.Capacity, rec.Data, rec.Capacity)
	}

	empty := storeData(t, s, nil)
	got, err = s.Read(empty.Addr)
	if err != nil || len(got.Data) != 0 {
		t.Errorf("empty record Read = %v, %v", got, err)
	}
}

func TestStoreWriteTooLarge(t *testing.T) {
	s, _ := createTestStore(t, 0)

	rec := storeData(t, s, []byte("short"))
	rec.Data = bytes.Repeat([]byte("x"), int(rec.Capacity)+1)

	if err := s.Write(rec); !errors.Is(err, ErrRecordTooLarge) {
		t.Errorf("Write = %v, want ErrRecordTooLarge", err)
	}

	rec.Data = bytes.Repeat([]byte("y"), int(rec.Capacity))
	if err := s.Write(rec); err != nil {
		t.Errorf("Write at full capacity failed: %v", err)
	}
}

func TestStoreReadInvalid(t *testing.T) {
	s, _ := createTestStore(t, 0)
	rec := storeData(t, s, []byte("data"))
	s.Sync()

	for _, addr := range []storage.RecordAddr{0, 10, storage.RecordAddr(s.Stats().End) + 8} {
		if _, err := s.Read(addr); !errors.Is(err, storage.ErrCorrupted) {
			t.Errorf("Read(%d) = %v, want ErrCorrupted", addr, err)
		}
	}

	s.Free(rec.Addr)
	if _, err := s.Read(rec.Addr); !errors.Is(err, storage.ErrCorrupted) {
		t.Errorf("Read of freed record = %v, want ErrCorrupted", err)
	}
}

func TestStoreFreeAndReuse(t *testing.T) {
	s, _ := createTestStore(t, 0)

	small := storeData(t, s, make([]byte, 10))
	large := storeData(t, s, make([]byte, 100))
	end := s.Stats().End

	if err := s.Free(small.Addr); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := s.Free(large.Addr); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := s.Free(large.Addr); !errors.Is(err, storage.ErrCorrupted) {
		t.Errorf("double Free = %v, want ErrCorrupted", err)
	}

	// 50 bytes skips the small slot and takes the large one.
	addr, capacity, err := s.Alloc(50)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if addr != large.Addr || capacity != large.Capacity {
		t.Errorf("Alloc(50) = %d/%d, want %d/%d", addr, capacity, large.Addr, large.Capacity)
	}

	addr, _, _ = s.Alloc(4)
	if addr != small.Addr {
		t.Errorf("Alloc(4) = %d, want %d", addr, small.Addr)
	}

	if s.Stats().End != end {
		t.Errorf("End grew from %d to %d despite free slots", end, s.Stats().End)
	}

	addr, _, _ = s.Alloc(4)
	if uint64(addr) != end {
		t.Errorf("Alloc with empty free list = %d, want %d", addr, end)
	}
}

func TestStoreFreeListPersists(t *testing.T) {
	s, path := createTestStore(t, 0)

	var recs []*Record
	for i := 0; i < 6; i++ {
		recs = append(recs, storeData(t, s, bytes.Repeat([]byte{byte('a' + i)}, 8*(i+1))))
	}
	s.Free(recs[4].Addr)
	s.Free(recs[3].Addr)
	s.Free(recs[1].Addr)
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	// Take the middle element out of the chain, then re-link.
	addr, _, _ := s.Alloc(30)
	if addr != recs[3].Addr {
		t.Fatalf("Alloc(30) = %d, want %d", addr, recs[3].Addr)
	}
	s.Write(&Record{Addr: addr, Capacity: recs[3].Capacity, Data: []byte("reused")})

	reopened := reopenStore(t, s, path)

	chain := reopened.FreeChain()
	want := []storage.RecordAddr{recs[1].Addr, recs[4].Addr}
	if len(chain) != len(want) || chain[0] != want[0] || chain[1] != want[1] {
		t.Errorf("FreeChain() = %v, want %v", chain, want)
	}

	stats := reopened.Stats()
	if stats.Records != 4 {
		t.Errorf("Records = %d, want 4", stats.Records)
	}
	if stats.FreeSlots != 2 {
		t.Errorf("FreeSlots = %d, want 2", stats.FreeSlots)
	}

	got, err := reopened.Read(addr)
	if err != nil || string(got.Data) != "reused" {
		t.Errorf("Read(reused) = %v, %v", got, err)
	}
	for _, i := range []int{0, 2, 5} {
		got, err := reopened.Read(recs[i].Addr)
		if err != nil || !bytes.Equal(got.Data, recs[i].Data) {
			t.Errorf("Read(rec %d) = %v, %v", i, got, err)
		}
	}
}

func TestStoreFreeUnwritten(t *testing.T) {
	s, path := createTestStore(t, 0)

	addr, _, _ := s.Alloc(40)
	if err := s.Free(addr); err != nil {
		t.Fatalf("Free of unwritten slot failed: %v", err)
	}

	reopened := reopenStore(t, s, path)
	if chain := reopened.FreeChain(); len(chain) != 1 || chain[0] != addr {
		t.Errorf("FreeChain() = %v, want [%d]", chain, addr)
	}
}

func TestStoreAllocThenFreeRestoresCount(t *testing.T) {
	s, _ := createTestStore(t, 0)
	storeData(t, s, []byte("kept"))
	before := s.Stats().Records

	addr, _, err := s.Alloc(40)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if err := s.Free(addr); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if got := s.Stats().Records; got != before {
		t.Errorf("Records = %d after Alloc and Free, want %d", got, before)
	}

	again, _, err := s.Alloc(40)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if again != addr {
		t.Errorf("Alloc = %d, want the returned slot %d", again, addr)
	}
}

func TestStoreSyncIdempotent(t *testing.T) {
	s, _ := createTestStore(t, 0)
	rec := storeData(t, s, []byte("abc"))
	s.Free(rec.Addr)

	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	writes := s.Stats().Writes

	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if got := s.Stats().Writes; got != writes {
		t.Errorf("second Sync wrote %d times", got-writes)
	}
}

func TestStoreOpenLoop(t *testing.T) {
	s, path := createTestStore(t, 0)
	a := storeData(t, s, []byte("a"))
	b := storeData(t, s, []byte("b"))
	s.Free(a.Addr)
	s.Free(b.Addr)
	s.Close()

	// a is the tail; point it back at b.
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	link := make([]byte, 8)
	link[0] = byte(b.Addr)
	f.WriteAt(link, int64(a.Addr)+SlotHeaderSize)
	f.Close()

	if _, err := Open(path, storage.DefaultOptions()); !errors.Is(err, storage.ErrCorrupted) {
		t.Errorf("Open = %v, want ErrCorrupted", err)
	}
}

func TestStoreFlags(t *testing.T) {
	s, path := createTestStore(t, FlagSnappy)
	if !s.Compressed() {
		t.Error("Compressed() = false")
	}
	reopened := reopenStore(t, s, path)
	if !reopened.Compressed() || reopened.Flags() != FlagSnappy {
		t.Errorf("reopened Flags() = %d", reopened.Flags())
	}
}

func TestStoreCreateExisting(t *testing.T) {
	s, path := createTestStore(t, 0)
	s.Close()

	if _, err := Create(path, 0, storage.DefaultOptions()); !errors.Is(err, storage.ErrFileExists) {
		t.Errorf("Create on existing file = %v, want ErrFileExists", err)
	}
}

func TestStoreReadOnly(t *testing.T) {
	s, path := createTestStore(t, 0)
	rec := storeData(t, s, []byte("frozen"))
	s.Close()

	ro, err := Open(path, storage.DefaultOptions().WithReadOnly(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()

	if _, _, err := ro.Alloc(1); err != storage.ErrReadOnly {
		t.Errorf("Alloc = %v, want ErrReadOnly", err)
	}
	got, err := ro.Read(rec.Addr)
	if err != nil || string(got.Data) != "frozen" {
		t.Errorf("Read = %v, %v", got, err)
	}
}
