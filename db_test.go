package beedb

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/KilimcininKorOglu/beedb/internal/storage/record"
)

// createTestDB opens a new database in a temporary directory.
func createTestDB(t *testing.T, opts Options) (*DB, string) {
	t.Helper()

	dir, err := os.MkdirTemp("", "beedb_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	name := filepath.Join(dir, "test")
	db, err := Open(name, opts.WithNoSync(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, name
}

// reopenDB closes db and opens it again with opts.
func reopenDB(t *testing.T, db *DB, name string, opts Options) *DB {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened, err := Open(name, opts.WithNoSync(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	return reopened
}

// testKey pads s with NUL bytes to n bytes.
func testKey(s string, n int) []byte {
	key := make([]byte, n)
	copy(key, s)
	return key
}

func mustSet(t *testing.T, db *DB, key, value []byte) {
	t.Helper()
	if err := db.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(t *testing.T, db *DB, key []byte) []byte {
	t.Helper()
	value, err := db.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value
}

func mustValidateDB(t *testing.T, db *DB) {
	t.Helper()
	if err := db.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpenCreatesFiles(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(26))

	for _, path := range []string{name + IndexExt, name + RecordExt} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", path, err)
		}
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.SectorSize != 512 {
		t.Errorf("SectorSize = %d, want 512", stats.SectorSize)
	}
	if stats.KeySize != 26 || stats.MaxCount != 11 {
		t.Errorf("KeySize/MaxCount = %d/%d, want 26/11", stats.KeySize, stats.MaxCount)
	}
	if n, _ := db.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestOpenGeometry(t *testing.T) {
	tests := []struct {
		name       string
		sectorSize int
		keySize    int
		wantErr    error
	}{
		{"256/26 too small", 256, 26, ErrSectorSize},
		{"512/26 accepted", 512, 26, nil},
		{"no key size", 0, 0, ErrInvalidKeySize},
		{"odd sector", 500, 8, ErrInvalidSectorSize},
		{"huge key", 0, 700, ErrSectorSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := filepath.Join(t.TempDir(), "geo")
			opts := DefaultOptions(tt.keySize).WithSectorSize(tt.sectorSize).WithNoSync(true)

			db, err := Open(name, opts)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Open failed: %v", err)
				}
				db.Close()
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open = %v, want %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(name + IndexExt); !os.IsNotExist(statErr) {
				t.Error("rejected Open left an index file behind")
			}
		})
	}
}

func TestSectorSizeErrorIsIncompatibleFormat(t *testing.T) {
	name := filepath.Join(t.TempDir(), "geo")
	_, err := Open(name, DefaultOptions(26).WithSectorSize(256))
	if !errors.Is(err, ErrIncompatibleFormat) {
		t.Errorf("Open = %v, want ErrIncompatibleFormat", err)
	}
}

func TestOpenMissing(t *testing.T) {
	name := filepath.Join(t.TempDir(), "missing")

	_, err := Open(name, DefaultOptions(8).WithCreateIfNotExists(false))
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("Open = %v, want ErrNotExist", err)
	}
	_, err = Open(name, DefaultOptions(8).WithReadOnly(true))
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("read-only Open = %v, want ErrNotExist", err)
	}
}

func TestOpenZeroOptionsDoesNotCreate(t *testing.T) {
	name := filepath.Join(t.TempDir(), "fresh")

	if _, err := Open(name, Options{KeySize: 8}); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Open with zero options = %v, want ErrNotExist", err)
	}
	if _, err := os.Stat(name + RecordExt); !os.IsNotExist(err) {
		t.Errorf("data file created by zero options: %v", err)
	}

	db, err := Open(name, DefaultOptions(8).WithNoSync(true))
	if err != nil {
		t.Fatalf("Open with DefaultOptions failed: %v", err)
	}
	db.Close()
}

func TestOpenHalfDatabase(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))
	db.Close()

	if err := os.Remove(name + RecordExt); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := Open(name, DefaultOptions(8)); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Open = %v, want ErrCorrupted", err)
	}
}

func TestOpenIncompatible(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8).WithSectorSize(512))
	db.Close()

	tests := []struct {
		name string
		opts Options
	}{
		{"key size", DefaultOptions(10)},
		{"sector size", DefaultOptions(8).WithSectorSize(1024)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(name, tt.opts); !errors.Is(err, ErrIncompatibleFormat) {
				t.Errorf("Open = %v, want ErrIncompatibleFormat", err)
			}
		})
	}

	// Zero adopts the stored geometry.
	adopted, err := Open(name, DefaultOptions(0))
	if err != nil {
		t.Fatalf("Open with zero key size failed: %v", err)
	}
	defer adopted.Close()
	if adopted.KeySize() != 8 {
		t.Errorf("KeySize() = %d, want 8", adopted.KeySize())
	}
}

func TestOpenInvalidCompression(t *testing.T) {
	name := filepath.Join(t.TempDir(), "c")
	if _, err := Open(name, DefaultOptions(8).WithCompression("zstd")); !errors.Is(err, ErrInvalidCompression) {
		t.Errorf("Open = %v, want ErrInvalidCompression", err)
	}
}

// =============================================================================
// Read/Write Tests
// =============================================================================

func TestSetGet(t *testing.T) {
	db, _ := createTestDB(t, DefaultOptions(16))

	key := testKey("alpha", 16)
	mustSet(t, db, key, []byte("first"))

	if got := mustGet(t, db, key); string(got) != "first" {
		t.Errorf("Get = %q, want %q", got, "first")
	}

	// Returned values are copies.
	got := mustGet(t, db, key)
	got[0] = 'X'
	if again := mustGet(t, db, key); string(again) != "first" {
		t.Errorf("Get after mutating result = %q", again)
	}

	// Shrink in place, then grow past the slot capacity.
	mustSet(t, db, key, []byte("2nd"))
	if got := mustGet(t, db, key); string(got) != "2nd" {
		t.Errorf("Get = %q, want %q", got, "2nd")
	}
	large := bytes.Repeat([]byte("z"), 300)
	mustSet(t, db, key, large)
	if got := mustGet(t, db, key); !bytes.Equal(got, large) {
		t.Errorf("Get returned %d bytes, want 300", len(got))
	}

	stats, _ := db.Stats()
	if stats.PendingFrees != 1 {
		t.Errorf("PendingFrees = %d, want 1", stats.PendingFrees)
	}
	if n, _ := db.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}

	mustSet(t, db, testKey("empty", 16), nil)
	if got := mustGet(t, db, testKey("empty", 16)); len(got) != 0 {
		t.Errorf("empty value = %q", got)
	}
}

func TestSetInvalidKey(t *testing.T) {
	db, _ := createTestDB(t, DefaultOptions(16))

	if err := db.Set([]byte("short"), []byte("v")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set = %v, want ErrInvalidKey", err)
	}
	if _, err := db.Get([]byte("short")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get = %v, want ErrInvalidKey", err)
	}

	// Invalid keys are recoverable.
	mustSet(t, db, testKey("ok", 16), []byte("v"))
	stats, _ := db.Stats()
	if stats.Records != 1 {
		t.Errorf("Records = %d, want 1", stats.Records)
	}
}

func TestDelete(t *testing.T) {
	db, _ := createTestDB(t, DefaultOptions(8))

	for _, k := range []string{"a", "b", "c"} {
		mustSet(t, db, testKey(k, 8), []byte(k))
	}

	if err := db.Delete(testKey("b", 8)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := db.Get(testKey("b", 8)); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get deleted = %v, want ErrKeyNotFound", err)
	}
	if ok, _ := db.Has(testKey("b", 8)); ok {
		t.Error("Has(deleted) = true")
	}
	if err := db.Delete(testKey("b", 8)); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("second Delete = %v, want ErrKeyNotFound", err)
	}

	keys, err := db.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || !bytes.Equal(keys[0], testKey("a", 8)) || !bytes.Equal(keys[1], testKey("c", 8)) {
		t.Errorf("Keys() = %q", keys)
	}
	mustValidateDB(t, db)
}

// =============================================================================
// Commit Tests
// =============================================================================

func TestDurability(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(12))

	for i := 0; i < 300; i++ {
		mustSet(t, db, testKey(fmt.Sprintf("key%04d", i), 12), []byte(strconv.Itoa(i*i)))
	}
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	db = reopenDB(t, db, name, DefaultOptions(12))

	if n, _ := db.Len(); n != 300 {
		t.Fatalf("Len() after reopen = %d, want 300", n)
	}
	for i := 0; i < 300; i++ {
		got := mustGet(t, db, testKey(fmt.Sprintf("key%04d", i), 12))
		if string(got) != strconv.Itoa(i*i) {
			t.Fatalf("key%04d = %q, want %d", i, got, i*i)
		}
	}
	mustValidateDB(t, db)
}

func TestDiscardDropsChanges(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))

	mustSet(t, db, testKey("kept", 8), []byte("old"))
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	mustSet(t, db, testKey("kept", 8), []byte("new"))
	mustSet(t, db, testKey("lost", 8), []byte("x"))
	if err := db.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	reopened, err := Open(name, DefaultOptions(8))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()

	if got := mustGet(t, reopened, testKey("kept", 8)); string(got) != "old" {
		t.Errorf("kept = %q, want old", got)
	}
	if _, err := reopened.Get(testKey("lost", 8)); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("lost = %v, want ErrKeyNotFound", err)
	}
	mustValidateDB(t, reopened)
}

func TestCommitIdempotent(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))

	for i := 0; i < 500; i++ {
		mustSet(t, db, testKey(strconv.Itoa(i), 8), bytes.Repeat([]byte{'v'}, i%40))
	}
	for i := 0; i < 500; i += 3 {
		db.Delete(testKey(strconv.Itoa(i), 8))
	}
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	idx, _ := os.ReadFile(name + IndexExt)
	dat, _ := os.ReadFile(name + RecordExt)
	before, _ := db.Stats()

	// Reads do not make the database dirty.
	mustGet(t, db, testKey("1", 8))
	if err := db.Commit(); err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}

	after, _ := db.Stats()
	if after.IndexWrites != before.IndexWrites || after.RecordWrites != before.RecordWrites {
		t.Errorf("second Commit wrote: index %d->%d, records %d->%d",
			before.IndexWrites, after.IndexWrites, before.RecordWrites, after.RecordWrites)
	}
	if after.Commits != before.Commits {
		t.Errorf("Commits = %d, want %d", after.Commits, before.Commits)
	}

	idx2, _ := os.ReadFile(name + IndexExt)
	dat2, _ := os.ReadFile(name + RecordExt)
	if !bytes.Equal(idx, idx2) || !bytes.Equal(dat, dat2) {
		t.Error("files changed on a commit with no mutations")
	}
}

func TestAutocommit(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8).WithAutocommit(true))

	mustSet(t, db, testKey("a", 8), []byte("1"))
	mustSet(t, db, testKey("b", 8), []byte("2"))
	if err := db.Delete(testKey("a", 8)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	stats, _ := db.Stats()
	if stats.PendingFrees != 0 || stats.Commits != 3 {
		t.Errorf("PendingFrees/Commits = %d/%d, want 0/3", stats.PendingFrees, stats.Commits)
	}

	db.Discard()
	reopened, err := Open(name, DefaultOptions(8))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()

	if got := mustGet(t, reopened, testKey("b", 8)); string(got) != "2" {
		t.Errorf("b = %q, want 2", got)
	}
	if ok, _ := reopened.Has(testKey("a", 8)); ok {
		t.Error("deleted key survived")
	}
}

func TestRecordSlotReuse(t *testing.T) {
	db, _ := createTestDB(t, DefaultOptions(8))

	mustSet(t, db, testKey("big", 8), make([]byte, 100))
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	db.Delete(testKey("big", 8))
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	stats, _ := db.Stats()
	if stats.FreeRecords != 1 || stats.Records != 0 {
		t.Fatalf("FreeRecords/Records = %d/%d, want 1/0", stats.FreeRecords, stats.Records)
	}
	end := stats.RecordBytes

	mustSet(t, db, testKey("small", 8), make([]byte, 50))
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	stats, _ = db.Stats()
	if stats.RecordBytes != end {
		t.Errorf("record file grew from %d to %d despite a free slot", end, stats.RecordBytes)
	}
	if stats.FreeRecords != 0 || stats.Records != 1 {
		t.Errorf("FreeRecords/Records = %d/%d, want 0/1", stats.FreeRecords, stats.Records)
	}
}

func TestAbandonedSlotLeavesNoOrphan(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))
	mustSet(t, db, testKey("a", 8), []byte("1"))

	// Set's failed-insert branch: the slot is allocated and cached, then
	// handed back when the key cannot be bound to it.
	db.mu.Lock()
	addr, capacity, err := db.records.Alloc(64)
	if err != nil {
		db.mu.Unlock()
		t.Fatalf("Alloc failed: %v", err)
	}
	db.values.Put(uint64(addr), &record.Record{Addr: addr, Capacity: capacity, Data: make([]byte, 64)}, true)
	db.releaseRecord(addr)
	db.mu.Unlock()

	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	mustValidateDB(t, db)

	stats, _ := db.Stats()
	if stats.Records != 1 || stats.FreeRecords != 1 {
		t.Errorf("Records/FreeRecords = %d/%d, want 1/1", stats.Records, stats.FreeRecords)
	}

	db = reopenDB(t, db, name, DefaultOptions(8))
	mustValidateDB(t, db)
	if got := mustGet(t, db, testKey("a", 8)); string(got) != "1" {
		t.Errorf("Get(a) = %q, want 1", got)
	}
}

func TestSplitMergeThroughDB(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8).WithSectorSize(256))

	const n = 2000
	for i := 0; i < n; i++ {
		mustSet(t, db, testKey(fmt.Sprintf("%07d", i), 8), []byte{byte(i)})
	}
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	stats, _ := db.Stats()
	if stats.Height < 3 {
		t.Fatalf("Height = %d, want >= 3", stats.Height)
	}

	for i := 0; i < n-1; i++ {
		if err := db.Delete(testKey(fmt.Sprintf("%07d", i), 8)); err != nil {
			t.Fatalf("Delete(%d) failed: %v", i, err)
		}
	}
	db = reopenDB(t, db, name, DefaultOptions(8))

	stats, _ = db.Stats()
	if stats.Height != 1 || stats.Entries != 1 {
		t.Errorf("Height/Entries = %d/%d, want 1/1", stats.Height, stats.Entries)
	}
	if stats.FreeSectors != stats.TotalSectors-2 {
		t.Errorf("FreeSectors = %d, want %d", stats.FreeSectors, stats.TotalSectors-2)
	}
	if stats.Records != 1 || stats.FreeRecords != n-1 {
		t.Errorf("Records/FreeRecords = %d/%d, want 1/%d", stats.Records, stats.FreeRecords, n-1)
	}
	if got := mustGet(t, db, testKey(fmt.Sprintf("%07d", n-1), 8)); got[0] != byte((n-1)&0xFF) {
		t.Errorf("last key value = %v", got)
	}
	mustValidateDB(t, db)
}

// TestStringKeyScenario stores "0".."9999" with values of i 'A' bytes in a
// 26 byte key database, then checks one value after reopening.
func TestStringKeyScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("writes about 50MB")
	}

	name := filepath.Join(t.TempDir(), "scenario")
	codec := StringKey(25)

	if _, err := Open(name, DefaultOptions(codec.KeySize()).WithSectorSize(256)); !errors.Is(err, ErrSectorSize) {
		t.Fatalf("sector 256 = %v, want ErrSectorSize", err)
	}

	dict, err := OpenDict(name, codec, DefaultOptions(0).WithSectorSize(512).WithNoSync(true))
	if err != nil {
		t.Fatalf("OpenDict failed: %v", err)
	}
	for i := 0; i < 10000; i++ {
		if err := dict.Set(strconv.Itoa(i), bytes.Repeat([]byte{'A'}, i)); err != nil {
			t.Fatalf("Set(%d) failed: %v", i, err)
		}
		if i%1000 == 999 {
			if err := dict.DB().FreeCache(); err != nil {
				t.Fatalf("FreeCache failed: %v", err)
			}
		}
	}
	if err := dict.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	dict.Close()

	dict, err = OpenDict(name, codec, DefaultOptions(0).WithNoSync(true))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer dict.Close()

	got, err := dict.Get("5000")
	if err != nil {
		t.Fatalf("Get(5000) failed: %v", err)
	}
	if len(got) != 5000 || !bytes.Equal(got, bytes.Repeat([]byte{'A'}, 5000)) {
		t.Errorf("Get(5000) returned %d bytes", len(got))
	}
	if n, _ := dict.Len(); n != 10000 {
		t.Errorf("Len() = %d, want 10000", n)
	}
}

// =============================================================================
// State Tests
// =============================================================================

func TestClosedDB(t *testing.T) {
	db, _ := createTestDB(t, DefaultOptions(8))
	mustSet(t, db, testKey("a", 8), []byte("1"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	calls := map[string]func() error{
		"Get":    func() error { _, err := db.Get(testKey("a", 8)); return err },
		"Set":    func() error { return db.Set(testKey("a", 8), nil) },
		"Delete": func() error { return db.Delete(testKey("a", 8)) },
		"Commit": db.Commit,
		"Close":  db.Close,
		"Len":    func() error { _, err := db.Len(); return err },
		"Cursor": func() error { _, err := db.Cursor(); return err },
		"Backup": func() error { return db.Backup(filepath.Join(t.TempDir(), "b")) },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrClosed) {
			t.Errorf("%s after Close = %v, want ErrClosed", name, err)
		}
	}
}

func TestKeySizeAndNameAfterClose(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := db.KeySize(); got != 8 {
		t.Errorf("KeySize after Close = %d, want 8", got)
	}
	if got := db.Name(); got != name {
		t.Errorf("Name after Close = %q, want %q", got, name)
	}
}

func TestReadOnly(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))
	mustSet(t, db, testKey("a", 8), []byte("1"))
	db.Close()

	ro, err := Open(name, DefaultOptions(8).WithReadOnly(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()

	if got := mustGet(t, ro, testKey("a", 8)); string(got) != "1" {
		t.Errorf("Get = %q", got)
	}
	if err := ro.Set(testKey("b", 8), nil); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set = %v, want ErrReadOnly", err)
	}
	if err := ro.Delete(testKey("a", 8)); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Delete = %v, want ErrReadOnly", err)
	}
	if err := ro.Commit(); err != nil {
		t.Errorf("Commit = %v, want nil", err)
	}
	mustValidateDB(t, ro)
}

func TestFailClosedOnCorruption(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8).WithSectorSize(256))
	for i := 0; i < 200; i++ {
		mustSet(t, db, testKey(fmt.Sprintf("%05d", i), 8), []byte("v"))
	}
	root := db.tree.Root()
	if db.tree.Height() < 2 {
		t.Fatalf("Height = %d, want >= 2", db.tree.Height())
	}
	db.Close()

	// Damage every node below the root.
	f, err := os.OpenFile(name+IndexExt, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	info, _ := f.Stat()
	for sector := int64(1); sector*256 < info.Size(); sector++ {
		if sector == int64(root) {
			continue
		}
		f.WriteAt([]byte{0xAB}, sector*256+40)
	}
	f.Close()

	db, err = Open(name, DefaultOptions(8))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err = db.Get(testKey("00001", 8))
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Get = %v, want ErrCorrupted", err)
	}

	// Every later call reports the same corruption.
	if _, err := db.Len(); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Len = %v, want ErrCorrupted", err)
	}
	if err := db.Set(testKey("new", 8), nil); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Set = %v, want ErrCorrupted", err)
	}
	if err := db.Commit(); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Commit = %v, want ErrCorrupted", err)
	}
	if err := db.Close(); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Close = %v, want ErrCorrupted", err)
	}
	if err := db.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
}

// =============================================================================
// Maintenance Tests
// =============================================================================

func TestSnappyCompression(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8).WithCompression(CompressionSnappy))

	value := bytes.Repeat([]byte("compressible "), 1000)
	mustSet(t, db, testKey("doc", 8), value)
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	stats, _ := db.Stats()
	if !stats.Compressed {
		t.Error("Compressed = false")
	}
	if stats.RecordBytes >= uint64(len(value)) {
		t.Errorf("record file is %d bytes for a %d byte value", stats.RecordBytes, len(value))
	}

	// The flag is read from the file, not from the options.
	db = reopenDB(t, db, name, DefaultOptions(8))
	if got := mustGet(t, db, testKey("doc", 8)); !bytes.Equal(got, value) {
		t.Errorf("Get returned %d bytes, want %d", len(got), len(value))
	}
	mustValidateDB(t, db)
}

func TestFreeCache(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8).WithCacheLimit(8))

	for i := 0; i < 1000; i++ {
		mustSet(t, db, testKey(strconv.Itoa(i), 8), []byte(strconv.Itoa(i)))
	}
	if err := db.FreeCache(); err != nil {
		t.Fatalf("FreeCache failed: %v", err)
	}

	stats, _ := db.Stats()
	if stats.NodeCache.Size != 0 || stats.RecordCache.Size != 0 {
		t.Errorf("cache sizes after FreeCache = %d/%d", stats.NodeCache.Size, stats.RecordCache.Size)
	}

	// Reads reload through the caches and stay within the limit.
	for i := 0; i < 1000; i += 7 {
		mustGet(t, db, testKey(strconv.Itoa(i), 8))
	}
	stats, _ = db.Stats()
	if stats.NodeCache.Size > 8 || stats.RecordCache.Size > 8 {
		t.Errorf("cache sizes = %d/%d, want <= 8", stats.NodeCache.Size, stats.RecordCache.Size)
	}

	db = reopenDB(t, db, name, DefaultOptions(8))
	if n, _ := db.Len(); n != 1000 {
		t.Errorf("Len() = %d, want 1000", n)
	}
}

func TestClear(t *testing.T) {
	db, _ := createTestDB(t, DefaultOptions(8))
	for i := 0; i < 300; i++ {
		mustSet(t, db, testKey(strconv.Itoa(i), 8), []byte("x"))
	}
	if err := db.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := db.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
	mustValidateDB(t, db)

	stats, _ := db.Stats()
	if stats.Records != 0 {
		t.Errorf("Records = %d, want 0", stats.Records)
	}
}

func TestBackup(t *testing.T) {
	db, name := createTestDB(t, DefaultOptions(8))
	mustSet(t, db, testKey("a", 8), []byte("alpha"))

	if err := db.Backup(name); err == nil {
		t.Error("Backup onto itself should fail")
	}

	dest := filepath.Join(t.TempDir(), "nested", "copy")
	if err := db.Backup(dest); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	// Later changes do not reach the backup.
	mustSet(t, db, testKey("b", 8), []byte("beta"))

	copyDB, err := Open(dest, DefaultOptions(8).WithCreateIfNotExists(false))
	if err != nil {
		t.Fatalf("Open backup failed: %v", err)
	}
	defer copyDB.Close()

	if got := mustGet(t, copyDB, testKey("a", 8)); string(got) != "alpha" {
		t.Errorf("backup a = %q", got)
	}
	if ok, _ := copyDB.Has(testKey("b", 8)); ok {
		t.Error("backup contains a later key")
	}
	mustValidateDB(t, copyDB)
}
