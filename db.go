package beedb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/KilimcininKorOglu/beedb/internal/logging"
	"github.com/KilimcininKorOglu/beedb/internal/storage"
	"github.com/KilimcininKorOglu/beedb/internal/storage/btree"
	"github.com/KilimcininKorOglu/beedb/internal/storage/cache"
	"github.com/KilimcininKorOglu/beedb/internal/storage/record"
)

// File extensions of the two database files.
const (
	IndexExt  = ".idx"
	RecordExt = ".dat"
)

// DB is a B+Tree key/value database backed by an index file and a record
// file. It is safe for concurrent use; every call is serialized.
type DB struct {
	name string
	opts Options

	pages   *storage.PageStore
	tree    *btree.Tree
	records *record.Store
	values  *cache.Cache[*record.Record]

	// pendingFree holds record slots released since the last commit. They
	// stay allocated on disk until the index no longer references them.
	pendingFree []storage.RecordAddr

	compressed bool
	logger     logging.Logger

	// failed is the first corruption error seen; once set the DB refuses
	// every call.
	failed error
	closed bool

	commits uint64

	mu sync.Mutex
}

// Open opens the database stored in name+".idx" and name+".dat", creating
// it when neither file exists and opts.CreateIfNotExists is set.
func Open(name string, opts Options) (*DB, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	idxPath, datPath := name+IndexExt, name+RecordExt
	idxExists, err := fileExists(idxPath)
	if err != nil {
		return nil, err
	}
	datExists, err := fileExists(datPath)
	if err != nil {
		return nil, err
	}

	db := &DB{
		name:   name,
		opts:   opts,
		logger: opts.Logger.WithFields("db", name),
	}

	switch {
	case idxExists && datExists:
		err = db.openExisting(idxPath, datPath)
	case !idxExists && !datExists:
		if !opts.CreateIfNotExists || opts.ReadOnly {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		err = db.create(idxPath, datPath)
	case idxExists:
		return nil, storage.Corruptf("%s exists without %s", idxPath, datPath)
	default:
		return nil, storage.Corruptf("%s exists without %s", datPath, idxPath)
	}
	if err != nil {
		return nil, err
	}

	db.values = cache.New[*record.Record](opts.CacheLimit, db.loadRecord, db.writeRecord)
	db.compressed = db.records.Compressed()

	db.logger.Info("database opened",
		"key_size", db.tree.KeySize(),
		"sector_size", db.pages.SectorSize(),
		"entries", db.tree.Len(),
		"height", db.tree.Height(),
		"compressed", db.compressed,
		"read_only", opts.ReadOnly,
	)
	return db, nil
}

// create builds a new, empty pair of files.
func (db *DB) create(idxPath, datPath string) error {
	opts := db.opts
	if opts.KeySize <= 0 {
		return fmt.Errorf("%w: key size is required to create a database", ErrInvalidKeySize)
	}

	sectorSize := opts.SectorSize
	if sectorSize == 0 {
		var err error
		if sectorSize, err = storage.SectorSizeFor(opts.KeySize); err != nil {
			return err
		}
	}
	g := storage.Geometry{SectorSize: sectorSize, KeySize: opts.KeySize}
	if err := g.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(idxPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	pages, err := storage.CreatePageStore(idxPath, g, opts.storageOptions())
	if err != nil {
		return err
	}

	var flags uint32
	if opts.Compression == CompressionSnappy {
		flags |= record.FlagSnappy
	}
	records, err := record.Create(datPath, flags, opts.storageOptions())
	if err != nil {
		pages.Release()
		os.Remove(idxPath)
		return err
	}

	tree, err := btree.Create(pages, opts.CacheLimit)
	if err == nil {
		_, err = tree.Flush()
	}
	if err == nil {
		err = records.Sync()
	}
	if err != nil {
		pages.Release()
		records.Release()
		os.Remove(idxPath)
		os.Remove(datPath)
		return err
	}

	db.pages, db.tree, db.records = pages, tree, records
	db.logger.Debug("database created", "sector_size", sectorSize, "max_count", g.MaxCount())
	return nil
}

// openExisting opens both files and checks them against the options.
func (db *DB) openExisting(idxPath, datPath string) error {
	opts := db.opts
	want := storage.Geometry{SectorSize: opts.SectorSize, KeySize: opts.KeySize}

	pages, err := storage.OpenPageStore(idxPath, want, opts.storageOptions())
	if err != nil {
		return err
	}
	records, err := record.Open(datPath, opts.storageOptions())
	if err != nil {
		pages.Release()
		return err
	}
	tree, err := btree.Open(pages, opts.CacheLimit)
	if err != nil {
		pages.Release()
		records.Release()
		return err
	}

	db.pages, db.tree, db.records = pages, tree, records
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// loadRecord is the record cache loader.
func (db *DB) loadRecord(addr uint64) (*record.Record, error) {
	return db.records.Read(storage.RecordAddr(addr))
}

// writeRecord is the record cache flusher.
func (db *DB) writeRecord(_ uint64, rec *record.Record) error {
	return db.records.Write(rec)
}

// checkOpen returns the error every call must fail with, if any.
func (db *DB) checkOpen() error {
	if db.closed {
		return ErrClosed
	}
	return db.failed
}

func (db *DB) checkWritable() error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if db.opts.ReadOnly {
		return ErrReadOnly
	}
	return nil
}

// fail records corruption so the DB fails closed, and returns err.
func (db *DB) fail(err error) error {
	if err != nil && db.failed == nil && storage.IsCorrupted(err) {
		db.failed = err
		db.logger.Error("database failed closed", "error", err)
	}
	return err
}

// trim brings both caches back within the limit between operations.
func (db *DB) trim() {
	db.tree.Trim()
	db.values.Trim()
}

func (db *DB) checkKey(key []byte) error {
	if len(key) != db.tree.KeySize() {
		return fmt.Errorf("%w: key has %d bytes, database expects %d", ErrInvalidKey, len(key), db.tree.KeySize())
	}
	return nil
}

// encode turns a value into the stored payload. The result never aliases
// value.
func (db *DB) encode(value []byte) ([]byte, error) {
	if len(value) > record.MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	if db.compressed {
		return snappy.Encode(nil, value), nil
	}
	return append([]byte(nil), value...), nil
}

// readValue returns a caller-owned copy of the value stored at addr.
func (db *DB) readValue(addr storage.RecordAddr) ([]byte, error) {
	rec, err := db.values.Get(uint64(addr))
	if err != nil {
		return nil, err
	}
	if db.compressed {
		value, err := snappy.Decode(nil, rec.Data)
		if err != nil {
			return nil, storage.Corruptf("record %d: %v", addr, err)
		}
		return value, nil
	}
	return append([]byte{}, rec.Data...), nil
}

// Get returns the value stored under key.
func (db *DB) Get(key []byte) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	defer db.trim()

	addr, err := db.tree.Lookup(key)
	if err != nil {
		return nil, db.fail(err)
	}
	value, err := db.readValue(addr)
	if err != nil {
		return nil, db.fail(err)
	}
	return value, nil
}

// Has reports whether key is present.
func (db *DB) Has(key []byte) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return false, err
	}
	defer db.trim()

	ok, err := db.tree.Has(key)
	return ok, db.fail(err)
}

// Set stores value under key, replacing any previous value.
//
// Algorithm:
// 1. A present key whose slot can hold the new payload is updated in place.
// 2. Otherwise a new slot is allocated and the key is bound to it.
// 3. A replaced slot is freed at the next commit.
func (db *DB) Set(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkWritable(); err != nil {
		return err
	}
	if err := db.checkKey(key); err != nil {
		return err
	}
	data, err := db.encode(value)
	if err != nil {
		return err
	}
	defer db.trim()

	old, err := db.tree.Lookup(key)
	switch {
	case err == nil:
		rec, err := db.values.Get(uint64(old))
		if err != nil {
			return db.fail(err)
		}
		if len(data) <= int(rec.Capacity) {
			rec.Data = data
			db.values.Put(uint64(old), rec, true)
			return db.autocommit()
		}
	case errors.Is(err, ErrKeyNotFound):
		old = 0
	default:
		return db.fail(err)
	}

	addr, capacity, err := db.records.Alloc(len(data))
	if err != nil {
		return db.fail(err)
	}
	db.values.Put(uint64(addr), &record.Record{Addr: addr, Capacity: capacity, Data: data}, true)

	if _, _, err := db.tree.Insert(key, addr); err != nil {
		// The key still points at old; the new slot goes back to the free list.
		db.releaseRecord(addr)
		return db.fail(err)
	}
	if old != 0 {
		db.releaseRecord(old)
	}
	return db.autocommit()
}

// Delete removes key.
func (db *DB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkWritable(); err != nil {
		return err
	}
	defer db.trim()

	addr, err := db.tree.Delete(key)
	if err != nil {
		return db.fail(err)
	}
	db.releaseRecord(addr)
	return db.autocommit()
}

// releaseRecord drops a slot from the cache and queues it for freeing.
func (db *DB) releaseRecord(addr storage.RecordAddr) {
	db.values.Discard(uint64(addr))
	db.pendingFree = append(db.pendingFree, addr)
}

func (db *DB) autocommit() error {
	if !db.opts.Autocommit {
		return nil
	}
	return db.commitLocked()
}

// Commit writes every buffered change to disk.
//
// Algorithm:
// 1. Write dirty records.
// 2. Flush the index: dirty nodes, freed sectors, header.
// 3. Free the record slots released since the last commit.
// 4. Sync the record file.
//
// Commit is not atomic across sectors. A Commit with nothing buffered
// performs no I/O.
func (db *DB) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return err
	}
	if db.opts.ReadOnly {
		return nil
	}
	return db.commitLocked()
}

func (db *DB) commitLocked() error {
	if !db.dirty() {
		return nil
	}

	records, err := db.values.Flush()
	if err != nil {
		return db.fail(fmt.Errorf("commit records: %w", err))
	}
	nodes, err := db.tree.Flush()
	if err != nil {
		return db.fail(fmt.Errorf("commit index: %w", err))
	}

	freed := 0
	for len(db.pendingFree) > 0 {
		if err := db.records.Free(db.pendingFree[0]); err != nil {
			return db.fail(fmt.Errorf("commit frees: %w", err))
		}
		db.pendingFree = db.pendingFree[1:]
		freed++
	}
	db.pendingFree = nil

	if err := db.records.Sync(); err != nil {
		return db.fail(fmt.Errorf("commit records: %w", err))
	}

	db.commits++
	db.logger.Debug("commit",
		"records_written", records,
		"nodes_written", nodes,
		"records_freed", freed,
		"entries", db.tree.Len(),
	)
	return nil
}

// dirty reports whether anything is buffered since the last commit.
func (db *DB) dirty() bool {
	return db.values.DirtyCount() > 0 || len(db.pendingFree) > 0 || db.tree.Dirty() || db.records.Dirty()
}

// Close commits and releases both files. Further calls return ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	var errs []error
	if db.failed == nil && !db.opts.ReadOnly {
		if err := db.commitLocked(); err != nil {
			errs = append(errs, err)
		}
	}

	db.closed = true
	if db.failed != nil || len(errs) > 0 {
		db.pages.Release()
		db.records.Release()
	} else {
		if err := db.pages.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := db.records.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	db.values.Reset()

	if db.failed != nil {
		return db.failed
	}
	if len(errs) > 0 {
		db.logger.Error("database closed with errors", "error", errs[0])
		return errs[0]
	}
	db.logger.Info("database closed", "commits", db.commits)
	return nil
}

// Discard closes the DB without committing. Changes since the last commit
// are lost.
func (db *DB) Discard() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.closed = true
	db.pages.Release()
	db.records.Release()
	db.values.Reset()
	db.logger.Info("database discarded", "pending_frees", len(db.pendingFree))
	db.pendingFree = nil
	return nil
}

// FreeCache commits and then empties both caches.
func (db *DB) FreeCache() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return err
	}
	if !db.opts.ReadOnly {
		if err := db.commitLocked(); err != nil {
			return err
		}
	}
	nodes := db.tree.EvictAll()
	records := db.values.EvictAll()
	db.logger.Debug("cache freed", "nodes", nodes, "records", records)
	return nil
}

// Len returns the number of keys.
func (db *DB) Len() (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	return int(db.tree.Len()), nil
}

// KeySize returns the fixed key width. It stays valid after Close.
func (db *DB) KeySize() int {
	return db.tree.KeySize()
}

// Name returns the path prefix of the database files. It stays valid
// after Close.
func (db *DB) Name() string {
	return db.name
}

// Clear deletes every key.
func (db *DB) Clear() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkWritable(); err != nil {
		return err
	}
	defer db.trim()

	var keys [][]byte
	c := db.tree.Cursor()
	for ok := c.First(); ok; ok = c.Next() {
		keys = append(keys, c.Key())
	}
	if err := c.Err(); err != nil {
		return db.fail(err)
	}

	for _, key := range keys {
		addr, err := db.tree.Delete(key)
		if err != nil {
			return db.fail(err)
		}
		db.releaseRecord(addr)
	}
	db.logger.Debug("cleared", "keys", len(keys))
	return db.autocommit()
}

// Validate commits and checks the structure of both files.
func (db *DB) Validate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return err
	}
	if !db.opts.ReadOnly {
		if err := db.commitLocked(); err != nil {
			return err
		}
	}
	db.tree.EvictAll()
	db.values.EvictAll()

	if err := db.tree.Validate(); err != nil {
		return db.fail(err)
	}

	if live := db.records.Stats().Records; live != db.tree.Len() {
		return db.fail(storage.Corruptf("record file holds %d records, index holds %d keys", live, db.tree.Len()))
	}

	c := db.tree.Cursor()
	for ok := c.First(); ok; ok = c.Next() {
		if _, err := db.readValue(c.Record()); err != nil {
			return db.fail(fmt.Errorf("key %x: %w", c.Key(), err))
		}
		db.values.Trim()
	}
	if err := c.Err(); err != nil {
		return db.fail(err)
	}
	db.values.EvictAll()
	return nil
}
