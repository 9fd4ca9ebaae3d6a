package beedb

import (
	"github.com/KilimcininKorOglu/beedb/internal/storage/cache"
)

// Stats is a snapshot of database counters.
type Stats struct {
	// Index shape
	Entries    uint64
	Height     int
	MaxHeight  int
	KeySize    int
	SectorSize int
	MaxCount   int

	// Tree activity since open
	NodesAllocated uint64
	NodesFreed     uint64
	KeysInserted   uint64
	KeysDeleted    uint64
	Splits         uint64
	Merges         uint64
	Borrows        uint64

	// Index file
	TotalSectors uint64
	FreeSectors  uint64
	IndexBytes   int64
	IndexReads   uint64
	IndexWrites  uint64

	// Record file
	Records         uint64
	FreeRecords     int
	FreeRecordBytes uint64
	RecordBytes     uint64
	RecordReads     uint64
	RecordWrites    uint64
	PendingFrees    int
	Compressed      bool

	NodeCache   CacheStats
	RecordCache CacheStats

	Commits uint64
}

// CacheStats holds counters of one cache.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushed   uint64
	Size      int
	Dirty     int
	Limit     int
}

func cacheStats(s cache.Stats) CacheStats {
	return CacheStats{
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evictions,
		Flushed:   s.Flushed,
		Size:      s.Size,
		Dirty:     s.Dirty,
		Limit:     s.Limit,
	}
}

// Stats returns current statistics.
func (db *DB) Stats() (Stats, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return Stats{}, err
	}

	tree := db.tree.Stats()
	records := db.records.Stats()
	return Stats{
		Entries:    tree.Entries,
		Height:     tree.Height,
		MaxHeight:  tree.MaxHeight,
		KeySize:    tree.Pages.KeySize,
		SectorSize: tree.Pages.SectorSize,
		MaxCount:   tree.MaxCount,

		NodesAllocated: tree.NodesInsert,
		NodesFreed:     tree.NodesDelete,
		KeysInserted:   tree.KeysInsert,
		KeysDeleted:    tree.KeysDelete,
		Splits:         tree.Splits,
		Merges:         tree.Merges,
		Borrows:        tree.Borrows,

		TotalSectors: tree.Pages.TotalSectors,
		FreeSectors:  tree.Pages.FreeSectors,
		IndexBytes:   tree.Pages.FileSizeBytes,
		IndexReads:   tree.Pages.Reads,
		IndexWrites:  tree.Pages.Writes,

		Records:         records.Records,
		FreeRecords:     records.FreeSlots,
		FreeRecordBytes: records.FreeBytes,
		RecordBytes:     records.End,
		RecordReads:     records.Reads,
		RecordWrites:    records.Writes,
		PendingFrees:    len(db.pendingFree),
		Compressed:      db.compressed,

		NodeCache:   cacheStats(tree.Cache),
		RecordCache: cacheStats(db.values.Stats()),

		Commits: db.commits,
	}, nil
}
