package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// createCmd handles the create command.
func createCmd(args []string) int {
	f := newDBFlags("create")
	autocommit := f.fs.Bool("autocommit", false, "Commit after every write")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printCreateUsage(stdout)
		return 0
	}

	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	if *autocommit {
		cfg.Database.Autocommit = true
	}

	if _, err := os.Stat(cfg.Database.Path + beedb.IndexExt); err == nil {
		printError("database %s already exists", cfg.Database.Path)
		return 1
	}

	db, err := beedb.Open(cfg.Database.Path, cfg.DBOptions().WithLogger(cfg.NewLogger()))
	if err != nil {
		printError("creating database: %v", err)
		return 1
	}
	stats, err := db.Stats()
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		printError("creating database: %v", err)
		return 1
	}

	printOK("created %s", cfg.Database.Path)
	printField("Key type", cfg.Database.KeyType)
	printField("Key size", stats.KeySize)
	printField("Sector size", stats.SectorSize)
	printField("Keys per node", stats.MaxCount)
	printField("Compressed", stats.Compressed)
	return 0
}

// getCmd handles the get command.
func getCmd(args []string) int {
	f := newDBFlags("get")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printGetUsage(stdout)
		return 0
	}
	if f.fs.NArg() != 1 {
		printError("get takes exactly one key")
		return 1
	}

	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	db, kf, err := openKeyed(cfg, true)
	if err != nil {
		printError("%v", err)
		return 1
	}
	defer db.Close()

	key, err := kf.parse(f.fs.Arg(0))
	if err != nil {
		printError("%v", err)
		return 1
	}
	value, err := db.Get(key)
	if err != nil {
		if errors.Is(err, beedb.ErrKeyNotFound) {
			printError("key %q not found", f.fs.Arg(0))
		} else {
			printError("%v", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "%s\n", value)
	return 0
}

// setCmd handles the set command.
func setCmd(args []string) int {
	f := newDBFlags("set")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printSetUsage(stdout)
		return 0
	}
	if f.fs.NArg() != 2 {
		printError("set takes a key and a value")
		return 1
	}

	return withWritableDB(f, func(db *beedb.DB, kf keyFormat) error {
		key, err := kf.parse(f.fs.Arg(0))
		if err != nil {
			return err
		}
		return db.Set(key, []byte(f.fs.Arg(1)))
	})
}

// deleteCmd handles the delete command.
func deleteCmd(args []string) int {
	f := newDBFlags("delete")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printDeleteUsage(stdout)
		return 0
	}
	if f.fs.NArg() < 1 {
		printError("delete takes at least one key")
		return 1
	}

	return withWritableDB(f, func(db *beedb.DB, kf keyFormat) error {
		for _, arg := range f.fs.Args() {
			key, err := kf.parse(arg)
			if err != nil {
				return err
			}
			if err := db.Delete(key); err != nil {
				if errors.Is(err, beedb.ErrKeyNotFound) {
					return fmt.Errorf("key %q not found", arg)
				}
				return err
			}
		}
		return nil
	})
}

// withWritableDB opens the database for writing, runs fn and commits. A
// failing fn discards the uncommitted changes.
func withWritableDB(f *dbFlags, fn func(db *beedb.DB, kf keyFormat) error) int {
	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	db, kf, err := openKeyed(cfg, false)
	if err != nil {
		printError("%v", err)
		return 1
	}

	if err := fn(db, kf); err != nil {
		db.Discard()
		printError("%v", err)
		return 1
	}
	if err := db.Close(); err != nil {
		printError("committing: %v", err)
		return 1
	}
	return 0
}

// listCmd handles the list command.
func listCmd(args []string) int {
	f := newDBFlags("list")
	start := f.fs.String("start", "", "First key to list")
	end := f.fs.String("end", "", "List keys before this key")
	limit := f.fs.Int("limit", 0, "Maximum number of keys to list")
	keysOnly := f.fs.Bool("keys", false, "Print keys without values")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printListUsage(stdout)
		return 0
	}

	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	db, kf, err := openKeyed(cfg, true)
	if err != nil {
		printError("%v", err)
		return 1
	}
	defer db.Close()

	var startKey, endKey []byte
	if *start != "" {
		if startKey, err = kf.parse(*start); err != nil {
			printError("-start: %v", err)
			return 1
		}
	}
	if *end != "" {
		if endKey, err = kf.parse(*end); err != nil {
			printError("-end: %v", err)
			return 1
		}
	}

	n := 0
	err = db.Range(startKey, endKey, func(key, value []byte) error {
		if *limit > 0 && n >= *limit {
			return beedb.ErrStopIteration
		}
		n++
		if *keysOnly {
			fmt.Fprintln(stdout, kf.format(key))
			return nil
		}
		fmt.Fprintf(stdout, "%s\t%s\n", keyColor.Sprint(kf.format(key)), value)
		return nil
	})
	if err != nil {
		printError("%v", err)
		return 1
	}
	return 0
}

// statsCmd handles the stats command.
func statsCmd(args []string) int {
	f := newDBFlags("stats")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printStatsUsage(stdout)
		return 0
	}

	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	db, err := openDB(cfg, true)
	if err != nil {
		printError("%v", err)
		return 1
	}
	defer db.Close()

	s, err := db.Stats()
	if err != nil {
		printError("%v", err)
		return 1
	}

	printHeading("Index")
	printField("Entries", s.Entries)
	printField("Height", s.Height)
	printField("Key size", s.KeySize)
	printField("Sector size", s.SectorSize)
	printField("Keys per node", s.MaxCount)
	printField("Sectors", s.TotalSectors)
	printField("Free sectors", s.FreeSectors)
	printField("Index bytes", s.IndexBytes)

	printHeading("Records")
	printField("Records", s.Records)
	printField("Free records", s.FreeRecords)
	printField("Free bytes", s.FreeRecordBytes)
	printField("Record bytes", s.RecordBytes)
	printField("Compressed", s.Compressed)

	printHeading("Caches")
	printCacheStats("Node cache", s.NodeCache)
	printCacheStats("Record cache", s.RecordCache)
	return 0
}

func printCacheStats(name string, c beedb.CacheStats) {
	printField(name, fmt.Sprintf("size=%d dirty=%d hits=%d misses=%d evictions=%d",
		c.Size, c.Dirty, c.Hits, c.Misses, c.Evictions))
}

// validateCmd handles the validate command.
func validateCmd(args []string) int {
	f := newDBFlags("validate")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printValidateUsage(stdout)
		return 0
	}

	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	db, err := openDB(cfg, true)
	if err != nil {
		printError("%v", err)
		return 1
	}
	defer db.Close()

	startTime := time.Now()
	if err := db.Validate(); err != nil {
		printError("%s is damaged: %v", cfg.Database.Path, err)
		return 1
	}
	n, _ := db.Len()
	printOK("%s: %d keys checked in %v", cfg.Database.Path, n, time.Since(startTime).Round(time.Millisecond))
	return 0
}

// backupCmd handles the backup command.
func backupCmd(args []string) int {
	f := newDBFlags("backup")
	output := f.fs.String("output", "", "Destination database name")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printBackupUsage(stdout)
		return 0
	}
	if *output == "" {
		printError("-output is required")
		return 1
	}

	cfg, err := f.resolve()
	if err != nil {
		printError("%v", err)
		return 1
	}
	db, err := openDB(cfg, false)
	if err != nil {
		printError("%v", err)
		return 1
	}
	defer db.Close()

	if err := db.Backup(*output); err != nil {
		printError("backup failed: %v", err)
		return 1
	}
	printOK("copied %s to %s", cfg.Database.Path, *output)
	return 0
}

// sectorSizesCmd prints the smallest standard sector size for every key size.
func sectorSizesCmd(args []string) int {
	f := newDBFlags("sectorsizes")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printSectorSizesUsage(stdout)
		return 0
	}

	table := storage.SectorSizeTable()
	if *f.keySize > 0 {
		size, err := storage.SectorSizeFor(*f.keySize)
		if err != nil {
			printError("%v", err)
			return 1
		}
		table = []storage.SectorSizeEntry{{
			KeySize:    *f.keySize,
			SectorSize: size,
			MaxCount:   storage.MaxCount(size, *f.keySize),
		}}
	}

	headingColor.Fprintf(stdout, "%8s %11s %13s\n", "key size", "sector size", "keys per node")
	last := 0
	for _, e := range table {
		line := fmt.Sprintf("%8d %11d %13d", e.KeySize, e.SectorSize, e.MaxCount)
		if e.SectorSize != last {
			keyColor.Fprintln(stdout, line)
			last = e.SectorSize
			continue
		}
		fmt.Fprintln(stdout, line)
	}
	return 0
}
