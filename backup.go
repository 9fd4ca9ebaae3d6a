package beedb

import (
	"fmt"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Backup commits and copies both files to destName+".idx" and
// destName+".dat". Each copy is written to a temporary file and renamed
// into place.
func (db *DB) Backup(destName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return err
	}
	if destName == db.name {
		return fmt.Errorf("backup target %s is the database itself", destName)
	}
	if !db.opts.ReadOnly {
		if err := db.commitLocked(); err != nil {
			return err
		}
	}

	if err := storage.CopyFileAtomic(db.name+IndexExt, destName+IndexExt); err != nil {
		return fmt.Errorf("backup index: %w", err)
	}
	if err := storage.CopyFileAtomic(db.name+RecordExt, destName+RecordExt); err != nil {
		return fmt.Errorf("backup records: %w", err)
	}

	db.logger.Info("backup written", "dest", destName)
	return nil
}
