// Package beedb is an embedded on-disk key/value database built on a
// B+Tree index.
//
// # Overview
//
// A database is a pair of files:
//
//   - <name>.idx: fixed-size sectors holding the B+Tree nodes
//   - <name>.dat: variable-length records holding the values
//
// Keys have a fixed width chosen at creation. They are ordered by unsigned
// byte comparison and are unique. Values are arbitrary byte strings,
// optionally snappy-compressed.
//
// # Opening a Database
//
//	db, err := beedb.Open("data/people", beedb.DefaultOptions(26))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// With SectorSize zero, a new database uses the smallest standard sector
// size whose nodes hold at least six keys. Asking for a sector size that is
// too small for the key size fails with ErrSectorSize.
//
// # Reading and Writing
//
//	key := make([]byte, 26)
//	copy(key, "alice")
//
//	if err := db.Set(key, []byte("engineer")); err != nil {
//	    return err
//	}
//	value, err := db.Get(key)
//	if errors.Is(err, beedb.ErrKeyNotFound) {
//	    // absent
//	}
//
// # Commit
//
// Changes are buffered in memory until Commit, which writes dirty records,
// dirty index sectors and both file headers, then syncs. Close commits;
// Discard does not. With Options.Autocommit every mutating call commits.
//
// Commit is the only durability boundary and it is not atomic: a crash in
// the middle of a commit can leave the files inconsistent. Validate checks
// the structure of both files.
//
// # Typed Keys
//
// A Dict pairs a DB with a KeyCodec:
//
//	ages, err := beedb.OpenDict("data/ages", beedb.StringKey(25), beedb.DefaultOptions(0))
//	ages.Set("bob", []byte("42"))
//
// Codecs exist for strings, fixed-length strings, byte slices, int64 and
// float64 keys. Integer and float codecs preserve numeric order.
//
// # Errors
//
// ErrCorrupted is fatal: after it is returned once, every call on the DB
// returns it. After Close every call returns ErrClosed.
//
// # Concurrency
//
// A DB serializes all calls with one mutex. Files are not locked; opening
// the same database from two processes is not supported.
package beedb
