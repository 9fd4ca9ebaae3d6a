package beedb

import (
	"bytes"
	"errors"

	"github.com/KilimcininKorOglu/beedb/internal/storage/btree"
)

// ErrStopIteration can be returned by a ForEach or Range callback to stop
// early without an error.
var ErrStopIteration = errors.New("stop iteration")

// Cursor walks the keys of a DB in ascending byte order.
//
// Every step takes the DB lock, so the DB may be read and written between
// steps; a cursor whose position was changed re-seeks by its current key.
type Cursor struct {
	db  *DB
	c   *btree.Cursor
	err error
}

// Cursor returns an unpositioned cursor.
func (db *DB) Cursor() (*Cursor, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return &Cursor{db: db, c: db.tree.Cursor()}, nil
}

// step runs a positioning call under the DB lock.
func (c *Cursor) step(move func(*btree.Cursor) bool) bool {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.db.checkOpen(); err != nil {
		c.err = err
		return false
	}
	defer c.db.trim()

	if move(c.c) {
		return true
	}
	if err := c.c.Err(); err != nil {
		c.err = c.db.fail(err)
	}
	return false
}

// First positions the cursor on the smallest key.
func (c *Cursor) First() bool {
	return c.step((*btree.Cursor).First)
}

// Last positions the cursor on the largest key.
func (c *Cursor) Last() bool {
	return c.step((*btree.Cursor).Last)
}

// Seek positions the cursor on the first key >= key.
func (c *Cursor) Seek(key []byte) bool {
	return c.step(func(bc *btree.Cursor) bool { return bc.Seek(key) })
}

// Next advances to the following key.
func (c *Cursor) Next() bool {
	return c.step((*btree.Cursor).Next)
}

// Prev moves to the preceding key.
func (c *Cursor) Prev() bool {
	return c.step((*btree.Cursor).Prev)
}

// Valid reports whether the cursor stands on a key.
func (c *Cursor) Valid() bool {
	return c.err == nil && c.c.Valid()
}

// Key returns a copy of the current key, or nil.
func (c *Cursor) Key() []byte {
	return c.c.Key()
}

// Value returns the current value of the key the cursor stands on. The
// key is looked up again, so writes since the last step are visible; a
// key deleted since then yields ErrKeyNotFound.
func (c *Cursor) Value() ([]byte, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.db.checkOpen(); err != nil {
		return nil, err
	}
	if !c.c.Valid() {
		return nil, ErrKeyNotFound
	}
	defer c.db.trim()

	addr, err := c.db.tree.Lookup(c.c.Key())
	if errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, c.db.fail(err)
	}
	value, err := c.db.readValue(addr)
	if err != nil {
		return nil, c.db.fail(err)
	}
	return value, nil
}

// Err returns the error that stopped the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Clone returns an independent cursor at the same position.
func (c *Cursor) Clone() *Cursor {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return &Cursor{db: c.db, c: c.c.Clone(), err: c.err}
}

// ForEach calls fn for every key in ascending order. Returning
// ErrStopIteration from fn stops without an error; any other error is
// returned as is.
func (db *DB) ForEach(fn func(key, value []byte) error) error {
	return db.Range(nil, nil, fn)
}

// Range calls fn for every key in [start, end). A nil start begins at the
// smallest key; a nil end runs to the largest.
func (db *DB) Range(start, end []byte, fn func(key, value []byte) error) error {
	c, err := db.Cursor()
	if err != nil {
		return err
	}

	var ok bool
	if start == nil {
		ok = c.First()
	} else {
		ok = c.Seek(start)
	}
	for ; ok; ok = c.Next() {
		key := c.Key()
		if end != nil && bytes.Compare(key, end) >= 0 {
			break
		}
		value, err := c.Value()
		if err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return c.Err()
}

// Keys returns every key in ascending order.
func (db *DB) Keys() ([][]byte, error) {
	c, err := db.Cursor()
	if err != nil {
		return nil, err
	}

	var keys [][]byte
	for ok := c.First(); ok; ok = c.Next() {
		keys = append(keys, c.Key())
	}
	return keys, c.Err()
}
