package beedb

import (
	"fmt"
)

// Dict is a DB with typed keys.
type Dict[K any] struct {
	db    *DB
	codec KeyCodec[K]
}

// NewDict wraps db. The codec width must match the key size of db.
func NewDict[K any](db *DB, codec KeyCodec[K]) (*Dict[K], error) {
	if db.KeySize() != codec.KeySize() {
		return nil, fmt.Errorf("%w: codec key size %d, database key size %d",
			ErrIncompatibleFormat, codec.KeySize(), db.KeySize())
	}
	return &Dict[K]{db: db, codec: codec}, nil
}

// OpenDict opens the database name with the key size of codec.
func OpenDict[K any](name string, codec KeyCodec[K], opts Options) (*Dict[K], error) {
	opts.KeySize = codec.KeySize()
	db, err := Open(name, opts)
	if err != nil {
		return nil, err
	}
	return &Dict[K]{db: db, codec: codec}, nil
}

// DB returns the underlying database.
func (d *Dict[K]) DB() *DB {
	return d.db
}

// Get returns the value stored under key.
func (d *Dict[K]) Get(key K) ([]byte, error) {
	k, err := d.codec.Encode(key)
	if err != nil {
		return nil, err
	}
	return d.db.Get(k)
}

// Set stores value under key.
func (d *Dict[K]) Set(key K, value []byte) error {
	k, err := d.codec.Encode(key)
	if err != nil {
		return err
	}
	return d.db.Set(k, value)
}

// Delete removes key.
func (d *Dict[K]) Delete(key K) error {
	k, err := d.codec.Encode(key)
	if err != nil {
		return err
	}
	return d.db.Delete(k)
}

// Has reports whether key is present.
func (d *Dict[K]) Has(key K) (bool, error) {
	k, err := d.codec.Encode(key)
	if err != nil {
		return false, err
	}
	return d.db.Has(k)
}

// ForEach calls fn for every key in ascending order.
func (d *Dict[K]) ForEach(fn func(key K, value []byte) error) error {
	return d.db.ForEach(func(k, value []byte) error {
		key, err := d.codec.Decode(k)
		if err != nil {
			return err
		}
		return fn(key, value)
	})
}

// Range calls fn for every key in [start, end).
func (d *Dict[K]) Range(start, end K, fn func(key K, value []byte) error) error {
	s, err := d.codec.Encode(start)
	if err != nil {
		return err
	}
	e, err := d.codec.Encode(end)
	if err != nil {
		return err
	}
	return d.db.Range(s, e, func(k, value []byte) error {
		key, err := d.codec.Decode(k)
		if err != nil {
			return err
		}
		return fn(key, value)
	})
}

// Keys returns every key in ascending order.
func (d *Dict[K]) Keys() ([]K, error) {
	raw, err := d.db.Keys()
	if err != nil {
		return nil, err
	}
	keys := make([]K, 0, len(raw))
	for _, k := range raw {
		key, err := d.codec.Decode(k)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Len returns the number of keys.
func (d *Dict[K]) Len() (int, error) {
	return d.db.Len()
}

// Commit commits the underlying database.
func (d *Dict[K]) Commit() error {
	return d.db.Commit()
}

// Close closes the underlying database.
func (d *Dict[K]) Close() error {
	return d.db.Close()
}
