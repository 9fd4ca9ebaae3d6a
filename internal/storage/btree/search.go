package btree

import (
	"bytes"
	"errors"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// frame is one step of a root-to-leaf descent: the node visited and the
// child index taken from it (or the key position, for the leaf).
type frame struct {
	node *Node
	idx  int
}

// descend walks from the root to the leaf that covers key and returns the
// path. For internal frames idx is the child taken; for the leaf frame it is
// the position of the first key >= key.
func (t *Tree) descend(key []byte) ([]frame, bool, error) {
	path := make([]frame, 0, t.height)

	addr := t.root
	for level := 1; ; level++ {
		n, err := t.node(addr)
		if err != nil {
			return nil, false, err
		}

		if n.Leaf {
			if level != t.height {
				return nil, false, storage.Corruptf("leaf %d at level %d of %d", addr, level, t.height)
			}
			idx, found := n.search(key)
			path = append(path, frame{node: n, idx: idx})
			return path, found, nil
		}

		if level >= t.height {
			return nil, false, storage.Corruptf("internal node %d below leaf level %d", addr, t.height)
		}

		ci := n.childIndex(key)
		path = append(path, frame{node: n, idx: ci})
		addr = n.Children[ci]
	}
}

// edgeLeaf returns the leftmost (last=false) or rightmost leaf.
func (t *Tree) edgeLeaf(last bool) (*Node, error) {
	addr := t.root
	for level := 1; ; level++ {
		n, err := t.node(addr)
		if err != nil {
			return nil, err
		}
		if n.Leaf {
			if level != t.height {
				return nil, storage.Corruptf("leaf %d at level %d of %d", addr, level, t.height)
			}
			return n, nil
		}
		if level >= t.height {
			return nil, storage.Corruptf("internal node %d below leaf level %d", addr, t.height)
		}
		if last {
			addr = n.Children[len(n.Children)-1]
		} else {
			addr = n.Children[0]
		}
	}
}

// Lookup returns the record address stored for key.
func (t *Tree) Lookup(key []byte) (storage.RecordAddr, error) {
	if err := t.checkKey(key); err != nil {
		return 0, err
	}

	path, found, err := t.descend(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, storage.ErrKeyNotFound
	}

	leaf := path[len(path)-1]
	return leaf.node.Records[leaf.idx], nil
}

// Has reports whether key is present.
func (t *Tree) Has(key []byte) (bool, error) {
	_, err := t.Lookup(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// First returns the smallest key. An empty tree yields ErrKeyNotFound.
func (t *Tree) First() ([]byte, storage.RecordAddr, error) {
	c := t.Cursor()
	if !c.First() {
		return nil, 0, cursorErr(c)
	}
	return c.Key(), c.Record(), nil
}

// Last returns the largest key. An empty tree yields ErrKeyNotFound.
func (t *Tree) Last() ([]byte, storage.RecordAddr, error) {
	c := t.Cursor()
	if !c.Last() {
		return nil, 0, cursorErr(c)
	}
	return c.Key(), c.Record(), nil
}

// Next returns the smallest key strictly greater than key.
func (t *Tree) Next(key []byte) ([]byte, storage.RecordAddr, error) {
	if err := t.checkKey(key); err != nil {
		return nil, 0, err
	}

	c := t.Cursor()
	ok := c.Seek(key)
	if ok && bytes.Equal(c.Key(), key) {
		ok = c.Next()
	}
	if !ok {
		return nil, 0, cursorErr(c)
	}
	return c.Key(), c.Record(), nil
}

// Prev returns the largest key strictly less than key.
func (t *Tree) Prev(key []byte) ([]byte, storage.RecordAddr, error) {
	if err := t.checkKey(key); err != nil {
		return nil, 0, err
	}

	c := t.Cursor()
	var ok bool
	if c.Seek(key) {
		ok = c.Prev()
	} else if c.Err() == nil {
		// Every key is smaller than key.
		ok = c.Last()
	}
	if !ok {
		return nil, 0, cursorErr(c)
	}
	return c.Key(), c.Record(), nil
}

// cursorErr returns the cursor's error, or ErrKeyNotFound when it simply
// ran off the end.
func cursorErr(c *Cursor) error {
	if err := c.Err(); err != nil {
		return err
	}
	return storage.ErrKeyNotFound
}
