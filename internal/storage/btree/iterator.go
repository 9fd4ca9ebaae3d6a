package btree

import (
	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Cursor walks the tree in key order along the leaf sibling links.
//
// A cursor remembers the key it stands on. If the tree is mutated between
// two steps, the next step re-seeks from that key instead of trusting the
// cached leaf, so cursors stay usable across inserts and deletes.
type Cursor struct {
	tree    *Tree
	leaf    *Node
	idx     int
	key     []byte
	rec     storage.RecordAddr
	valid   bool
	version uint64
	err     error
}

// Cursor returns an unpositioned cursor.
func (t *Tree) Cursor() *Cursor {
	return &Cursor{tree: t}
}

// First positions the cursor on the smallest key.
func (c *Cursor) First() bool {
	leaf, err := c.tree.edgeLeaf(false)
	if err != nil {
		return c.fail(err)
	}
	c.leaf, c.idx = leaf, 0
	return c.settleForward()
}

// Last positions the cursor on the largest key.
func (c *Cursor) Last() bool {
	leaf, err := c.tree.edgeLeaf(true)
	if err != nil {
		return c.fail(err)
	}
	c.leaf, c.idx = leaf, len(leaf.Keys)-1
	return c.settleBackward()
}

// Seek positions the cursor on the first key >= key.
func (c *Cursor) Seek(key []byte) bool {
	if err := c.tree.checkKey(key); err != nil {
		return c.fail(err)
	}
	path, _, err := c.tree.descend(key)
	if err != nil {
		return c.fail(err)
	}
	leaf := path[len(path)-1]
	c.leaf, c.idx = leaf.node, leaf.idx
	return c.settleForward()
}

// Next advances to the following key.
func (c *Cursor) Next() bool {
	if !c.valid {
		return false
	}
	if c.version != c.tree.version {
		path, found, err := c.tree.descend(c.key)
		if err != nil {
			return c.fail(err)
		}
		leaf := path[len(path)-1]
		c.leaf, c.idx = leaf.node, leaf.idx
		if found {
			c.idx++
		}
		return c.settleForward()
	}
	c.idx++
	return c.settleForward()
}

// Prev moves to the preceding key.
func (c *Cursor) Prev() bool {
	if !c.valid {
		return false
	}
	if c.version != c.tree.version {
		path, _, err := c.tree.descend(c.key)
		if err != nil {
			return c.fail(err)
		}
		leaf := path[len(path)-1]
		c.leaf, c.idx = leaf.node, leaf.idx
	}
	c.idx--
	return c.settleBackward()
}

// Valid reports whether the cursor stands on a key.
func (c *Cursor) Valid() bool {
	return c.valid
}

// Key returns a copy of the current key.
func (c *Cursor) Key() []byte {
	if !c.valid {
		return nil
	}
	return cloneKey(c.key)
}

// Record returns the record address of the current key.
func (c *Cursor) Record() storage.RecordAddr {
	return c.rec
}

// Err returns the error that stopped the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Clone returns an independent cursor at the same position.
func (c *Cursor) Clone() *Cursor {
	clone := *c
	clone.key = cloneKey(c.key)
	return &clone
}

// settleForward moves past exhausted leaves until idx points at a key.
func (c *Cursor) settleForward() bool {
	for steps := uint64(0); c.idx >= len(c.leaf.Keys); steps++ {
		if c.leaf.Next == 0 {
			return c.stop()
		}
		if steps > c.tree.pages.Stats().TotalSectors {
			return c.fail(storage.Corruptf("leaf chain loops after sector %d", c.leaf.Addr))
		}
		next, err := c.tree.node(c.leaf.Next)
		if err != nil {
			return c.fail(err)
		}
		c.leaf, c.idx = next, 0
	}
	return c.land()
}

// settleBackward moves to earlier leaves until idx points at a key.
func (c *Cursor) settleBackward() bool {
	for steps := uint64(0); c.idx < 0; steps++ {
		if c.leaf.Prev == 0 {
			return c.stop()
		}
		if steps > c.tree.pages.Stats().TotalSectors {
			return c.fail(storage.Corruptf("leaf chain loops before sector %d", c.leaf.Addr))
		}
		prev, err := c.tree.node(c.leaf.Prev)
		if err != nil {
			return c.fail(err)
		}
		c.leaf, c.idx = prev, len(prev.Keys)-1
	}
	return c.land()
}

func (c *Cursor) land() bool {
	c.key = cloneKey(c.leaf.Keys[c.idx])
	c.rec = c.leaf.Records[c.idx]
	c.version = c.tree.version
	c.valid = true
	return true
}

func (c *Cursor) stop() bool {
	c.valid = false
	c.leaf = nil
	return false
}

func (c *Cursor) fail(err error) bool {
	c.err = err
	return c.stop()
}
