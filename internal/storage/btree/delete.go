package btree

import (
	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Delete removes key and returns the record address it was bound to.
// A missing key returns ErrKeyNotFound and leaves the tree untouched.
//
// Algorithm:
// 1. Find the leaf containing the key and remove the entry
// 2. While the current non-root node holds fewer than maxCt/2 entries:
//    a. Merge it with a sibling when both fit in one node
//    b. Otherwise redistribute entries evenly between the two
// 3. A merge removes a separator from the parent, so continue upward
// 4. An internal root left without separators is replaced by its child
func (t *Tree) Delete(key []byte) (storage.RecordAddr, error) {
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

	leafFrame := path[len(path)-1]
	leaf := leafFrame.node
	rec := leaf.Records[leafFrame.idx]

	leaf.removeEntry(leafFrame.idx)
	t.touch(leaf)
	t.count--
	t.stats.keysDel++
	t.version++

	if err := t.rebalancePath(path); err != nil {
		return 0, err
	}
	if err := t.shrinkRoot(); err != nil {
		return 0, err
	}

	return rec, nil
}

// rebalancePath fixes underflowing nodes from the leaf upward.
func (t *Tree) rebalancePath(path []frame) error {
	for level := len(path) - 1; level > 0; level-- {
		n := path[level].node
		if len(n.Keys) >= t.minCt {
			return nil
		}

		parent := path[level-1].node
		ci := path[level-1].idx

		// Prefer the left sibling; the leftmost child pairs with its right.
		var left, right *Node
		var sepIdx int
		var err error
		if ci > 0 {
			sepIdx = ci - 1
			left, err = t.node(parent.Children[ci-1])
			right = n
		} else {
			sepIdx = 0
			left = n
			right, err = t.node(parent.Children[1])
		}
		if err != nil {
			return err
		}
		if left.Leaf != right.Leaf {
			return storage.Corruptf("siblings %d and %d are on different levels", left.Addr, right.Addr)
		}

		var merged bool
		if n.Leaf {
			merged, err = t.rebalanceLeaves(parent, sepIdx, left, right)
		} else {
			merged, err = t.rebalanceInternal(parent, sepIdx, left, right)
		}
		if err != nil {
			return err
		}
		if !merged {
			return nil
		}
	}
	return nil
}

// rebalanceLeaves merges right into left when they fit together, otherwise
// splits their entries evenly and refreshes the separator.
func (t *Tree) rebalanceLeaves(parent *Node, sepIdx int, left, right *Node) (bool, error) {
	if len(left.Keys)+len(right.Keys) <= t.maxCt {
		left.Keys = append(left.Keys, right.Keys...)
		left.Records = append(left.Records, right.Records...)

		left.Next = right.Next
		if right.Next != 0 {
			next, err := t.node(right.Next)
			if err != nil {
				return false, err
			}
			next.Prev = left.Addr
			t.touch(next)
		}

		parent.removeSeparator(sepIdx)
		t.touch(left)
		t.touch(parent)
		t.freeNode(right)
		t.stats.merges++
		return true, nil
	}

	keys := make([][]byte, 0, len(left.Keys)+len(right.Keys))
	keys = append(keys, left.Keys...)
	keys = append(keys, right.Keys...)
	recs := make([]storage.RecordAddr, 0, len(keys))
	recs = append(recs, left.Records...)
	recs = append(recs, right.Records...)

	split := len(keys) / 2
	left.Keys = append([][]byte(nil), keys[:split]...)
	left.Records = append([]storage.RecordAddr(nil), recs[:split]...)
	right.Keys = append([][]byte(nil), keys[split:]...)
	right.Records = append([]storage.RecordAddr(nil), recs[split:]...)

	parent.Keys[sepIdx] = cloneKey(right.Keys[0])

	t.touch(left)
	t.touch(right)
	t.touch(parent)
	t.stats.borrows++
	return false, nil
}

// rebalanceInternal does the same for internal nodes. The parent separator
// moves down into the combined key sequence, and on redistribution the
// middle key of that sequence moves back up.
func (t *Tree) rebalanceInternal(parent *Node, sepIdx int, left, right *Node) (bool, error) {
	sep := parent.Keys[sepIdx]

	if len(left.Keys)+1+len(right.Keys) <= t.maxCt {
		left.Keys = append(left.Keys, sep)
		left.Keys = append(left.Keys, right.Keys...)
		left.Records = zeroRecords(len(left.Keys))
		left.Children = append(left.Children, right.Children...)

		parent.removeSeparator(sepIdx)
		t.touch(left)
		t.touch(parent)
		t.freeNode(right)
		t.stats.merges++
		return true, nil
	}

	keys := make([][]byte, 0, len(left.Keys)+1+len(right.Keys))
	keys = append(keys, left.Keys...)
	keys = append(keys, sep)
	keys = append(keys, right.Keys...)
	children := make([]storage.SectorAddr, 0, len(left.Children)+len(right.Children))
	children = append(children, left.Children...)
	children = append(children, right.Children...)

	split := len(keys) / 2
	left.Keys = append([][]byte(nil), keys[:split]...)
	left.Children = append([]storage.SectorAddr(nil), children[:split+1]...)
	left.Records = zeroRecords(len(left.Keys))

	right.Keys = append([][]byte(nil), keys[split+1:]...)
	right.Children = append([]storage.SectorAddr(nil), children[split+1:]...)
	right.Records = zeroRecords(len(right.Keys))

	parent.Keys[sepIdx] = keys[split]

	t.touch(left)
	t.touch(right)
	t.touch(parent)
	t.stats.borrows++
	return false, nil
}

// shrinkRoot replaces an internal root that lost its last separator with
// its only child.
func (t *Tree) shrinkRoot() error {
	root, err := t.node(t.root)
	if err != nil {
		return err
	}
	if root.Leaf || len(root.Keys) > 0 {
		return nil
	}

	t.root = root.Children[0]
	t.height--
	t.freeNode(root)
	return nil
}
