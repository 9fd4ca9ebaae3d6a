package btree

import (
	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Insert binds key to rec. When key already exists its record address is
// replaced and the previous one is returned with replaced set.
//
// Algorithm:
// 1. Descend to the leaf covering key, remembering the path
// 2. Overwrite the record of an existing key, or insert in sorted order
// 3. While the current node holds more than maxCt entries, split it and
//    insert the promoted separator into its parent
// 4. If the root splits, create a new root one level up
func (t *Tree) Insert(key []byte, rec storage.RecordAddr) (old storage.RecordAddr, replaced bool, err error) {
	if err := t.checkKey(key); err != nil {
		return 0, false, err
	}

	path, found, err := t.descend(key)
	if err != nil {
		return 0, false, err
	}

	leafFrame := path[len(path)-1]
	leaf := leafFrame.node

	if found {
		old = leaf.Records[leafFrame.idx]
		if old != rec {
			leaf.Records[leafFrame.idx] = rec
			t.touch(leaf)
			t.version++
		}
		return old, true, nil
	}

	leaf.insertEntry(leafFrame.idx, key, rec)
	t.touch(leaf)
	t.count++
	t.stats.keysIns++
	t.version++

	if err := t.splitPath(path); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// splitPath splits overflowing nodes from the leaf upward.
func (t *Tree) splitPath(path []frame) error {
	for level := len(path) - 1; level >= 0; level-- {
		n := path[level].node
		if len(n.Keys) <= t.maxCt {
			return nil
		}

		var right *Node
		var sep []byte
		var err error
		if n.Leaf {
			right, sep, err = t.splitLeaf(n)
		} else {
			right, sep, err = t.splitInternal(n)
		}
		if err != nil {
			return err
		}
		t.stats.splits++

		if level == 0 {
			return t.growRoot(n, sep, right)
		}

		parent := path[level-1]
		parent.node.insertSeparator(parent.idx, sep, right.Addr)
		t.touch(parent.node)
	}
	return nil
}

// splitLeaf moves the upper half of leaf into a new right sibling and
// returns it with the separator to promote: the right leaf's first key.
func (t *Tree) splitLeaf(leaf *Node) (*Node, []byte, error) {
	right, err := t.allocNode(true)
	if err != nil {
		return nil, nil, err
	}

	mid := (len(leaf.Keys) + 1) / 2

	right.Keys = append(right.Keys, leaf.Keys[mid:]...)
	right.Records = append(right.Records, leaf.Records[mid:]...)
	leaf.Keys = leaf.Keys[:mid:mid]
	leaf.Records = leaf.Records[:mid:mid]

	right.Prev = leaf.Addr
	right.Next = leaf.Next
	if leaf.Next != 0 {
		next, err := t.node(leaf.Next)
		if err != nil {
			return nil, nil, err
		}
		next.Prev = right.Addr
		t.touch(next)
	}
	leaf.Next = right.Addr

	t.touch(leaf)
	t.touch(right)

	return right, cloneKey(right.Keys[0]), nil
}

// splitInternal moves the separators above the middle into a new right
// node and returns it with the middle separator, which moves up.
func (t *Tree) splitInternal(n *Node) (*Node, []byte, error) {
	right, err := t.allocNode(false)
	if err != nil {
		return nil, nil, err
	}

	mid := len(n.Keys) / 2
	sep := n.Keys[mid]

	right.Keys = append(right.Keys, n.Keys[mid+1:]...)
	right.Records = zeroRecords(len(right.Keys))
	right.Children = append(right.Children, n.Children[mid+1:]...)

	n.Keys = n.Keys[:mid:mid]
	n.Records = zeroRecords(mid)
	n.Children = n.Children[: mid+1 : mid+1]

	t.touch(n)
	t.touch(right)

	return right, sep, nil
}

// growRoot places a new root above a split root.
func (t *Tree) growRoot(left *Node, sep []byte, right *Node) error {
	root, err := t.allocNode(false)
	if err != nil {
		return err
	}

	root.Keys = append(root.Keys, cloneKey(sep))
	root.Records = zeroRecords(1)
	root.Children = append(root.Children, left.Addr, right.Addr)
	t.touch(root)

	t.root = root.Addr
	t.height++
	if t.height > t.stats.maxHeight {
		t.stats.maxHeight = t.height
	}
	return nil
}
