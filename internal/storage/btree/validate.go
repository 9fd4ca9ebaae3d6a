package btree

import (
	"bytes"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

type visit struct {
	addr  storage.SectorAddr
	level int
	lo    []byte // inclusive, nil when unbounded
	hi    []byte // exclusive, nil when unbounded
}

// Validate walks the whole tree and checks its structure: node checksums
// (for nodes loaded from disk), key order, separator bounds, fill factors,
// uniform leaf depth, the leaf chain, the entry count and that no sector is
// reachable twice or sits on a free list. Any violation is ErrCorrupted.
func (t *Tree) Validate() error {
	free := make(map[storage.SectorAddr]struct{})
	for _, addr := range t.pages.FreeChain() {
		free[addr] = struct{}{}
	}
	for _, addr := range t.pendingFree {
		free[addr] = struct{}{}
	}

	seen := make(map[storage.SectorAddr]struct{})
	var leaves []*Node
	var total uint64

	stack := []visit{{addr: t.root, level: 1}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, dup := seen[v.addr]; dup {
			return storage.Corruptf("sector %d reachable twice", v.addr)
		}
		seen[v.addr] = struct{}{}
		if _, isFree := free[v.addr]; isFree {
			return storage.Corruptf("sector %d is in the tree and on the free list", v.addr)
		}

		n, err := t.node(v.addr)
		if err != nil {
			return err
		}
		if err := t.checkNode(n, v); err != nil {
			return err
		}

		if n.Leaf {
			leaves = append(leaves, n)
			total += uint64(len(n.Keys))
			continue
		}

		// Push right to left so leaves are visited in key order.
		for i := len(n.Children) - 1; i >= 0; i-- {
			child := visit{addr: n.Children[i], level: v.level + 1, lo: v.lo, hi: v.hi}
			if i > 0 {
				child.lo = n.Keys[i-1]
			}
			if i < len(n.Keys) {
				child.hi = n.Keys[i]
			}
			stack = append(stack, child)
		}
	}

	if err := checkLeafChain(leaves); err != nil {
		return err
	}
	if total != t.count {
		return storage.Corruptf("tree holds %d keys, header records %d", total, t.count)
	}
	return nil
}

// checkNode validates a single node against its position in the tree.
func (t *Tree) checkNode(n *Node, v visit) error {
	isRoot := v.addr == t.root

	if n.Leaf != (v.level == t.height) {
		return storage.Corruptf("node %d at level %d breaks uniform depth %d", n.Addr, v.level, t.height)
	}
	if len(n.Keys) > t.maxCt {
		return storage.Corruptf("node %d overfull: %d > %d", n.Addr, len(n.Keys), t.maxCt)
	}
	if !isRoot && len(n.Keys) < t.minCt {
		return storage.Corruptf("node %d underfull: %d < %d", n.Addr, len(n.Keys), t.minCt)
	}
	if !n.Leaf && len(n.Keys) == 0 {
		return storage.Corruptf("internal node %d has no separators", n.Addr)
	}
	if len(n.Records) != len(n.Keys) {
		return storage.Corruptf("node %d has %d records for %d keys", n.Addr, len(n.Records), len(n.Keys))
	}
	if !n.Leaf && len(n.Children) != len(n.Keys)+1 {
		return storage.Corruptf("node %d has %d children for %d keys", n.Addr, len(n.Children), len(n.Keys))
	}

	for i, key := range n.Keys {
		if len(key) != t.keySize {
			return storage.Corruptf("node %d key %d has width %d", n.Addr, i, len(key))
		}
		if i > 0 && bytes.Compare(n.Keys[i-1], key) >= 0 {
			return storage.Corruptf("node %d keys out of order at %d", n.Addr, i)
		}
		if v.lo != nil && bytes.Compare(key, v.lo) < 0 {
			return storage.Corruptf("node %d key %d below its separator", n.Addr, i)
		}
		if v.hi != nil && bytes.Compare(key, v.hi) >= 0 {
			return storage.Corruptf("node %d key %d at or above its separator", n.Addr, i)
		}
		if n.Leaf && n.Records[i] == 0 {
			return storage.Corruptf("leaf %d key %d has a null record", n.Addr, i)
		}
		if !n.Leaf && n.Records[i] != 0 {
			return storage.Corruptf("internal node %d separator %d carries a record", n.Addr, i)
		}
	}
	return nil
}

// checkLeafChain verifies that sibling links match the in-order leaf list.
func checkLeafChain(leaves []*Node) error {
	for i, leaf := range leaves {
		var wantPrev, wantNext storage.SectorAddr
		if i > 0 {
			wantPrev = leaves[i-1].Addr
		}
		if i < len(leaves)-1 {
			wantNext = leaves[i+1].Addr
		}
		if leaf.Prev != wantPrev || leaf.Next != wantNext {
			return storage.Corruptf("leaf %d links prev=%d next=%d, want prev=%d next=%d",
				leaf.Addr, leaf.Prev, leaf.Next, wantPrev, wantNext)
		}
	}
	return nil
}
