package btree

import (
	"bytes"
	"sort"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

// Node kinds stored in byte 0 of a node sector.
const (
	KindLeaf     byte = 1
	KindInternal byte = 2
)

// Node is a decoded B+ tree node.
type Node struct {
	// Addr is the sector this node is stored in.
	Addr storage.SectorAddr

	// Leaf reports whether Records hold record addresses (leaf) or
	// Children hold sub-trees (internal).
	Leaf bool

	// Keys are sorted ascending. For internal nodes Keys[i] separates
	// Children[i] and Children[i+1].
	Keys [][]byte

	// Records has one entry per key. Internal separators store 0.
	Records []storage.RecordAddr

	// Children has len(Keys)+1 entries for internal nodes and is nil for leaves.
	Children []storage.SectorAddr

	// Prev and Next link leaves in key order. 0 terminates the chain.
	Prev storage.SectorAddr
	Next storage.SectorAddr
}

// newLeaf creates an empty leaf for addr.
func newLeaf(addr storage.SectorAddr) *Node {
	return &Node{
		Addr:    addr,
		Leaf:    true,
		Keys:    make([][]byte, 0),
		Records: make([]storage.RecordAddr, 0),
	}
}

// newInternal creates an internal node with no separators yet.
func newInternal(addr storage.SectorAddr) *Node {
	return &Node{
		Addr:     addr,
		Leaf:     false,
		Keys:     make([][]byte, 0),
		Records:  make([]storage.RecordAddr, 0),
		Children: make([]storage.SectorAddr, 0),
	}
}

// Count returns the number of keys in the node.
func (n *Node) Count() int {
	return len(n.Keys)
}

// search returns the position of the first key >= key and whether that key
// equals key.
func (n *Node) search(key []byte) (int, bool) {
	idx := sort.Search(len(n.Keys), func(i int) bool {
		return bytes.Compare(n.Keys[i], key) >= 0
	})
	return idx, idx < len(n.Keys) && bytes.Equal(n.Keys[idx], key)
}

// childIndex returns the index of the child covering key: the number of
// separators less than or equal to key.
func (n *Node) childIndex(key []byte) int {
	return sort.Search(len(n.Keys), func(i int) bool {
		return bytes.Compare(n.Keys[i], key) > 0
	})
}

// insertEntry puts key and rec at idx in a leaf.
func (n *Node) insertEntry(idx int, key []byte, rec storage.RecordAddr) {
	n.Keys = append(n.Keys, nil)
	copy(n.Keys[idx+1:], n.Keys[idx:])
	n.Keys[idx] = cloneKey(key)

	n.Records = append(n.Records, 0)
	copy(n.Records[idx+1:], n.Records[idx:])
	n.Records[idx] = rec
}

// removeEntry drops the key at idx from a leaf.
func (n *Node) removeEntry(idx int) {
	n.Keys = append(n.Keys[:idx], n.Keys[idx+1:]...)
	n.Records = append(n.Records[:idx], n.Records[idx+1:]...)
}

// insertSeparator puts sep at idx with child to its right.
func (n *Node) insertSeparator(idx int, sep []byte, child storage.SectorAddr) {
	n.Keys = append(n.Keys, nil)
	copy(n.Keys[idx+1:], n.Keys[idx:])
	n.Keys[idx] = cloneKey(sep)

	n.Records = append(n.Records, 0)

	n.Children = append(n.Children, 0)
	copy(n.Children[idx+2:], n.Children[idx+1:])
	n.Children[idx+1] = child
}

// removeSeparator drops the separator at idx and the child to its right.
func (n *Node) removeSeparator(idx int) {
	n.Keys = append(n.Keys[:idx], n.Keys[idx+1:]...)
	n.Records = n.Records[:len(n.Keys)]
	n.Children = append(n.Children[:idx+1], n.Children[idx+2:]...)
}

// cloneKey copies key so callers may reuse their buffers.
func cloneKey(key []byte) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	return out
}

// zeroRecords returns n zero record addresses for internal nodes.
func zeroRecords(n int) []storage.RecordAddr {
	return make([]storage.RecordAddr, n)
}
