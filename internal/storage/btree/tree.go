package btree

import (
	"fmt"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
	"github.com/KilimcininKorOglu/beedb/internal/storage/cache"
)

// Tree is a B+ tree stored in a PageStore. It is not safe for concurrent
// use; the facade serializes access.
type Tree struct {
	pages   *storage.PageStore
	nodes   *cache.Cache[*Node]
	keySize int
	maxCt   int
	minCt   int

	root   storage.SectorAddr
	height int
	count  uint64

	// pendingFree holds sectors released by merges until Flush.
	pendingFree []storage.SectorAddr

	// version changes on every mutation so cursors know to re-seek.
	version uint64

	stats counters
}

type counters struct {
	maxHeight  int
	nodesIns   uint64
	nodesDel   uint64
	keysIns    uint64
	keysDel    uint64
	splits     uint64
	merges     uint64
	borrows    uint64
	diskReads  uint64
	diskWrites uint64
}

// Create initializes an empty tree in a freshly created PageStore.
// The root is an empty leaf.
func Create(pages *storage.PageStore, cacheLimit int) (*Tree, error) {
	t := newTree(pages, cacheLimit)

	root, err := t.allocNode(true)
	if err != nil {
		return nil, err
	}
	t.root = root.Addr
	t.height = 1
	t.stats.maxHeight = 1

	return t, nil
}

// Open loads the tree whose root is recorded in the PageStore header.
func Open(pages *storage.PageStore, cacheLimit int) (*Tree, error) {
	t := newTree(pages, cacheLimit)

	meta := pages.Meta()
	if meta.Root == 0 {
		return nil, storage.Corruptf("index header has no root")
	}
	if meta.Height == 0 {
		return nil, storage.Corruptf("index header has zero height")
	}

	t.root = meta.Root
	t.height = int(meta.Height)
	t.count = meta.Entries
	t.stats.maxHeight = t.height

	root, err := t.node(t.root)
	if err != nil {
		return nil, err
	}
	if root.Leaf != (t.height == 1) {
		return nil, storage.Corruptf("root sector %d does not match height %d", t.root, t.height)
	}

	return t, nil
}

func newTree(pages *storage.PageStore, cacheLimit int) *Tree {
	geo := pages.Geometry()
	t := &Tree{
		pages:   pages,
		keySize: geo.KeySize,
		maxCt:   geo.MaxCount(),
		minCt:   geo.MinCount(),
	}
	t.nodes = cache.New[*Node](cacheLimit, t.loadNode, t.writeNode)
	return t
}

// loadNode reads and decodes the node at addr. It is the cache Loader.
func (t *Tree) loadNode(addr uint64) (*Node, error) {
	buf, err := t.pages.Read(storage.SectorAddr(addr))
	if err != nil {
		return nil, err
	}
	t.stats.diskReads++
	return decodeNode(storage.SectorAddr(addr), buf, t.keySize, t.maxCt)
}

// writeNode encodes and writes n. It is the cache Flusher.
func (t *Tree) writeNode(addr uint64, n *Node) error {
	buf := make([]byte, t.pages.SectorSize())
	if err := encodeNode(n, buf, t.keySize, t.maxCt); err != nil {
		return err
	}
	if err := t.pages.Write(storage.SectorAddr(addr), buf); err != nil {
		return err
	}
	t.stats.diskWrites++
	return nil
}

// node returns the node at addr through the cache.
func (t *Tree) node(addr storage.SectorAddr) (*Node, error) {
	if addr == 0 {
		return nil, storage.Corruptf("null node address")
	}
	return t.nodes.Get(uint64(addr))
}

// touch marks n dirty.
func (t *Tree) touch(n *Node) {
	t.nodes.Put(uint64(n.Addr), n, true)
}

// allocNode allocates a sector and caches an empty dirty node for it.
func (t *Tree) allocNode(leaf bool) (*Node, error) {
	addr, err := t.pages.Allocate()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate node: %w", err)
	}

	var n *Node
	if leaf {
		n = newLeaf(addr)
	} else {
		n = newInternal(addr)
	}
	t.touch(n)
	t.stats.nodesIns++
	return n, nil
}

// freeNode drops n from the cache and queues its sector for Flush.
func (t *Tree) freeNode(n *Node) {
	t.nodes.Discard(uint64(n.Addr))
	t.pendingFree = append(t.pendingFree, n.Addr)
	t.stats.nodesDel++
}

// checkKey rejects keys of the wrong width.
func (t *Tree) checkKey(key []byte) error {
	if len(key) != t.keySize {
		return fmt.Errorf("%w: key has %d bytes, index expects %d", storage.ErrInvalidKey, len(key), t.keySize)
	}
	return nil
}

// Flush writes dirty nodes, frees queued sectors, records the root, height
// and entry count in the header and syncs the file. A Flush with nothing
// pending performs no writes.
func (t *Tree) Flush() (int, error) {
	written, err := t.nodes.Flush()
	if err != nil {
		return written, err
	}

	for len(t.pendingFree) > 0 {
		addr := t.pendingFree[0]
		if err := t.pages.Free(addr); err != nil {
			return written, err
		}
		t.pendingFree = t.pendingFree[1:]
	}

	t.pages.SetMeta(storage.Meta{
		Root:    t.root,
		Entries: t.count,
		Height:  uint32(t.height),
	})

	return written, t.pages.Sync()
}

// EvictAll drops every clean node from the cache.
func (t *Tree) EvictAll() int {
	return t.nodes.EvictAll()
}

// Trim evicts clean nodes until the cache is within its limit.
func (t *Tree) Trim() int {
	return t.nodes.Trim()
}

// Len returns the number of keys in the tree.
func (t *Tree) Len() uint64 {
	return t.count
}

// Height returns the number of levels; a single leaf has height 1.
func (t *Tree) Height() int {
	return t.height
}

// Root returns the root sector.
func (t *Tree) Root() storage.SectorAddr {
	return t.root
}

// KeySize returns the fixed key width.
func (t *Tree) KeySize() int {
	return t.keySize
}

// MaxCount returns the node capacity.
func (t *Tree) MaxCount() int {
	return t.maxCt
}

// Dirty reports whether the tree has unflushed changes.
func (t *Tree) Dirty() bool {
	if t.nodes.DirtyCount() > 0 || len(t.pendingFree) > 0 {
		return true
	}
	return t.pages.Meta() != storage.Meta{Root: t.root, Entries: t.count, Height: uint32(t.height)}
}

// Stats holds tree counters.
type Stats struct {
	Height       int
	MaxHeight    int
	Entries      uint64
	MaxCount     int
	NodesInsert  uint64
	NodesDelete  uint64
	KeysInsert   uint64
	KeysDelete   uint64
	Splits       uint64
	Merges       uint64
	Borrows      uint64
	DiskReads    uint64
	DiskWrites   uint64
	PendingFrees int
	Cache        cache.Stats
	Pages        storage.Stats
}

// Stats returns current statistics.
func (t *Tree) Stats() Stats {
	return Stats{
		Height:       t.height,
		MaxHeight:    t.stats.maxHeight,
		Entries:      t.count,
		MaxCount:     t.maxCt,
		NodesInsert:  t.stats.nodesIns,
		NodesDelete:  t.stats.nodesDel,
		KeysInsert:   t.stats.keysIns,
		KeysDelete:   t.stats.keysDel,
		Splits:       t.stats.splits,
		Merges:       t.stats.merges,
		Borrows:      t.stats.borrows,
		DiskReads:    t.stats.diskReads,
		DiskWrites:   t.stats.diskWrites,
		PendingFrees: len(t.pendingFree),
		Cache:        t.nodes.Stats(),
		Pages:        t.pages.Stats(),
	}
}
