// Package btree implements the on-disk B+ tree index of BeeDB.
//
// # Overview
//
// The tree maps fixed-width keys to record addresses. Every node occupies
// exactly one sector of a storage.PageStore:
//
//   - Internal nodes: separators and child sector pointers
//   - Leaf nodes: keys, record addresses and sibling pointers
//
// Child i of an internal node covers keys in [sep[i-1], sep[i]).
//
// # Rebalancing
//
// A node that grows past maxCt entries is split at the median. Leaf splits
// promote the first key of the new right leaf; internal splits promote the
// middle separator. A non-root node that drops below maxCt/2 entries is
// merged with a sibling when the result fits, otherwise the two siblings
// share their entries evenly. Both cascades walk the ancestor path captured
// during the descent, so no operation recurses.
//
// # Caching and Flush
//
// Decoded nodes live in a cache.Cache. Mutations only mark nodes dirty;
// Flush writes dirty nodes, releases sectors freed by merges, stores the
// root, height and entry count in the file header and syncs the file.
//
//	tree, err := btree.Create(pages, 1024)
//	if err != nil {
//	    return err
//	}
//
//	_, _, err = tree.Insert(key, rec)
//
//	c := tree.Cursor()
//	for ok := c.First(); ok; ok = c.Next() {
//	    key, rec := c.Key(), c.Record()
//	}
//	if err := c.Err(); err != nil {
//	    return err
//	}
//
//	return tree.Flush()
package btree
