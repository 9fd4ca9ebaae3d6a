package cache

import "container/list"

// lruList tracks access order of cached addresses.
// The front of the list is the most recently used entry.
type lruList struct {
	list    *list.List
	entries map[uint64]*list.Element
}

func newLRUList() *lruList {
	return &lruList{
		list:    list.New(),
		entries: make(map[uint64]*list.Element),
	}
}

// Access marks addr as recently used, adding it if absent.
func (l *lruList) Access(addr uint64) {
	if elem, exists := l.entries[addr]; exists {
		l.list.MoveToFront(elem)
		return
	}
	l.entries[addr] = l.list.PushFront(addr)
}

// Remove drops addr from the list.
func (l *lruList) Remove(addr uint64) {
	if elem, exists := l.entries[addr]; exists {
		l.list.Remove(elem)
		delete(l.entries, addr)
	}
}

// Contains reports whether addr is tracked.
func (l *lruList) Contains(addr uint64) bool {
	_, exists := l.entries[addr]
	return exists
}

// Len returns the number of tracked addresses.
func (l *lruList) Len() int {
	return l.list.Len()
}

// Clear removes every entry.
func (l *lruList) Clear() {
	l.list.Init()
	l.entries = make(map[uint64]*list.Element)
}

// LRUOrder returns addresses from least to most recently used.
func (l *lruList) LRUOrder() []uint64 {
	result := make([]uint64, 0, l.list.Len())
	for elem := l.list.Back(); elem != nil; elem = elem.Prev() {
		result = append(result, elem.Value.(uint64))
	}
	return result
}
