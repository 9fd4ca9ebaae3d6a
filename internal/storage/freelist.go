package storage

import "encoding/binary"

// SectorKindFree marks a sector sitting on the free list.
const SectorKindFree byte = 0xFF

// Layout of a free sector:
//   - Byte 0:     SectorKindFree
//   - Bytes 8-15: next free sector (0 terminates the list)

// EncodeFreeSector fills buf with a free-list link to next.
func EncodeFreeSector(buf []byte, next SectorAddr) {
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = SectorKindFree
	binary.LittleEndian.PutUint64(buf[8:16], uint64(next))
}

// DecodeFreeSector returns the link stored in a free sector.
// ok is false when buf is not a free sector.
func DecodeFreeSector(buf []byte) (next SectorAddr, ok bool) {
	if len(buf) < 16 || buf[0] != SectorKindFree {
		return 0, false
	}
	return SectorAddr(binary.LittleEndian.Uint64(buf[8:16])), true
}

// FreeList mirrors the on-disk free sector chain in memory.
// The chain itself is threaded through the free sectors; the last element
// of stack is the list head recorded in the file header.
type FreeList struct {
	stack   []SectorAddr
	members map[SectorAddr]struct{}
}

// NewFreeList creates an empty FreeList.
func NewFreeList() *FreeList {
	return &FreeList{
		stack:   make([]SectorAddr, 0),
		members: make(map[SectorAddr]struct{}),
	}
}

// Head returns the sector popped next, or 0 when the list is empty.
func (fl *FreeList) Head() SectorAddr {
	if len(fl.stack) == 0 {
		return 0
	}
	return fl.stack[len(fl.stack)-1]
}

// Len returns the number of free sectors.
func (fl *FreeList) Len() int {
	return len(fl.stack)
}

// Push makes addr the new head.
func (fl *FreeList) Push(addr SectorAddr) {
	fl.stack = append(fl.stack, addr)
	fl.members[addr] = struct{}{}
}

// Pop removes and returns the head.
func (fl *FreeList) Pop() (SectorAddr, bool) {
	if len(fl.stack) == 0 {
		return 0, false
	}
	idx := len(fl.stack) - 1
	addr := fl.stack[idx]
	fl.stack = fl.stack[:idx]
	delete(fl.members, addr)
	return addr, true
}

// Contains reports whether addr is on the list.
func (fl *FreeList) Contains(addr SectorAddr) bool {
	_, ok := fl.members[addr]
	return ok
}

// Chain returns the free sectors in on-disk order, head first.
func (fl *FreeList) Chain() []SectorAddr {
	out := make([]SectorAddr, len(fl.stack))
	for i := range fl.stack {
		out[i] = fl.stack[len(fl.stack)-1-i]
	}
	return out
}

// loadChain rebuilds the list from a chain given head first.
func (fl *FreeList) loadChain(chain []SectorAddr) {
	fl.stack = make([]SectorAddr, 0, len(chain))
	fl.members = make(map[SectorAddr]struct{}, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		fl.Push(chain[i])
	}
}
