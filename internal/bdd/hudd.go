// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package bdd

import (
	"fmt"
	"unsafe"
)

// huddnode is a node of the unique table: a triple (level, low, high) plus a
// reference count used by the mark-and-sweep collector. Constants are always
// kept at index 0 and 1.
type huddnode struct {
	level  int32 // Order of the variable in the BDD
	low    int   // Reference to the false branch
	high   int   // Reference to the true branch
	refcou int32 // Count the number of external references
}

// nodeKey is the unique-table lookup key for a triple (level, low, high). We
// key the table on a plain Go value instead of a hand-rolled byte hash since
// the checker runs single-threaded and never needs to migrate this table to
// a concurrency-safe map.
type nodeKey struct {
	level int32
	low   int
	high  int
}

func (b *Manager) ismarked(n int) bool {
	b.RLock()
	defer b.RUnlock()
	return (b.nodes[n].refcou & 0x200000) != 0
}

func (b *Manager) marknode(n int) {
	b.RLock()
	defer b.RUnlock()
	b.nodes[n].refcou |= 0x200000
}

func (b *Manager) unmarknode(n int) {
	b.RLock()
	defer b.RUnlock()
	b.nodes[n].refcou &= 0x1FFFFF
}

func (b *Manager) nodehash(level int32, low, high int) (int, bool) {
	hn, ok := b.unique[nodeKey{level, low, high}]
	return hn, ok
}

// When a slot is unused in b.nodes, we have low set to -1 and high set to the
// next free position. The value of b.freepos gives the index of the lowest
// unused slot, except when freenum is 0, in which case it is also 0.

func (b *Manager) setnode(level int32, low int, high int, count int32) int {
	b.Lock()
	defer b.Unlock()
	b.freenum--
	b.unique[nodeKey{level, low, high}] = b.freepos
	res := b.freepos
	b.freepos = b.nodes[b.freepos].high
	b.nodes[res] = huddnode{level, low, high, count}
	return res
}

func (b *Manager) delnode(hn huddnode) {
	delete(b.unique, nodeKey{hn.level, hn.low, hn.high})
}

func (b *Manager) size() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.nodes)
}

func (b *Manager) level(n int) int32 {
	b.RLock()
	defer b.RUnlock()
	return b.nodes[n].level
}

func (b *Manager) low(n int) int {
	b.RLock()
	defer b.RUnlock()
	return b.nodes[n].low
}

func (b *Manager) high(n int) int {
	b.RLock()
	defer b.RUnlock()
	return b.nodes[n].high
}

// stats returns information about the unique node table.
func (b *Manager) stats() string {
	b.RLock()
	defer b.RUnlock()
	res := "Impl.:      Hudd\n"
	res += fmt.Sprintf("Allocated:  %d (%s)\n", len(b.nodes), humanSize(len(b.nodes), unsafe.Sizeof(huddnode{})))
	res += fmt.Sprintf("Produced:   %d\n", b.produced)
	r := (float64(b.freenum) / float64(len(b.nodes))) * 100
	res += fmt.Sprintf("Free:       %d (%.3g %%)\n", b.freenum, r)
	res += fmt.Sprintf("Used:       %d (%.3g %%)\n", len(b.nodes)-b.freenum, (100.0 - r))
	res += "==============\n"
	res += fmt.Sprintf("# of GC:    %d\n", len(b.gcstat.history))
	if _DEBUG {
		allocated := int(b.gcstat.setfinalizers)
		reclaimed := int(b.gcstat.calledfinalizers)
		for _, g := range b.gcstat.history {
			allocated += g.setfinalizers
			reclaimed += g.calledfinalizers
		}
		res += fmt.Sprintf("Ext. refs:  %d\n", allocated)
		res += fmt.Sprintf("Reclaimed:  %d\n", reclaimed)
		res += "==============\n"
		res += fmt.Sprintf("Unique Access:  %d\n", b.uniqueAccess)
		res += fmt.Sprintf("Unique Hit:     %d (%.1f%% + %.1f%%)\n", b.uniqueHit, (float64(b.uniqueHit)*100)/float64(b.uniqueAccess),
			(float64(b.uniqueAccess-b.uniqueMiss-b.uniqueHit)*100)/float64(b.uniqueAccess))
		res += fmt.Sprintf("Unique Miss:    %d\n", b.uniqueMiss)
	}
	return res
}
