/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package vm

import "sync/atomic"

/*
DefaultObjectCeiling is the default maximum number of live heap objects
of a machine.
*/
const DefaultObjectCeiling = 65535

/*
Gc tracks the number of live heap objects of a machine and refuses
allocation past a fixed ceiling.
*/
type Gc struct {
	live    int64
	ceiling int64
}

/*
NewGc creates a new object accountant with a given ceiling.
*/
func NewGc(ceiling int64) *Gc {
	return &Gc{ceiling: ceiling}
}

/*
CheckedAllocate reserves n objects. Returns ErrOutOfMemory if the
allocation would cross the ceiling.
*/
func (g *Gc) CheckedAllocate(n int64) error {
	if atomic.AddInt64(&g.live, n) > g.ceiling {
		atomic.AddInt64(&g.live, -n)
		return &RuntimeError{Type: ErrOutOfMemory}
	}

	return nil
}

/*
Release returns n objects to the accountant.
*/
func (g *Gc) Release(n int64) {
	atomic.AddInt64(&g.live, -n)
}

/*
Live returns the current number of live objects.
*/
func (g *Gc) Live() int64 {
	return atomic.LoadInt64(&g.live)
}

/*
Slot is a generation-checked handle into an arena. A slot whose entry was
removed (and possibly reused) no longer resolves.
*/
type Slot struct {
	Index uint32
	Gen   uint32
}

/*
arenaEntry is a single slab entry.
*/
type arenaEntry struct {
	gen  uint32
	val  interface{}
	used bool
}

/*
Arena is a slab allocator with an indexed free list. Insertions return
stable generation-checked slots which are used as weak handles.
*/
type Arena struct {
	entries []arenaEntry
	free    []uint32
	used    int
}

/*
NewArena creates a new empty arena.
*/
func NewArena() *Arena {
	return &Arena{}
}

/*
Insert stores a value and returns its slot.
*/
func (a *Arena) Insert(v interface{}) Slot {
	a.used++

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]

		entry := &a.entries[idx]
		entry.val = v
		entry.used = true

		return Slot{Index: idx, Gen: entry.gen}
	}

	a.entries = append(a.entries, arenaEntry{val: v, used: true})

	return Slot{Index: uint32(len(a.entries) - 1)}
}

/*
Get resolves a slot. Returns false if the slot is stale.
*/
func (a *Arena) Get(s Slot) (interface{}, bool) {
	if int(s.Index) >= len(a.entries) {
		return nil, false
	}

	entry := &a.entries[s.Index]

	if !entry.used || entry.gen != s.Gen {
		return nil, false
	}

	return entry.val, true
}

/*
Remove frees a slot and returns its value. Returns false if the slot is
stale.
*/
func (a *Arena) Remove(s Slot) (interface{}, bool) {
	if int(s.Index) >= len(a.entries) {
		return nil, false
	}

	entry := &a.entries[s.Index]

	if !entry.used || entry.gen != s.Gen {
		return nil, false
	}

	val := entry.val

	entry.val = nil
	entry.used = false
	entry.gen++

	a.free = append(a.free, s.Index)
	a.used--

	return val, true
}

/*
Len returns the number of used entries.
*/
func (a *Arena) Len() int {
	return a.used
}

/*
Each iterates all used entries in slot order. The iteration stops when f
returns false.
*/
func (a *Arena) Each(f func(s Slot, v interface{}) bool) {
	for i := range a.entries {
		entry := &a.entries[i]

		if entry.used {
			if !f(Slot{Index: uint32(i), Gen: entry.gen}, entry.val) {
				return
			}
		}
	}
}
