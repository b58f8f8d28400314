/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package kv

/*
Op models a single operation of a batch.
*/
type Op struct {
	Del bool   // Flag if this is a delete operation
	K   []byte // Key to operate on
	V   []byte // Value to insert (ignored for deletes)
}

/*
Batch is an atomic group of insert and remove operations on a single tree.
*/
type Batch struct {
	ops []Op
}

/*
Insert adds an insert operation to the batch.
*/
func (b *Batch) Insert(k []byte, v []byte) {
	b.ops = append(b.ops, Op{false, k, v})
}

/*
Remove adds a remove operation to the batch.
*/
func (b *Batch) Remove(k []byte) {
	b.ops = append(b.ops, Op{true, k, nil})
}

/*
store describes an ordered byte-key / byte-value backend for a single tree.
All keys and values returned by a store are safe to retain.
*/
type store interface {

	/*
	   Insert inserts a key / value pair and returns the previous value
	   (nil if the key was not present).
	*/
	Insert(k []byte, v []byte) ([]byte, error)

	/*
	   Get does an exact key lookup. Returns nil if the key is not present.
	*/
	Get(k []byte) ([]byte, error)

	/*
	   GetLT returns the entry with the greatest key strictly less than k.
	*/
	GetLT(k []byte) ([]byte, []byte, error)

	/*
	   GetGT returns the entry with the smallest key strictly greater than k.
	*/
	GetGT(k []byte) ([]byte, []byte, error)

	/*
	   Remove removes a key and returns the previous value (nil if the key
	   was not present).
	*/
	Remove(k []byte) ([]byte, error)

	/*
	   Apply atomically applies a list of operations.
	*/
	Apply(ops []Op) error

	/*
	   Scan iterates all entries with a given key prefix in lexicographic
	   order. The iteration stops when f returns false.
	*/
	Scan(prefix []byte, f func(k []byte, v []byte) bool) error

	/*
	   ScanFrom iterates all entries with keys greater or equal to a given
	   start key in lexicographic order. The iteration stops when f returns
	   false.
	*/
	ScanFrom(start []byte, f func(k []byte, v []byte) bool) error

	/*
	   Len returns the number of stored entries.
	*/
	Len() (uint64, error)

	/*
	   Flush writes all pending changes to disk.
	*/
	Flush() error
}
