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

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

/*
memItem is a single entry of a memory store.
*/
type memItem struct {
	key []byte
	val []byte
}

/*
Less implements the btree item ordering (lexicographic key order).
*/
func (i *memItem) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(*memItem).key) < 0
}

/*
memStore is the memory backend for temporary stores. It disappears when the
store handle is closed.
*/
type memStore struct {
	data  *btree.BTree
	mutex sync.RWMutex
}

/*
newMemStore creates a new memory backend.
*/
func newMemStore() *memStore {
	return &memStore{data: btree.New(32)}
}

/*
Insert inserts a key / value pair and returns the previous value.
*/
func (ms *memStore) Insert(k []byte, v []byte) ([]byte, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	old := ms.data.ReplaceOrInsert(&memItem{copyBytes(k), copyBytes(v)})
	if old != nil {
		return old.(*memItem).val, nil
	}

	return nil, nil
}

/*
Get does an exact key lookup.
*/
func (ms *memStore) Get(k []byte) ([]byte, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if it := ms.data.Get(&memItem{key: k}); it != nil {
		return it.(*memItem).val, nil
	}

	return nil, nil
}

/*
GetLT returns the entry with the greatest key strictly less than k.
*/
func (ms *memStore) GetLT(k []byte) ([]byte, []byte, error) {
	var rk, rv []byte

	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	ms.data.DescendLessOrEqual(&memItem{key: k}, func(it btree.Item) bool {
		entry := it.(*memItem)

		if bytes.Equal(entry.key, k) {
			return true
		}

		rk, rv = entry.key, entry.val

		return false
	})

	return rk, rv, nil
}

/*
GetGT returns the entry with the smallest key strictly greater than k.
*/
func (ms *memStore) GetGT(k []byte) ([]byte, []byte, error) {
	var rk, rv []byte

	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	ms.data.AscendGreaterOrEqual(&memItem{key: k}, func(it btree.Item) bool {
		entry := it.(*memItem)

		if bytes.Equal(entry.key, k) {
			return true
		}

		rk, rv = entry.key, entry.val

		return false
	})

	return rk, rv, nil
}

/*
Remove removes a key and returns the previous value.
*/
func (ms *memStore) Remove(k []byte) ([]byte, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if it := ms.data.Delete(&memItem{key: k}); it != nil {
		return it.(*memItem).val, nil
	}

	return nil, nil
}

/*
Apply atomically applies a list of operations.
*/
func (ms *memStore) Apply(ops []Op) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	for _, op := range ops {
		if op.Del {
			ms.data.Delete(&memItem{key: op.K})
		} else {
			ms.data.ReplaceOrInsert(&memItem{copyBytes(op.K), copyBytes(op.V)})
		}
	}

	return nil
}

/*
Scan iterates all entries with a given key prefix in lexicographic order.
*/
func (ms *memStore) Scan(prefix []byte, f func(k []byte, v []byte) bool) error {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	iter := func(it btree.Item) bool {
		entry := it.(*memItem)

		if !bytes.HasPrefix(entry.key, prefix) {
			return false
		}

		return f(entry.key, entry.val)
	}

	if len(prefix) == 0 {
		ms.data.Ascend(iter)
	} else {
		ms.data.AscendGreaterOrEqual(&memItem{key: prefix}, iter)
	}

	return nil
}

/*
ScanFrom iterates all entries with keys greater or equal to a given start
key in lexicographic order.
*/
func (ms *memStore) ScanFrom(start []byte, f func(k []byte, v []byte) bool) error {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	ms.data.AscendGreaterOrEqual(&memItem{key: start}, func(it btree.Item) bool {
		entry := it.(*memItem)
		return f(entry.key, entry.val)
	})

	return nil
}

/*
Len returns the number of stored entries.
*/
func (ms *memStore) Len() (uint64, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	return uint64(ms.data.Len()), nil
}

/*
Flush writes all pending changes to disk (no-op for memory stores).
*/
func (ms *memStore) Flush() error {
	return nil
}

/*
copyBytes returns a copy of a given byte slice.
*/
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	ret := make([]byte, len(b))
	copy(ret, b)

	return ret
}
