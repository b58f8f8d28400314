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
)

/*
MergeOperator is a user-provided function which is invoked atomically for
merge writes. It receives the key, the current value (nil if the key is
absent) and the merge operand and returns the new value. Returning nil
deletes the key.
*/
type MergeOperator func(key []byte, old []byte, merge []byte) []byte

/*
Tree is a handle on a named sub-store of a DB. All write operations on a
tree are serialized; reads run concurrently.
*/
type Tree struct {
	name     string
	st       store
	merge    MergeOperator
	mutex    sync.Mutex // Serializes writes and subscriber notification
	subs     []*Subscriber
	subMutex sync.Mutex
}

/*
Name returns the name of this tree.
*/
func (t *Tree) Name() string {
	return t.name
}

/*
Insert inserts a key / value pair. Returns the previous value if the key
existed.
*/
func (t *Tree) Insert(k []byte, v []byte) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	old, err := t.st.Insert(k, v)
	if err != nil {
		return nil, err
	}

	t.publish(Event{EventInsert, copyBytes(k), copyBytes(v)})

	return old, nil
}

/*
Get does an exact key lookup. Returns nil if the key is not present.
*/
func (t *Tree) Get(k []byte) ([]byte, error) {
	return t.st.Get(k)
}

/*
GetLT returns the entry with the greatest key strictly less than k.
Ordering is lexicographic over bytes.
*/
func (t *Tree) GetLT(k []byte) ([]byte, []byte, error) {
	return t.st.GetLT(k)
}

/*
GetGT returns the entry with the smallest key strictly greater than k.
Ordering is lexicographic over bytes.
*/
func (t *Tree) GetGT(k []byte) ([]byte, []byte, error) {
	return t.st.GetGT(k)
}

/*
Contains checks if a given key is present.
*/
func (t *Tree) Contains(k []byte) (bool, error) {
	v, err := t.st.Get(k)
	return v != nil, err
}

/*
Remove removes a key. Returns the previous value if the key existed.
*/
func (t *Tree) Remove(k []byte) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	old, err := t.st.Remove(k)
	if err != nil {
		return nil, err
	}

	if old != nil {
		t.publish(Event{EventRemove, copyBytes(k), nil})
	}

	return old, nil
}

/*
CompareAndSwap atomically updates a key. An old value of nil means "expect
absent"; a new value of nil means "delete". On mismatch a CasError is
returned which carries the current value.
*/
func (t *Tree) CompareAndSwap(k []byte, old []byte, new []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	cur, err := t.st.Get(k)
	if err != nil {
		return err
	}

	if !bytes.Equal(cur, old) || (cur == nil) != (old == nil) {
		return &CasError{Current: cur, Proposed: new}
	}

	if new == nil {
		if cur != nil {
			if _, err = t.st.Remove(k); err != nil {
				return err
			}
			t.publish(Event{EventRemove, copyBytes(k), nil})
		}

		return nil
	}

	if _, err = t.st.Insert(k, new); err != nil {
		return err
	}

	t.publish(Event{EventInsert, copyBytes(k), copyBytes(new)})

	return nil
}

/*
SetMergeOperator registers the merge operator of this tree.
*/
func (t *Tree) SetMergeOperator(op MergeOperator) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.merge = op
}

/*
Merge invokes the registered merge operator for a key. The call is atomic
with respect to concurrent merge and insert operations on the same tree.
Returns the merged value.
*/
func (t *Tree) Merge(k []byte, v []byte) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.merge == nil {
		return nil, &Error{Type: ErrNoMerge, Detail: t.name}
	}

	old, err := t.st.Get(k)
	if err != nil {
		return nil, err
	}

	merged := t.merge(k, old, v)

	if merged == nil {
		if old != nil {
			if _, err = t.st.Remove(k); err != nil {
				return nil, err
			}
			t.publish(Event{EventRemove, copyBytes(k), nil})
		}

		return nil, nil
	}

	if _, err = t.st.Insert(k, merged); err != nil {
		return nil, err
	}

	t.publish(Event{EventMerge, copyBytes(k), copyBytes(merged)})

	return merged, nil
}

/*
ApplyBatch atomically applies a batch of operations.
*/
func (t *Tree) ApplyBatch(b *Batch) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if err := t.st.Apply(b.ops); err != nil {
		return err
	}

	for _, op := range b.ops {
		if op.Del {
			t.publish(Event{EventRemove, copyBytes(op.K), nil})
		} else {
			t.publish(Event{EventInsert, copyBytes(op.K), copyBytes(op.V)})
		}
	}

	return nil
}

/*
Scan iterates all entries with a given key prefix in lexicographic order.
The iteration stops when f returns false.
*/
func (t *Tree) Scan(prefix []byte, f func(k []byte, v []byte) bool) error {
	return t.st.Scan(prefix, f)
}

/*
ScanFrom iterates all entries with keys greater or equal to a given start
key in lexicographic order. The iteration stops when f returns false.
*/
func (t *Tree) ScanFrom(start []byte, f func(k []byte, v []byte) bool) error {
	return t.st.ScanFrom(start, f)
}

/*
Len returns the number of stored entries.
*/
func (t *Tree) Len() (uint64, error) {
	return t.st.Len()
}

/*
First returns the first entry of this tree (nil if the tree is empty).
*/
func (t *Tree) First() ([]byte, []byte, error) {
	var rk, rv []byte

	err := t.st.Scan(nil, func(k []byte, v []byte) bool {
		rk, rv = k, v
		return false
	})

	return rk, rv, err
}

/*
WatchPrefix returns a subscriber which yields change events for all keys
starting with a given prefix. Events arrive in commit order.
*/
func (t *Tree) WatchPrefix(prefix []byte) *Subscriber {
	sub := &Subscriber{
		prefix: copyBytes(prefix),
		events: make(chan Event, subscriberBuffer),
		tree:   t,
	}

	t.subMutex.Lock()
	t.subs = append(t.subs, sub)
	t.subMutex.Unlock()

	return sub
}

/*
publish notifies all matching subscribers about a change event. Must be
called while holding the tree write lock so events arrive in commit order.
*/
func (t *Tree) publish(ev Event) {
	t.subMutex.Lock()
	defer t.subMutex.Unlock()

	for _, sub := range t.subs {
		if bytes.HasPrefix(ev.Key, sub.prefix) {
			sub.publish(ev)
		}
	}
}

/*
detach removes a subscriber from this tree.
*/
func (t *Tree) detach(sub *Subscriber) {
	t.subMutex.Lock()
	defer t.subMutex.Unlock()

	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}
