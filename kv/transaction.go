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

import "fmt"

/*
maxTransRetries is the number of times a transaction function is run in
all before a transaction which keeps conflicting gives up.
*/
const maxTransRetries = 10

/*
Tx is a serializable transaction over one or more trees. Writes are staged
and applied on commit as one atomic batch per tree; the trees are written
one after another, so the commit as a whole is not atomic.
*/
type Tx struct {
	db     *DB
	ops    map[string][]Op
	staged map[string]map[string][]byte
}

/*
Insert stages an insert on a named tree.
*/
func (tx *Tx) Insert(tree string, k []byte, v []byte) {
	tx.ops[tree] = append(tx.ops[tree], Op{false, copyBytes(k), copyBytes(v)})

	if tx.staged[tree] == nil {
		tx.staged[tree] = make(map[string][]byte)
	}
	tx.staged[tree][string(k)] = copyBytes(v)
}

/*
Remove stages a remove on a named tree.
*/
func (tx *Tx) Remove(tree string, k []byte) {
	tx.ops[tree] = append(tx.ops[tree], Op{true, copyBytes(k), nil})

	if tx.staged[tree] == nil {
		tx.staged[tree] = make(map[string][]byte)
	}
	tx.staged[tree][string(k)] = nil
}

/*
Get reads a key. Staged writes of this transaction are visible.
*/
func (tx *Tx) Get(tree string, k []byte) ([]byte, error) {
	if staged, ok := tx.staged[tree]; ok {
		if v, ok := staged[string(k)]; ok {
			return copyBytes(v), nil
		}
	}

	t, err := tx.db.Tree(tree)
	if err != nil {
		return nil, err
	}

	return t.Get(k)
}

/*
Transaction runs a function as a serializable transaction over one or more
trees. If the function returns ErrConflict (wrapped in an Error) it is
re-run from scratch - transaction functions must not assume side-effect
free retries for their own state.
*/
func (db *DB) Transaction(fn func(tx *Tx) error) error {
	db.txMutex.Lock()
	defer db.txMutex.Unlock()

	for i := 0; i < maxTransRetries; i++ {
		tx := &Tx{
			db:     db,
			ops:    make(map[string][]Op),
			staged: make(map[string]map[string][]byte),
		}

		err := fn(tx)

		if err != nil {
			if kerr, ok := err.(*Error); ok && kerr.Type == ErrConflict {
				continue
			}

			return err
		}

		return tx.commit()
	}

	return &Error{Type: ErrConflict, Detail: fmt.Sprintf("Giving up after %v attempts", maxTransRetries)}
}

/*
commit applies all staged operations.
*/
func (tx *Tx) commit() error {
	for name, ops := range tx.ops {
		t, err := tx.db.Tree(name)
		if err != nil {
			return err
		}

		if err := t.ApplyBatch(&Batch{ops: ops}); err != nil {
			return err
		}
	}

	return nil
}
