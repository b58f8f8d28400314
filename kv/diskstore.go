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

	bolt "go.etcd.io/bbolt"
)

/*
diskStore is the disk backend for persistent stores. Each tree maps to one
bucket of a shared bolt file.
*/
type diskStore struct {
	db     *bolt.DB // Shared bolt instance of the DB handle
	bucket []byte   // Name of the bucket of this tree
}

/*
newDiskStore creates a new disk backend on a given bucket. The bucket is
created if it does not exist.
*/
func newDiskStore(db *bolt.DB, name string) (*diskStore, error) {
	ds := &diskStore{db, []byte(name)}

	err := db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(ds.bucket)
		return berr
	})

	if err != nil {
		return nil, &Error{Type: ErrOpening, Detail: err.Error()}
	}

	return ds, nil
}

/*
Insert inserts a key / value pair and returns the previous value.
*/
func (ds *diskStore) Insert(k []byte, v []byte) ([]byte, error) {
	var old []byte

	err := ds.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ds.bucket)

		old = copyBytes(b.Get(k))

		return b.Put(k, v)
	})

	if err != nil {
		return nil, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return old, nil
}

/*
Get does an exact key lookup.
*/
func (ds *diskStore) Get(k []byte) ([]byte, error) {
	var val []byte

	err := ds.db.View(func(tx *bolt.Tx) error {
		val = copyBytes(tx.Bucket(ds.bucket).Get(k))
		return nil
	})

	if err != nil {
		return nil, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return val, nil
}

/*
GetLT returns the entry with the greatest key strictly less than k.
*/
func (ds *diskStore) GetLT(k []byte) ([]byte, []byte, error) {
	var rk, rv []byte

	err := ds.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(ds.bucket).Cursor()

		ck, cv := c.Seek(k)

		if ck == nil {

			// Seek went past the end - the last entry is the candidate

			ck, cv = c.Last()
		} else {
			ck, cv = c.Prev()
		}

		if ck != nil && bytes.Compare(ck, k) < 0 {
			rk, rv = copyBytes(ck), copyBytes(cv)
		}

		return nil
	})

	if err != nil {
		return nil, nil, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return rk, rv, nil
}

/*
GetGT returns the entry with the smallest key strictly greater than k.
*/
func (ds *diskStore) GetGT(k []byte) ([]byte, []byte, error) {
	var rk, rv []byte

	err := ds.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(ds.bucket).Cursor()

		ck, cv := c.Seek(k)

		if ck != nil && bytes.Equal(ck, k) {
			ck, cv = c.Next()
		}

		if ck != nil {
			rk, rv = copyBytes(ck), copyBytes(cv)
		}

		return nil
	})

	if err != nil {
		return nil, nil, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return rk, rv, nil
}

/*
Remove removes a key and returns the previous value.
*/
func (ds *diskStore) Remove(k []byte) ([]byte, error) {
	var old []byte

	err := ds.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ds.bucket)

		old = copyBytes(b.Get(k))

		if old == nil {
			return nil
		}

		return b.Delete(k)
	})

	if err != nil {
		return nil, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return old, nil
}

/*
Apply atomically applies a list of operations.
*/
func (ds *diskStore) Apply(ops []Op) error {
	err := ds.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ds.bucket)

		for _, op := range ops {
			var oerr error

			if op.Del {
				oerr = b.Delete(op.K)
			} else {
				oerr = b.Put(op.K, op.V)
			}

			if oerr != nil {
				return oerr
			}
		}

		return nil
	})

	if err != nil {
		return &Error{Type: ErrIO, Detail: err.Error()}
	}

	return nil
}

/*
Scan iterates all entries with a given key prefix in lexicographic order.
*/
func (ds *diskStore) Scan(prefix []byte, f func(k []byte, v []byte) bool) error {
	err := ds.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(ds.bucket).Cursor()

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !f(copyBytes(k), copyBytes(v)) {
				break
			}
		}

		return nil
	})

	if err != nil {
		return &Error{Type: ErrIO, Detail: err.Error()}
	}

	return nil
}

/*
ScanFrom iterates all entries with keys greater or equal to a given start
key in lexicographic order.
*/
func (ds *diskStore) ScanFrom(start []byte, f func(k []byte, v []byte) bool) error {
	err := ds.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(ds.bucket).Cursor()

		for k, v := c.Seek(start); k != nil; k, v = c.Next() {
			if !f(copyBytes(k), copyBytes(v)) {
				break
			}
		}

		return nil
	})

	if err != nil {
		return &Error{Type: ErrIO, Detail: err.Error()}
	}

	return nil
}

/*
Len returns the number of stored entries.
*/
func (ds *diskStore) Len() (uint64, error) {
	var ret uint64

	err := ds.db.View(func(tx *bolt.Tx) error {
		ret = uint64(tx.Bucket(ds.bucket).Stats().KeyN)
		return nil
	})

	if err != nil {
		return 0, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return ret, nil
}

/*
Flush writes all pending changes to disk.
*/
func (ds *diskStore) Flush() error {
	if err := ds.db.Sync(); err != nil {
		return &Error{Type: ErrFlushing, Detail: err.Error()}
	}

	return nil
}
