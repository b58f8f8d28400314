/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package kv contains the ordered key-value store facade of MPK.

A DB is an ordered byte-key / byte-value store with named sub-stores
(trees). There are two backends: a disk backend (one bolt bucket per tree)
and a memory backend which is used when no path is given and disappears
when the handle is closed.

Trees support exact and strict-neighbor lookups, atomic compare-and-swap,
atomic batches, user-defined merge operators and watch-prefix subscribers
which yield change events in commit order. Multi-tree writes go through
serializable transactions - on conflict the transaction function is re-run
from scratch.
*/
package kv

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/fileutil"
	bolt "go.etcd.io/bbolt"
)

/*
FilenameData is the filename for the data file of a disk store
*/
var FilenameData = "data.bolt"

/*
Mode is the tuning mode of a store.
*/
type Mode int

/*
Available store modes
*/
const (
	ModeLowSpace Mode = iota
	ModeHighThroughput
)

/*
Options are the tuning options of a store. Compression options are
recorded but are a noop in the current backend.
*/
type Options struct {
	Mode        Mode // Tuning mode
	Compression bool // Flag if values should be compressed
	Level       int  // Compression level
}

/*
DB is a store instance with named sub-stores. The handle is sharable by
reference; tree handles wrap a cheap reference of it.
*/
type DB struct {
	path    string
	opts    Options
	bolt    *bolt.DB
	trees   map[string]*Tree
	mutex   sync.Mutex
	txMutex sync.Mutex
}

/*
Open opens a store at a given path. An empty path opens a temporary memory
store which is destroyed when the handle is closed.
*/
func Open(path string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = &Options{}
	}

	db := &DB{path: path, opts: *opts, trees: make(map[string]*Tree)}

	if path == "" {
		return db, nil
	}

	// Create the store directory if it does not exist

	if res, _ := fileutil.PathExists(path); !res {
		if err := os.MkdirAll(path, 0770); err != nil {
			return nil, &Error{Type: ErrOpening, Detail: err.Error()}
		}
	}

	bopts := &bolt.Options{}

	if opts.Mode == ModeHighThroughput {
		bopts.NoSync = true
	}

	b, err := bolt.Open(filepath.Join(path, FilenameData), 0660, bopts)
	if err != nil {
		return nil, &Error{Type: ErrOpening, Detail: err.Error()}
	}

	db.bolt = b

	return db, nil
}

/*
Path returns the path of this store (empty for memory stores).
*/
func (db *DB) Path() string {
	return db.path
}

/*
Tree returns a handle on a named sub-store. Missing trees are created on
first use; opening is idempotent.
*/
func (db *DB) Tree(name string) (*Tree, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if t, ok := db.trees[name]; ok {
		return t, nil
	}

	var st store
	var err error

	if db.bolt != nil {
		st, err = newDiskStore(db.bolt, name)
		if err != nil {
			return nil, err
		}
	} else {
		st = newMemStore()
	}

	t := &Tree{name: name, st: st}
	db.trees[name] = t

	return t, nil
}

/*
TreeNames returns the names of all opened trees.
*/
func (db *DB) TreeNames() []string {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	var names []string
	for name := range db.trees {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

/*
Flush writes all pending changes to disk and returns the current on-disk
size in bytes. Errors of single trees do not stop the flush of the
others - all errors are collected and reported together.
*/
func (db *DB) Flush() (int64, error) {
	if db.bolt == nil {
		return 0, nil
	}

	ce := errorutil.NewCompositeError()

	db.mutex.Lock()
	trees := make([]*Tree, 0, len(db.trees))
	for _, t := range db.trees {
		trees = append(trees, t)
	}
	db.mutex.Unlock()

	for _, t := range trees {
		if err := t.st.Flush(); err != nil {
			ce.Add(err)
		}
	}

	if err := db.bolt.Sync(); err != nil {
		ce.Add(err)
	}

	if ce.HasErrors() {
		return 0, &Error{Type: ErrFlushing, Detail: ce.Error()}
	}

	info, err := os.Stat(filepath.Join(db.path, FilenameData))
	if err != nil {
		return 0, &Error{Type: ErrIO, Detail: err.Error()}
	}

	return info.Size(), nil
}

/*
FlushAsync writes all pending changes to disk in the background. The
returned channel yields the result of the flush.
*/
func (db *DB) FlushAsync() chan error {
	ret := make(chan error, 1)

	go func() {
		_, err := db.Flush()
		ret <- err
	}()

	return ret
}

/*
Info reports per-tree length, a whole-store CRC-32 and the on-disk size.
*/
func (db *DB) Info() (*Info, error) {
	ret := &Info{Path: db.path, Trees: make(map[string]uint64)}

	crc := crc32.NewIEEE()

	db.mutex.Lock()
	names := make([]string, 0, len(db.trees))
	for name := range db.trees {
		names = append(names, name)
	}
	db.mutex.Unlock()

	sort.Strings(names)

	for _, name := range names {
		t, err := db.Tree(name)
		if err != nil {
			return nil, err
		}

		l, err := t.Len()
		if err != nil {
			return nil, err
		}

		ret.Trees[name] = l

		err = t.Scan(nil, func(k []byte, v []byte) bool {
			crc.Write(k)
			crc.Write(v)
			return true
		})

		if err != nil {
			return nil, err
		}
	}

	ret.Checksum = crc.Sum32()

	if db.bolt != nil {
		if info, err := os.Stat(filepath.Join(db.path, FilenameData)); err == nil {
			ret.Size = uint64(info.Size())
		}
	}

	return ret, nil
}

/*
Close closes the store. Memory stores are destroyed. All close errors
are collected and reported together.
*/
func (db *DB) Close() error {
	ce := errorutil.NewCompositeError()

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, t := range db.trees {
		t.subMutex.Lock()
		subs := append([]*Subscriber{}, t.subs...)
		t.subMutex.Unlock()

		for _, s := range subs {
			s.Close()
		}

		if err := t.st.Flush(); err != nil {
			ce.Add(err)
		}
	}

	db.trees = make(map[string]*Tree)

	if db.bolt != nil {
		if err := db.bolt.Close(); err != nil {
			ce.Add(err)
		}
		db.bolt = nil
	}

	if ce.HasErrors() {
		return &Error{Type: ErrClosing, Detail: ce.Error()}
	}

	return nil
}

/*
Info holds statistics about a store.
*/
type Info struct {
	Path     string            // Path of the store
	Trees    map[string]uint64 // Entry count per tree
	Checksum uint32            // CRC-32 over all tree content
	Size     uint64            // On-disk size in bytes
}

/*
String returns a human-readable representation of this info object.
*/
func (i *Info) String() string {
	var buf bytes.Buffer

	var names []string
	for name := range i.Trees {
		names = append(names, name)
	}
	sort.Strings(names)

	buf.WriteString("trees:\n")
	for _, name := range names {
		buf.WriteString(fmt.Sprintf("%v: %v\n", name, i.Trees[name]))
	}
	buf.WriteString(fmt.Sprintf("CRC32: %v\n", i.Checksum))
	buf.WriteString(fmt.Sprintf("size: %v\n", FormatByteSize(i.Size)))

	return buf.String()
}

/*
FormatByteSize formats a byte count in human-readable units.
*/
func FormatByteSize(b uint64) string {
	if b < 1024 {
		return fmt.Sprintf("%v B", b)
	}

	div, exp := uint64(1024), 0
	for n := b / 1024; n >= 1024; n /= 1024 {
		div *= 1024
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
