/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package db

import (
	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/kv"
)

/*
Reserved tree names of the media graph
*/
const (
	TreeMedia      = "media"
	TreeMediaProps = "media_props"
	TreePath       = "path"
	TreeArtist     = "artist"
	TreeAlbum      = "album"
	TreeGenre      = "genre"
	TreeColl       = "coll"
	TreePlaylist   = "playlist"
	TreeSource     = "source"
	TreeEdge       = "edge"
	TreeEdgeProps  = "edge_props"
)

/*
TreeNames is the catalog of reserved tree names.
*/
var TreeNames = []string{
	TreeMedia, TreeMediaProps, TreePath, TreeArtist, TreeAlbum,
	TreeGenre, TreeColl, TreePlaylist, TreeSource, TreeEdge, TreeEdgeProps,
}

/*
MetaMergeOp is the merge operator of meta trees. The merge operand is a
single serialized id which is appended to the stored id vector. Duplicates
are tolerated in the merge result - deduplication is the reader's
responsibility.
*/
func MetaMergeOp(key []byte, old []byte, merge []byte) []byte {
	var vec types.IdVec

	if old != nil {
		if v, err := types.DecodeIdVec(old); err == nil {
			vec = v
		}
	}

	id, err := types.DecodeId(merge)
	if err != nil {

		// A malformed operand leaves the stored value unchanged

		return old
	}

	return types.EncodeIdVec(append(vec, id))
}

/*
PropMergeOp is the merge operator of prop trees. The merge operand is a
single serialized property which is appended to the stored property vector.
*/
func PropMergeOp(key []byte, old []byte, merge []byte) []byte {
	var vec types.PropVec

	if old != nil {
		if v, err := types.DecodePropVec(old); err == nil {
			vec = v
		}
	}

	p, err := types.DecodeProp(merge)
	if err != nil {
		return old
	}

	return types.EncodePropVec(append(vec, p))
}

/*
NodeTree is a typed handle on the media tree (key: id, value: node kind).
*/
type NodeTree struct {
	tree    *kv.Tree
	factory NodeFactory
}

/*
OpenNodeTree opens a typed node tree with a given name.
*/
func OpenNodeTree(store *kv.DB, name string) (*NodeTree, error) {
	tree, err := store.Tree(name)
	if err != nil {
		return nil, err
	}

	return &NodeTree{tree: tree}, nil
}

/*
Insert stores a node. Returns the previous kind if the id existed.
*/
func (t *NodeTree) Insert(n types.Node) (*types.NodeKind, error) {
	k, v := t.factory.Serialize(n)

	old, err := t.tree.Insert(k, v)
	if err != nil || old == nil {
		return nil, err
	}

	kind, err := t.factory.DeserializeVal(old)
	if err != nil {
		return nil, err
	}

	return &kind, nil
}

/*
Get looks up the kind of a node. Returns nil if the node does not exist.
*/
func (t *NodeTree) Get(id types.Id) (*types.NodeKind, error) {
	v, err := t.tree.Get(types.EncodeId(id))
	if err != nil || v == nil {
		return nil, err
	}

	kind, err := t.factory.DeserializeVal(v)
	if err != nil {
		return nil, err
	}

	return &kind, nil
}

/*
GetLT returns the node with the greatest id strictly less than a given id.
*/
func (t *NodeTree) GetLT(id types.Id) (*types.Node, error) {
	k, v, err := t.tree.GetLT(types.EncodeId(id))
	if err != nil || k == nil {
		return nil, err
	}

	n, err := t.factory.Deserialize(k, v)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

/*
GetGT returns the node with the smallest id strictly greater than a given
id.
*/
func (t *NodeTree) GetGT(id types.Id) (*types.Node, error) {
	k, v, err := t.tree.GetGT(types.EncodeId(id))
	if err != nil || k == nil {
		return nil, err
	}

	n, err := t.factory.Deserialize(k, v)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

/*
Exists checks if a node exists.
*/
func (t *NodeTree) Exists(id types.Id) (bool, error) {
	return t.tree.Contains(types.EncodeId(id))
}

/*
Remove removes a node. Returns the previous kind if the node existed.
*/
func (t *NodeTree) Remove(id types.Id) (*types.NodeKind, error) {
	old, err := t.tree.Remove(types.EncodeId(id))
	if err != nil || old == nil {
		return nil, err
	}

	kind, err := t.factory.DeserializeVal(old)
	if err != nil {
		return nil, err
	}

	return &kind, nil
}

/*
ScanFrom iterates nodes in id order starting at a given id (all nodes if
start is nil). The iteration stops when f returns false.
*/
func (t *NodeTree) ScanFrom(start *types.Id, f func(types.Node) bool) error {
	var startKey []byte

	if start != nil {
		startKey = types.EncodeId(*start)
	}

	var derr error

	serr := t.tree.ScanFrom(startKey, func(k []byte, v []byte) bool {
		n, err := t.factory.Deserialize(k, v)
		if err != nil {
			derr = err
			return false
		}

		return f(n)
	})

	if serr != nil {
		return serr
	}

	return derr
}

/*
Len returns the number of stored nodes.
*/
func (t *NodeTree) Len() (uint64, error) {
	return t.tree.Len()
}

/*
Watch returns a subscriber for all node changes.
*/
func (t *NodeTree) Watch() *kv.Subscriber {
	return t.tree.WatchPrefix(nil)
}

/*
EdgeTree is a typed handle on the edge tree (key: edge key, value:
creation timestamp).
*/
type EdgeTree struct {
	tree    *kv.Tree
	factory EdgeFactory
}

/*
OpenEdgeTree opens a typed edge tree with a given name.
*/
func OpenEdgeTree(store *kv.DB, name string) (*EdgeTree, error) {
	tree, err := store.Tree(name)
	if err != nil {
		return nil, err
	}

	return &EdgeTree{tree: tree}, nil
}

/*
Insert stores an edge. Returns the previous timestamp if the edge existed.
*/
func (t *EdgeTree) Insert(e types.Edge) (*types.Timestamp, error) {
	k, v := t.factory.Serialize(e)

	old, err := t.tree.Insert(k, v)
	if err != nil || old == nil {
		return nil, err
	}

	ts, err := t.factory.DeserializeVal(old)
	if err != nil {
		return nil, err
	}

	return &ts, nil
}

/*
Get looks up the creation timestamp of an edge. Returns nil if the edge
does not exist.
*/
func (t *EdgeTree) Get(key types.EdgeKey) (*types.Timestamp, error) {
	v, err := t.tree.Get(types.EncodeEdgeKey(key))
	if err != nil || v == nil {
		return nil, err
	}

	ts, err := t.factory.DeserializeVal(v)
	if err != nil {
		return nil, err
	}

	return &ts, nil
}

/*
Exists checks if an edge exists.
*/
func (t *EdgeTree) Exists(key types.EdgeKey) (bool, error) {
	return t.tree.Contains(types.EncodeEdgeKey(key))
}

/*
Remove removes an edge. Returns the previous timestamp if the edge
existed.
*/
func (t *EdgeTree) Remove(key types.EdgeKey) (*types.Timestamp, error) {
	old, err := t.tree.Remove(types.EncodeEdgeKey(key))
	if err != nil || old == nil {
		return nil, err
	}

	ts, err := t.factory.DeserializeVal(old)
	if err != nil {
		return nil, err
	}

	return &ts, nil
}

/*
Scan iterates all edges in key order. The iteration stops when f returns
false.
*/
func (t *EdgeTree) Scan(f func(types.Edge) bool) error {
	return t.scanPrefix(nil, f)
}

/*
ScanKind iterates all edges of a given kind in key order.
*/
func (t *EdgeTree) ScanKind(kind types.EdgeKind, f func(types.Edge) bool) error {
	return t.scanPrefix([]byte{byte(kind)}, f)
}

/*
ScanFrom iterates all edges of a given kind leaving a given node. The keys
under a fixed kind and inbound id prefix are in ascending outbound order.
*/
func (t *EdgeTree) ScanFrom(kind types.EdgeKind, inbound types.Id, f func(types.Edge) bool) error {
	prefix := append([]byte{byte(kind)}, inbound[:]...)
	return t.scanPrefix(prefix, f)
}

/*
scanPrefix iterates all edges with a given key prefix.
*/
func (t *EdgeTree) scanPrefix(prefix []byte, f func(types.Edge) bool) error {
	var derr error

	serr := t.tree.Scan(prefix, func(k []byte, v []byte) bool {
		e, err := t.factory.Deserialize(k, v)
		if err != nil {
			derr = err
			return false
		}

		return f(e)
	})

	if serr != nil {
		return serr
	}

	return derr
}

/*
Len returns the number of stored edges.
*/
func (t *EdgeTree) Len() (uint64, error) {
	return t.tree.Len()
}

/*
MetaTree is a typed handle on a meta tree (key: meta kind, value: id
vector). The meta merge operator is installed at open time - all writes
should go through Merge, Insert is only for initial seeding.
*/
type MetaTree struct {
	tree    *kv.Tree
	factory MetaFactory
}

/*
OpenMetaTree opens a typed meta tree with a given name.
*/
func OpenMetaTree(store *kv.DB, name string) (*MetaTree, error) {
	tree, err := store.Tree(name)
	if err != nil {
		return nil, err
	}

	tree.SetMergeOperator(MetaMergeOp)

	return &MetaTree{tree: tree}, nil
}

/*
Merge appends a node id to the id vector of a metadata value.
*/
func (t *MetaTree) Merge(mk types.MetaKind, id types.Id) (types.IdVec, error) {
	merged, err := t.tree.Merge(types.EncodeMetaKind(mk), types.EncodeId(id))
	if err != nil || merged == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(merged)
}

/*
Insert seeds a meta entry, replacing any stored vector.
*/
func (t *MetaTree) Insert(m types.Meta) error {
	k, v := t.factory.Serialize(m)

	_, err := t.tree.Insert(k, v)

	return err
}

/*
Get looks up the id vector of a metadata value. Returns nil if the value
is not present.
*/
func (t *MetaTree) Get(mk types.MetaKind) (types.IdVec, error) {
	v, err := t.tree.Get(types.EncodeMetaKind(mk))
	if err != nil || v == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(v)
}

/*
Exists checks if a metadata value is present.
*/
func (t *MetaTree) Exists(mk types.MetaKind) (bool, error) {
	return t.tree.Contains(types.EncodeMetaKind(mk))
}

/*
Remove removes a metadata value.
*/
func (t *MetaTree) Remove(mk types.MetaKind) (types.IdVec, error) {
	old, err := t.tree.Remove(types.EncodeMetaKind(mk))
	if err != nil || old == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(old)
}

/*
Scan iterates all meta entries of this tree. The iteration stops when f
returns false.
*/
func (t *MetaTree) Scan(f func(types.Meta) bool) error {
	var derr error

	serr := t.tree.Scan(nil, func(k []byte, v []byte) bool {
		m, err := t.factory.Deserialize(k, v)
		if err != nil {
			derr = err
			return false
		}

		return f(m)
	})

	if serr != nil {
		return serr
	}

	return derr
}

/*
Len returns the number of stored meta entries.
*/
func (t *MetaTree) Len() (uint64, error) {
	return t.tree.Len()
}

/*
Watch returns a subscriber for all meta changes of this tree.
*/
func (t *MetaTree) Watch() *kv.Subscriber {
	return t.tree.WatchPrefix(nil)
}

/*
NodePropTree is a typed handle on the media_props tree (key: id, value:
property vector). The prop merge operator is installed at open time.
*/
type NodePropTree struct {
	tree    *kv.Tree
	factory NodePropFactory
}

/*
OpenNodePropTree opens a typed node property tree with a given name.
*/
func OpenNodePropTree(store *kv.DB, name string) (*NodePropTree, error) {
	tree, err := store.Tree(name)
	if err != nil {
		return nil, err
	}

	tree.SetMergeOperator(PropMergeOp)

	return &NodePropTree{tree: tree}, nil
}

/*
Merge appends a property to the property vector of a node.
*/
func (t *NodePropTree) Merge(id types.Id, p types.Prop) (types.PropVec, error) {
	merged, err := t.tree.Merge(types.EncodeId(id), types.EncodeProp(p))
	if err != nil || merged == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(merged)
}

/*
Insert seeds a node property record, replacing any stored vector.
*/
func (t *NodePropTree) Insert(p types.NodeProps) error {
	k, v := t.factory.Serialize(p)

	_, err := t.tree.Insert(k, v)

	return err
}

/*
Get looks up the property vector of a node. Returns nil if there are no
properties.
*/
func (t *NodePropTree) Get(id types.Id) (types.PropVec, error) {
	v, err := t.tree.Get(types.EncodeId(id))
	if err != nil || v == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(v)
}

/*
Exists checks if a node has properties.
*/
func (t *NodePropTree) Exists(id types.Id) (bool, error) {
	return t.tree.Contains(types.EncodeId(id))
}

/*
Remove removes the property vector of a node.
*/
func (t *NodePropTree) Remove(id types.Id) (types.PropVec, error) {
	old, err := t.tree.Remove(types.EncodeId(id))
	if err != nil || old == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(old)
}

/*
Scan iterates all node property records. The iteration stops when f
returns false.
*/
func (t *NodePropTree) Scan(f func(types.NodeProps) bool) error {
	var derr error

	serr := t.tree.Scan(nil, func(k []byte, v []byte) bool {
		p, err := t.factory.Deserialize(k, v)
		if err != nil {
			derr = err
			return false
		}

		return f(p)
	})

	if serr != nil {
		return serr
	}

	return derr
}

/*
Len returns the number of stored node property records.
*/
func (t *NodePropTree) Len() (uint64, error) {
	return t.tree.Len()
}

/*
EdgePropTree is a typed handle on the edge_props tree (key: edge key,
value: property vector). The prop merge operator is installed at open
time.
*/
type EdgePropTree struct {
	tree    *kv.Tree
	factory EdgePropFactory
}

/*
OpenEdgePropTree opens a typed edge property tree with a given name.
*/
func OpenEdgePropTree(store *kv.DB, name string) (*EdgePropTree, error) {
	tree, err := store.Tree(name)
	if err != nil {
		return nil, err
	}

	tree.SetMergeOperator(PropMergeOp)

	return &EdgePropTree{tree: tree}, nil
}

/*
Merge appends a property to the property vector of an edge.
*/
func (t *EdgePropTree) Merge(key types.EdgeKey, p types.Prop) (types.PropVec, error) {
	merged, err := t.tree.Merge(types.EncodeEdgeKey(key), types.EncodeProp(p))
	if err != nil || merged == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(merged)
}

/*
Insert seeds an edge property record, replacing any stored vector.
*/
func (t *EdgePropTree) Insert(p types.EdgeProps) error {
	k, v := t.factory.Serialize(p)

	_, err := t.tree.Insert(k, v)

	return err
}

/*
Get looks up the property vector of an edge. Returns nil if there are no
properties.
*/
func (t *EdgePropTree) Get(key types.EdgeKey) (types.PropVec, error) {
	v, err := t.tree.Get(types.EncodeEdgeKey(key))
	if err != nil || v == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(v)
}

/*
Exists checks if an edge has properties.
*/
func (t *EdgePropTree) Exists(key types.EdgeKey) (bool, error) {
	return t.tree.Contains(types.EncodeEdgeKey(key))
}

/*
Remove removes the property vector of an edge.
*/
func (t *EdgePropTree) Remove(key types.EdgeKey) (types.PropVec, error) {
	old, err := t.tree.Remove(types.EncodeEdgeKey(key))
	if err != nil || old == nil {
		return nil, err
	}

	return t.factory.DeserializeVal(old)
}

/*
Len returns the number of stored edge property records.
*/
func (t *EdgePropTree) Len() (uint64, error) {
	return t.tree.Len()
}
