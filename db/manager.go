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
Package db contains the main API to the media graph datastore.

Manager API

The main API is provided by a Manager object which can be created with the
NewManager() constructor function. The manager provides CRUD functionality
for nodes, edges, metadata and properties and basic traversal functionality
from one node to other nodes.

Trees

The graph is divided into several trees of the underlying key-value store:

Media tree

	id -> node kind
	(the nodes of the graph)

Edge tree

	kind + inbound id + outbound id -> creation timestamp
	(typed connections between nodes; the key layout means all edges of
	one kind leaving one node are stored next to each other physically)

Meta trees (path, artist, album, genre, coll, playlist, source)

	meta value -> [ id ]
	(inverted index from a metadata value to the nodes which carry it;
	written through the meta merge operator, never through raw inserts)

Prop trees (media_props, edge_props)

	id / edge key -> [ prop ]
	(property vectors; written through the prop merge operator)

Deletions do not cascade - callers removing nodes are responsible for
removing the edges referencing them.
*/
package db

import (
	"devt.de/krotik/common/sortutil"
	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/kv"
)

/*
Manager is the main API to the media graph.
*/
type Manager struct {
	store     *kv.DB
	nodes     *NodeTree
	nodeProps *NodePropTree
	edges     *EdgeTree
	edgeProps *EdgePropTree
	metas     map[types.MetaTag]*MetaTree
}

/*
NewManager creates a new Manager instance on a given store. All trees of
the catalog are opened and their merge operators installed.
*/
func NewManager(store *kv.DB) (*Manager, error) {
	var err error

	gm := &Manager{store: store, metas: make(map[types.MetaTag]*MetaTree)}

	if gm.nodes, err = OpenNodeTree(store, TreeMedia); err != nil {
		return nil, err
	}

	if gm.nodeProps, err = OpenNodePropTree(store, TreeMediaProps); err != nil {
		return nil, err
	}

	if gm.edges, err = OpenEdgeTree(store, TreeEdge); err != nil {
		return nil, err
	}

	if gm.edgeProps, err = OpenEdgePropTree(store, TreeEdgeProps); err != nil {
		return nil, err
	}

	for _, tag := range []types.MetaTag{types.MetaPath, types.MetaSource,
		types.MetaArtist, types.MetaAlbum, types.MetaPlaylist,
		types.MetaColl, types.MetaGenre} {

		mk := types.MetaKind{Tag: tag}

		if gm.metas[tag], err = OpenMetaTree(store, mk.TreeName()); err != nil {
			return nil, err
		}
	}

	return gm, nil
}

/*
Store returns the underlying key-value store of this manager.
*/
func (gm *Manager) Store() *kv.DB {
	return gm.store
}

/*
Nodes returns the typed handle on the media tree.
*/
func (gm *Manager) Nodes() *NodeTree {
	return gm.nodes
}

/*
Edges returns the typed handle on the edge tree.
*/
func (gm *Manager) Edges() *EdgeTree {
	return gm.edges
}

/*
MetaTree returns the typed handle on the meta tree of a given tag.
*/
func (gm *Manager) MetaTree(tag types.MetaTag) *MetaTree {
	return gm.metas[tag]
}

/*
NodeProps returns the typed handle on the media_props tree.
*/
func (gm *Manager) NodeProps() *NodePropTree {
	return gm.nodeProps
}

/*
EdgeProps returns the typed handle on the edge_props tree.
*/
func (gm *Manager) EdgeProps() *EdgePropTree {
	return gm.edgeProps
}

// Node operations
// ===============

/*
StoreNode stores a node in the media tree.
*/
func (gm *Manager) StoreNode(n types.Node) error {
	_, err := gm.nodes.Insert(n)
	return err
}

/*
FetchNode fetches a node by id. Returns nil if the node does not exist.
*/
func (gm *Manager) FetchNode(id types.Id) (*types.Node, error) {
	kind, err := gm.nodes.Get(id)
	if err != nil || kind == nil {
		return nil, err
	}

	return &types.Node{ID: id, Kind: *kind}, nil
}

/*
RemoveNode removes a node. The node's properties are removed as well so a
media_props entry never outlives its media entry. Edges referencing the
node are not removed - callers are responsible for them.
*/
func (gm *Manager) RemoveNode(id types.Id) error {
	if _, err := gm.nodeProps.Remove(id); err != nil {
		return err
	}

	_, err := gm.nodes.Remove(id)

	return err
}

/*
NodeCount returns the number of stored nodes.
*/
func (gm *Manager) NodeCount() (uint64, error) {
	return gm.nodes.Len()
}

// Meta operations
// ===============

/*
AddMeta attaches a metadata value to a node via merge-append. The node
must exist. Path values are unique per node - adding a path which is
already present reports ErrDuplicatePath and leaves the store unchanged.
*/
func (gm *Manager) AddMeta(mk types.MetaKind, id types.Id) error {
	ok, err := gm.nodes.Exists(id)
	if err != nil {
		return err
	} else if !ok {
		return &Error{Type: ErrNotFound, Detail: id.String()}
	}

	tree := gm.metas[mk.Tag]

	if mk.Tag == types.MetaPath {
		if ok, err = tree.Exists(mk); err != nil {
			return err
		} else if ok {
			return &Error{Type: ErrDuplicatePath, Detail: mk.String()}
		}
	}

	_, err = tree.Merge(mk, id)

	return err
}

/*
Meta returns the nodes which carry a given metadata value. The result is
deduplicated preserving first-seen order.
*/
func (gm *Manager) Meta(mk types.MetaKind) (types.IdVec, error) {
	vec, err := gm.metas[mk.Tag].Get(mk)
	if err != nil {
		return nil, err
	}

	return vec.Dedup(), nil
}

/*
LookupPath returns the node stored under a given path (nil if the path is
unknown).
*/
func (gm *Manager) LookupPath(uri types.Uri) (*types.Node, error) {
	vec, err := gm.Meta(types.PathMeta(uri))
	if err != nil || len(vec) == 0 {
		return nil, err
	}

	return gm.FetchNode(vec[0])
}

/*
RemoveMeta removes a metadata value and its node set.
*/
func (gm *Manager) RemoveMeta(mk types.MetaKind) error {
	_, err := gm.metas[mk.Tag].Remove(mk)
	return err
}

/*
CompactMeta rewrites all vectors of a meta tree with duplicates removed.
The first-seen ordering of each vector is preserved.
*/
func (gm *Manager) CompactMeta(tag types.MetaTag) error {
	tree := gm.metas[tag]

	var entries []types.Meta

	err := tree.Scan(func(m types.Meta) bool {
		if len(m.Nodes) != len(m.Nodes.Dedup()) {
			entries = append(entries, m)
		}
		return true
	})

	if err != nil {
		return err
	}

	for _, m := range entries {
		m.Nodes = m.Nodes.Dedup()

		if err := tree.Insert(m); err != nil {
			return err
		}
	}

	return nil
}

// Edge operations
// ===============

/*
Connect creates an edge between two existing nodes. Both nodes must exist.
If the edge already exists its original creation timestamp is kept.
*/
func (gm *Manager) Connect(kind types.EdgeKind, inbound types.Id, outbound types.Id) (types.Edge, error) {
	for _, id := range []types.Id{inbound, outbound} {
		ok, err := gm.nodes.Exists(id)
		if err != nil {
			return types.Edge{}, err
		} else if !ok {
			return types.Edge{}, &Error{Type: ErrNotFound, Detail: id.String()}
		}
	}

	key := types.NewEdgeKey(kind, inbound, outbound)

	if ts, err := gm.edges.Get(key); err != nil {
		return types.Edge{}, err
	} else if ts != nil {

		// Two edges with an identical tuple are the same edge

		return types.Edge{Key: key, Created: *ts}, nil
	}

	edge := types.NewEdge(key)

	if _, err := gm.edges.Insert(edge); err != nil {
		return types.Edge{}, err
	}

	return edge, nil
}

/*
FetchEdge fetches an edge by key. Returns nil if the edge does not exist.
*/
func (gm *Manager) FetchEdge(key types.EdgeKey) (*types.Edge, error) {
	ts, err := gm.edges.Get(key)
	if err != nil || ts == nil {
		return nil, err
	}

	return &types.Edge{Key: key, Created: *ts}, nil
}

/*
RemoveEdge removes an edge and its properties.
*/
func (gm *Manager) RemoveEdge(key types.EdgeKey) error {
	if _, err := gm.edgeProps.Remove(key); err != nil {
		return err
	}

	_, err := gm.edges.Remove(key)

	return err
}

/*
EdgesFrom returns all edges of a given kind leaving a given node in
ascending creation order.
*/
func (gm *Manager) EdgesFrom(kind types.EdgeKind, inbound types.Id) ([]types.Edge, error) {
	var ret []types.Edge

	err := gm.edges.ScanFrom(kind, inbound, func(e types.Edge) bool {
		ret = append(ret, e)
		return true
	})

	if err != nil {
		return nil, err
	}

	sortEdgesByCreated(ret)

	return ret, nil
}

/*
EdgeCount returns the number of stored edges.
*/
func (gm *Manager) EdgeCount() (uint64, error) {
	return gm.edges.Len()
}

/*
Walk traverses the graph along edges of a given kind starting from a given
node. The visited set guards against cycles and is updated during the
traversal; passing a shared set allows walks over overlapping regions.
The callback receives each newly visited node id; returning false stops
the traversal.
*/
func (gm *Manager) Walk(start types.Id, kind types.EdgeKind, visited map[types.Id]bool,
	f func(types.Id) bool) error {

	if visited == nil {
		visited = make(map[types.Id]bool)
	}

	stack := []types.Id{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			continue
		}
		visited[id] = true

		if !f(id) {
			return nil
		}

		edges, err := gm.EdgesFrom(kind, id)
		if err != nil {
			return err
		}

		// Push in reverse so the oldest edge is followed first

		for i := len(edges) - 1; i >= 0; i-- {
			if !visited[edges[i].Key.Outbound] {
				stack = append(stack, edges[i].Key.Outbound)
			}
		}
	}

	return nil
}

// Prop operations
// ===============

/*
MergeNodeProp appends a property to the property vector of a node. The
node must exist in the media tree.
*/
func (gm *Manager) MergeNodeProp(id types.Id, p types.Prop) error {
	ok, err := gm.nodes.Exists(id)
	if err != nil {
		return err
	} else if !ok {
		return &Error{Type: ErrNotFound, Detail: id.String()}
	}

	_, err = gm.nodeProps.Merge(id, p)

	return err
}

/*
SetNodeProps replaces the property vector of a node. Used by ingest when a
file's content changed and its checksum has to be recomputed.
*/
func (gm *Manager) SetNodeProps(id types.Id, props types.PropVec) error {
	ok, err := gm.nodes.Exists(id)
	if err != nil {
		return err
	} else if !ok {
		return &Error{Type: ErrNotFound, Detail: id.String()}
	}

	return gm.nodeProps.Insert(types.NodeProps{ID: id, Props: props})
}

/*
FetchNodeProps returns the property vector of a node (nil if there are no
properties).
*/
func (gm *Manager) FetchNodeProps(id types.Id) (types.PropVec, error) {
	return gm.nodeProps.Get(id)
}

/*
MergeEdgeProp appends a property to the property vector of an edge. The
edge must exist.
*/
func (gm *Manager) MergeEdgeProp(key types.EdgeKey, p types.Prop) error {
	ok, err := gm.edges.Exists(key)
	if err != nil {
		return err
	} else if !ok {
		return &Error{Type: ErrNotFound, Detail: key.String()}
	}

	_, err = gm.edgeProps.Merge(key, p)

	return err
}

/*
FetchEdgeProps returns the property vector of an edge (nil if there are no
properties).
*/
func (gm *Manager) FetchEdgeProps(key types.EdgeKey) (types.PropVec, error) {
	return gm.edgeProps.Get(key)
}

// Store operations
// ================

/*
Flush writes all pending changes to disk.
*/
func (gm *Manager) Flush() (int64, error) {
	return gm.store.Flush()
}

/*
Info reports statistics about the underlying store.
*/
func (gm *Manager) Info() (*kv.Info, error) {
	return gm.store.Info()
}

/*
sortEdgesByCreated sorts edges in ascending creation order. Edges with
the same timestamp keep their scan order.
*/
func sortEdgesByCreated(edges []types.Edge) {
	keys := make([]uint64, len(edges))
	buckets := make(map[uint64][]types.Edge)

	for i, e := range edges {
		keys[i] = uint64(e.Created)
		buckets[keys[i]] = append(buckets[keys[i]], e)
	}

	sortutil.UInt64s(keys)

	edges = edges[:0]

	for i, k := range keys {
		if i > 0 && k == keys[i-1] {

			// The bucket was already drained for the first occurrence

			continue
		}

		edges = append(edges, buckets[k]...)
	}
}
