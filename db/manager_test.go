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
	"testing"

	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/hash"
	"devt.de/krotik/mpk/kv"
)

func newTestManager(t *testing.T) *Manager {
	store, err := kv.Open("", nil)
	if err != nil {
		t.Fatal(err)
	}

	gm, err := NewManager(store)
	if err != nil {
		t.Fatal(err)
	}

	return gm
}

func TestNodeStorage(t *testing.T) {
	gm := newTestManager(t)

	node := types.NewNode(types.KindSample)

	if err := gm.StoreNode(node); err != nil {
		t.Error(err)
		return
	}

	fetched, err := gm.FetchNode(node.ID)
	if err != nil || fetched == nil || fetched.Kind != types.KindSample {
		t.Error("Unexpected fetch result:", fetched, err)
		return
	}

	if n, _ := gm.FetchNode(types.NewId()); n != nil {
		t.Error("Unknown id should fetch nil:", n)
		return
	}

	if c, _ := gm.NodeCount(); c != 1 {
		t.Error("Unexpected node count:", c)
		return
	}

	if err := gm.RemoveNode(node.ID); err != nil {
		t.Error(err)
		return
	}

	if c, _ := gm.NodeCount(); c != 0 {
		t.Error("Unexpected node count after remove:", c)
		return
	}
}

func TestMetaMerge(t *testing.T) {
	gm := newTestManager(t)

	n1 := types.NewNode(types.KindTrack)
	n2 := types.NewNode(types.KindTrack)

	gm.StoreNode(n1)
	gm.StoreNode(n2)

	// Two tracks with the same artist land in one id vector in
	// insertion order

	if err := gm.AddMeta(types.ArtistMeta("X"), n1.ID); err != nil {
		t.Error(err)
		return
	}

	if err := gm.AddMeta(types.ArtistMeta("X"), n2.ID); err != nil {
		t.Error(err)
		return
	}

	vec, err := gm.Meta(types.ArtistMeta("X"))
	if err != nil || len(vec) != 2 || vec[0] != n1.ID || vec[1] != n2.ID {
		t.Error("Unexpected meta result:", vec, err)
		return
	}

	// Merging the same entry twice leaves the deduplicated membership
	// unchanged

	if err := gm.AddMeta(types.ArtistMeta("X"), n1.ID); err != nil {
		t.Error(err)
		return
	}

	vec, _ = gm.Meta(types.ArtistMeta("X"))
	if len(vec) != 2 {
		t.Error("Deduplicating reader should observe one occurrence:", vec)
		return
	}

	// The raw vector keeps the duplicate until compaction

	raw, _ := gm.MetaTree(types.MetaArtist).Get(types.ArtistMeta("X"))
	if len(raw) != 3 {
		t.Error("Raw vector should keep duplicates:", raw)
		return
	}

	if err := gm.CompactMeta(types.MetaArtist); err != nil {
		t.Error(err)
		return
	}

	raw, _ = gm.MetaTree(types.MetaArtist).Get(types.ArtistMeta("X"))
	if len(raw) != 2 || raw[0] != n1.ID || raw[1] != n2.ID {
		t.Error("Compaction should preserve first-seen order:", raw)
		return
	}

	// Meta for an unknown node must be rejected

	err = gm.AddMeta(types.GenreMeta("jungle"), types.NewId())
	if gerr, ok := err.(*Error); !ok || gerr.Type != ErrNotFound {
		t.Error("Expected not found error, got:", err)
		return
	}
}

func TestDuplicatePath(t *testing.T) {
	gm := newTestManager(t)

	n1 := types.NewNode(types.KindSample)
	n2 := types.NewNode(types.KindSample)

	gm.StoreNode(n1)
	gm.StoreNode(n2)

	uri := types.FileUri("/s/a.wav")

	if err := gm.AddMeta(types.PathMeta(uri), n1.ID); err != nil {
		t.Error(err)
		return
	}

	// A duplicate path insert must report already exists and leave the
	// store unchanged

	err := gm.AddMeta(types.PathMeta(uri), n2.ID)
	if gerr, ok := err.(*Error); !ok || gerr.Type != ErrDuplicatePath {
		t.Error("Expected duplicate path error, got:", err)
		return
	}

	vec, _ := gm.Meta(types.PathMeta(uri))
	if len(vec) != 1 || vec[0] != n1.ID {
		t.Error("Store should be unchanged after duplicate:", vec)
		return
	}

	node, err := gm.LookupPath(uri)
	if err != nil || node == nil || node.ID != n1.ID {
		t.Error("Unexpected path lookup result:", node, err)
		return
	}

	if node, _ := gm.LookupPath(types.FileUri("/s/b.wav")); node != nil {
		t.Error("Unknown path should look up nil:", node)
		return
	}

	if err := gm.RemoveMeta(types.PathMeta(uri)); err != nil {
		t.Error(err)
		return
	}

	if node, _ := gm.LookupPath(uri); node != nil {
		t.Error("Removed path should look up nil:", node)
		return
	}
}

func TestConnect(t *testing.T) {
	gm := newTestManager(t)

	n1 := types.NewNode(types.KindTrack)
	n2 := types.NewNode(types.KindTrack)

	gm.StoreNode(n1)
	gm.StoreNode(n2)

	edge, err := gm.Connect(types.EdgeNext, n1.ID, n2.ID)
	if err != nil || edge.Created == 0 {
		t.Error("Unexpected connect result:", edge, err)
		return
	}

	// Connecting the same tuple again is the same edge with the original
	// timestamp

	edge2, err := gm.Connect(types.EdgeNext, n1.ID, n2.ID)
	if err != nil || edge2.Created != edge.Created {
		t.Error("Reconnect should keep the original timestamp:", edge2, err)
		return
	}

	if c, _ := gm.EdgeCount(); c != 1 {
		t.Error("Unexpected edge count:", c)
		return
	}

	// The reverse direction is a distinct edge which does not exist

	if e, _ := gm.FetchEdge(types.NewEdgeKey(types.EdgeNext, n2.ID, n1.ID)); e != nil {
		t.Error("Reverse lookup should not find the edge:", e)
		return
	}

	edges, err := gm.EdgesFrom(types.EdgeNext, n1.ID)
	if err != nil || len(edges) != 1 || edges[0].Key.Outbound != n2.ID {
		t.Error("Unexpected traversal result:", edges, err)
		return
	}

	// Edges to unknown nodes are rejected

	_, err = gm.Connect(types.EdgeNext, n1.ID, types.NewId())
	if gerr, ok := err.(*Error); !ok || gerr.Type != ErrNotFound {
		t.Error("Expected not found error, got:", err)
		return
	}

	if err := gm.RemoveEdge(edge.Key); err != nil {
		t.Error(err)
		return
	}

	if c, _ := gm.EdgeCount(); c != 0 {
		t.Error("Unexpected edge count after remove:", c)
		return
	}
}

func TestWalkCycle(t *testing.T) {
	gm := newTestManager(t)

	// Build a cycle n1 -> n2 -> n3 -> n1

	nodes := make([]types.Node, 3)
	for i := range nodes {
		nodes[i] = types.NewNode(types.KindSample)
		gm.StoreNode(nodes[i])
	}

	gm.Connect(types.EdgeNext, nodes[0].ID, nodes[1].ID)
	gm.Connect(types.EdgeNext, nodes[1].ID, nodes[2].ID)
	gm.Connect(types.EdgeNext, nodes[2].ID, nodes[0].ID)

	var visited []types.Id

	err := gm.Walk(nodes[0].ID, types.EdgeNext, nil, func(id types.Id) bool {
		visited = append(visited, id)
		return true
	})

	if err != nil || len(visited) != 3 {
		t.Error("Cycle walk should visit each node once:", visited, err)
		return
	}

	if visited[0] != nodes[0].ID || visited[1] != nodes[1].ID || visited[2] != nodes[2].ID {
		t.Error("Unexpected walk order:", visited)
		return
	}

	// A pre-populated visited set prunes the walk

	visited = nil
	seen := map[types.Id]bool{nodes[1].ID: true}

	gm.Walk(nodes[0].ID, types.EdgeNext, seen, func(id types.Id) bool {
		visited = append(visited, id)
		return true
	})

	if len(visited) != 1 || visited[0] != nodes[0].ID {
		t.Error("Visited set should prune the walk:", visited)
		return
	}
}

func TestProps(t *testing.T) {
	gm := newTestManager(t)

	node := types.NewNode(types.KindSample)
	gm.StoreNode(node)

	cs := hash.Sum([]byte("content"))

	if err := gm.MergeNodeProp(node.ID, types.ChecksumProp{Sum: cs}); err != nil {
		t.Error(err)
		return
	}

	if err := gm.MergeNodeProp(node.ID, types.DurationProp{Seconds: 2.5}); err != nil {
		t.Error(err)
		return
	}

	props, err := gm.FetchNodeProps(node.ID)
	if err != nil || len(props) != 2 {
		t.Error("Unexpected props result:", props, err)
		return
	}

	if p := props.ByTag(types.PropTagChecksum); p == nil || p.(types.ChecksumProp).Sum != cs {
		t.Error("Unexpected checksum prop:", p)
		return
	}

	// Props of unknown nodes are rejected (media_props entries always
	// have a media entry)

	err = gm.MergeNodeProp(types.NewId(), types.DurationProp{Seconds: 1})
	if gerr, ok := err.(*Error); !ok || gerr.Type != ErrNotFound {
		t.Error("Expected not found error, got:", err)
		return
	}

	// SetNodeProps replaces the vector (checksum recompute on re-ingest)

	cs2 := hash.Sum([]byte("new content"))

	err = gm.SetNodeProps(node.ID, types.PropVec{types.ChecksumProp{Sum: cs2}})
	if err != nil {
		t.Error(err)
		return
	}

	props, _ = gm.FetchNodeProps(node.ID)
	if len(props) != 1 || props[0].(types.ChecksumProp).Sum != cs2 {
		t.Error("Props should have been replaced:", props)
		return
	}

	// Edge props

	n2 := types.NewNode(types.KindSample)
	gm.StoreNode(n2)

	edge, _ := gm.Connect(types.EdgeSimilar, node.ID, n2.ID)

	if err := gm.MergeEdgeProp(edge.Key, types.NotesProp{Notes: []string{"close match"}}); err != nil {
		t.Error(err)
		return
	}

	eprops, err := gm.FetchEdgeProps(edge.Key)
	if err != nil || len(eprops) != 1 {
		t.Error("Unexpected edge props result:", eprops, err)
		return
	}

	err = gm.MergeEdgeProp(types.NewEdgeKey(types.EdgeNext, n2.ID, node.ID), types.DurationProp{})
	if gerr, ok := err.(*Error); !ok || gerr.Type != ErrNotFound {
		t.Error("Expected not found error, got:", err)
		return
	}
}

func TestEdgeOrderStability(t *testing.T) {
	gm := newTestManager(t)

	hub := types.NewNode(types.KindSample)
	gm.StoreNode(hub)

	// Connect several nodes; ids are monotonic so key order under the
	// (kind, inbound) prefix is insertion order

	var targets []types.Node
	for i := 0; i < 5; i++ {
		n := types.NewNode(types.KindSample)
		gm.StoreNode(n)
		gm.Connect(types.EdgeNext, hub.ID, n.ID)
		targets = append(targets, n)
	}

	edges, err := gm.EdgesFrom(types.EdgeNext, hub.ID)
	if err != nil || len(edges) != 5 {
		t.Error("Unexpected traversal result:", edges, err)
		return
	}

	for i := 1; i < len(edges); i++ {
		if edges[i].Created < edges[i-1].Created {
			t.Error("Edges should be in ascending creation order")
			return
		}

		if edges[i].Key.Outbound.Compare(edges[i-1].Key.Outbound) <= 0 {
			t.Error("Edges should be in ascending outbound order")
			return
		}
	}
}

func TestFactoryVecRoundTrip(t *testing.T) {
	factory := NodeFactory{}

	nodes := []types.Node{
		types.NewNode(types.KindTrack),
		types.NewNode(types.KindSample),
		types.NewNode(types.KindMidi),
		types.NewNode(types.KindPatch),
	}

	keys, vals := factory.SerializeVec(nodes)
	if len(keys) != len(nodes) || len(vals) != len(nodes) {
		t.Error("Vectors should be parallel:", len(keys), len(vals))
		return
	}

	for i := range nodes {
		n, err := factory.Deserialize(keys[i], vals[i])
		if err != nil || n != nodes[i] {
			t.Error("Unexpected round trip result:", n, err)
			return
		}

		if len(n.ID.String()) != 26 {
			t.Error("Unexpected id string length")
			return
		}
	}

	if _, err := factory.DeserializeVal([]byte{42}); err == nil {
		t.Error("Unknown kind should not deserialize")
		return
	}

	ef := EdgeFactory{}
	edge := types.NewEdge(types.NewEdgeKey(types.EdgeCompose, types.NewId(), types.NewId()))

	kb, vb := ef.Serialize(edge)

	dec, err := ef.Deserialize(kb, vb)
	if err != nil || dec != edge {
		t.Error("Unexpected round trip result:", dec, err)
		return
	}

	mf := MetaFactory{}
	meta := types.Meta{ID: types.AlbumMeta("LP1"), Nodes: types.IdVec{types.NewId()}}

	mk, mv := mf.Serialize(meta)

	decm, err := mf.Deserialize(mk, mv)
	if err != nil || decm.ID != meta.ID || len(decm.Nodes) != 1 || decm.Nodes[0] != meta.Nodes[0] {
		t.Error("Unexpected round trip result:", decm, err)
		return
	}
}
