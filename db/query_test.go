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
)

/*
buildQueryGraph builds a small graph for query tests:

	t1 --next--> s1 --next--> s2
	t1 --similar--> s2

t1 is a track, s1 and s2 are samples. s1 carries a duration prop.
*/
func buildQueryGraph(t *testing.T) (*Manager, types.Node, types.Node, types.Node) {
	gm := newTestManager(t)

	t1 := types.NewNode(types.KindTrack)
	s1 := types.NewNode(types.KindSample)
	s2 := types.NewNode(types.KindSample)

	for _, n := range []types.Node{t1, s1, s2} {
		if err := gm.StoreNode(n); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := gm.Connect(types.EdgeNext, t1.ID, s1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := gm.Connect(types.EdgeNext, s1.ID, s2.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := gm.Connect(types.EdgeSimilar, t1.ID, s2.ID); err != nil {
		t.Fatal(err)
	}

	if err := gm.MergeNodeProp(s1.ID, types.DurationProp{Seconds: 4.2}); err != nil {
		t.Fatal(err)
	}

	return gm, t1, s1, s2
}

func TestRangeQuery(t *testing.T) {
	gm, t1, s1, s2 := buildQueryGraph(t)

	nodes, err := gm.QueryNodes(NewRangeNodeQuery())
	if err != nil || len(nodes) != 3 {
		t.Error("Unexpected range result:", nodes, err)
		return
	}

	// Ids are monotonic so creation order is id order

	if nodes[0].ID != t1.ID || nodes[1].ID != s1.ID || nodes[2].ID != s2.ID {
		t.Error("Range should yield nodes in id order:", nodes)
		return
	}

	// Limits short-circuit

	nodes, _ = gm.QueryNodes(NewRangeNodeQuery().WithLimit(2))
	if len(nodes) != 2 {
		t.Error("Unexpected limited result:", nodes)
		return
	}

	// Kind filter

	nodes, _ = gm.QueryNodes(NewRangeNodeQuery().WithKind(types.KindSample))
	if len(nodes) != 2 || nodes[0].ID != s1.ID {
		t.Error("Unexpected kind filtered result:", nodes)
		return
	}

	// Start id

	nodes, _ = gm.QueryNodes(NewRangeNodeQuery().WithStart(s1.ID))
	if len(nodes) != 2 || nodes[0].ID != s1.ID {
		t.Error("Unexpected start filtered result:", nodes)
		return
	}

	// Empty result is not an error

	nodes, err = gm.QueryNodes(NewRangeNodeQuery().WithLimit(0))
	if err != nil || len(nodes) != 0 {
		t.Error("Empty result should not be an error:", nodes, err)
		return
	}
}

func TestSpecificQuery(t *testing.T) {
	gm, t1, _, s2 := buildQueryGraph(t)

	nodes, err := gm.QueryNodes(NewSpecificNodeQuery(s2.ID, t1.ID, types.NewId()))
	if err != nil || len(nodes) != 2 {
		t.Error("Unexpected specific result:", nodes, err)
		return
	}

	// Order of the id list is preserved; missing ids are skipped

	if nodes[0].ID != s2.ID || nodes[1].ID != t1.ID {
		t.Error("Specific should preserve order:", nodes)
		return
	}
}

func TestPipeQueries(t *testing.T) {
	gm, t1, s1, s2 := buildQueryGraph(t)

	// Edges leaving t1 across all kinds, ascending created order

	edges, err := gm.QueryEdges(NewSpecificNodeQuery(t1.ID).Outbound())
	if err != nil || len(edges) != 2 {
		t.Error("Unexpected pipe result:", edges, err)
		return
	}

	if edges[0].Key.Kind != types.EdgeNext || edges[1].Key.Kind != types.EdgeSimilar {
		t.Error("Edges should be in ascending creation order:", edges)
		return
	}

	// Kind filter narrows to a single prefix read

	edges, _ = gm.QueryEdges(NewSpecificNodeQuery(t1.ID).Outbound().WithKind(types.EdgeNext))
	if len(edges) != 1 || edges[0].Key.Outbound != s1.ID {
		t.Error("Unexpected kind filtered pipe result:", edges)
		return
	}

	// Node pipe: nodes reached from t1

	nodes, err := gm.QueryNodes(NewSpecificNodeQuery(t1.ID).Outbound().Outbound())
	if err != nil || len(nodes) != 2 {
		t.Error("Unexpected node pipe result:", nodes, err)
		return
	}

	if nodes[0].ID != s1.ID || nodes[1].ID != s2.ID {
		t.Error("Unexpected node pipe order:", nodes)
		return
	}

	// Inbound direction: edges arriving at s2

	edges, err = gm.QueryEdges(NewSpecificNodeQuery(s2.ID).Inbound())
	if err != nil || len(edges) != 2 {
		t.Error("Unexpected inbound pipe result:", edges, err)
		return
	}

	nodes, _ = gm.QueryNodes(NewSpecificNodeQuery(s2.ID).Inbound().Inbound())
	if len(nodes) != 2 {
		t.Error("Unexpected inbound origin nodes:", nodes)
		return
	}

	// Timestamp bounds are inclusive

	first := edges[0].Created

	bounded, _ := gm.QueryEdges(NewSpecificNodeQuery(s2.ID).Inbound().WithHigh(first))
	if len(bounded) != 1 || bounded[0].Created != first {
		t.Error("Unexpected high bounded result:", bounded)
		return
	}

	bounded, _ = gm.QueryEdges(NewSpecificNodeQuery(s2.ID).Inbound().WithLow(first + 1))
	if len(bounded) != 1 {
		t.Error("Unexpected low bounded result:", bounded)
		return
	}

	// Edge pipe limit short-circuits

	edges, _ = gm.QueryEdges(NewSpecificNodeQuery(t1.ID).Outbound().WithLimit(1))
	if len(edges) != 1 {
		t.Error("Unexpected limited pipe result:", edges)
		return
	}
}

func TestPropQueries(t *testing.T) {
	gm, t1, s1, s2 := buildQueryGraph(t)

	// Presence of any props

	nodes, err := gm.QueryNodes(PropPresenceNodeQuery{ID: s1.ID})
	if err != nil || len(nodes) != 1 || nodes[0].ID != s1.ID {
		t.Error("Unexpected presence result:", nodes, err)
		return
	}

	if nodes, _ = gm.QueryNodes(PropPresenceNodeQuery{ID: s2.ID}); len(nodes) != 0 {
		t.Error("Node without props should not match:", nodes)
		return
	}

	// Value match

	nodes, _ = gm.QueryNodes(PropValueNodeQuery{ID: s1.ID, Value: types.DurationProp{Seconds: 4.2}})
	if len(nodes) != 1 {
		t.Error("Unexpected value result:", nodes)
		return
	}

	nodes, _ = gm.QueryNodes(PropValueNodeQuery{ID: s1.ID, Value: types.DurationProp{Seconds: 9.9}})
	if len(nodes) != 0 {
		t.Error("Non-matching value should not match:", nodes)
		return
	}

	// Piped presence filter over a range

	nodes, err = gm.QueryNodes(PipePropPresenceNodeQuery{
		Inner:   NewRangeNodeQuery(),
		PropTag: types.PropTagDuration,
		Exists:  true,
	})

	if err != nil || len(nodes) != 1 || nodes[0].ID != s1.ID {
		t.Error("Unexpected piped presence result:", nodes, err)
		return
	}

	// Absence filter yields the complement

	nodes, _ = gm.QueryNodes(PipePropPresenceNodeQuery{
		Inner:   NewRangeNodeQuery(),
		PropTag: types.PropTagDuration,
		Exists:  false,
	})

	if len(nodes) != 2 {
		t.Error("Unexpected piped absence result:", nodes)
		return
	}

	// Piped value filter

	nodes, _ = gm.QueryNodes(PipePropValueNodeQuery{
		Inner: NewRangeNodeQuery(),
		Value: types.DurationProp{Seconds: 4.2},
		Equal: true,
	})

	if len(nodes) != 1 || nodes[0].ID != s1.ID {
		t.Error("Unexpected piped value result:", nodes)
		return
	}

	// Edge prop queries

	edge, _ := gm.FetchEdge(types.NewEdgeKey(types.EdgeNext, t1.ID, s1.ID))
	gm.MergeEdgeProp(edge.Key, types.NotesProp{Notes: []string{"transition"}})

	edges, err := gm.QueryEdges(PropPresenceEdgeQuery{Key: edge.Key})
	if err != nil || len(edges) != 1 {
		t.Error("Unexpected edge presence result:", edges, err)
		return
	}

	edges, _ = gm.QueryEdges(PipePropPresenceEdgeQuery{
		Inner:   NewSpecificNodeQuery(t1.ID).Outbound(),
		PropTag: types.PropTagNotes,
		Exists:  true,
	})

	if len(edges) != 1 || edges[0].Key != edge.Key {
		t.Error("Unexpected piped edge presence result:", edges)
		return
	}

	edges, _ = gm.QueryEdges(PipePropValueEdgeQuery{
		Inner: NewSpecificNodeQuery(t1.ID).Outbound(),
		Value: types.NotesProp{Notes: []string{"transition"}},
		Equal: true,
	})

	if len(edges) != 1 {
		t.Error("Unexpected piped edge value result:", edges)
		return
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("out"); err != nil || d != Outbound {
		t.Error("Unexpected parse result:", d, err)
		return
	}

	if d, err := ParseDirection("in"); err != nil || d != Inbound {
		t.Error("Unexpected parse result:", d, err)
		return
	}

	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("Invalid direction should not parse")
		return
	}

	if Outbound.String() != "out" || Inbound.String() != "in" {
		t.Error("Unexpected direction string forms")
		return
	}
}
