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
	"fmt"
	"math"

	"devt.de/krotik/mpk/db/types"
)

/*
Direction determines which end of an edge a pipe follows.
*/
type Direction int

/*
Available pipe directions
*/
const (
	Outbound Direction = iota
	Inbound
)

/*
ParseDirection parses a direction from its string form.
*/
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out":
		return Outbound, nil
	case "in":
		return Inbound, nil
	}

	return 0, &Error{Type: ErrBadValue, Detail: fmt.Sprintf("direction %q", s)}
}

/*
String returns the string form of a direction.
*/
func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}

	return "out"
}

/*
NodeQuery is a query which yields nodes. Queries are composable trees -
node and edge queries alternate through pipes.
*/
type NodeQuery interface {
	nodeQuery()
}

/*
EdgeQuery is a query which yields edges.
*/
type EdgeQuery interface {
	edgeQuery()
}

/*
RangeNodeQuery yields a range of nodes in id order.
*/
type RangeNodeQuery struct {
	Limit   uint32          // Advisory upper bound of nodes to yield
	Kind    *types.NodeKind // Optional node kind filter
	StartID *types.Id       // Lowest id to yield
}

func (RangeNodeQuery) nodeQuery() {}

/*
NewRangeNodeQuery creates a new range query over all nodes.
*/
func NewRangeNodeQuery() RangeNodeQuery {
	return RangeNodeQuery{Limit: math.MaxUint32}
}

/*
WithLimit sets the limit of this query.
*/
func (q RangeNodeQuery) WithLimit(limit uint32) RangeNodeQuery {
	q.Limit = limit
	return q
}

/*
WithKind sets the node kind filter of this query.
*/
func (q RangeNodeQuery) WithKind(kind types.NodeKind) RangeNodeQuery {
	q.Kind = &kind
	return q
}

/*
WithStart sets the lowest id this query yields.
*/
func (q RangeNodeQuery) WithStart(id types.Id) RangeNodeQuery {
	q.StartID = &id
	return q
}

/*
Outbound returns a pipe following edges leaving the nodes of this query.
*/
func (q RangeNodeQuery) Outbound() PipeEdgeQuery { return pipeEdges(q, Outbound) }

/*
Inbound returns a pipe following edges arriving at the nodes of this query.
*/
func (q RangeNodeQuery) Inbound() PipeEdgeQuery { return pipeEdges(q, Inbound) }

/*
SpecificNodeQuery yields a specific set of nodes by id.
*/
type SpecificNodeQuery struct {
	IDs []types.Id // Ids of the nodes to yield
}

func (SpecificNodeQuery) nodeQuery() {}

/*
NewSpecificNodeQuery creates a new query for a list of node ids.
*/
func NewSpecificNodeQuery(ids ...types.Id) SpecificNodeQuery {
	return SpecificNodeQuery{ids}
}

/*
Outbound returns a pipe following edges leaving the nodes of this query.
*/
func (q SpecificNodeQuery) Outbound() PipeEdgeQuery { return pipeEdges(q, Outbound) }

/*
Inbound returns a pipe following edges arriving at the nodes of this query.
*/
func (q SpecificNodeQuery) Inbound() PipeEdgeQuery { return pipeEdges(q, Inbound) }

/*
PipeNodeQuery yields the nodes at one end of the edges of an inner edge
query.
*/
type PipeNodeQuery struct {
	Inner EdgeQuery       // The edge query to build on
	Dir   Direction       // Which edge end to take nodes from
	Limit uint32          // Advisory upper bound of nodes to yield
	Kind  *types.NodeKind // Optional node kind filter
}

func (PipeNodeQuery) nodeQuery() {}

/*
WithLimit sets the limit of this query.
*/
func (q PipeNodeQuery) WithLimit(limit uint32) PipeNodeQuery {
	q.Limit = limit
	return q
}

/*
WithKind sets the node kind filter of this query.
*/
func (q PipeNodeQuery) WithKind(kind types.NodeKind) PipeNodeQuery {
	q.Kind = &kind
	return q
}

/*
Outbound returns a pipe following edges leaving the nodes of this query.
*/
func (q PipeNodeQuery) Outbound() PipeEdgeQuery { return pipeEdges(q, Outbound) }

/*
Inbound returns a pipe following edges arriving at the nodes of this query.
*/
func (q PipeNodeQuery) Inbound() PipeEdgeQuery { return pipeEdges(q, Inbound) }

/*
PropPresenceNodeQuery yields a node if it carries any properties.
*/
type PropPresenceNodeQuery struct {
	ID types.Id // Node to check
}

func (PropPresenceNodeQuery) nodeQuery() {}

/*
PropValueNodeQuery yields a node if its property vector contains a given
value.
*/
type PropValueNodeQuery struct {
	ID    types.Id   // Node to check
	Value types.Prop // Property value to look for
}

func (PropValueNodeQuery) nodeQuery() {}

/*
PipePropPresenceNodeQuery filters the nodes of an inner query by presence
(or absence) of a property with a given discriminant.
*/
type PipePropPresenceNodeQuery struct {
	Inner   NodeQuery // The node query to filter
	PropTag byte      // Property discriminant to look for
	Exists  bool      // Flag if presence or absence is required
}

func (PipePropPresenceNodeQuery) nodeQuery() {}

/*
PipePropValueNodeQuery filters the nodes of an inner query by a property
value (equality or non-equality).
*/
type PipePropValueNodeQuery struct {
	Inner NodeQuery  // The node query to filter
	Value types.Prop // Property value to compare
	Equal bool       // Flag if equality or non-equality is required
}

func (PipePropValueNodeQuery) nodeQuery() {}

/*
SpecificEdgeQuery yields a specific set of edges by key.
*/
type SpecificEdgeQuery struct {
	Keys []types.EdgeKey // Keys of the edges to yield
}

func (SpecificEdgeQuery) edgeQuery() {}

/*
NewSpecificEdgeQuery creates a new query for a list of edge keys.
*/
func NewSpecificEdgeQuery(keys ...types.EdgeKey) SpecificEdgeQuery {
	return SpecificEdgeQuery{keys}
}

/*
Outbound returns a pipe to the nodes the edges of this query point to.
*/
func (q SpecificEdgeQuery) Outbound() PipeNodeQuery { return pipeNodes(q, Outbound) }

/*
Inbound returns a pipe to the nodes the edges of this query leave from.
*/
func (q SpecificEdgeQuery) Inbound() PipeNodeQuery { return pipeNodes(q, Inbound) }

/*
PipeEdgeQuery yields the edges connected to the nodes of an inner node
query. Edges are yielded in ascending creation order.
*/
type PipeEdgeQuery struct {
	Inner NodeQuery        // The node query to build on
	Dir   Direction        // Whether to follow leaving or arriving edges
	Limit uint32           // Advisory upper bound of edges to yield
	Kind  *types.EdgeKind  // Optional edge kind filter
	High  *types.Timestamp // Newest creation timestamp to yield (inclusive)
	Low   *types.Timestamp // Oldest creation timestamp to yield (inclusive)
}

func (PipeEdgeQuery) edgeQuery() {}

/*
WithLimit sets the limit of this query.
*/
func (q PipeEdgeQuery) WithLimit(limit uint32) PipeEdgeQuery {
	q.Limit = limit
	return q
}

/*
WithKind sets the edge kind filter of this query.
*/
func (q PipeEdgeQuery) WithKind(kind types.EdgeKind) PipeEdgeQuery {
	q.Kind = &kind
	return q
}

/*
WithHigh sets the newest creation timestamp to yield.
*/
func (q PipeEdgeQuery) WithHigh(ts types.Timestamp) PipeEdgeQuery {
	q.High = &ts
	return q
}

/*
WithLow sets the oldest creation timestamp to yield.
*/
func (q PipeEdgeQuery) WithLow(ts types.Timestamp) PipeEdgeQuery {
	q.Low = &ts
	return q
}

/*
Outbound returns a pipe to the nodes the edges of this query point to.
*/
func (q PipeEdgeQuery) Outbound() PipeNodeQuery { return pipeNodes(q, Outbound) }

/*
Inbound returns a pipe to the nodes the edges of this query leave from.
*/
func (q PipeEdgeQuery) Inbound() PipeNodeQuery { return pipeNodes(q, Inbound) }

/*
PropPresenceEdgeQuery yields an edge if it carries any properties.
*/
type PropPresenceEdgeQuery struct {
	Key types.EdgeKey // Edge to check
}

func (PropPresenceEdgeQuery) edgeQuery() {}

/*
PropValueEdgeQuery yields an edge if its property vector contains a given
value.
*/
type PropValueEdgeQuery struct {
	Key   types.EdgeKey // Edge to check
	Value types.Prop    // Property value to look for
}

func (PropValueEdgeQuery) edgeQuery() {}

/*
PipePropPresenceEdgeQuery filters the edges of an inner query by presence
(or absence) of a property with a given discriminant.
*/
type PipePropPresenceEdgeQuery struct {
	Inner   EdgeQuery // The edge query to filter
	PropTag byte      // Property discriminant to look for
	Exists  bool      // Flag if presence or absence is required
}

func (PipePropPresenceEdgeQuery) edgeQuery() {}

/*
PipePropValueEdgeQuery filters the edges of an inner query by a property
value (equality or non-equality).
*/
type PipePropValueEdgeQuery struct {
	Inner EdgeQuery  // The edge query to filter
	Value types.Prop // Property value to compare
	Equal bool       // Flag if equality or non-equality is required
}

func (PipePropValueEdgeQuery) edgeQuery() {}

/*
pipeEdges builds an edge pipe on a node query.
*/
func pipeEdges(inner NodeQuery, dir Direction) PipeEdgeQuery {
	return PipeEdgeQuery{Inner: inner, Dir: dir, Limit: math.MaxUint32}
}

/*
pipeNodes builds a node pipe on an edge query.
*/
func pipeNodes(inner EdgeQuery, dir Direction) PipeNodeQuery {
	return PipeNodeQuery{Inner: inner, Dir: dir, Limit: math.MaxUint32}
}
