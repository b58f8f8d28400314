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

	"devt.de/krotik/mpk/db/types"
)

/*
allEdgeKinds lists the edge kinds a pipe without a kind filter follows.
*/
var allEdgeKinds = []types.EdgeKind{
	types.EdgeNext, types.EdgeSimilar, types.EdgeCompliment, types.EdgeCompose,
}

/*
QueryNodes evaluates a node query. An empty result is not an error - the
returned list is simply empty.
*/
func (gm *Manager) QueryNodes(q NodeQuery) ([]types.Node, error) {

	switch qv := q.(type) {

	case RangeNodeQuery:
		return gm.evalRangeNodes(qv)

	case SpecificNodeQuery:
		var ret []types.Node

		for _, id := range qv.IDs {
			n, err := gm.FetchNode(id)
			if err != nil {
				return nil, err
			}

			if n != nil {
				ret = append(ret, *n)
			}
		}

		return ret, nil

	case PipeNodeQuery:
		return gm.evalPipeNodes(qv)

	case PropPresenceNodeQuery:
		ok, err := gm.nodeProps.Exists(qv.ID)
		if err != nil || !ok {
			return nil, err
		}

		return gm.fetchNodeList(qv.ID)

	case PropValueNodeQuery:
		props, err := gm.nodeProps.Get(qv.ID)
		if err != nil || !props.Contains(qv.Value) {
			return nil, err
		}

		return gm.fetchNodeList(qv.ID)

	case PipePropPresenceNodeQuery:
		inner, err := gm.QueryNodes(qv.Inner)
		if err != nil {
			return nil, err
		}

		var ret []types.Node

		for _, n := range inner {
			props, err := gm.nodeProps.Get(n.ID)
			if err != nil {
				return nil, err
			}

			if (props.ByTag(qv.PropTag) != nil) == qv.Exists {
				ret = append(ret, n)
			}
		}

		return ret, nil

	case PipePropValueNodeQuery:
		inner, err := gm.QueryNodes(qv.Inner)
		if err != nil {
			return nil, err
		}

		var ret []types.Node

		for _, n := range inner {
			props, err := gm.nodeProps.Get(n.ID)
			if err != nil {
				return nil, err
			}

			if props.Contains(qv.Value) == qv.Equal {
				ret = append(ret, n)
			}
		}

		return ret, nil
	}

	return nil, &Error{Type: ErrBadValue, Detail: fmt.Sprintf("node query %T", q)}
}

/*
QueryEdges evaluates an edge query. An empty result is not an error - the
returned list is simply empty.
*/
func (gm *Manager) QueryEdges(q EdgeQuery) ([]types.Edge, error) {

	switch qv := q.(type) {

	case SpecificEdgeQuery:
		var ret []types.Edge

		for _, key := range qv.Keys {
			e, err := gm.FetchEdge(key)
			if err != nil {
				return nil, err
			}

			if e != nil {
				ret = append(ret, *e)
			}
		}

		return ret, nil

	case PipeEdgeQuery:
		return gm.evalPipeEdges(qv)

	case PropPresenceEdgeQuery:
		ok, err := gm.edgeProps.Exists(qv.Key)
		if err != nil || !ok {
			return nil, err
		}

		return gm.fetchEdgeList(qv.Key)

	case PropValueEdgeQuery:
		props, err := gm.edgeProps.Get(qv.Key)
		if err != nil || !props.Contains(qv.Value) {
			return nil, err
		}

		return gm.fetchEdgeList(qv.Key)

	case PipePropPresenceEdgeQuery:
		inner, err := gm.QueryEdges(qv.Inner)
		if err != nil {
			return nil, err
		}

		var ret []types.Edge

		for _, e := range inner {
			props, err := gm.edgeProps.Get(e.Key)
			if err != nil {
				return nil, err
			}

			if (props.ByTag(qv.PropTag) != nil) == qv.Exists {
				ret = append(ret, e)
			}
		}

		return ret, nil

	case PipePropValueEdgeQuery:
		inner, err := gm.QueryEdges(qv.Inner)
		if err != nil {
			return nil, err
		}

		var ret []types.Edge

		for _, e := range inner {
			props, err := gm.edgeProps.Get(e.Key)
			if err != nil {
				return nil, err
			}

			if props.Contains(qv.Value) == qv.Equal {
				ret = append(ret, e)
			}
		}

		return ret, nil
	}

	return nil, &Error{Type: ErrBadValue, Detail: fmt.Sprintf("edge query %T", q)}
}

/*
evalRangeNodes answers a range query with a single ordered read pass over
the media tree. The scan short-circuits once the limit is reached.
*/
func (gm *Manager) evalRangeNodes(q RangeNodeQuery) ([]types.Node, error) {
	var ret []types.Node

	if q.Limit == 0 {
		return nil, nil
	}

	err := gm.nodes.ScanFrom(q.StartID, func(n types.Node) bool {
		if q.Kind != nil && n.Kind != *q.Kind {
			return true
		}

		ret = append(ret, n)

		return uint32(len(ret)) < q.Limit
	})

	if err != nil {
		return nil, err
	}

	return ret, nil
}

/*
evalPipeNodes yields the nodes at one end of the edges of the inner query.
Duplicates are removed preserving traversal order.
*/
func (gm *Manager) evalPipeNodes(q PipeNodeQuery) ([]types.Node, error) {
	edges, err := gm.QueryEdges(q.Inner)
	if err != nil {
		return nil, err
	}

	var ret []types.Node

	seen := make(map[types.Id]bool)

	for _, e := range edges {
		if uint32(len(ret)) >= q.Limit {
			break
		}

		id := e.Key.Outbound
		if q.Dir == Inbound {
			id = e.Key.Inbound
		}

		if seen[id] {
			continue
		}
		seen[id] = true

		n, err := gm.FetchNode(id)
		if err != nil {
			return nil, err
		}

		if n == nil {
			continue
		}

		if q.Kind != nil && n.Kind != *q.Kind {
			continue
		}

		ret = append(ret, *n)
	}

	return ret, nil
}

/*
evalPipeEdges yields the edges connected to the nodes of the inner query.
Leaving edges are answered by direct prefix reads on the edge tree;
arriving edges require a filtered scan per kind. The result is in
ascending creation order.
*/
func (gm *Manager) evalPipeEdges(q PipeEdgeQuery) ([]types.Edge, error) {
	nodes, err := gm.QueryNodes(q.Inner)
	if err != nil {
		return nil, err
	}

	kinds := allEdgeKinds
	if q.Kind != nil {
		kinds = []types.EdgeKind{*q.Kind}
	}

	inRange := func(e types.Edge) bool {
		if q.High != nil && e.Created > *q.High {
			return false
		}
		if q.Low != nil && e.Created < *q.Low {
			return false
		}
		return true
	}

	var ret []types.Edge

	for _, n := range nodes {
		for _, kind := range kinds {
			if uint32(len(ret)) >= q.Limit {
				break
			}

			if q.Dir == Outbound {
				err = gm.edges.ScanFrom(kind, n.ID, func(e types.Edge) bool {
					if inRange(e) {
						ret = append(ret, e)
					}
					return uint32(len(ret)) < q.Limit
				})
			} else {
				err = gm.edges.ScanKind(kind, func(e types.Edge) bool {
					if e.Key.Outbound == n.ID && inRange(e) {
						ret = append(ret, e)
					}
					return uint32(len(ret)) < q.Limit
				})
			}

			if err != nil {
				return nil, err
			}
		}
	}

	sortEdgesByCreated(ret)

	return ret, nil
}

/*
fetchNodeList fetches a single node as a list.
*/
func (gm *Manager) fetchNodeList(id types.Id) ([]types.Node, error) {
	n, err := gm.FetchNode(id)
	if err != nil || n == nil {
		return nil, err
	}

	return []types.Node{*n}, nil
}

/*
fetchEdgeList fetches a single edge as a list.
*/
func (gm *Manager) fetchEdgeList(key types.EdgeKey) ([]types.Edge, error) {
	e, err := gm.FetchEdge(key)
	if err != nil || e == nil {
		return nil, err
	}

	return []types.Edge{*e}, nil
}
