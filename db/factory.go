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

import "devt.de/krotik/mpk/db/types"

/*
NodeFactory translates nodes to and from their byte form.
*/
type NodeFactory struct{}

/*
SerializeKey returns the key bytes of a node.
*/
func (f NodeFactory) SerializeKey(n types.Node) []byte {
	return types.EncodeId(n.ID)
}

/*
SerializeVal returns the value bytes of a node.
*/
func (f NodeFactory) SerializeVal(n types.Node) []byte {
	return types.EncodeNodeKind(n.Kind)
}

/*
Serialize returns the key and value bytes of a node.
*/
func (f NodeFactory) Serialize(n types.Node) ([]byte, []byte) {
	return f.SerializeKey(n), f.SerializeVal(n)
}

/*
SerializeVec serializes a list of nodes into two parallel vectors of key
and value bytes. Order is preserved.
*/
func (f NodeFactory) SerializeVec(ns []types.Node) ([][]byte, [][]byte) {
	keys := make([][]byte, len(ns))
	vals := make([][]byte, len(ns))

	for i, n := range ns {
		keys[i], vals[i] = f.Serialize(n)
	}

	return keys, vals
}

/*
DeserializeKey decodes a node key.
*/
func (f NodeFactory) DeserializeKey(data []byte) (types.Id, error) {
	id, err := types.DecodeId(data)
	if err != nil {
		return id, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return id, nil
}

/*
DeserializeVal decodes a node value.
*/
func (f NodeFactory) DeserializeVal(data []byte) (types.NodeKind, error) {
	kind, err := types.DecodeNodeKind(data)
	if err != nil {
		return kind, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return kind, nil
}

/*
Deserialize decodes a node from its key and value bytes.
*/
func (f NodeFactory) Deserialize(kb []byte, vb []byte) (types.Node, error) {
	id, err := f.DeserializeKey(kb)
	if err != nil {
		return types.Node{}, err
	}

	kind, err := f.DeserializeVal(vb)
	if err != nil {
		return types.Node{}, err
	}

	return types.Node{ID: id, Kind: kind}, nil
}

/*
EdgeFactory translates edges to and from their byte form.
*/
type EdgeFactory struct{}

/*
SerializeKey returns the key bytes of an edge.
*/
func (f EdgeFactory) SerializeKey(e types.Edge) []byte {
	return types.EncodeEdgeKey(e.Key)
}

/*
SerializeVal returns the value bytes of an edge.
*/
func (f EdgeFactory) SerializeVal(e types.Edge) []byte {
	return types.EncodeTimestamp(e.Created)
}

/*
Serialize returns the key and value bytes of an edge.
*/
func (f EdgeFactory) Serialize(e types.Edge) ([]byte, []byte) {
	return f.SerializeKey(e), f.SerializeVal(e)
}

/*
SerializeVec serializes a list of edges into two parallel vectors of key
and value bytes. Order is preserved.
*/
func (f EdgeFactory) SerializeVec(es []types.Edge) ([][]byte, [][]byte) {
	keys := make([][]byte, len(es))
	vals := make([][]byte, len(es))

	for i, e := range es {
		keys[i], vals[i] = f.Serialize(e)
	}

	return keys, vals
}

/*
DeserializeKey decodes an edge key.
*/
func (f EdgeFactory) DeserializeKey(data []byte) (types.EdgeKey, error) {
	key, err := types.DecodeEdgeKey(data)
	if err != nil {
		return key, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return key, nil
}

/*
DeserializeVal decodes an edge value.
*/
func (f EdgeFactory) DeserializeVal(data []byte) (types.Timestamp, error) {
	ts, err := types.DecodeTimestamp(data)
	if err != nil {
		return ts, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return ts, nil
}

/*
Deserialize decodes an edge from its key and value bytes.
*/
func (f EdgeFactory) Deserialize(kb []byte, vb []byte) (types.Edge, error) {
	key, err := f.DeserializeKey(kb)
	if err != nil {
		return types.Edge{}, err
	}

	ts, err := f.DeserializeVal(vb)
	if err != nil {
		return types.Edge{}, err
	}

	return types.Edge{Key: key, Created: ts}, nil
}

/*
MetaFactory translates meta entries to and from their byte form.
*/
type MetaFactory struct{}

/*
SerializeKey returns the key bytes of a meta entry.
*/
func (f MetaFactory) SerializeKey(m types.Meta) []byte {
	return types.EncodeMetaKind(m.ID)
}

/*
SerializeVal returns the value bytes of a meta entry.
*/
func (f MetaFactory) SerializeVal(m types.Meta) []byte {
	return types.EncodeIdVec(m.Nodes)
}

/*
Serialize returns the key and value bytes of a meta entry.
*/
func (f MetaFactory) Serialize(m types.Meta) ([]byte, []byte) {
	return f.SerializeKey(m), f.SerializeVal(m)
}

/*
SerializeVec serializes a list of meta entries into two parallel vectors
of key and value bytes. Order is preserved.
*/
func (f MetaFactory) SerializeVec(ms []types.Meta) ([][]byte, [][]byte) {
	keys := make([][]byte, len(ms))
	vals := make([][]byte, len(ms))

	for i, m := range ms {
		keys[i], vals[i] = f.Serialize(m)
	}

	return keys, vals
}

/*
DeserializeKey decodes a meta key.
*/
func (f MetaFactory) DeserializeKey(data []byte) (types.MetaKind, error) {
	mk, err := types.DecodeMetaKind(data)
	if err != nil {
		return mk, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return mk, nil
}

/*
DeserializeVal decodes a meta value.
*/
func (f MetaFactory) DeserializeVal(data []byte) (types.IdVec, error) {
	vec, err := types.DecodeIdVec(data)
	if err != nil {
		return nil, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return vec, nil
}

/*
Deserialize decodes a meta entry from its key and value bytes.
*/
func (f MetaFactory) Deserialize(kb []byte, vb []byte) (types.Meta, error) {
	mk, err := f.DeserializeKey(kb)
	if err != nil {
		return types.Meta{}, err
	}

	vec, err := f.DeserializeVal(vb)
	if err != nil {
		return types.Meta{}, err
	}

	return types.Meta{ID: mk, Nodes: vec}, nil
}

/*
NodePropFactory translates node property records to and from their byte
form.
*/
type NodePropFactory struct{}

/*
SerializeKey returns the key bytes of a node property record.
*/
func (f NodePropFactory) SerializeKey(p types.NodeProps) []byte {
	return types.EncodeId(p.ID)
}

/*
SerializeVal returns the value bytes of a node property record.
*/
func (f NodePropFactory) SerializeVal(p types.NodeProps) []byte {
	return types.EncodePropVec(p.Props)
}

/*
Serialize returns the key and value bytes of a node property record.
*/
func (f NodePropFactory) Serialize(p types.NodeProps) ([]byte, []byte) {
	return f.SerializeKey(p), f.SerializeVal(p)
}

/*
SerializeVec serializes a list of node property records into two parallel
vectors of key and value bytes. Order is preserved.
*/
func (f NodePropFactory) SerializeVec(ps []types.NodeProps) ([][]byte, [][]byte) {
	keys := make([][]byte, len(ps))
	vals := make([][]byte, len(ps))

	for i, p := range ps {
		keys[i], vals[i] = f.Serialize(p)
	}

	return keys, vals
}

/*
DeserializeKey decodes a node property key.
*/
func (f NodePropFactory) DeserializeKey(data []byte) (types.Id, error) {
	id, err := types.DecodeId(data)
	if err != nil {
		return id, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return id, nil
}

/*
DeserializeVal decodes a node property value.
*/
func (f NodePropFactory) DeserializeVal(data []byte) (types.PropVec, error) {
	vec, err := types.DecodePropVec(data)
	if err != nil {
		return nil, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return vec, nil
}

/*
Deserialize decodes a node property record from its key and value bytes.
*/
func (f NodePropFactory) Deserialize(kb []byte, vb []byte) (types.NodeProps, error) {
	id, err := f.DeserializeKey(kb)
	if err != nil {
		return types.NodeProps{}, err
	}

	vec, err := f.DeserializeVal(vb)
	if err != nil {
		return types.NodeProps{}, err
	}

	return types.NodeProps{ID: id, Props: vec}, nil
}

/*
EdgePropFactory translates edge property records to and from their byte
form.
*/
type EdgePropFactory struct{}

/*
SerializeKey returns the key bytes of an edge property record.
*/
func (f EdgePropFactory) SerializeKey(p types.EdgeProps) []byte {
	return types.EncodeEdgeKey(p.ID)
}

/*
SerializeVal returns the value bytes of an edge property record.
*/
func (f EdgePropFactory) SerializeVal(p types.EdgeProps) []byte {
	return types.EncodePropVec(p.Props)
}

/*
Serialize returns the key and value bytes of an edge property record.
*/
func (f EdgePropFactory) Serialize(p types.EdgeProps) ([]byte, []byte) {
	return f.SerializeKey(p), f.SerializeVal(p)
}

/*
SerializeVec serializes a list of edge property records into two parallel
vectors of key and value bytes. Order is preserved.
*/
func (f EdgePropFactory) SerializeVec(ps []types.EdgeProps) ([][]byte, [][]byte) {
	keys := make([][]byte, len(ps))
	vals := make([][]byte, len(ps))

	for i, p := range ps {
		keys[i], vals[i] = f.Serialize(p)
	}

	return keys, vals
}

/*
DeserializeKey decodes an edge property key.
*/
func (f EdgePropFactory) DeserializeKey(data []byte) (types.EdgeKey, error) {
	key, err := types.DecodeEdgeKey(data)
	if err != nil {
		return key, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return key, nil
}

/*
DeserializeVal decodes an edge property value.
*/
func (f EdgePropFactory) DeserializeVal(data []byte) (types.PropVec, error) {
	vec, err := types.DecodePropVec(data)
	if err != nil {
		return nil, &Error{Type: ErrDeserialization, Detail: err.Error()}
	}

	return vec, nil
}

/*
Deserialize decodes an edge property record from its key and value bytes.
*/
func (f EdgePropFactory) Deserialize(kb []byte, vb []byte) (types.EdgeProps, error) {
	key, err := f.DeserializeKey(kb)
	if err != nil {
		return types.EdgeProps{}, err
	}

	vec, err := f.DeserializeVal(vb)
	if err != nil {
		return types.EdgeProps{}, err
	}

	return types.EdgeProps{ID: key, Props: vec}, nil
}
