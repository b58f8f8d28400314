/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package types

import (
	"errors"
	"fmt"
)

/*
NodeKind is the kind of a media node.
*/
type NodeKind byte

/*
Available node kinds
*/
const (
	KindTrack NodeKind = iota
	KindSample
	KindMidi
	KindPatch
)

/*
ErrBadKind is returned when an unknown kind name or tag is given.
*/
var ErrBadKind = errors.New("Unknown kind")

/*
nodeKindNames maps node kinds to their string form.
*/
var nodeKindNames = map[NodeKind]string{
	KindTrack:  "track",
	KindSample: "sample",
	KindMidi:   "midi",
	KindPatch:  "patch",
}

/*
ParseNodeKind parses a node kind from its string form.
*/
func ParseNodeKind(s string) (NodeKind, error) {
	for kind, name := range nodeKindNames {
		if name == s {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("%v: %q", ErrBadKind, s)
}

/*
String returns the string form of a node kind.
*/
func (k NodeKind) String() string {
	return nodeKindNames[k]
}

/*
Node is a single media node. Nodes are created by ingest and never mutated.
*/
type Node struct {
	ID   Id       // Unique id of the node
	Kind NodeKind // Kind of the node
}

/*
NewNode creates a new node of a given kind with a fresh id.
*/
func NewNode(kind NodeKind) Node {
	return Node{NewId(), kind}
}

/*
String returns a string representation of this node.
*/
func (n Node) String() string {
	return fmt.Sprintf("%v:%v", n.Kind, n.ID)
}
