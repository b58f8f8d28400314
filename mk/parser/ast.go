/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package parser

import (
	"fmt"
	"strings"
)

/*
Span locates an AST node in the source.
*/
type Span struct {
	Start int // Starting byte offset
	End   int // End byte offset (exclusive)
	Line  int // Line of the node
	Pos   int // Position in the line
}

/*
Program is an ordered sequence of top-level AST nodes.
*/
type Program []*ASTNode

/*
ASTNode kinds
*/
const (
	NodeINT    = "int"
	NodeFLOAT  = "float"
	NodeDATE   = "date"
	NodeTIME   = "time"
	NodeCHAR   = "char"
	NodeSTR    = "str"
	NodeSYMBOL = "symbol"
	NodeNAME   = "name"
	NodeLIST   = "list"
	NodeMAP    = "map"
	NodeTABLE  = "table"
	NodeMONAD  = "monad"
	NodeDYAD   = "dyad"
	NodeCOND   = "cond"
	NodeLAMBDA = "lambda"
	NodeCALL   = "call"
	NodeSYS    = "sys"
	NodeASSIGN = "assign"
)

/*
ASTNode is a node of the abstract syntax tree. Which fields carry meaning
depends on the node kind:

	int          IntVal
	float        FloatVal
	date, time   IntVal (nanoseconds)
	char         StrVal (single rune)
	str, symbol  StrVal
	name         StrVal
	list         Children (the items)
	map, table   Children (alternating key and value nodes)
	monad        Monad, Adverb, Children[0] (the operand)
	dyad         Dyad, Adverb, Children[0] (lhs), Children[1] (rhs)
	cond         Children (condition, then, else)
	lambda       Args, Children[0] (the body)
	call         Children[0] (the target), Children[1:] (the arguments)
	sys          Sys, Children (the arguments)
	assign       StrVal (the name), Children[0] (the value)
*/
type ASTNode struct {
	Name     string      // Node kind
	Span     Span        // Source location
	IntVal   int64       // Integer payload
	FloatVal float64     // Float payload
	StrVal   string      // String payload
	Monad    MonadicVerb // Monadic verb
	Dyad     DyadicVerb  // Dyadic verb
	Adverb   AdVerb      // Adverb modifying the verb
	Sys      SysVerb     // System verb
	Args     []string    // Lambda argument names
	Children []*ASTNode  // Child nodes
}

/*
String returns a string representation of this ASTNode.
*/
func (n *ASTNode) String() string {
	var buf strings.Builder
	n.levelString(0, &buf)
	return buf.String()
}

/*
levelString renders an indented string representation of the AST.
*/
func (n *ASTNode) levelString(indent int, buf *strings.Builder) {
	buf.WriteString(strings.Repeat("  ", indent))
	buf.WriteString(n.Name)

	switch n.Name {

	case NodeINT, NodeDATE, NodeTIME:
		buf.WriteString(fmt.Sprintf(": %v", n.IntVal))

	case NodeFLOAT:
		buf.WriteString(fmt.Sprintf(": %v", n.FloatVal))

	case NodeSTR, NodeSYMBOL, NodeNAME, NodeCHAR, NodeASSIGN:
		buf.WriteString(fmt.Sprintf(": %v", n.StrVal))

	case NodeMONAD:
		buf.WriteString(fmt.Sprintf(": %v%v", n.Monad, n.Adverb))

	case NodeDYAD:
		buf.WriteString(fmt.Sprintf(": %v%v", n.Dyad, n.Adverb))

	case NodeSYS:
		buf.WriteString(fmt.Sprintf(": %v", n.Sys))

	case NodeLAMBDA:
		buf.WriteString(fmt.Sprintf(": [%v]", strings.Join(n.Args, ";")))
	}

	buf.WriteString("\n")

	for _, c := range n.Children {
		c.levelString(indent+1, buf)
	}
}
