/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package comp

import (
	"math"

	"devt.de/krotik/mpk/mk/parser"
)

/*
maxConstEvalRounds bounds the fixpoint iteration of OptThree.
*/
const maxConstEvalRounds = 8

/*
constEval reduces pure sub-expressions to literal atoms before code
generation. OptTwo runs a single pass, OptThree iterates to a fixpoint.
Names which are ever re-assigned are never reduced through.
*/
func constEval(program parser.Program, level OptLevel) parser.Program {
	poisoned := collectSetIdents(program)

	rounds := 1
	if level >= OptThree {
		rounds = maxConstEvalRounds
	}

	for i := 0; i < rounds; i++ {
		env := make(map[string]*parser.ASTNode)
		changed := false

		for j, node := range program {
			program[j] = reduce(node, env, poisoned, &changed)
		}

		if !changed {
			break
		}
	}

	return program
}

/*
collectSetIdents returns the names which must not be reduced through: a
name assigned more than once is mutable state, a name assigned inside a
function or conditional may or may not hold its top-level value.
*/
func collectSetIdents(program parser.Program) map[string]bool {
	counts := make(map[string]int)
	poisoned := make(map[string]bool)

	var walk func(n *parser.ASTNode, conditional bool)
	walk = func(n *parser.ASTNode, conditional bool) {
		if n.Name == parser.NodeASSIGN {
			counts[n.StrVal]++

			if conditional {
				poisoned[n.StrVal] = true
			}
		}

		inner := conditional || n.Name == parser.NodeLAMBDA || n.Name == parser.NodeCOND

		for _, c := range n.Children {
			walk(c, inner)
		}
	}

	for _, node := range program {
		walk(node, false)
	}

	for name, count := range counts {
		if count > 1 {
			poisoned[name] = true
		}
	}

	return poisoned
}

/*
reduce reduces a single node. The env holds known top-level literal
bindings.
*/
func reduce(node *parser.ASTNode, env map[string]*parser.ASTNode,
	poisoned map[string]bool, changed *bool) *parser.ASTNode {

	// Lambda bodies reduce with the argument names shadowed

	if node.Name == parser.NodeLAMBDA {
		inner := make(map[string]*parser.ASTNode)
		for name, val := range env {
			if indexOf(node.Args, name) < 0 {
				inner[name] = val
			}
		}

		node.Children[0] = reduce(node.Children[0], inner, poisoned, changed)

		return node
	}

	for i, c := range node.Children {
		node.Children[i] = reduce(c, env, poisoned, changed)
	}

	switch node.Name {

	case parser.NodeNAME:
		if lit, ok := env[node.StrVal]; ok && !poisoned[node.StrVal] {
			*changed = true
			return &parser.ASTNode{Name: lit.Name, Span: node.Span,
				IntVal: lit.IntVal, FloatVal: lit.FloatVal}
		}

	case parser.NodeASSIGN:
		if expr := node.Children[0]; isNumLit(expr) && !poisoned[node.StrVal] {
			env[node.StrVal] = expr
		}

	case parser.NodeDYAD:
		if node.Adverb == parser.AdNone {
			if folded := foldDyad(node); folded != nil {
				*changed = true
				return folded
			}
		}

	case parser.NodeMONAD:
		if node.Adverb == parser.AdNone {
			if folded := foldMonad(node); folded != nil {
				*changed = true
				return folded
			}
		}

	case parser.NodeCOND:

		// A literal condition selects its branch at compile time

		if len(node.Children) >= 3 && isNumLit(node.Children[0]) {
			*changed = true

			if isTruthyLit(node.Children[0]) {
				return node.Children[1]
			}

			if len(node.Children) == 3 {
				return node.Children[2]
			}

			rest := &parser.ASTNode{Name: parser.NodeCOND, Span: node.Span,
				Children: node.Children[2:]}

			return rest
		}
	}

	return node
}

/*
isNumLit checks if a node is a numeric literal.
*/
func isNumLit(n *parser.ASTNode) bool {
	return n.Name == parser.NodeINT || n.Name == parser.NodeFLOAT
}

/*
isTruthyLit checks if a literal is truthy.
*/
func isTruthyLit(n *parser.ASTNode) bool {
	if n.Name == parser.NodeINT {
		return n.IntVal != 0
	}

	return n.FloatVal != 0
}

/*
litFloat returns the float value of a numeric literal.
*/
func litFloat(n *parser.ASTNode) float64 {
	if n.Name == parser.NodeINT {
		return float64(n.IntVal)
	}

	return n.FloatVal
}

/*
foldDyad folds a dyadic verb on two numeric literals. Returns nil if the
expression cannot be folded.
*/
func foldDyad(node *parser.ASTNode) *parser.ASTNode {
	lhs, rhs := node.Children[0], node.Children[1]

	if !isNumLit(lhs) || !isNumLit(rhs) {
		return nil
	}

	bothInt := lhs.Name == parser.NodeINT && rhs.Name == parser.NodeINT

	intNode := func(v int64) *parser.ASTNode {
		return &parser.ASTNode{Name: parser.NodeINT, Span: node.Span, IntVal: v}
	}
	floatNode := func(v float64) *parser.ASTNode {
		return &parser.ASTNode{Name: parser.NodeFLOAT, Span: node.Span, FloatVal: v}
	}
	boolNode := func(v bool) *parser.ASTNode {
		if v {
			return intNode(1)
		}
		return intNode(0)
	}

	lf, rf := litFloat(lhs), litFloat(rhs)

	switch node.Dyad {

	case parser.DyadPlus:
		if bothInt {
			return intNode(lhs.IntVal + rhs.IntVal)
		}
		return floatNode(lf + rf)

	case parser.DyadMinus:
		if bothInt {
			return intNode(lhs.IntVal - rhs.IntVal)
		}
		return floatNode(lf - rf)

	case parser.DyadTimes:
		if bothInt {
			return intNode(lhs.IntVal * rhs.IntVal)
		}
		return floatNode(lf * rf)

	case parser.DyadDivide:
		if rf == 0 {
			return nil
		}
		return floatNode(lf / rf)

	case parser.DyadMod:
		if bothInt && rhs.IntVal != 0 {
			return intNode(lhs.IntVal % rhs.IntVal)
		}

	case parser.DyadMin:
		if bothInt {
			if lhs.IntVal < rhs.IntVal {
				return intNode(lhs.IntVal)
			}
			return intNode(rhs.IntVal)
		}
		return floatNode(math.Min(lf, rf))

	case parser.DyadMax:
		if bothInt {
			if lhs.IntVal > rhs.IntVal {
				return intNode(lhs.IntVal)
			}
			return intNode(rhs.IntVal)
		}
		return floatNode(math.Max(lf, rf))

	case parser.DyadLess:
		return boolNode(lf < rf)

	case parser.DyadMore:
		return boolNode(lf > rf)

	case parser.DyadEqual, parser.DyadMatch:
		return boolNode(lf == rf)
	}

	return nil
}

/*
foldMonad folds a monadic verb on a numeric literal. Returns nil if the
expression cannot be folded.
*/
func foldMonad(node *parser.ASTNode) *parser.ASTNode {
	expr := node.Children[0]

	if !isNumLit(expr) {
		return nil
	}

	switch node.Monad {

	case parser.MonadNegate:
		if expr.Name == parser.NodeINT {
			return &parser.ASTNode{Name: parser.NodeINT, Span: node.Span,
				IntVal: -expr.IntVal}
		}
		return &parser.ASTNode{Name: parser.NodeFLOAT, Span: node.Span,
			FloatVal: -expr.FloatVal}

	case parser.MonadNot:
		v := int64(0)
		if !isTruthyLit(expr) {
			v = 1
		}
		return &parser.ASTNode{Name: parser.NodeINT, Span: node.Span, IntVal: v}

	case parser.MonadFloor:
		return &parser.ASTNode{Name: parser.NodeINT, Span: node.Span,
			IntVal: int64(math.Floor(litFloat(expr)))}

	case parser.MonadSqrt:
		if f := litFloat(expr); f >= 0 {
			return &parser.ASTNode{Name: parser.NodeFLOAT, Span: node.Span,
				FloatVal: math.Sqrt(f)}
		}

	case parser.MonadCount:
		return &parser.ASTNode{Name: parser.NodeINT, Span: node.Span, IntVal: 1}
	}

	return nil
}
