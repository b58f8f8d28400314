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
Package comp contains the mk bytecode compiler.

The compiler lowers an abstract syntax tree into linear instruction
vectors (one per top-level expression) with a shared constant pool and a
symbol map. Passes run in order:

	expand       identity pass (no rewrites)
	consteval    optional pre-execution reduction of pure sub-expressions
	lower        code generation per expression
	resolve      replace name lookups with local / upvalue / global slots
	peephole     local instruction rewrites (fused global calls, tail
	             calls)
	compact      split the stream into per-expression slices

The constant pool is interned by structural equality; the symbol map is
append-only with stable indices.
*/
package comp

import (
	"errors"
	"fmt"

	"devt.de/krotik/mpk/mk/parser"
)

/*
OptLevel selects the constant evaluation strategy.
*/
type OptLevel int

/*
Available optimization levels
*/
const (
	OptZero  OptLevel = 0 // No constant evaluation
	OptTwo   OptLevel = 2 // Single constant evaluation pass
	OptThree OptLevel = 3 // Constant evaluation to a fixpoint
)

/*
Error models a compiler related error.
*/
type Error struct {
	Type   error       // Error type (to be used for equal checks)
	Detail string      // Details of this error
	Span   parser.Span // Source location of the error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ce *Error) Error() string {
	if ce.Detail != "" {
		return fmt.Sprintf("Compile error: %v (%v) (Line:%v Pos:%v)",
			ce.Type, ce.Detail, ce.Span.Line, ce.Span.Pos)
	}

	return fmt.Sprintf("Compile error: %v (Line:%v Pos:%v)",
		ce.Type, ce.Span.Line, ce.Span.Pos)
}

/*
Compiler related error types
*/
var (
	ErrUnexpectedNode = errors.New("Unexpected syntax tree node")
	ErrTooManyArgs    = errors.New("Too many arguments")
)

/*
maxCallArity bounds the arity encodable in call instructions.
*/
const maxCallArity = 255

/*
SymbolMap maps names to stable slot indices. The map is append-only -
indices never change once assigned.
*/
type SymbolMap struct {
	names []string
	index map[string]uint32
}

/*
NewSymbolMap creates a new empty symbol map.
*/
func NewSymbolMap() *SymbolMap {
	return &SymbolMap{index: make(map[string]uint32)}
}

/*
Intern returns the stable slot index of a name, assigning one if the name
is new.
*/
func (sm *SymbolMap) Intern(name string) uint32 {
	if idx, ok := sm.index[name]; ok {
		return idx
	}

	idx := uint32(len(sm.names))
	sm.names = append(sm.names, name)
	sm.index[name] = idx

	return idx
}

/*
Name returns the name of a slot index.
*/
func (sm *SymbolMap) Name(idx uint32) string {
	if int(idx) >= len(sm.names) {
		return ""
	}

	return sm.names[idx]
}

/*
Names returns all interned names in slot order.
*/
func (sm *SymbolMap) Names() []string {
	return append([]string{}, sm.names...)
}

/*
Len returns the number of interned names.
*/
func (sm *SymbolMap) Len() int {
	return len(sm.names)
}

/*
Unit is the result of compiling a program: one instruction slice per
top-level expression plus the shared pools.
*/
type Unit struct {
	Exprs  [][]Ins    // Instructions per top-level expression
	Consts []Value    // Shared constant pool
	Syms   *SymbolMap // Shared symbol map
}

/*
Compiler compiles programs. The constant pool and symbol map persist
across Compile calls so a session shares slots between expressions.
*/
type Compiler struct {
	consts   []Value
	constIdx map[string]uint32
	syms     *SymbolMap
}

/*
NewCompiler creates a new compiler instance.
*/
func NewCompiler() *Compiler {
	return &Compiler{constIdx: make(map[string]uint32), syms: NewSymbolMap()}
}

/*
Symbols returns the symbol map of this compiler.
*/
func (c *Compiler) Symbols() *SymbolMap {
	return c.syms
}

/*
Constants returns the constant pool of this compiler.
*/
func (c *Compiler) Constants() []Value {
	return c.consts
}

/*
Compile compiles a program at a given optimization level.
*/
func (c *Compiler) Compile(program parser.Program, level OptLevel) (*Unit, error) {
	program = expand(program)

	if level >= OptTwo {
		program = constEval(program, level)
	}

	// Lower all expressions into one buffer and record per-expression
	// lengths in an index buffer for the final split

	var buf []Ins
	var index []int

	for _, node := range program {
		start := len(buf)

		ebuf, err := c.lowerTop(node)
		if err != nil {
			return nil, err
		}

		buf = append(buf, ebuf...)
		buf = append(buf, Ins{Op: POP, Span: node.Span})

		index = append(index, len(buf)-start)
	}

	// Compact: split the stream back into per-expression slices

	unit := &Unit{Consts: c.consts, Syms: c.syms}

	off := 0
	for _, l := range index {
		unit.Exprs = append(unit.Exprs, buf[off:off+l])
		off += l
	}

	return unit, nil
}

/*
lowerTop lowers a single top-level expression, resolves names and applies
the peephole rewrites.
*/
func (c *Compiler) lowerTop(node *parser.ASTNode) ([]Ins, error) {
	buf, err := c.lower(nil, node, "")
	if err != nil {
		return nil, err
	}

	if err = c.resolve(&buf, nil); err != nil {
		return nil, err
	}

	c.peephole(buf, false)

	return buf, nil
}

/*
addConst interns a value in the constant pool and returns its index.
Lambda templates are appended without interning.
*/
func (c *Compiler) addConst(v Value) uint32 {
	if v.Kind != ValLambda {
		if idx, ok := c.constIdx[v.key()]; ok {
			return idx
		}
	}

	idx := uint32(len(c.consts))
	c.consts = append(c.consts, v)

	if v.Kind != ValLambda {
		c.constIdx[v.key()] = idx
	}

	return idx
}

/*
scope tracks the lexical context of a lambda body during lowering.
*/
type scope struct {
	parent *scope
	args   []string
	lam    *Lambda
}

/*
lower generates instructions for an expression. The defName is the name
of the surrounding definition (for tail call detection in lambdas).
*/
func (c *Compiler) lower(sc *scope, node *parser.ASTNode, defName string) ([]Ins, error) {
	var buf []Ins
	err := c.lowerInto(&buf, sc, node, defName)
	return buf, err
}

/*
lowerInto generates instructions for an expression into a buffer.
*/
func (c *Compiler) lowerInto(buf *[]Ins, sc *scope, node *parser.ASTNode, defName string) error {
	emit := func(op OpCode, payload uint32) {
		*buf = append(*buf, Ins{Op: op, Payload: payload, Span: node.Span})
	}

	switch node.Name {

	case parser.NodeINT:
		emit(PUSHCONST, c.addConst(Value{Kind: ValInt, I: node.IntVal}))

	case parser.NodeFLOAT:
		emit(PUSHCONST, c.addConst(Value{Kind: ValFloat, F: node.FloatVal}))

	case parser.NodeDATE:
		emit(PUSHCONST, c.addConst(Value{Kind: ValDate, I: node.IntVal}))

	case parser.NodeTIME:
		emit(PUSHCONST, c.addConst(Value{Kind: ValTime, I: node.IntVal}))

	case parser.NodeCHAR:
		emit(PUSHCONST, c.addConst(Value{Kind: ValChar, S: node.StrVal}))

	case parser.NodeSTR:
		emit(PUSHCONST, c.addConst(Value{Kind: ValStr, S: node.StrVal}))

	case parser.NodeSYMBOL:
		emit(PUSHCONST, c.addConst(Value{Kind: ValSym, S: node.StrVal}))

	case parser.NodeNAME:
		emit(LOOKUP, c.syms.Intern(node.StrVal))

	case parser.NodeLIST:
		for _, item := range node.Children {
			if err := c.lowerInto(buf, sc, item, ""); err != nil {
				return err
			}
		}
		emit(STRUCT, uint32(len(node.Children)))

	case parser.NodeMAP, parser.NodeTABLE:
		for _, item := range node.Children {
			if err := c.lowerInto(buf, sc, item, ""); err != nil {
				return err
			}
		}
		emit(NDEFS, uint32(len(node.Children)/2))

	case parser.NodeMONAD:
		return c.lowerMonad(buf, sc, node)

	case parser.NodeDYAD:
		return c.lowerDyad(buf, sc, node)

	case parser.NodeCOND:
		return c.lowerCond(buf, sc, node, defName)

	case parser.NodeLAMBDA:
		return c.lowerLambda(buf, sc, node, defName)

	case parser.NodeCALL:
		if len(node.Children) > maxCallArity {
			return &Error{Type: ErrTooManyArgs, Span: node.Span}
		}

		for _, arg := range node.Children[1:] {
			if err := c.lowerInto(buf, sc, arg, ""); err != nil {
				return err
			}
		}

		if err := c.lowerInto(buf, sc, node.Children[0], ""); err != nil {
			return err
		}

		emit(FUNC, uint32(len(node.Children)-1))

	case parser.NodeSYS:
		return c.lowerSys(buf, sc, node)

	case parser.NodeASSIGN:
		expr := node.Children[0]

		if expr.Name == parser.NodeLAMBDA {

			// Global function definitions are bracketed with SDEF / EDEF
			// markers; the name is the defining context for tail call
			// detection

			sym := c.syms.Intern(node.StrVal)

			emit(SDEF, sym)

			if err := c.lowerInto(buf, sc, expr, node.StrVal); err != nil {
				return err
			}

			*buf = append(*buf, Ins{Op: BIND, Payload: sym, Span: node.Span})
			emit(EDEF, 0)

			return nil
		}

		if err := c.lowerInto(buf, sc, expr, ""); err != nil {
			return err
		}

		emit(BIND, c.syms.Intern(node.StrVal))

	default:
		return &Error{Type: ErrUnexpectedNode, Detail: node.Name, Span: node.Span}
	}

	return nil
}

/*
lowerMonad lowers a monadic verb application. Verbs and adverbs are
global native functions - an adverb is called with the verb function as
its first argument. The fold adverbs (over, scan, each-prior) use the
dyadic meaning of the verb glyph.
*/
func (c *Compiler) lowerMonad(buf *[]Ins, sc *scope, node *parser.ASTNode) error {
	emit := func(op OpCode, payload uint32) {
		*buf = append(*buf, Ins{Op: op, Payload: payload, Span: node.Span})
	}

	// Monadic eval compiles to the dedicated EVAL instruction

	if node.Monad == parser.MonadEval && node.Adverb == parser.AdNone {
		if err := c.lowerInto(buf, sc, node.Children[0], ""); err != nil {
			return err
		}

		emit(EVAL, 0)

		return nil
	}

	if node.Adverb == parser.AdNone {
		if err := c.lowerInto(buf, sc, node.Children[0], ""); err != nil {
			return err
		}

		emit(LOOKUP, c.syms.Intern(monadicName(node.Monad)))
		emit(FUNC, 1)

		return nil
	}

	verb := monadicName(node.Monad)
	if foldAdverb(node.Adverb) {
		verb = dyadicNameOfMonad(node.Monad)
	}

	emit(LOOKUP, c.syms.Intern(verb))

	if err := c.lowerInto(buf, sc, node.Children[0], ""); err != nil {
		return err
	}

	emit(LOOKUP, c.syms.Intern(node.Adverb.String()))
	emit(FUNC, 2)

	return nil
}

/*
lowerDyad lowers a dyadic verb application.
*/
func (c *Compiler) lowerDyad(buf *[]Ins, sc *scope, node *parser.ASTNode) error {
	emit := func(op OpCode, payload uint32) {
		*buf = append(*buf, Ins{Op: op, Payload: payload, Span: node.Span})
	}

	if node.Adverb == parser.AdNone {
		if err := c.lowerInto(buf, sc, node.Children[0], ""); err != nil {
			return err
		}

		if err := c.lowerInto(buf, sc, node.Children[1], ""); err != nil {
			return err
		}

		emit(LOOKUP, c.syms.Intern(node.Dyad.String()))
		emit(FUNC, 2)

		return nil
	}

	emit(LOOKUP, c.syms.Intern(node.Dyad.String()))

	if err := c.lowerInto(buf, sc, node.Children[0], ""); err != nil {
		return err
	}

	if err := c.lowerInto(buf, sc, node.Children[1], ""); err != nil {
		return err
	}

	emit(LOOKUP, c.syms.Intern(node.Adverb.String()))
	emit(FUNC, 3)

	return nil
}

/*
lowerCond lowers the conditional. Arms chain: condition, then-branch,
condition, then-branch, ..., else-branch.
*/
func (c *Compiler) lowerCond(buf *[]Ins, sc *scope, node *parser.ASTNode, defName string) error {
	arms := node.Children

	var jmpEnds []int

	for len(arms) >= 2 {

		// Lower the condition; IF jumps over the then-branch when falsy

		if err := c.lowerInto(buf, sc, arms[0], ""); err != nil {
			return err
		}

		ifIdx := len(*buf)
		*buf = append(*buf, Ins{Op: IF, Span: arms[0].Span})

		if err := c.lowerInto(buf, sc, arms[1], defName); err != nil {
			return err
		}

		jmpEnds = append(jmpEnds, len(*buf))
		*buf = append(*buf, Ins{Op: JMP, Span: arms[1].Span})

		(*buf)[ifIdx].Payload = uint32(len(*buf) - ifIdx - 1)

		arms = arms[2:]
	}

	if len(arms) == 1 {
		if err := c.lowerInto(buf, sc, arms[0], defName); err != nil {
			return err
		}
	} else {
		*buf = append(*buf, Ins{Op: VOID, Span: node.Span})
	}

	for _, idx := range jmpEnds {
		(*buf)[idx].Payload = uint32(len(*buf) - idx - 1)
	}

	return nil
}

/*
lowerLambda lowers a function literal into a lambda template constant and
emits the closure creation instructions.
*/
func (c *Compiler) lowerLambda(buf *[]Ins, sc *scope, node *parser.ASTNode, defName string) error {
	args := node.Args

	if len(args) == 0 {
		args = implicitArgs(node.Children[0])
	}

	lam := &Lambda{Name: defName, Arity: len(args), Args: args}

	childSc := &scope{parent: sc, args: args, lam: lam}

	body, err := c.lower(childSc, node.Children[0], defName)
	if err != nil {
		return err
	}

	if len(body) == 0 {
		body = append(body, Ins{Op: VOID, Span: node.Span})
	}

	if err = c.resolve(&body, childSc); err != nil {
		return err
	}

	c.peephole(body, true)
	c.tailCalls(body, defName)

	lam.Ins = body

	cidx := c.addConst(Value{Kind: ValLambda, Fn: lam})

	*buf = append(*buf, Ins{Op: SCLOSURE, Payload: cidx, Span: node.Span})
	*buf = append(*buf, Ins{Op: ECLOSURE, Payload: uint32(len(lam.Ups)), Span: node.Span})

	return nil
}

/*
lowerSys lowers a system verb application. The timeit verb receives its
expression as a thunk so the native can measure the evaluation.
*/
func (c *Compiler) lowerSys(buf *[]Ins, sc *scope, node *parser.ASTNode) error {
	emit := func(op OpCode, payload uint32) {
		*buf = append(*buf, Ins{Op: op, Payload: payload, Span: node.Span})
	}

	name := "\\" + node.Sys.String()

	if node.Sys == parser.SysTimeit && len(node.Children) == 1 {
		thunk := &parser.ASTNode{
			Name: parser.NodeLAMBDA, Span: node.Span,
			Args:     []string{},
			Children: node.Children,
		}

		if err := c.lowerLambda(buf, sc, thunk, ""); err != nil {
			return err
		}

		emit(LOOKUP, c.syms.Intern(name))
		emit(FUNC, 1)

		return nil
	}

	for _, arg := range node.Children {
		if err := c.lowerInto(buf, sc, arg, ""); err != nil {
			return err
		}
	}

	emit(LOOKUP, c.syms.Intern(name))
	emit(FUNC, uint32(len(node.Children)))

	return nil
}

/*
monadicName returns the global name of a monadic verb function (the glyph
with a trailing colon).
*/
func monadicName(v parser.MonadicVerb) string {
	return v.String() + ":"
}

/*
dyadicNameOfMonad returns the global name of the dyadic meaning of a verb
glyph parsed in monadic position (used by the fold adverbs).
*/
func dyadicNameOfMonad(v parser.MonadicVerb) string {
	return v.String()
}

/*
foldAdverb checks if an adverb uses the dyadic meaning of its verb when
applied with a single operand.
*/
func foldAdverb(a parser.AdVerb) bool {
	return a == parser.AdOver || a == parser.AdScan || a == parser.AdEachPrior
}

/*
implicitArgs determines the implicit arguments (x, y, z) of a function
without an explicit argument list.
*/
func implicitArgs(body *parser.ASTNode) []string {
	used := make(map[string]bool)

	var walk func(n *parser.ASTNode)
	walk = func(n *parser.ASTNode) {
		if n.Name == parser.NodeNAME {
			used[n.StrVal] = true
		}

		if n.Name == parser.NodeLAMBDA && len(n.Args) > 0 {
			return
		}

		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(body)

	switch {
	case used["z"]:
		return []string{"x", "y", "z"}
	case used["y"]:
		return []string{"x", "y"}
	case used["x"]:
		return []string{"x"}
	}

	return nil
}

/*
expand returns the program unchanged; nested expression sequences are not
flattened.
*/
func expand(program parser.Program) parser.Program {
	return program
}
