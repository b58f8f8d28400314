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
	"testing"

	"devt.de/krotik/mpk/mk/parser"
)

func compileSrc(t *testing.T, c *Compiler, src string, level OptLevel) *Unit {
	program, err := parser.Parse("test", src)
	if err != nil {
		t.Fatal(err)
	}

	unit, err := c.Compile(program, level)
	if err != nil {
		t.Fatal(err)
	}

	return unit
}

func TestSymbolMap(t *testing.T) {
	sm := NewSymbolMap()

	a := sm.Intern("a")
	b := sm.Intern("b")

	if a == b {
		t.Error("Different names should get different slots")
		return
	}

	// Indices are stable

	if sm.Intern("a") != a || sm.Intern("b") != b {
		t.Error("Slot indices should be stable")
		return
	}

	if sm.Name(a) != "a" || sm.Name(b) != "b" {
		t.Error("Unexpected slot names")
		return
	}

	if sm.Name(9999) != "" {
		t.Error("Unknown slot should have no name")
		return
	}

	if sm.Len() != 2 || len(sm.Names()) != 2 {
		t.Error("Unexpected symbol count")
		return
	}
}

func TestConstantInterning(t *testing.T) {
	c := NewCompiler()

	unit := compileSrc(t, c, "1 + 1; 1 + 1", OptZero)

	if len(unit.Exprs) != 2 {
		t.Error("Unexpected expression count:", len(unit.Exprs))
		return
	}

	// The literal 1 is interned once

	count := 0
	for _, v := range unit.Consts {
		if v.Kind == ValInt && v.I == 1 {
			count++
		}
	}

	if count != 1 {
		t.Error("Constants should be interned by structural equality:", count)
		return
	}

	// Both expressions push the same constant slot

	if unit.Exprs[0][0].Payload != unit.Exprs[1][0].Payload {
		t.Error("Interned constants should share a slot")
		return
	}
}

func TestLoweringShapes(t *testing.T) {
	c := NewCompiler()

	// A dyadic verb compiles to a fused global call

	unit := compileSrc(t, c, "1 + 2", OptZero)

	expr := unit.Exprs[0]
	ops := opList(expr)

	if ops != "PUSHCONST PUSHCONST CALLGLOBAL PASS POP" {
		t.Error("Unexpected instruction sequence:", ops)
		return
	}

	if c.Symbols().Name(expr[2].Payload) != "+" {
		t.Error("Call should target the + verb")
		return
	}

	if expr[3].Payload != 2 {
		t.Error("PASS should carry the arity:", expr[3].Payload)
		return
	}

	// Every expression ends with POP and the index buffer split is
	// per-expression

	unit = compileSrc(t, c, "1; 2; 3", OptZero)
	if len(unit.Exprs) != 3 {
		t.Error("Unexpected expression count")
		return
	}

	for _, e := range unit.Exprs {
		if e[len(e)-1].Op != POP {
			t.Error("Expression should end with POP:", opList(e))
			return
		}
	}

	// Assignment binds and keeps the value

	unit = compileSrc(t, c, "a : 5", OptZero)
	if ops := opList(unit.Exprs[0]); ops != "PUSHCONST BIND POP" {
		t.Error("Unexpected assignment sequence:", ops)
		return
	}

	// Lists build through STRUCT, maps through NDEFS

	unit = compileSrc(t, c, "(1; 2; 3)", OptZero)
	if ops := opList(unit.Exprs[0]); ops != "PUSHCONST PUSHCONST PUSHCONST STRUCT POP" {
		t.Error("Unexpected list sequence:", ops)
		return
	}

	unit = compileSrc(t, c, "[k:1]", OptZero)
	if ops := opList(unit.Exprs[0]); ops != "PUSHCONST PUSHCONST NDEFS POP" {
		t.Error("Unexpected map sequence:", ops)
		return
	}
}

func TestLambdaCompilation(t *testing.T) {
	c := NewCompiler()

	// A function definition wraps in SDEF / EDEF and creates a closure

	unit := compileSrc(t, c, "f : [a;b] a + b", OptZero)

	if ops := opList(unit.Exprs[0]); ops != "SDEF SCLOSURE ECLOSURE BIND EDEF POP" {
		t.Error("Unexpected definition sequence:", ops)
		return
	}

	// The lambda body reads its arguments as locals

	var lam *Lambda
	for _, v := range unit.Consts {
		if v.Kind == ValLambda {
			lam = v.Fn
		}
	}

	if lam == nil || lam.Arity != 2 || lam.Name != "f" {
		t.Error("Unexpected lambda template:", lam)
		return
	}

	if ops := opList(lam.Ins); ops != "READLOCAL READLOCAL CALLGLOBAL PASS" {
		t.Error("Unexpected body sequence:", ops)
		return
	}

	if lam.Ins[0].Payload != 0 || lam.Ins[1].Payload != 1 {
		t.Error("Arguments should resolve to local slots 0 and 1")
		return
	}
}

func TestUpvalueCapture(t *testing.T) {
	c := NewCompiler()

	unit := compileSrc(t, c, "mk : [n] [x] n + x", OptZero)

	var inner *Lambda

	for _, v := range unit.Consts {
		if v.Kind == ValLambda && len(v.Fn.Ups) > 0 {
			inner = v.Fn
		}
	}

	if inner == nil {
		t.Error("Inner lambda should capture an upvalue")
		return
	}

	if !inner.Ups[0].FromParent || inner.Ups[0].Index != 0 {
		t.Error("Unexpected capture descriptor:", inner.Ups[0])
		return
	}

	if ops := opList(inner.Ins); ops != "READUPVALUE READLOCAL CALLGLOBAL PASS" {
		t.Error("Unexpected body sequence:", ops)
		return
	}
}

func TestTailCallUpgrade(t *testing.T) {
	c := NewCompiler()

	unit := compileSrc(t, c, "f : [n] $[n = 0; 0; f[n - 1]]", OptZero)

	var lam *Lambda
	for _, v := range unit.Consts {
		if v.Kind == ValLambda {
			lam = v.Fn
		}
	}

	if lam == nil {
		t.Error("Lambda template expected")
		return
	}

	// The self call in tail position is upgraded

	found := false
	for _, in := range lam.Ins {
		if in.Op == CALLGLOBALTAIL && c.Symbols().Name(in.Payload) == "f" {
			found = true
		}
	}

	if !found {
		t.Error("Self call should be upgraded to a tail call:", opList(lam.Ins))
		return
	}

	// A call which is not in tail position is not upgraded

	unit = compileSrc(t, c, "g : [n] 1 + g[n - 1]", OptZero)

	for _, v := range unit.Consts {
		if v.Kind == ValLambda && v.Fn.Name == "g" {
			for _, in := range v.Fn.Ins {
				if in.Op == CALLGLOBALTAIL {
					t.Error("Non-tail call should not be upgraded:", opList(v.Fn.Ins))
					return
				}
			}
		}
	}
}

func TestConstEval(t *testing.T) {

	// Pure arithmetic reduces to a single constant at OptThree

	c := NewCompiler()
	unit := compileSrc(t, c, "1 + 2 * 3", OptThree)

	if ops := opList(unit.Exprs[0]); ops != "PUSHCONST POP" {
		t.Error("Pure expression should reduce to a constant:", ops)
		return
	}

	if v := unit.Consts[unit.Exprs[0][0].Payload]; v.Kind != ValInt || v.I != 7 {
		t.Error("Unexpected folded value:", v)
		return
	}

	// Bindings propagate through a fixpoint pass

	c = NewCompiler()
	unit = compileSrc(t, c, "a : 2; b : a * 3; b + 1", OptThree)

	last := unit.Exprs[2]
	if ops := opList(last); ops != "PUSHCONST POP" {
		t.Error("Fixpoint should reduce through bindings:", ops)
		return
	}

	if v := unit.Consts[last[0].Payload]; v.I != 7 {
		t.Error("Unexpected folded value:", v)
		return
	}

	// Re-assigned names are never reduced through

	c = NewCompiler()
	unit = compileSrc(t, c, "a : 2; a : 3; a + 1", OptThree)

	last = unit.Exprs[2]
	if ops := opList(last); ops == "PUSHCONST POP" {
		t.Error("Mutable names must not be folded:", ops)
		return
	}

	// Literal conditions select their branch at compile time

	c = NewCompiler()
	unit = compileSrc(t, c, "$[1; 10; 20]", OptThree)

	if v := unit.Consts[unit.Exprs[0][0].Payload]; v.I != 10 {
		t.Error("Condition should fold to the then branch:", v)
		return
	}

	// A monadic fold

	c = NewCompiler()
	unit = compileSrc(t, c, "- 5", OptTwo)

	if v := unit.Consts[unit.Exprs[0][0].Payload]; v.Kind != ValInt || v.I != -5 {
		t.Error("Negation should fold:", v)
		return
	}
}

func TestCondLowering(t *testing.T) {
	c := NewCompiler()

	unit := compileSrc(t, c, "$[a; 1; 2]", OptZero)

	expr := unit.Exprs[0]

	// PUSH a; IF over-then; PUSHCONST 1; JMP end; PUSHCONST 2; POP

	if ops := opList(expr); ops != "PUSH IF PUSHCONST JMP PUSHCONST POP" {
		t.Error("Unexpected conditional sequence:", ops)
		return
	}

	if expr[1].Payload != 2 {
		t.Error("IF should jump over the then branch:", expr[1].Payload)
		return
	}

	if expr[3].Payload != 1 {
		t.Error("JMP should jump to the end:", expr[3].Payload)
		return
	}
}

/*
opList renders the opcode sequence of an instruction slice.
*/
func opList(ins []Ins) string {
	ret := ""

	for i, in := range ins {
		if i > 0 {
			ret += " "
		}
		ret += in.Op.String()
	}

	return ret
}
