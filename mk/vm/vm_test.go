/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package vm

import (
	"strings"
	"testing"

	"devt.de/krotik/mpk/mk/comp"
)

func newTestMachine() *Machine {
	return NewMachine(comp.NewCompiler())
}

/*
evalDisplay evaluates a source string and returns the display forms of
all expression values.
*/
func evalDisplay(t *testing.T, m *Machine, src string) []string {
	results, err := m.Eval(src, comp.OptZero)
	if err != nil {
		t.Fatalf("Eval of %q failed: %v", src, err)
	}

	var ret []string
	for _, r := range results {
		ret = append(ret, Display(r))
	}

	return ret
}

func TestArithmetic(t *testing.T) {
	m := newTestMachine()

	// One value per line: vector addition broadcasts the scalar

	res := evalDisplay(t, m, "1 + 2 3 4")
	if len(res) != 1 || res[0] != "3 4 5" {
		t.Error("Unexpected result:", res)
		return
	}

	for _, tc := range [][2]string{
		{"2 * 3 + 4", "14"},
		{"10 % 4", "2.5"},
		{"7 ! 3", "1"},
		{"3 & 5", "3"},
		{"3 | 5", "5"},
		{"2 < 3", "1b"},
		{"1 2 3 + 10 20 30", "11 22 33"},
		{"- 2.5 + 1", "-3.5"},
		{"1 2 3 ~ 1 2 3", "1b"},
		{"1 2 , 3 4", "1 2 3 4"},
		{"1 2 3 2 ^ 2", "1 3"},
		{"2 # 7 8 9", "7 8"},
		{"5 # 1 2", "1 2 1 2 1"},
		{"1 _ 7 8 9", "8 9"},
		{"7 8 9 ? 8", "1"},
		{"7 8 9 @ 2", "9"},
	} {
		res := evalDisplay(t, m, tc[0])
		if res[len(res)-1] != tc[1] {
			t.Errorf("%q should yield %q, got %q", tc[0], tc[1], res[len(res)-1])
			return
		}
	}
}

func TestMonadicVerbs(t *testing.T) {
	m := newTestMachine()

	for _, tc := range [][2]string{
		{"-1 2 3", "-1 -2 -3"},
		{"*7 8 9", "7"},
		{"!4", "0 1 2 3"},
		{"&0 1 2", "1 2 2"},
		{"|7 8 9", "9 8 7"},
		{"<3 1 2", "1 2 3"},
		{">3 1 2", "3 2 1"},
		{"~0 1 2", "1b 0b 0b"},
		{",5", "5"},
		{"#7 8 9", "3"},
		{"_2.7", "2"},
		{"?1 1 2 3 2", "1 2 3"},
		{"@1.5", "`float"},
		{"^()", "1b"},
		{"#\"abc\"", "3"},
	} {
		res := evalDisplay(t, m, tc[0])
		if res[len(res)-1] != tc[1] {
			t.Errorf("%q should yield %q, got %q", tc[0], tc[1], res[len(res)-1])
			return
		}
	}

	// Group yields a map from value to indices

	res := evalDisplay(t, m, "=1 2 1")
	if res[0] != "[1:0 2 2:1]" {
		t.Error("Unexpected group result:", res)
		return
	}

	// Flip transposes

	res = evalDisplay(t, m, "+((1;2);(3;4))")
	if res[0] != "(1 3;2 4)" {
		t.Error("Unexpected flip result:", res)
		return
	}
}

func TestAdverbs(t *testing.T) {
	m := newTestMachine()

	for _, tc := range [][2]string{
		{"+/ 1 2 3 4", "10"},
		{"10 +/ 1 2 3", "16"},
		{"+\\ 1 2 3", "1 3 6"},
		{"-': 5 7 10", "5 2 3"},
		{"f : [x] x * 2; f' 1 2 3", "2 4 6"},
		{"1 +/: 10 20", "11 21"},
		{"10 20 +\\: 1", "11 21"},
	} {
		res := evalDisplay(t, m, tc[0])
		if res[len(res)-1] != tc[1] {
			t.Errorf("%q should yield %q, got %q", tc[0], tc[1], res[len(res)-1])
			return
		}
	}
}

func TestAssignAndCall(t *testing.T) {
	m := newTestMachine()

	res := evalDisplay(t, m, "a : 5; b : a + 1; a + b")
	if res[2] != "11" {
		t.Error("Unexpected result:", res)
		return
	}

	res = evalDisplay(t, m, "add : [a;b] a + b; add[40; 2]")
	if res[1] != "42" {
		t.Error("Unexpected result:", res)
		return
	}

	// Juxtaposition call

	res = evalDisplay(t, m, "double : [x] x * 2; double 21")
	if res[1] != "42" {
		t.Error("Unexpected result:", res)
		return
	}

	// Implicit arguments

	res = evalDisplay(t, m, "g : [] x + y; g[40; 2]")
	if res[1] != "42" {
		t.Error("Unexpected result:", res)
		return
	}

	// Conditional

	res = evalDisplay(t, m, "$[1; 10; 20]")
	if res[0] != "10" {
		t.Error("Unexpected result:", res)
		return
	}

	res = evalDisplay(t, m, "$[0; 10; 20]")
	if res[0] != "20" {
		t.Error("Unexpected result:", res)
		return
	}

	// Maps

	res = evalDisplay(t, m, "d : [k1:1 k2:2]; d @ `k1")
	if res[1] != "1" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestTailRecursion(t *testing.T) {
	m := newTestMachine()

	before := m.Gc().Live()

	results, err := m.Eval("f : [n] $[n = 0; 0; f[n - 1]]; f[100000]", comp.OptZero)
	if err != nil {
		t.Error(err)
		return
	}

	if Display(results[len(results)-1]) != "0" {
		t.Error("Unexpected result:", results)
		return
	}

	// Tail recursive calls reuse the frame: depth stays constant
	// regardless of the recursion count

	if m.FrameHighWater() > 8 {
		t.Error("Tail recursion should run in constant frame depth:",
			m.FrameHighWater())
		return
	}

	// The live object count returns to its pre-call level

	m.Collect()

	if live := m.Gc().Live(); live > before+1 {
		t.Error("Live objects should return to the pre-call level:", before, live)
		return
	}
}

func TestUpvalues(t *testing.T) {
	m := newTestMachine()

	// Two closures capture the same variable and observe each other's
	// mutations in program order

	src := `
p : [n] (([x] n : n + x); ([x] n))
fns : p[10]
inc : fns @ 0
get : fns @ 1
inc[5]
get[0]
inc[2]
get[0]
`
	results, err := m.Eval(src, comp.OptZero)
	if err != nil {
		t.Error(err)
		return
	}

	if Display(results[4]) != "15" || Display(results[5]) != "15" {
		t.Error("Captured write should be visible:",
			Display(results[4]), Display(results[5]))
		return
	}

	if Display(results[6]) != "17" || Display(results[7]) != "17" {
		t.Error("Captured writes should accumulate:",
			Display(results[6]), Display(results[7]))
		return
	}
}

func TestRuntimeErrors(t *testing.T) {
	m := newTestMachine()

	// Free identifier

	_, err := m.Eval("nosuch + 1", comp.OptZero)
	if rerr, ok := err.(*RuntimeError); !ok || rerr.Type != ErrFreeIdentifier {
		t.Error("Expected free identifier error, got:", err)
		return
	}

	// Length error

	_, err = m.Eval("1 2 + 1 2 3", comp.OptZero)
	if rerr, ok := err.(*RuntimeError); !ok || rerr.Type != ErrLength {
		t.Error("Expected length error, got:", err)
		return
	}

	// Rank error

	_, err = m.Eval("f : [a;b] a + b; f[1]", comp.OptZero)
	if rerr, ok := err.(*RuntimeError); !ok || rerr.Type != ErrRank {
		t.Error("Expected rank error, got:", err)
		return
	}

	// Type errors carry a span

	_, err = m.Eval("1 + `sym", comp.OptZero)
	rerr, ok := err.(*RuntimeError)
	if !ok || rerr.Type != ErrTypeMismatch || rerr.Span.Line == 0 {
		t.Error("Expected positioned type error, got:", err)
		return
	}

	// A failing expression leaves the machine usable

	if res := evalDisplay(t, m, "1 + 1"); res[0] != "2" {
		t.Error("Machine should stay usable after an error:", res)
		return
	}

	// Conversion errors

	_, err = m.Eval("1 % 0", comp.OptZero)
	if rerr, ok := err.(*RuntimeError); !ok || rerr.Type != ErrConversion {
		t.Error("Expected conversion error, got:", err)
		return
	}

	_, err = m.Eval("`int $ \"abc\"", comp.OptZero)
	if rerr, ok := err.(*RuntimeError); !ok || rerr.Type != ErrConversion {
		t.Error("Expected conversion error, got:", err)
		return
	}
}

func TestObjectCeiling(t *testing.T) {
	m := newTestMachine()
	m.gc = NewGc(16)

	// Transient lists are collected when the ceiling is reached

	for i := 0; i < 100; i++ {
		if _, err := m.Eval("1 2 3 + 4 5 6", comp.OptZero); err != nil {
			t.Error(err)
			return
		}
	}

	// Objects reachable from globals survive and eventually exhaust a
	// tiny heap

	failed := false

	for i := 0; i < 100 && !failed; i++ {
		_, err := m.Eval("g"+string(rune('a'+i%26))+string(rune('a'+i/26))+" : 1 2 3", comp.OptZero)

		if err != nil {
			rerr, ok := err.(*RuntimeError)
			if !ok || rerr.Type != ErrOutOfMemory {
				t.Error("Expected out of memory error, got:", err)
				return
			}
			failed = true
		}
	}

	if !failed {
		t.Error("A tiny heap should eventually be exhausted")
		return
	}
}

func TestOptLevelPreservation(t *testing.T) {

	// Pure atom / arithmetic programs yield the same results with and
	// without constant evaluation

	for _, src := range []string{
		"1 + 2 * 3",
		"a : 2; b : a * 3; b + 1",
		"$[1; 10; 20]",
		"- 5; 2.5 + 1; 7 ! 3",
		"x : 1 + 1; x + x",
	} {
		m0 := newTestMachine()
		m3 := newTestMachine()

		r0, err0 := m0.Eval(src, comp.OptZero)
		r3, err3 := m3.Eval(src, comp.OptThree)

		if err0 != nil || err3 != nil {
			t.Error("Unexpected errors:", err0, err3)
			return
		}

		if len(r0) != len(r3) {
			t.Errorf("Result counts differ for %q: %v %v", src, r0, r3)
			return
		}

		for i := range r0 {
			if Display(r0[i]) != Display(r3[i]) {
				t.Errorf("Results differ for %q: %v %v", src,
					Display(r0[i]), Display(r3[i]))
				return
			}
		}
	}
}

func TestEvalVerb(t *testing.T) {
	m := newTestMachine()

	res := evalDisplay(t, m, `."1 + 2"`)
	if res[0] != "3" {
		t.Error("Unexpected eval result:", res)
		return
	}
}

func TestSysVerbs(t *testing.T) {
	m := newTestMachine()

	// \v lists user bindings

	res := evalDisplay(t, m, "alpha : 1; beta : 2; \\v")
	if res[2] != "`alpha `beta" && res[2] != "`beta `alpha" {
		t.Error("Unexpected vars result:", res)
		return
	}

	// \t yields a duration

	results, err := m.Eval("\\t 1 + 1", comp.OptZero)
	if err != nil || results[0].T != TagDur {
		t.Error("Unexpected timeit result:", results, err)
		return
	}

	// \\ requests exit

	if _, err := m.Eval("\\\\", comp.OptZero); err != nil || !m.ExitRequested {
		t.Error("Exit should be requested:", err)
		return
	}

	// Handler-dependent verbs fail without a handler

	_, err = m.Eval("\\db `info", comp.OptZero)
	if err == nil || !strings.Contains(err.Error(), "no handler") {
		t.Error("Expected handler error, got:", err)
		return
	}
}

func TestDisplayForms(t *testing.T) {
	for _, tc := range []struct {
		o   Obj
		out string
	}{
		{Unit, "::"},
		{Int(-5), "-5"},
		{Float(2.5), "2.5"},
		{Float(3), "3.0"},
		{Str("hi"), `"hi"`},
		{Sym("a"), "`a"},
		{Char("c"), "'c'"},
		{Bool(true), "1b"},
	} {
		if res := Display(tc.o); res != tc.out {
			t.Errorf("Display of %v should be %q, got %q", tc.o, tc.out, res)
			return
		}
	}
}

func TestArena(t *testing.T) {
	a := NewArena()

	s1 := a.Insert("one")
	s2 := a.Insert("two")

	if v, ok := a.Get(s1); !ok || v != "one" {
		t.Error("Unexpected get result:", v, ok)
		return
	}

	if a.Len() != 2 {
		t.Error("Unexpected arena length:", a.Len())
		return
	}

	if v, ok := a.Remove(s1); !ok || v != "one" {
		t.Error("Unexpected remove result:", v, ok)
		return
	}

	// Stale slots no longer resolve, even after reuse

	if _, ok := a.Get(s1); ok {
		t.Error("Stale slot should not resolve")
		return
	}

	s3 := a.Insert("three")

	if s3.Index != s1.Index || s3.Gen == s1.Gen {
		t.Error("Slot should be reused with a new generation:", s1, s3)
		return
	}

	if _, ok := a.Get(s1); ok {
		t.Error("Stale slot should not resolve after reuse")
		return
	}

	if v, ok := a.Get(s2); !ok || v != "two" {
		t.Error("Unexpected get result:", v, ok)
		return
	}
}
