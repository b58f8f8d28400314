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
	"testing"
)

func parseOne(t *testing.T, input string) *ASTNode {
	program, err := Parse("test", input)
	if err != nil {
		t.Fatalf("Parse of %q failed: %v", input, err)
	}

	if len(program) != 1 {
		t.Fatalf("Expected one expression for %q, got %v", input, len(program))
	}

	return program[0]
}

func TestLexerBasics(t *testing.T) {
	tokens := LexToList("test", `x : 1 + 2.5`)

	ids := []LexTokenID{TokenNAME, TokenCOLON, TokenINT, TokenVERB, TokenFLOAT, TokenEOF}

	if len(tokens) != len(ids) {
		t.Error("Unexpected token count:", tokens)
		return
	}

	for i, id := range ids {
		if tokens[i].ID != id {
			t.Error("Unexpected token at", i, ":", tokens[i])
			return
		}
	}

	if tokens[0].Lline != 1 || tokens[0].Lpos != 1 {
		t.Error("Unexpected token position:", tokens[0])
		return
	}

	// Comments are skipped

	tokens = LexToList("test", "/ a comment line\n1")
	if len(tokens) != 3 || tokens[1].ID != TokenINT {
		t.Error("Comment should be skipped:", tokens)
		return
	}

	// Strings, symbols, system verbs

	tokens = LexToList("test", `"he said ""hi""" `+"`sym \\db 1")
	if tokens[0].ID != TokenSTRING || tokens[0].Val != `he said "hi"` {
		t.Error("Unexpected string token:", tokens[0])
		return
	}
	if tokens[1].ID != TokenSYMBOL || tokens[1].Val != "sym" {
		t.Error("Unexpected symbol token:", tokens[1])
		return
	}
	if tokens[2].ID != TokenSYSVERB || tokens[2].Val != "db" {
		t.Error("Unexpected sysverb token:", tokens[2])
		return
	}

	// Unknown system verbs are lexical errors

	tokens = LexToList("test", "\\nosuch")
	if tokens[0].ID != TokenError {
		t.Error("Unknown system verb should be an error:", tokens)
		return
	}

	// Dates and times

	tokens = LexToList("test", "2024.03.01 12:30:00")
	if tokens[0].ID != TokenDATE || tokens[1].ID != TokenTIME {
		t.Error("Unexpected date/time tokens:", tokens)
		return
	}
}

func TestParseAtomsAndStrands(t *testing.T) {
	node := parseOne(t, "42")
	if node.Name != NodeINT || node.IntVal != 42 {
		t.Error("Unexpected node:", node)
		return
	}

	node = parseOne(t, "2 3 4")
	if node.Name != NodeLIST || len(node.Children) != 3 ||
		node.Children[2].IntVal != 4 {
		t.Error("Unexpected strand:", node)
		return
	}

	node = parseOne(t, "`a")
	if node.Name != NodeSYMBOL || node.StrVal != "a" {
		t.Error("Unexpected symbol:", node)
		return
	}

	node = parseOne(t, "'c'")
	if node.Name != NodeCHAR || node.StrVal != "c" {
		t.Error("Unexpected char:", node)
		return
	}

	if node := parseOne(t, "2024.03.01"); node.Name != NodeDATE || node.IntVal == 0 {
		t.Error("Unexpected date:", node)
		return
	}
}

func TestParseVerbs(t *testing.T) {

	// Dyadic with a strand rhs

	node := parseOne(t, "1 + 2 3 4")
	if node.Name != NodeDYAD || node.Dyad != DyadPlus || node.Adverb != AdNone {
		t.Error("Unexpected dyad:", node)
		return
	}

	if node.Children[0].Name != NodeINT || node.Children[1].Name != NodeLIST {
		t.Error("Unexpected dyad operands:", node)
		return
	}

	// Monadic prefix

	node = parseOne(t, "#1 2 3")
	if node.Name != NodeMONAD || node.Monad != MonadCount {
		t.Error("Unexpected monad:", node)
		return
	}

	// Right to left evaluation: 2*3+4 is 2*(3+4)

	node = parseOne(t, "2 * 3 + 4")
	if node.Name != NodeDYAD || node.Dyad != DyadTimes {
		t.Error("Unexpected outer dyad:", node)
		return
	}

	if rhs := node.Children[1]; rhs.Name != NodeDYAD || rhs.Dyad != DyadPlus {
		t.Error("Expression should nest to the right:", node)
		return
	}

	// Adverbs

	node = parseOne(t, "+/ 1 2 3")
	if node.Name != NodeMONAD || node.Monad != MonadFlip || node.Adverb != AdOver {
		t.Error("Unexpected adverb monad:", node)
		return
	}

	node = parseOne(t, "1 +\\: 2 3")
	if node.Name != NodeDYAD || node.Adverb != AdEachLeft {
		t.Error("Unexpected adverb dyad:", node)
		return
	}
}

func TestParseAssignAndCall(t *testing.T) {
	node := parseOne(t, "a : 1 + 2")
	if node.Name != NodeASSIGN || node.StrVal != "a" ||
		node.Children[0].Name != NodeDYAD {
		t.Error("Unexpected assignment:", node)
		return
	}

	node = parseOne(t, "f[1; 2; 3]")
	if node.Name != NodeCALL || len(node.Children) != 4 ||
		node.Children[0].StrVal != "f" {
		t.Error("Unexpected call:", node)
		return
	}

	// Juxtaposition applies a name

	node = parseOne(t, "f 10")
	if node.Name != NodeCALL || len(node.Children) != 2 ||
		node.Children[1].IntVal != 10 {
		t.Error("Unexpected juxtaposition call:", node)
		return
	}
}

func TestParseLambdaAndCond(t *testing.T) {
	node := parseOne(t, "f : [n] $[n = 0; 0; f[n - 1]]")
	if node.Name != NodeASSIGN || node.StrVal != "f" {
		t.Error("Unexpected assignment:", node)
		return
	}

	lambda := node.Children[0]
	if lambda.Name != NodeLAMBDA || len(lambda.Args) != 1 || lambda.Args[0] != "n" {
		t.Error("Unexpected lambda:", lambda)
		return
	}

	cond := lambda.Children[0]
	if cond.Name != NodeCOND || len(cond.Children) != 3 {
		t.Error("Unexpected conditional:", cond)
		return
	}

	if cond.Children[0].Name != NodeDYAD || cond.Children[0].Dyad != DyadEqual {
		t.Error("Unexpected condition:", cond.Children[0])
		return
	}

	// Lambda applied directly

	node = parseOne(t, "[a;b] a + b")
	if node.Name != NodeLAMBDA || len(node.Args) != 2 {
		t.Error("Unexpected lambda:", node)
		return
	}

	// Multi-arm conditional chains like else-if

	node = parseOne(t, "$[0; 1; 2; 3; 4]")
	if node.Name != NodeCOND || len(node.Children) != 5 {
		t.Error("Unexpected conditional:", node)
		return
	}
}

func TestParseListsAndMaps(t *testing.T) {
	node := parseOne(t, "(1 + 1; 2; 3)")
	if node.Name != NodeLIST || len(node.Children) != 3 {
		t.Error("Unexpected list:", node)
		return
	}

	// Space separated names form a list inside parens

	node = parseOne(t, "(a b c)")
	if node.Name != NodeLIST || len(node.Children) != 3 ||
		node.Children[1].Name != NodeNAME {
		t.Error("Unexpected name list:", node)
		return
	}

	// A single parenthesized expression is a grouping

	node = parseOne(t, "(1 + 2) * 3")
	if node.Name != NodeDYAD || node.Dyad != DyadTimes ||
		node.Children[0].Name != NodeDYAD {
		t.Error("Unexpected grouping:", node)
		return
	}

	node = parseOne(t, "[k1:1 k2:2 3]")
	if node.Name != NodeMAP || len(node.Children) != 4 {
		t.Error("Unexpected map:", node)
		return
	}

	if node.Children[0].StrVal != "k1" || node.Children[3].Name != NodeLIST {
		t.Error("Unexpected map content:", node)
		return
	}
}

func TestParseSysVerbs(t *testing.T) {
	node := parseOne(t, "\\v")
	if node.Name != NodeSYS || node.Sys != SysVars || len(node.Children) != 0 {
		t.Error("Unexpected sys node:", node)
		return
	}

	node = parseOne(t, "\\l \"lib.mk\"")
	if node.Name != NodeSYS || node.Sys != SysImport ||
		node.Children[0].StrVal != "lib.mk" {
		t.Error("Unexpected sys node:", node)
		return
	}

	node = parseOne(t, "\\t f[100]")
	if node.Name != NodeSYS || node.Sys != SysTimeit {
		t.Error("Unexpected sys node:", node)
		return
	}

	node = parseOne(t, "\\\\")
	if node.Name != NodeSYS || node.Sys != SysExit {
		t.Error("Unexpected sys node:", node)
		return
	}
}

func TestParseErrors(t *testing.T) {

	// Parser totality: every input returns a program or a positioned error

	for _, input := range []string{
		"1 +",
		"(1; 2",
		"f[1; 2",
		"[k1:]",
		"$[1; 2]",
		"1 2 ) 3",
		")",
		"\\nosuch",
		`"unterminated`,
	} {
		_, err := Parse("test", input)
		if err == nil {
			t.Errorf("Input %q should not parse", input)
			return
		}

		perr, ok := err.(*Error)
		if !ok {
			t.Errorf("Input %q should yield a parser error, got %v", input, err)
			return
		}

		if perr.Line == 0 {
			t.Errorf("Error for %q should carry a position: %v", input, perr)
			return
		}
	}

	// Multiple expressions separated by ; and newlines

	program, err := Parse("test", "1 + 1; 2 + 2\n3 + 3")
	if err != nil || len(program) != 3 {
		t.Error("Unexpected program:", program, err)
		return
	}

	// Deep nesting is detected

	deep := ""
	for i := 0; i < maxNestingLevel+10; i++ {
		deep += "("
	}
	deep += "1"

	_, err = Parse("test", deep)
	if perr, ok := err.(*Error); !ok || perr.Type != ErrRecursionLimit {
		t.Error("Expected recursion limit error, got:", err)
		return
	}
}

func TestWireRoundTrip(t *testing.T) {
	program, err := Parse("test", `f : [n] $[n = 0; 0; f[n - 1]]; f[10]; "s"; `+
		"`sym; 1.5; (1;2); [k:1]; +/ 1 2 3; \\v")
	if err != nil {
		t.Error(err)
		return
	}

	blobs, err := EncodeProgram(program)
	if err != nil || len(blobs) != len(program) {
		t.Error("Unexpected encode result:", len(blobs), err)
		return
	}

	for i, blob := range blobs {
		node, err := DecodeNode(blob)
		if err != nil {
			t.Error(err)
			return
		}

		// Spans are not part of the wire format; the indented string
		// form compares structure and payloads

		if node.String() != program[i].String() {
			t.Error("Unexpected round trip result:\n", node, "\n", program[i])
			return
		}
	}

	// Corrupted blobs are detected

	if _, err := DecodeNode([]byte{255}); err != ErrDeserialization {
		t.Error("Unknown tag should not decode:", err)
		return
	}

	if _, err := DecodeNode(blobs[0][:len(blobs[0])-1]); err != ErrDeserialization {
		t.Error("Truncated blob should not decode:", err)
		return
	}
}
