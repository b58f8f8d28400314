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
	"strconv"
	"strings"
	"time"
)

/*
maxNestingLevel is the maximum depth of nested expressions.
*/
const maxNestingLevel = 500

/*
parser data structure
*/
type parser struct {
	name    string     // Name to identify the input
	tokens  []LexToken // Input tokens
	pos     int        // Current token pointer
	lastEnd int        // End position of the last consumed token
	depth   int        // Current nesting level
}

/*
Parse parses a given input and returns the program as a sequence of AST
nodes. For every input either a program or an error carrying a position
within the input is returned.
*/
func Parse(name string, input string) (Program, error) {
	tokens := LexToList(name, input)

	p := &parser{name: name, tokens: tokens}

	var program Program

	for {
		p.skipTerms()

		if p.cur().ID == TokenEOF {
			break
		}

		node, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}

		program = append(program, node)

		tok := p.cur()

		if tok.ID != TokenEOF && tok.ID != TokenTERM && tok.ID != TokenSEMI {
			return nil, p.newParserError(ErrUnexpectedToken, tok.String(), tok)
		}
	}

	return program, nil
}

// Token handling
// ==============

/*
cur returns the current token without advancing.
*/
func (p *parser) cur() LexToken {
	if p.pos >= len(p.tokens) {
		return LexToken{ID: TokenEOF}
	}

	return p.tokens[p.pos]
}

/*
peek returns the token at a given offset without advancing.
*/
func (p *parser) peek(off int) LexToken {
	if p.pos+off >= len(p.tokens) {
		return LexToken{ID: TokenEOF}
	}

	return p.tokens[p.pos+off]
}

/*
advance consumes the current token.
*/
func (p *parser) advance() LexToken {
	tok := p.cur()

	if tok.ID != TokenEOF {
		p.lastEnd = tok.Pos + len(tok.Val)
		p.pos++
	}

	return tok
}

/*
skipTerms skips expression separators.
*/
func (p *parser) skipTerms() {
	for p.cur().ID == TokenTERM || p.cur().ID == TokenSEMI {
		p.advance()
	}
}

/*
span builds the span of a node which started at a given token.
*/
func (p *parser) span(start LexToken) Span {
	return Span{Start: start.Pos, End: p.lastEnd, Line: start.Lline, Pos: start.Lpos}
}

/*
enter increases the nesting level.
*/
func (p *parser) enter(tok LexToken) error {
	p.depth++

	if p.depth > maxNestingLevel {
		return p.newParserError(ErrRecursionLimit,
			fmt.Sprintf("Max nesting level is %v", maxNestingLevel), tok)
	}

	return nil
}

/*
atomTokens lists the token types which form atoms (and strands).
*/
var atomTokens = map[LexTokenID]bool{
	TokenINT: true, TokenFLOAT: true, TokenDATE: true, TokenTIME: true,
	TokenSTRING: true, TokenSYMBOL: true, TokenCHAR: true,
}

/*
operandStart checks if a token can start an operand.
*/
func operandStart(tok LexToken) bool {
	return atomTokens[tok.ID] || tok.ID == TokenNAME ||
		tok.ID == TokenLPAREN || tok.ID == TokenLBRACK
}

// Parsing
// =======

/*
parseExpr parses a single expression. Expressions evaluate right to left.
If the inList flag is set juxtaposition is not interpreted as application
(items in a list are separate).
*/
func (p *parser) parseExpr(inList bool) (*ASTNode, error) {
	if err := p.enter(p.cur()); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	tok := p.cur()

	switch tok.ID {

	case TokenError:
		return nil, p.newParserError(ErrLexicalError, tok.Val, tok)

	case TokenEOF, TokenTERM, TokenSEMI, TokenRPAREN, TokenRBRACK:
		return nil, p.newParserError(ErrUnexpectedEnd, "Expression expected", tok)

	case TokenNAME:

		// Assignment binds a name to a value

		if p.peek(1).ID == TokenCOLON {
			p.advance()
			p.advance()

			expr, err := p.parseExpr(inList)
			if err != nil {
				return nil, err
			}

			return &ASTNode{Name: NodeASSIGN, Span: p.span(tok), StrVal: tok.Val,
				Children: []*ASTNode{expr}}, nil
		}

	case TokenVERB:

		// The conditional $[c;t;f] and prefix (monadic) verbs

		if tok.Val == "$" && p.peek(1).ID == TokenLBRACK {
			return p.parseCond()
		}

		p.advance()
		adverb := p.maybeAdverb()

		expr, err := p.parseExpr(inList)
		if err != nil {
			return nil, err
		}

		return &ASTNode{Name: NodeMONAD, Span: p.span(tok),
			Monad: monadicVerbs[tok.Val], Adverb: adverb,
			Children: []*ASTNode{expr}}, nil

	case TokenSYSVERB:
		p.advance()

		node := &ASTNode{Name: NodeSYS, Sys: sysVerbs[tok.Val]}

		if operandStart(p.cur()) || p.cur().ID == TokenVERB {
			arg, err := p.parseExpr(inList)
			if err != nil {
				return nil, err
			}
			node.Children = []*ASTNode{arg}
		}

		node.Span = p.span(tok)

		return node, nil
	}

	operand, err := p.parseOperand(inList)
	if err != nil {
		return nil, err
	}

	return p.parsePhraseRest(operand, tok, inList)
}

/*
parsePhraseRest parses what follows a left operand: a dyadic verb
application, a juxtaposition application or nothing.
*/
func (p *parser) parsePhraseRest(lhs *ASTNode, start LexToken, inList bool) (*ASTNode, error) {
	tok := p.cur()

	if tok.ID == TokenVERB {
		p.advance()
		adverb := p.maybeAdverb()

		rhs, err := p.parseExpr(inList)
		if err != nil {
			return nil, err
		}

		return &ASTNode{Name: NodeDYAD, Span: p.span(start),
			Dyad: dyadicVerbs[tok.Val], Adverb: adverb,
			Children: []*ASTNode{lhs, rhs}}, nil
	}

	// An adverb after a function-valued operand applies the adverb
	// native to the function and the rest of the phrase

	if tok.ID == TokenADVERB &&
		(lhs.Name == NodeNAME || lhs.Name == NodeCALL || lhs.Name == NodeLAMBDA) {

		p.advance()

		rhs, err := p.parseExpr(inList)
		if err != nil {
			return nil, err
		}

		return &ASTNode{Name: NodeCALL, Span: p.span(start),
			Children: []*ASTNode{
				{Name: NodeNAME, Span: p.span(tok), StrVal: tok.Val},
				lhs, rhs}}, nil
	}

	// Juxtaposition applies a named function to the rest of the phrase

	if !inList && operandStart(tok) &&
		(lhs.Name == NodeNAME || lhs.Name == NodeCALL || lhs.Name == NodeLAMBDA) {

		arg, err := p.parseExpr(inList)
		if err != nil {
			return nil, err
		}

		return &ASTNode{Name: NodeCALL, Span: p.span(start),
			Children: []*ASTNode{lhs, arg}}, nil
	}

	// Inside a list a following operand starts the next item

	if operandStart(tok) && !inList {
		return nil, p.newParserError(ErrUnexpectedToken, tok.String(), tok)
	}

	return lhs, nil
}

/*
parseOperand parses an atom, a strand, a name (with call brackets), a
parenthesized list or a bracket construct.
*/
func (p *parser) parseOperand(inList bool) (*ASTNode, error) {
	tok := p.cur()

	if atomTokens[tok.ID] {
		return p.parseStrand()
	}

	switch tok.ID {

	case TokenNAME:
		p.advance()

		var node = &ASTNode{Name: NodeNAME, Span: p.span(tok), StrVal: tok.Val}

		return p.parseCallBrackets(node, tok)

	case TokenLPAREN:
		return p.parseParen(tok)

	case TokenLBRACK:
		return p.parseBracket(tok)
	}

	return nil, p.newParserError(ErrUnexpectedToken, tok.String(), tok)
}

/*
parseCallBrackets parses chained call brackets after a callable operand.
*/
func (p *parser) parseCallBrackets(node *ASTNode, start LexToken) (*ASTNode, error) {
	for p.cur().ID == TokenLBRACK {
		p.advance()

		call := &ASTNode{Name: NodeCALL, Children: []*ASTNode{node}}

		for p.cur().ID != TokenRBRACK {
			arg, err := p.parseExpr(false)
			if err != nil {
				return nil, err
			}

			call.Children = append(call.Children, arg)

			if p.cur().ID == TokenSEMI {
				p.advance()
			}
		}

		if tok := p.advance(); tok.ID != TokenRBRACK {
			return nil, p.newParserError(ErrUnexpectedEnd, "Missing ]", tok)
		}

		call.Span = p.span(start)
		node = call
	}

	return node, nil
}

/*
parseStrand parses one or more adjacent atoms. Multiple adjacent atoms
form a list.
*/
func (p *parser) parseStrand() (*ASTNode, error) {
	start := p.cur()

	var items []*ASTNode

	for atomTokens[p.cur().ID] {
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}

		items = append(items, atom)
	}

	if len(items) == 1 {
		return items[0], nil
	}

	return &ASTNode{Name: NodeLIST, Span: p.span(start), Children: items}, nil
}

/*
parseAtom parses a single atom token.
*/
func (p *parser) parseAtom() (*ASTNode, error) {
	tok := p.advance()

	node := &ASTNode{Span: p.span(tok)}

	switch tok.ID {

	case TokenINT:
		v, err := strconv.ParseInt(tok.Val, 10, 64)
		if err != nil {
			return nil, p.newParserError(ErrBadNumber, tok.Val, tok)
		}
		node.Name = NodeINT
		node.IntVal = v

	case TokenFLOAT:
		v, err := strconv.ParseFloat(tok.Val, 64)
		if err != nil {
			return nil, p.newParserError(ErrBadNumber, tok.Val, tok)
		}
		node.Name = NodeFLOAT
		node.FloatVal = v

	case TokenDATE:
		v, err := parseDate(tok.Val)
		if err != nil {
			return nil, p.newParserError(ErrBadNumber, tok.Val, tok)
		}
		node.Name = NodeDATE
		node.IntVal = v

	case TokenTIME:
		v, err := parseTime(tok.Val)
		if err != nil {
			return nil, p.newParserError(ErrBadNumber, tok.Val, tok)
		}
		node.Name = NodeTIME
		node.IntVal = v

	case TokenSTRING:
		node.Name = NodeSTR
		node.StrVal = tok.Val

	case TokenSYMBOL:
		node.Name = NodeSYMBOL
		node.StrVal = tok.Val

	case TokenCHAR:
		node.Name = NodeCHAR
		node.StrVal = tok.Val

	default:
		return nil, p.newParserError(ErrUnexpectedToken, tok.String(), tok)
	}

	return node, nil
}

/*
parseParen parses a parenthesized construct: a grouping (single
expression) or a list (several items separated by ; or whitespace).
*/
func (p *parser) parseParen(start LexToken) (*ASTNode, error) {
	p.advance() // Consume (

	var items []*ASTNode

	for p.cur().ID != TokenRPAREN {

		if p.cur().ID == TokenEOF {
			return nil, p.newParserError(ErrUnexpectedEnd, "Missing )", p.cur())
		}

		item, err := p.parseExpr(true)
		if err != nil {
			return nil, err
		}

		items = append(items, item)

		if p.cur().ID == TokenSEMI || p.cur().ID == TokenTERM {
			p.advance()
		}
	}

	p.advance() // Consume )

	// A single parenthesized expression is a grouping

	if len(items) == 1 {
		return items[0], nil
	}

	return &ASTNode{Name: NodeLIST, Span: p.span(start), Children: items}, nil
}

/*
parseBracket parses a bracket construct: a map [k1:v1 k2:v2] or a lambda
[args] body. Tables are maps of columns produced by flipping a map.
*/
func (p *parser) parseBracket(start LexToken) (*ASTNode, error) {

	// Decide between map and lambda with a token lookahead: a map has
	// a name followed by a colon right after the opening bracket

	if p.peek(1).ID == TokenNAME && p.peek(2).ID == TokenCOLON {
		return p.parseMap(start)
	}

	return p.parseLambda(start)
}

/*
parseMap parses a map literal. The children of the returned node
alternate between keys and values.
*/
func (p *parser) parseMap(start LexToken) (*ASTNode, error) {
	p.advance() // Consume [

	node := &ASTNode{Name: NodeMAP}

	for p.cur().ID != TokenRBRACK {

		key := p.advance()
		if key.ID != TokenNAME {
			return nil, p.newParserError(ErrUnexpectedToken, key.String(), key)
		}

		if colon := p.advance(); colon.ID != TokenCOLON {
			return nil, p.newParserError(ErrUnexpectedToken, colon.String(), colon)
		}

		val, err := p.parseExpr(true)
		if err != nil {
			return nil, err
		}

		node.Children = append(node.Children,
			&ASTNode{Name: NodeSYMBOL, Span: p.span(key), StrVal: key.Val}, val)

		if p.cur().ID == TokenSEMI {
			p.advance()
		}
	}

	p.advance() // Consume ]

	node.Span = p.span(start)

	return node, nil
}

/*
parseLambda parses a function literal [args] body. A function without
explicit arguments uses the implicit arguments x, y and z.
*/
func (p *parser) parseLambda(start LexToken) (*ASTNode, error) {
	p.advance() // Consume [

	var args []string

	for p.cur().ID != TokenRBRACK {

		arg := p.advance()
		if arg.ID != TokenNAME {
			return nil, p.newParserError(ErrUnexpectedToken, arg.String(), arg)
		}

		args = append(args, arg.Val)

		if p.cur().ID == TokenSEMI {
			p.advance()
		}
	}

	p.advance() // Consume ]

	body, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}

	node := &ASTNode{Name: NodeLAMBDA, Args: args, Children: []*ASTNode{body}}
	node.Span = p.span(start)

	return p.parseCallBrackets(node, start)
}

/*
parseCond parses the conditional $[cond;then;else]. Additional
condition / expression pairs chain like an else-if.
*/
func (p *parser) parseCond() (*ASTNode, error) {
	start := p.advance() // Consume $
	p.advance()          // Consume [

	node := &ASTNode{Name: NodeCOND}

	for p.cur().ID != TokenRBRACK {

		if p.cur().ID == TokenEOF {
			return nil, p.newParserError(ErrUnexpectedEnd, "Missing ]", p.cur())
		}

		arm, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}

		node.Children = append(node.Children, arm)

		if p.cur().ID == TokenSEMI {
			p.advance()
		}
	}

	p.advance() // Consume ]

	if len(node.Children) < 3 {
		return nil, p.newParserError(ErrUnexpectedEnd,
			"Conditional needs condition, then and else", start)
	}

	node.Span = p.span(start)

	return node, nil
}

/*
maybeAdverb consumes an adverb token if one follows.
*/
func (p *parser) maybeAdverb() AdVerb {
	if p.cur().ID == TokenADVERB {
		tok := p.advance()
		return adverbs[tok.Val]
	}

	return AdNone
}

/*
parseDate converts a date literal YYYY.MM.DD to nanoseconds since the
epoch.
*/
func parseDate(val string) (int64, error) {
	parts := strings.Split(val, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid date %q", val)
	}

	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])

	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid date %q", val)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).UnixNano(), nil
}

/*
parseTime converts a time literal HH:MM:SS (with optional fraction) to
nanoseconds since midnight.
*/
func parseTime(val string) (int64, error) {
	parts := strings.Split(val, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", val)
	}

	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)

	if err1 != nil || err2 != nil || err3 != nil || hour > 23 || min > 59 || sec >= 60 {
		return 0, fmt.Errorf("invalid time %q", val)
	}

	return int64(hour)*int64(time.Hour) + int64(min)*int64(time.Minute) +
		int64(sec*float64(time.Second)), nil
}
