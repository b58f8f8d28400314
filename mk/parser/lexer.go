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
	"unicode"
	"unicode/utf8"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/stringutil"
)

/*
LexToken represents a token which is returned by the lexer.
*/
type LexToken struct {
	ID    LexTokenID // Token kind
	Pos   int        // Starting position (in bytes)
	Val   string     // Token value
	Lline int        // Line in the input this token appears
	Lpos  int        // Position in the input line this token appears
}

/*
PosString returns the position of this token in the original input as a
string.
*/
func (t LexToken) PosString() string {
	return fmt.Sprintf("Line %v, Pos %v", t.Lline, t.Lpos)
}

/*
String returns a string representation of a token.
*/
func (t LexToken) String() string {

	switch t.ID {

	case TokenEOF:
		return "EOF"

	case TokenTERM:
		return "TERM"

	case TokenError:
		return fmt.Sprintf("Error: %s (%s)", t.Val, t.PosString())
	}

	if len(t.Val) > 10 {
		return fmt.Sprintf("%.10q...", t.Val)
	}

	return fmt.Sprintf("%q", t.Val)
}

// Lexer
// =====

/*
RuneEOF is a special rune which represents the end of the input
*/
const RuneEOF = -1

/*
Function which represents the current state of the lexer and returns the
next state
*/
type lexFunc func(*lexer) lexFunc

/*
Lexer data structure
*/
type lexer struct {
	name      string        // Name to identify the input
	input     string        // Input string of the lexer
	pos       int           // Current rune pointer
	line      int           // Current line pointer
	lastnl    int           // Last newline position
	width     int           // Width of last rune
	start     int           // Start position of the current read token
	linestart bool          // Flag if no token was read on the current line yet
	tokens    chan LexToken // Channel for lexer output
}

/*
Lex lexes a given input. Returns a channel which contains tokens.
*/
func Lex(name string, input string) chan LexToken {
	l := &lexer{name, input, 0, 0, 0, 0, 0, true, make(chan LexToken)}
	go l.run()
	return l.tokens
}

/*
LexToList lexes a given input. Returns a list of tokens.
*/
func LexToList(name string, input string) []LexToken {
	var tokens []LexToken

	for t := range Lex(name, input) {
		tokens = append(tokens, t)
	}

	return tokens
}

/*
Main loop of the lexer.
*/
func (l *lexer) run() {

	for state := lexToken; state != nil; {
		state = state(l)
	}

	close(l.tokens)
}

/*
next returns the next rune in the input and advances the current rune
pointer if the peek flag is not set.
*/
func (l *lexer) next(peek bool) rune {

	if l.pos >= len(l.input) {
		return RuneEOF
	}

	r, w := utf8.DecodeRuneInString(l.input[l.pos:])

	if !peek {
		l.width = w
		l.pos += l.width
	}

	return r
}

/*
peekAt returns the rune at a given offset from the current position
without advancing.
*/
func (l *lexer) peekAt(off int) rune {
	pos := l.pos

	for i := 0; i < off; i++ {
		if pos >= len(l.input) {
			return RuneEOF
		}
		_, w := utf8.DecodeRuneInString(l.input[pos:])
		pos += w
	}

	if pos >= len(l.input) {
		return RuneEOF
	}

	r, _ := utf8.DecodeRuneInString(l.input[pos:])

	return r
}

/*
backup sets the pointer one rune back. Can only be called once per next
call.
*/
func (l *lexer) backup() {
	errorutil.AssertTrue(l.width != -1, "Can only backup once per next call")

	l.pos -= l.width
	l.width = -1
}

/*
startNew starts a new token.
*/
func (l *lexer) startNew() {
	l.start = l.pos
}

/*
emitToken passes a token back to the client.
*/
func (l *lexer) emitToken(t LexTokenID) {
	l.emitTokenAndValue(t, l.input[l.start:l.pos])
}

/*
emitTokenAndValue passes a token with a given value back to the client.
*/
func (l *lexer) emitTokenAndValue(t LexTokenID, val string) {
	if l.tokens != nil {
		l.tokens <- LexToken{t, l.start, val, l.line + 1, l.start - l.lastnl + 1}
	}

	if t != TokenTERM {
		l.linestart = false
	}
}

/*
emitError passes an error token back to the client.
*/
func (l *lexer) emitError(msg string) {
	if l.tokens != nil {
		l.tokens <- LexToken{TokenError, l.start, msg, l.line + 1, l.start - l.lastnl + 1}
	}
}

// State functions
// ===============

/*
lexToken is the main entry function for the lexer.
*/
func lexToken(l *lexer) lexFunc {

	// Skip spaces and tabs; newlines are significant and emit TERM

	for {
		r := l.next(false)

		if r == RuneEOF {
			l.startNew()
			l.emitTokenAndValue(TokenEOF, "")
			return nil
		}

		if r == '\n' {
			l.start = l.pos - 1
			l.emitTokenAndValue(TokenTERM, "")
			l.line++
			l.lastnl = l.pos
			l.linestart = true
			continue
		}

		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}

		l.backup()
		break
	}

	l.startNew()

	r := l.next(true)

	switch {

	case r == '/' && l.linestart:

		// A slash starting a line is a comment

		return skipRestOfLine

	case unicode.IsDigit(r):
		return lexNumber

	case r == '"':
		return lexString

	case r == '`':
		return lexSymbol

	case r == '\'':
		return lexQuoteOrAdverb

	case r == '\\':
		return lexBackslash

	case r == '/':
		return lexSlashAdverb

	case unicode.IsLetter(r):
		return lexName
	}

	return lexPunctuation
}

/*
skipRestOfLine skips all characters until the next newline character.
*/
func skipRestOfLine(l *lexer) lexFunc {
	r := l.next(false)

	for r != '\n' && r != RuneEOF {
		r = l.next(false)
	}

	if r != RuneEOF {
		l.backup()
	}

	return lexToken
}

/*
lexNumber lexes an integer, a float, a date (YYYY.MM.DD) or a time
(HH:MM:SS with optional fraction).
*/
func lexNumber(l *lexer) lexFunc {
	dots := 0
	colons := 0

	r := l.next(false)

	for {
		if unicode.IsDigit(r) {
			r = l.next(false)
			continue
		}

		if r == '.' && unicode.IsDigit(l.next(true)) {

			// A second dot after a colon is invalid (a time fraction
			// has only one dot which is counted here as well)

			dots++
			r = l.next(false)
			continue
		}

		if r == ':' && unicode.IsDigit(l.next(true)) {
			colons++
			r = l.next(false)
			continue
		}

		break
	}

	if r != RuneEOF {
		l.backup()
	}

	val := l.input[l.start:l.pos]

	switch {

	case colons == 2 && dots <= 1:
		l.emitToken(TokenTIME)

	case colons == 0 && dots == 2:
		l.emitToken(TokenDATE)

	case colons == 0 && dots == 1:
		l.emitToken(TokenFLOAT)

	case colons == 0 && dots == 0:
		l.emitToken(TokenINT)

	default:
		l.emitError(fmt.Sprintf("Invalid number %q", val))
		return nil
	}

	return lexToken
}

/*
lexString lexes a quoted string. A doubled quote is an escaped quote.
*/
func lexString(l *lexer) lexFunc {
	l.next(false) // Consume the opening quote

	var buf strings.Builder

	for {
		r := l.next(false)

		if r == RuneEOF {
			l.emitError("Unexpected end while reading string")
			return nil
		}

		if r == '\n' {
			l.line++
			l.lastnl = l.pos
		}

		if r == '"' {
			if l.next(true) == '"' {
				l.next(false)
				buf.WriteRune('"')
				continue
			}
			break
		}

		buf.WriteRune(r)
	}

	l.emitTokenAndValue(TokenSTRING, buf.String())

	return lexToken
}

/*
lexSymbol lexes a backtick-prefixed symbol.
*/
func lexSymbol(l *lexer) lexFunc {
	l.next(false) // Consume the backtick

	l.startNew()
	l.start--

	for {
		r := l.next(false)

		if !nameRune(r) {
			if r != RuneEOF {
				l.backup()
			}
			break
		}
	}

	l.emitTokenAndValue(TokenSYMBOL, l.input[l.start+1:l.pos])

	return lexToken
}

/*
lexQuoteOrAdverb decides between a character literal 'c', the each-prior
adverb ': and the each adverb '.
*/
func lexQuoteOrAdverb(l *lexer) lexFunc {
	l.next(false) // Consume the quote

	if l.next(true) == ':' {
		l.next(false)
		l.emitToken(TokenADVERB)
		return lexToken
	}

	if r := l.next(true); r != RuneEOF && l.peekAt(1) == '\'' {
		l.next(false)
		l.next(false)
		l.emitTokenAndValue(TokenCHAR, string(r))
		return lexToken
	}

	l.emitTokenAndValue(TokenADVERB, "'")

	return lexToken
}

/*
lexBackslash decides between a system verb (\db ... \\), the each-left
adverb \: and the scan adverb \.
*/
func lexBackslash(l *lexer) lexFunc {
	l.next(false) // Consume the backslash

	r := l.next(true)

	if r == ':' {
		l.next(false)
		l.emitToken(TokenADVERB)
		return lexToken
	}

	if r == '\\' {
		l.next(false)
		l.emitTokenAndValue(TokenSYSVERB, "\\")
		return lexToken
	}

	if unicode.IsLetter(r) {
		nameStart := l.pos

		for unicode.IsLetter(l.next(true)) {
			l.next(false)
		}

		name := l.input[nameStart:l.pos]

		if _, ok := sysVerbs[name]; !ok {
			l.emitError(fmt.Sprintf("Invalid system verb %q", name))
			return nil
		}

		l.emitTokenAndValue(TokenSYSVERB, name)

		return lexToken
	}

	l.emitTokenAndValue(TokenADVERB, "\\")

	return lexToken
}

/*
lexSlashAdverb lexes the over adverb / or the each-right adverb /:.
*/
func lexSlashAdverb(l *lexer) lexFunc {
	l.next(false) // Consume the slash

	if l.next(true) == ':' {
		l.next(false)
	}

	l.emitToken(TokenADVERB)

	return lexToken
}

/*
lexName lexes a variable or function name.
*/
func lexName(l *lexer) lexFunc {
	for {
		r := l.next(false)

		if !nameRune(r) {
			if r != RuneEOF {
				l.backup()
			}
			break
		}
	}

	l.emitToken(TokenNAME)

	return lexToken
}

/*
nameRune checks if a rune can be part of a name or symbol: alphanumeric
characters plus the dot namespace separator.
*/
func nameRune(r rune) bool {
	if r == RuneEOF {
		return false
	}

	return stringutil.IsAlphaNumeric(string(r)) || r == '.'
}

/*
lexPunctuation lexes brackets, separators and verb glyphs.
*/
func lexPunctuation(l *lexer) lexFunc {
	r := l.next(false)

	switch r {

	case '(':
		l.emitToken(TokenLPAREN)

	case ')':
		l.emitToken(TokenRPAREN)

	case '[':
		l.emitToken(TokenLBRACK)

	case ']':
		l.emitToken(TokenRBRACK)

	case ';':
		l.emitToken(TokenSEMI)

	case ':':
		l.emitToken(TokenCOLON)

	default:
		if strings.ContainsRune(verbGlyphs, r) {
			l.emitToken(TokenVERB)
			break
		}

		l.emitError(fmt.Sprintf("Unexpected character %q", r))
		return nil
	}

	return lexToken
}
