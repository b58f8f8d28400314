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
	"fmt"

	"devt.de/krotik/mpk/mk/parser"
)

/*
OpCode is a bytecode operation.
*/
type OpCode byte

/*
Available opcodes

Payload meanings:

	VOID                   push the unit value
	PUSH s                 push the global bound to symbol s
	PUSHCONST i            push constant i
	LOOKUP                 unresolved name reference (removed by the
	                       resolution pass, never executed)
	IF off                 pop; if falsy jump forward off instructions
	JMP off                jump forward off instructions
	TCOJMP                 jump to instruction 0 of the current frame
	                       (payload unused)
	FUNC n                 pop callee and n arguments, call
	TAILCALL n             like FUNC but reuses the current frame
	CALLGLOBAL s           call the global s; arity is carried by the
	                       following PASS instruction
	CALLGLOBALTAIL s       tail variant of CALLGLOBAL
	PASS n                 no-op carrying an arity
	SCLOSURE i             push a closure built from lambda constant i
	ECLOSURE n             closure creation end marker (no-op)
	READUPVALUE i          push upvalue i of the current closure
	SETUPVALUE i           write top of stack into upvalue i
	READLOCAL i            push frame slot i
	SETLOCAL i             write top of stack into frame slot i
	CGLOCALCONST s         fused call of global s with a local and a
	                       constant; operands follow as READLOCAL and
	                       PUSHCONST instructions
	BIND s                 bind top of stack to global s (value stays)
	SDEF s                 start of a global definition (no-op marker)
	EDEF                   end of a global definition (no-op marker)
	SET s                  bind top of stack to global s from within a
	                       function (value stays)
	STRUCT n               pop n values and push them as a list
	NDEFS n                pop 2n values and push them as a map
	EVAL                   pop a string, evaluate it as mk source
	CLEAR                  clear the operand stack
	POP                    discard top of stack
	PANIC                  fail with a span-carrying runtime error
*/
const (
	VOID OpCode = iota
	PUSH
	PUSHCONST
	LOOKUP
	IF
	JMP
	TCOJMP
	FUNC
	TAILCALL
	CALLGLOBAL
	CALLGLOBALTAIL
	PASS
	SCLOSURE
	ECLOSURE
	READUPVALUE
	SETUPVALUE
	READLOCAL
	SETLOCAL
	CGLOCALCONST
	BIND
	SDEF
	EDEF
	SET
	STRUCT
	NDEFS
	EVAL
	CLEAR
	POP
	PANIC
)

/*
opNames maps opcodes to their mnemonic.
*/
var opNames = map[OpCode]string{
	VOID: "VOID", PUSH: "PUSH", PUSHCONST: "PUSHCONST", LOOKUP: "LOOKUP",
	IF: "IF", JMP: "JMP", TCOJMP: "TCOJMP", FUNC: "FUNC",
	TAILCALL: "TAILCALL", CALLGLOBAL: "CALLGLOBAL",
	CALLGLOBALTAIL: "CALLGLOBALTAIL", PASS: "PASS", SCLOSURE: "SCLOSURE",
	ECLOSURE: "ECLOSURE", READUPVALUE: "READUPVALUE",
	SETUPVALUE: "SETUPVALUE", READLOCAL: "READLOCAL", SETLOCAL: "SETLOCAL",
	CGLOCALCONST: "CGLOCALCONST", BIND: "BIND", SDEF: "SDEF", EDEF: "EDEF",
	SET: "SET", STRUCT: "STRUCT", NDEFS: "NDEFS", EVAL: "EVAL",
	CLEAR: "CLEAR", POP: "POP", PANIC: "PANIC",
}

/*
String returns the mnemonic of an opcode.
*/
func (op OpCode) String() string {
	return opNames[op]
}

/*
Ins is a single compact instruction.
*/
type Ins struct {
	Op      OpCode      // Operation
	Payload uint32      // Payload (meaning depends on the operation)
	Span    parser.Span // Source location
}

/*
String returns a string representation of an instruction.
*/
func (i Ins) String() string {
	return fmt.Sprintf("%v %v", i.Op, i.Payload)
}
