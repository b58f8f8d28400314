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
Package vm contains the mk bytecode interpreter.

A Machine is a single-threaded cooperative stack machine: an operand
stack, a frame stack, an index-addressed global environment and the
shared constant pool and symbol map of its compiler. Tail calls reuse the
current frame so tail-recursive functions run in constant frame-stack
depth.

Heap values (lists, maps, closures) live in slab arenas and are
accounted against a live-object ceiling. When the ceiling is reached the
machine collects unreachable objects (mark and sweep from globals, stack
and frames); if nothing can be freed the allocation fails with
OutOfMemory. Custom values are finalized deterministically in allocation
order when they become unreachable.

Multiple machines may coexist in a process, each owning its own arenas.
*/
package vm

import (
	"fmt"
	"os"
	"time"

	"devt.de/krotik/mpk/mk/comp"
	"devt.de/krotik/mpk/mk/parser"
)

/*
SysHandler provides the system verbs which need an embedding context
(graph access, proxy forwarding, session control, work reporting).
*/
type SysHandler interface {

	/*
	   Db executes a graph operation.
	*/
	Db(m *Machine, args []Obj) (Obj, error)

	/*
	   Proxy forwards a message to an external peer.
	*/
	Proxy(m *Machine, args []Obj) (Obj, error)

	/*
	   Sesh executes a session operation.
	*/
	Sesh(m *Machine, args []Obj) (Obj, error)

	/*
	   Work reports on current work.
	*/
	Work(m *Machine, args []Obj) (Obj, error)
}

/*
frame is a single call frame.
*/
type frame struct {
	clo   *Closure
	ins   []comp.Ins
	ip    int
	base  int
	arity int
}

/*
Machine is a bytecode interpreter instance.
*/
type Machine struct {
	comp *comp.Compiler

	globals   []Obj
	globalSet []bool

	stack  []Obj
	frames []frame

	gc        *Gc
	listArena *Arena
	mapArena  *Arena
	fnArena   *Arena
	varArena  *Arena
	tblArena  *Arena
	customs   []Custom

	openUps []*UpValue

	sys           SysHandler
	maxFrames     int
	ExitRequested bool
}

/*
NewMachine creates a new machine sharing the pools of a given compiler.
*/
func NewMachine(c *comp.Compiler) *Machine {
	m := &Machine{
		comp:      c,
		gc:        NewGc(DefaultObjectCeiling),
		listArena: NewArena(),
		mapArena:  NewArena(),
		fnArena:   NewArena(),
		varArena:  NewArena(),
		tblArena:  NewArena(),
	}

	m.installVerbs()
	m.installSysVerbs()

	return m
}

/*
Compiler returns the compiler of this machine.
*/
func (m *Machine) Compiler() *comp.Compiler {
	return m.comp
}

/*
SetSysHandler installs the handler for the embedding-dependent system
verbs.
*/
func (m *Machine) SetSysHandler(h SysHandler) {
	m.sys = h
}

/*
Gc returns the heap object accountant of this machine.
*/
func (m *Machine) Gc() *Gc {
	return m.gc
}

/*
FrameHighWater returns the maximum frame stack depth seen so far.
*/
func (m *Machine) FrameHighWater() int {
	return m.maxFrames
}

// Globals
// =======

/*
ensureGlobals grows the global environment to the current symbol count.
*/
func (m *Machine) ensureGlobals() {
	n := m.comp.Symbols().Len()

	for len(m.globals) < n {
		m.globals = append(m.globals, Unit)
		m.globalSet = append(m.globalSet, false)
	}
}

/*
SetGlobal binds a name in the global environment.
*/
func (m *Machine) SetGlobal(name string, val Obj) {
	idx := m.comp.Symbols().Intern(name)
	m.ensureGlobals()

	m.globals[idx] = val
	m.globalSet[idx] = true
}

/*
Global looks up a name in the global environment.
*/
func (m *Machine) Global(name string) (Obj, bool) {
	idx := m.comp.Symbols().Intern(name)
	m.ensureGlobals()

	return m.globals[idx], m.globalSet[idx]
}

/*
Vars returns the names of all user-bound variables in binding order.
*/
func (m *Machine) Vars() []string {
	var ret []string

	m.ensureGlobals()

	for i, set := range m.globalSet {
		if !set {
			continue
		}

		name := m.comp.Symbols().Name(uint32(i))

		if m.userName(name) {
			ret = append(ret, name)
		}
	}

	return ret
}

/*
userName checks if a global name is user-defined (not a verb, adverb or
system verb).
*/
func (m *Machine) userName(name string) bool {
	if name == "" {
		return false
	}

	c := name[0]

	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Allocation
// ==========

/*
allocList creates a list value.
*/
func (m *Machine) allocList(items []Obj) (Obj, error) {
	if err := m.reserve(); err != nil {
		return Obj{}, err
	}

	l := &List{Items: items}
	m.listArena.Insert(l)

	return Obj{T: TagList, L: l}, nil
}

/*
allocMap creates a map value.
*/
func (m *Machine) allocMap(keys []Obj, vals []Obj, table bool) (Obj, error) {
	if err := m.reserve(); err != nil {
		return Obj{}, err
	}

	mp := &Map{Keys: keys, Vals: vals, Table: table}
	m.mapArena.Insert(mp)

	if table {
		m.tblArena.Insert(mp)
	}

	return Obj{T: TagMap, M: mp}, nil
}

/*
allocClosure creates a closure value.
*/
func (m *Machine) allocClosure(lam *comp.Lambda, ups []*UpValue) (Obj, error) {
	if err := m.reserve(); err != nil {
		return Obj{}, err
	}

	clo := &Closure{Lam: lam, Ups: ups}
	m.fnArena.Insert(clo)

	return Obj{T: TagClosure, C: clo}, nil
}

/*
NewList creates a list value for embedders (natives and system verb
handlers).
*/
func (m *Machine) NewList(items []Obj) (Obj, error) {
	return m.allocList(items)
}

/*
AllocCustom registers an opaque value with the machine.
*/
func (m *Machine) AllocCustom(c Custom) (Obj, error) {
	if err := m.reserve(); err != nil {
		return Obj{}, err
	}

	m.customs = append(m.customs, c)
	m.varArena.Insert(c)

	return Obj{T: TagCustom, X: c}, nil
}

/*
reserve accounts for one new heap object, collecting garbage when the
ceiling is reached.
*/
func (m *Machine) reserve() error {
	if err := m.gc.CheckedAllocate(1); err == nil {
		return nil
	}

	m.Collect()

	return m.gc.CheckedAllocate(1)
}

/*
Collect frees all heap objects which are not reachable from the globals,
the operand stack, the frame stack or open upvalue cells. Custom values
are finalized in allocation order.
*/
func (m *Machine) Collect() {
	reached := make(map[Custom]bool)

	var mark func(o Obj)
	mark = func(o Obj) {
		switch o.T {

		case TagList, TagVec:
			if o.L == nil || o.L.mark {
				return
			}
			o.L.mark = true
			for _, item := range o.L.Items {
				mark(item)
			}

		case TagMap:
			if o.M == nil || o.M.mark {
				return
			}
			o.M.mark = true
			for i := range o.M.Keys {
				mark(o.M.Keys[i])
				mark(o.M.Vals[i])
			}

		case TagClosure:
			if o.C == nil || o.C.mark {
				return
			}
			o.C.mark = true
			for _, up := range o.C.Ups {
				if !up.open {
					mark(up.val)
				}
			}

		case TagCustom:
			reached[o.X] = true
		}
	}

	for i, set := range m.globalSet {
		if set {
			mark(m.globals[i])
		}
	}

	for _, o := range m.stack {
		mark(o)
	}

	for _, f := range m.frames {
		if f.clo != nil {
			mark(Obj{T: TagClosure, C: f.clo})
		}
	}

	for _, up := range m.openUps {
		if !up.open {
			mark(up.val)
		}
	}

	// Sweep the arenas

	sweep := func(a *Arena, marked func(v interface{}) (bool, func())) {
		var stale []Slot

		a.Each(func(s Slot, v interface{}) bool {
			ok, clear := marked(v)
			if ok {
				clear()
			} else {
				stale = append(stale, s)
			}
			return true
		})

		for _, s := range stale {
			a.Remove(s)
			m.gc.Release(1)
		}
	}

	sweep(m.listArena, func(v interface{}) (bool, func()) {
		l := v.(*List)
		return l.mark, func() { l.mark = false }
	})

	sweep(m.mapArena, func(v interface{}) (bool, func()) {
		mp := v.(*Map)
		return mp.mark, func() { mp.mark = false }
	})

	sweep(m.fnArena, func(v interface{}) (bool, func()) {
		clo := v.(*Closure)
		return clo.mark, func() { clo.mark = false }
	})

	// Stale table handles follow their maps

	var staleTables []Slot
	m.tblArena.Each(func(s Slot, v interface{}) bool {
		if !v.(*Map).mark {

			// The map was already swept and unmarked - verify via the
			// map arena

			found := false
			m.mapArena.Each(func(_ Slot, mv interface{}) bool {
				if mv == v {
					found = true
					return false
				}
				return true
			})

			if !found {
				staleTables = append(staleTables, s)
			}
		}
		return true
	})

	for _, s := range staleTables {
		m.tblArena.Remove(s)
	}

	// Finalize unreachable custom values in allocation order

	var kept []Custom

	for _, c := range m.customs {
		if reached[c] {
			kept = append(kept, c)
			continue
		}

		c.Finalize()
		m.gc.Release(1)
	}

	var staleCustoms []Slot
	m.varArena.Each(func(s Slot, v interface{}) bool {
		if !reached[v.(Custom)] {
			staleCustoms = append(staleCustoms, s)
		}
		return true
	})

	for _, s := range staleCustoms {
		m.varArena.Remove(s)
	}

	m.customs = kept
}

// Execution
// =========

/*
Eval parses, compiles and runs a source string. Returns the value of
every top-level expression.
*/
func (m *Machine) Eval(src string, level comp.OptLevel) ([]Obj, error) {
	program, err := parser.Parse("eval", src)
	if err != nil {
		return nil, err
	}

	unit, err := m.comp.Compile(program, level)
	if err != nil {
		return nil, err
	}

	return m.RunUnit(unit)
}

/*
RunUnit runs a compiled unit expression by expression. A failing
expression aborts only itself - the machine stays usable and the values
of the preceding expressions are returned alongside the error.
*/
func (m *Machine) RunUnit(unit *comp.Unit) ([]Obj, error) {
	var results []Obj

	m.ensureGlobals()

	for _, expr := range unit.Exprs {
		res, err := m.runExpr(expr)
		if err != nil {
			return results, err
		}

		results = append(results, res)

		m.Collect()
	}

	return results, nil
}

/*
runExpr runs a single expression (dropping the trailing POP so the
expression value can be captured).
*/
func (m *Machine) runExpr(ins []comp.Ins) (Obj, error) {
	if n := len(ins); n > 0 && ins[n-1].Op == comp.POP {
		ins = ins[:n-1]
	}

	m.pushFrame(frame{ins: ins, base: len(m.stack)})

	return m.loop(len(m.frames) - 1)
}

/*
Apply calls a function value with the given arguments.
*/
func (m *Machine) Apply(fn Obj, args []Obj) (Obj, error) {
	switch fn.T {

	case TagFn, TagBoxFn:
		return fn.Fn(m, args)

	case TagClosure:
		if fn.C.Lam.Arity != len(args) {
			return Obj{}, &RuntimeError{Type: ErrRank,
				Detail: fmt.Sprintf("expected %v arguments, got %v", fn.C.Lam.Arity, len(args))}
		}

		base := len(m.stack)
		m.stack = append(m.stack, args...)
		m.pushFrame(frame{clo: fn.C, ins: fn.C.Lam.Ins, base: base, arity: len(args)})

		return m.loop(len(m.frames) - 1)
	}

	return Obj{}, &RuntimeError{Type: ErrTypeMismatch,
		Detail: fmt.Sprintf("%v is not callable", TypeName(fn))}
}

/*
pushFrame pushes a call frame.
*/
func (m *Machine) pushFrame(f frame) {
	m.frames = append(m.frames, f)

	if len(m.frames) > m.maxFrames {
		m.maxFrames = len(m.frames)
	}
}

/*
loop executes frames until the frame stack drops below a given depth and
returns the value of the entry frame.
*/
func (m *Machine) loop(entry int) (Obj, error) {
	entryBase := m.frames[entry].base

	fail := func(err error, span parser.Span) (Obj, error) {
		if rerr, ok := err.(*RuntimeError); ok && rerr.Span.Line == 0 {
			rerr.Span = span
		}

		// Abort only the current expression: unwind to the entry state

		m.closeUpvalues(entryBase)
		m.frames = m.frames[:entry]
		m.stack = m.stack[:entryBase]

		return Obj{}, err
	}

	for len(m.frames) > entry {
		f := &m.frames[len(m.frames)-1]

		if f.ip >= len(f.ins) {

			// Implicit return: the body value (or unit) replaces the frame

			ret := Unit
			if len(m.stack) > f.base+f.arity {
				ret = m.stack[len(m.stack)-1]
			}

			m.closeUpvalues(f.base)
			m.stack = m.stack[:f.base]
			m.frames = m.frames[:len(m.frames)-1]
			m.stack = append(m.stack, ret)

			continue
		}

		in := f.ins[f.ip]
		f.ip++

		switch in.Op {

		case comp.VOID:
			m.stack = append(m.stack, Unit)

		case comp.PUSH:
			if int(in.Payload) >= len(m.globalSet) || !m.globalSet[in.Payload] {
				return fail(&RuntimeError{Type: ErrFreeIdentifier,
					Detail: m.comp.Symbols().Name(in.Payload)}, in.Span)
			}
			m.stack = append(m.stack, m.globals[in.Payload])

		case comp.PUSHCONST:
			o, err := m.constObj(m.comp.Constants()[in.Payload])
			if err != nil {
				return fail(err, in.Span)
			}
			m.stack = append(m.stack, o)

		case comp.IF:
			top := m.pop()
			if !Truthy(top) {
				f.ip += int(in.Payload)
			}

		case comp.JMP:
			f.ip += int(in.Payload)

		case comp.TCOJMP:

			// Payload is unused: jump to instruction 0 of the frame

			f.ip = 0

		case comp.FUNC:
			callee := m.pop()
			if err := m.call(callee, int(in.Payload), false, in.Span); err != nil {
				return fail(err, in.Span)
			}

		case comp.TAILCALL:
			callee := m.pop()
			if err := m.call(callee, int(in.Payload), len(m.frames)-1 > entry, in.Span); err != nil {
				return fail(err, in.Span)
			}

		case comp.CALLGLOBAL, comp.CALLGLOBALTAIL:
			arity := 0
			if f.ip < len(f.ins) && f.ins[f.ip].Op == comp.PASS {
				arity = int(f.ins[f.ip].Payload)
				f.ip++
			}

			if int(in.Payload) >= len(m.globalSet) || !m.globalSet[in.Payload] {
				return fail(&RuntimeError{Type: ErrFreeIdentifier,
					Detail: m.comp.Symbols().Name(in.Payload)}, in.Span)
			}

			tail := in.Op == comp.CALLGLOBALTAIL && len(m.frames)-1 > entry

			if err := m.call(m.globals[in.Payload], arity, tail, in.Span); err != nil {
				return fail(err, in.Span)
			}

		case comp.CGLOCALCONST:

			// Operands follow as READLOCAL and PUSHCONST instructions

			local := f.ins[f.ip]
			cnst := f.ins[f.ip+1]
			f.ip += 2

			if f.ip < len(f.ins) && f.ins[f.ip].Op == comp.PASS {
				f.ip++
			}

			if int(in.Payload) >= len(m.globalSet) || !m.globalSet[in.Payload] {
				return fail(&RuntimeError{Type: ErrFreeIdentifier,
					Detail: m.comp.Symbols().Name(in.Payload)}, in.Span)
			}

			co, err := m.constObj(m.comp.Constants()[cnst.Payload])
			if err != nil {
				return fail(err, in.Span)
			}

			m.stack = append(m.stack, m.stack[f.base+int(local.Payload)], co)

			if err := m.call(m.globals[in.Payload], 2, false, in.Span); err != nil {
				return fail(err, in.Span)
			}

		case comp.PASS, comp.SDEF, comp.EDEF, comp.ECLOSURE:

			// No-ops carrying pipeline metadata

		case comp.SCLOSURE:
			lam := m.comp.Constants()[in.Payload].Fn

			ups := make([]*UpValue, len(lam.Ups))
			for i, ref := range lam.Ups {
				if ref.FromParent {
					ups[i] = m.openUpvalue(f.base + ref.Index)
				} else {
					ups[i] = f.clo.Ups[ref.Index]
				}
			}

			clo, err := m.allocClosure(lam, ups)
			if err != nil {
				return fail(err, in.Span)
			}

			m.stack = append(m.stack, clo)

		case comp.READUPVALUE:
			m.stack = append(m.stack, f.clo.Ups[in.Payload].Get(m.stack))

		case comp.SETUPVALUE:
			f.clo.Ups[in.Payload].Set(m.stack, m.top())

		case comp.READLOCAL:
			m.stack = append(m.stack, m.stack[f.base+int(in.Payload)])

		case comp.SETLOCAL:
			m.stack[f.base+int(in.Payload)] = m.top()

		case comp.BIND, comp.SET:
			m.ensureGlobals()
			m.globals[in.Payload] = m.top()
			m.globalSet[in.Payload] = true

		case comp.STRUCT:
			items := m.popN(int(in.Payload))

			l, err := m.allocList(items)
			if err != nil {
				return fail(err, in.Span)
			}

			m.stack = append(m.stack, l)

		case comp.NDEFS:
			pairs := m.popN(int(in.Payload) * 2)

			keys := make([]Obj, 0, in.Payload)
			vals := make([]Obj, 0, in.Payload)

			for i := 0; i+1 < len(pairs); i += 2 {
				keys = append(keys, pairs[i])
				vals = append(vals, pairs[i+1])
			}

			mp, err := m.allocMap(keys, vals, false)
			if err != nil {
				return fail(err, in.Span)
			}

			m.stack = append(m.stack, mp)

		case comp.EVAL:
			src := m.pop()

			if src.T != TagStr {
				return fail(&RuntimeError{Type: ErrTypeMismatch,
					Detail: "eval expects a string"}, in.Span)
			}

			results, err := m.Eval(src.S, comp.OptZero)
			if err != nil {
				return fail(err, in.Span)
			}

			ret := Unit
			if len(results) > 0 {
				ret = results[len(results)-1]
			}

			m.stack = append(m.stack, ret)

		case comp.CLEAR:
			m.stack = m.stack[:f.base+f.arity]

		case comp.POP:
			if len(m.stack) > f.base+f.arity {
				m.pop()
			}

		case comp.PANIC:
			detail := ""
			if len(m.stack) > f.base+f.arity {
				detail = Display(m.pop())
			}

			return fail(&RuntimeError{Type: ErrPanic, Detail: detail}, in.Span)

		case comp.LOOKUP:
			return fail(&RuntimeError{Type: ErrUnexpectedToken,
				Detail: "unresolved name"}, in.Span)

		default:
			return fail(&RuntimeError{Type: ErrUnexpectedToken,
				Detail: in.Op.String()}, in.Span)
		}
	}

	// The entry frame was popped and left its value on the stack

	return m.pop(), nil
}

/*
call invokes a callee with argc arguments from the stack. Tail calls
reuse the current frame - the frame stack does not grow.
*/
func (m *Machine) call(callee Obj, argc int, tail bool, span parser.Span) error {
	args := m.popN(argc)

	switch callee.T {

	case TagFn, TagBoxFn:
		res, err := callee.Fn(m, args)
		if err != nil {
			return err
		}

		m.stack = append(m.stack, res)

		return nil

	case TagClosure:
		lam := callee.C.Lam

		if lam.Arity != argc {
			return &RuntimeError{Type: ErrRank,
				Detail: fmt.Sprintf("expected %v arguments, got %v", lam.Arity, argc)}
		}

		if tail {
			f := &m.frames[len(m.frames)-1]

			m.closeUpvalues(f.base)
			m.stack = append(m.stack[:f.base], args...)

			f.clo = callee.C
			f.ins = lam.Ins
			f.ip = 0
			f.arity = argc

			return nil
		}

		base := len(m.stack)
		m.stack = append(m.stack, args...)
		m.pushFrame(frame{clo: callee.C, ins: lam.Ins, base: base, arity: argc})

		return nil
	}

	return &RuntimeError{Type: ErrTypeMismatch,
		Detail: fmt.Sprintf("%v is not callable", TypeName(callee)), Span: span}
}

/*
constObj converts a constant pool value into a runtime value.
*/
func (m *Machine) constObj(v comp.Value) (Obj, error) {
	switch v.Kind {

	case comp.ValUnit:
		return Unit, nil

	case comp.ValInt:
		return Int(v.I), nil

	case comp.ValFloat:
		return Float(v.F), nil

	case comp.ValChar:
		return Char(v.S), nil

	case comp.ValStr:
		return Str(v.S), nil

	case comp.ValSym:
		return Sym(v.S), nil

	case comp.ValDate, comp.ValTime:
		return Dur(v.I), nil
	}

	return Obj{}, &RuntimeError{Type: ErrConversion,
		Detail: fmt.Sprintf("constant kind %v", v.Kind)}
}

// Stack helpers
// =============

/*
top returns the top of the operand stack.
*/
func (m *Machine) top() Obj {
	return m.stack[len(m.stack)-1]
}

/*
pop removes and returns the top of the operand stack.
*/
func (m *Machine) pop() Obj {
	o := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return o
}

/*
popN removes the top n values preserving their push order.
*/
func (m *Machine) popN(n int) []Obj {
	ret := make([]Obj, n)
	copy(ret, m.stack[len(m.stack)-n:])
	m.stack = m.stack[:len(m.stack)-n]
	return ret
}

// Upvalues
// ========

/*
openUpvalue returns the open upvalue cell for a stack slot, creating one
if necessary. Closures capturing the same slot share the cell.
*/
func (m *Machine) openUpvalue(idx int) *UpValue {
	for _, up := range m.openUps {
		if up.open && up.idx == idx {
			return up
		}
	}

	up := newOpenUpValue(idx)
	m.openUps = append(m.openUps, up)

	return up
}

/*
closeUpvalues closes all open upvalues at or above a stack position.
*/
func (m *Machine) closeUpvalues(from int) {
	var kept []*UpValue

	for _, up := range m.openUps {
		if up.open && up.idx >= from {
			up.close(m.stack)
			continue
		}

		kept = append(kept, up)
	}

	m.openUps = kept
}

// System verbs
// ============

/*
installSysVerbs binds the backslash-prefixed system verbs.
*/
func (m *Machine) installSysVerbs() {

	m.SetGlobal("\\v", Obj{T: TagFn, Fn: func(m *Machine, args []Obj) (Obj, error) {
		var items []Obj
		for _, name := range m.Vars() {
			items = append(items, Sym(name))
		}
		return m.allocList(items)
	}})

	m.SetGlobal("\\l", Obj{T: TagFn, Fn: func(m *Machine, args []Obj) (Obj, error) {
		if len(args) != 1 || args[0].T != TagStr {
			return Obj{}, &RuntimeError{Type: ErrTypeMismatch, Detail: "\\l expects a path string"}
		}

		src, err := os.ReadFile(args[0].S)
		if err != nil {
			return Obj{}, &RuntimeError{Type: ErrConversion, Detail: err.Error()}
		}

		results, err := m.Eval(string(src), comp.OptZero)
		if err != nil {
			return Obj{}, err
		}

		if len(results) == 0 {
			return Unit, nil
		}

		return results[len(results)-1], nil
	}})

	m.SetGlobal("\\t", Obj{T: TagFn, Fn: func(m *Machine, args []Obj) (Obj, error) {
		if len(args) != 1 {
			return Obj{}, &RuntimeError{Type: ErrRank, Detail: "\\t expects one expression"}
		}

		start := time.Now()

		if _, err := m.Apply(args[0], nil); err != nil {
			return Obj{}, err
		}

		return Dur(time.Since(start).Nanoseconds()), nil
	}})

	m.SetGlobal("\\\\", Obj{T: TagFn, Fn: func(m *Machine, args []Obj) (Obj, error) {
		m.ExitRequested = true
		return Unit, nil
	}})

	handler := func(name string, f func(h SysHandler, m *Machine, args []Obj) (Obj, error)) NativeFn {
		return func(m *Machine, args []Obj) (Obj, error) {
			if m.sys == nil {
				return Obj{}, &RuntimeError{Type: ErrTypeMismatch,
					Detail: fmt.Sprintf("no handler installed for %v", name)}
			}
			return f(m.sys, m, args)
		}
	}

	m.SetGlobal("\\db", Obj{T: TagFn, Fn: handler("\\db", SysHandler.Db)})
	m.SetGlobal("\\proxy", Obj{T: TagFn, Fn: handler("\\proxy", SysHandler.Proxy)})
	m.SetGlobal("\\sesh", Obj{T: TagFn, Fn: handler("\\sesh", SysHandler.Sesh)})
	m.SetGlobal("\\w", Obj{T: TagFn, Fn: handler("\\w", SysHandler.Work)})
}
