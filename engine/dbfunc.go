/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package engine

import (
	"fmt"

	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/mk/vm"
)

/*
sysBridge wires the mk system verbs to the graph and the engine. It
implements the machine's SysHandler interface.
*/
type sysBridge struct {
	srv *Server
}

/*
symArg extracts a symbol or string argument of a system verb call.
*/
func symArg(args []vm.Obj, i int, what string) (string, error) {
	if i >= len(args) || (args[i].T != vm.TagSym && args[i].T != vm.TagStr) {
		return "", &vm.RuntimeError{Type: vm.ErrTypeMismatch,
			Detail: fmt.Sprintf("expected %v as argument %v", what, i)}
	}

	return args[i].S, nil
}

/*
sysArgs normalizes the argument of a system verb: a list spreads into
its items.
*/
func sysArgs(args []vm.Obj) []vm.Obj {
	if len(args) == 1 && (args[0].T == vm.TagList || args[0].T == vm.TagVec) {
		return args[0].L.Items
	}

	return args
}

/*
Db executes a graph operation from mk code: \db `info, \db (`query;
`artist; "X"), \db (`insert; `sample), \db (`connect; "/a"; "/b").
*/
func (b *sysBridge) Db(m *vm.Machine, args []vm.Obj) (vm.Obj, error) {
	args = sysArgs(args)

	op, err := symArg(args, 0, "an operation symbol")
	if err != nil {
		return vm.Obj{}, err
	}

	gm := b.srv.gm

	switch op {

	case "info":
		info, err := gm.Info()
		if err != nil {
			return vm.Obj{}, wrapDbErr(err)
		}

		return vm.Str(info.String()), nil

	case "flush":
		n, err := gm.Flush()
		if err != nil {
			return vm.Obj{}, wrapDbErr(err)
		}

		return vm.Int(n), nil

	case "query":
		reply, err := b.srv.dbQuery(NewMessage("/mpk/db/query",
			argAt(args, 1), argAt(args, 2)))
		if err != nil {
			return vm.Obj{}, wrapDbErr(err)
		}

		items := make([]vm.Obj, 0, len(reply.Args))
		for _, a := range reply.Args {
			items = append(items, vm.Sym(a.S))
		}

		return m.NewList(items)

	case "insert":
		kindStr, err := symArg(args, 1, "a node kind")
		if err != nil {
			return vm.Obj{}, err
		}

		kind, kerr := types.ParseNodeKind(kindStr)
		if kerr != nil {
			return vm.Obj{}, &vm.RuntimeError{Type: vm.ErrConversion, Detail: kerr.Error()}
		}

		node := types.NewNode(kind)
		if err := gm.StoreNode(node); err != nil {
			return vm.Obj{}, wrapDbErr(err)
		}

		return vm.Sym(node.ID.String()), nil

	case "connect":
		p1, err := symArg(args, 1, "a path")
		if err != nil {
			return vm.Obj{}, err
		}

		p2, err := symArg(args, 2, "a path")
		if err != nil {
			return vm.Obj{}, err
		}

		n1, gerr := gm.LookupPath(types.FileUri(p1))
		if gerr != nil || n1 == nil {
			return vm.Obj{}, &vm.RuntimeError{Type: vm.ErrConversion,
				Detail: fmt.Sprintf("unknown path %v", p1)}
		}

		n2, gerr := gm.LookupPath(types.FileUri(p2))
		if gerr != nil || n2 == nil {
			return vm.Obj{}, &vm.RuntimeError{Type: vm.ErrConversion,
				Detail: fmt.Sprintf("unknown path %v", p2)}
		}

		edge, gerr := gm.Connect(types.EdgeNext, n1.ID, n2.ID)
		if gerr != nil {
			return vm.Obj{}, wrapDbErr(gerr)
		}

		return vm.Str(edge.String()), nil
	}

	return vm.Obj{}, &vm.RuntimeError{Type: vm.ErrConversion,
		Detail: fmt.Sprintf("unknown db operation %v", op)}
}

/*
Proxy forwards a message opaquely to the configured peer.
*/
func (b *sysBridge) Proxy(m *vm.Machine, args []vm.Obj) (vm.Obj, error) {
	args = sysArgs(args)

	addr, err := symArg(args, 0, "a target address")
	if err != nil {
		return vm.Obj{}, err
	}

	var wargs []Arg

	for _, a := range args[1:] {
		switch a.T {
		case vm.TagInt:
			wargs = append(wargs, IntArg(a.I))
		case vm.TagFloat:
			wargs = append(wargs, FloatArg(a.F))
		default:
			wargs = append(wargs, StrArg(vm.Display(a)))
		}
	}

	reply := b.srv.dispatchProxy(NewMessage("/mpk/proxy"+addr, wargs...))

	return vm.Str(reply.Addr), nil
}

/*
Sesh acknowledges session operations (session management is delegated to
external tooling).
*/
func (b *sysBridge) Sesh(m *vm.Machine, args []vm.Obj) (vm.Obj, error) {
	return vm.Unit, nil
}

/*
Work reports the recent requests of the engine.
*/
func (b *sysBridge) Work(m *vm.Machine, args []vm.Obj) (vm.Obj, error) {
	items := make([]vm.Obj, 0, requestLogSize)

	for _, line := range b.srv.reqLog.StringSlice() {
		items = append(items, vm.Str(line))
	}

	return m.NewList(items)
}

/*
argAt converts a vm value into a wire argument.
*/
func argAt(args []vm.Obj, i int) Arg {
	if i >= len(args) {
		return StrArg("")
	}

	a := args[i]

	switch a.T {
	case vm.TagSym, vm.TagStr:
		return StrArg(a.S)
	case vm.TagInt:
		return StrArg(fmt.Sprint(a.I))
	}

	return StrArg(vm.Display(a))
}

/*
wrapDbErr converts a graph error into a runtime error.
*/
func wrapDbErr(err error) error {
	return &vm.RuntimeError{Type: vm.ErrConversion, Detail: err.Error()}
}
