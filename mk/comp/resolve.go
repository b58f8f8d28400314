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

/*
resolve replaces symbolic LOOKUP and BIND instructions with indexed local
slots, upvalue reads or global accesses. Locals are the arguments of the
surrounding lambda; names bound in an enclosing lambda are captured as
upvalues.
*/
func (c *Compiler) resolve(buf *[]Ins, sc *scope) error {
	for i, ins := range *buf {

		switch ins.Op {

		case LOOKUP:
			name := c.syms.Name(ins.Payload)

			if sc != nil {
				if idx := indexOf(sc.args, name); idx >= 0 {
					(*buf)[i].Op = READLOCAL
					(*buf)[i].Payload = uint32(idx)
					continue
				}

				if upIdx, ok := c.captureUpvalue(sc, name); ok {
					(*buf)[i].Op = READUPVALUE
					(*buf)[i].Payload = uint32(upIdx)
					continue
				}
			}

			(*buf)[i].Op = PUSH

		case BIND:
			if sc == nil {
				continue
			}

			name := c.syms.Name(ins.Payload)

			if idx := indexOf(sc.args, name); idx >= 0 {
				(*buf)[i].Op = SETLOCAL
				(*buf)[i].Payload = uint32(idx)
				continue
			}

			if upIdx, ok := c.captureUpvalue(sc, name); ok {
				(*buf)[i].Op = SETUPVALUE
				(*buf)[i].Payload = uint32(upIdx)
				continue
			}

			// Mutation of a global binding from within a function

			(*buf)[i].Op = SET
		}
	}

	return nil
}

/*
captureUpvalue establishes an upvalue capture for a name in the lambda of
a given scope. Returns the upvalue index and whether the name was found
in an enclosing lambda.
*/
func (c *Compiler) captureUpvalue(sc *scope, name string) (int, bool) {
	if sc.parent == nil {
		return 0, false
	}

	var ref UpRef

	if idx := indexOf(sc.parent.args, name); idx >= 0 {
		ref = UpRef{FromParent: true, Index: idx}
	} else {
		parentUp, ok := c.captureUpvalue(sc.parent, name)
		if !ok {
			return 0, false
		}
		ref = UpRef{FromParent: false, Index: parentUp}
	}

	// Shared captures resolve to the same upvalue slot

	for i, existing := range sc.lam.Ups {
		if existing == ref {
			return i, true
		}
	}

	sc.lam.Ups = append(sc.lam.Ups, ref)

	return len(sc.lam.Ups) - 1, true
}

/*
indexOf returns the index of a string in a slice or -1.
*/
func indexOf(list []string, s string) int {
	for i, e := range list {
		if e == s {
			return i
		}
	}

	return -1
}
