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
	"errors"
	"fmt"

	"devt.de/krotik/mpk/mk/parser"
)

/*
RuntimeError models an error during bytecode execution. The span points
at the source location of the failing instruction.
*/
type RuntimeError struct {
	Type   error       // Error type (to be used for equal checks)
	Detail string      // Details of this error
	Span   parser.Span // Source location of the error
}

/*
Error returns a human-readable string representation of this error.
*/
func (re *RuntimeError) Error() string {
	ret := fmt.Sprintf("Runtime error: %v", re.Type)

	if re.Detail != "" {
		ret = fmt.Sprintf("%s (%v)", ret, re.Detail)
	}

	if re.Span.Line != 0 {
		return fmt.Sprintf("%s (Line:%v Pos:%v)", ret, re.Span.Line, re.Span.Pos)
	}

	return ret
}

/*
Runtime related error types
*/
var (
	ErrFreeIdentifier  = errors.New("Unbound name")
	ErrTypeMismatch    = errors.New("Type mismatch")
	ErrConversion      = errors.New("Conversion failed")
	ErrUnexpectedToken = errors.New("Unexpected instruction")
	ErrOutOfMemory     = errors.New("Out of memory")
	ErrRank            = errors.New("Rank error")
	ErrLength          = errors.New("Length error")
	ErrPanic           = errors.New("Panic")
)
