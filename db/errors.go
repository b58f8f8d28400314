/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package db

import (
	"errors"
	"fmt"
)

/*
Error is a graph related error. Low-level errors are wrapped in an Error
before they are returned to a client.
*/
type Error struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *Error) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Graph related error types
*/
var (
	ErrNotFound      = errors.New("Not found")
	ErrBadValue      = errors.New("Invalid value")
	ErrDuplicatePath = errors.New("Path already exists")
	ErrBadRange      = errors.New("Invalid range")
)

/*
Codec related error types
*/
var (
	ErrSerialization   = errors.New("Serialization failed")
	ErrDeserialization = errors.New("Deserialization failed")
)
