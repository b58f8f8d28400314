/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package types

import (
	"errors"
	"fmt"
	"strings"
)

/*
UriScheme is the scheme of a Uri.
*/
type UriScheme byte

/*
Available uri schemes
*/
const (
	SchemeFile UriScheme = iota
	SchemeHTTP
	SchemeHTTPS
	SchemeMagnet
	SchemeYt
	SchemeSp
	SchemeFs
)

/*
ErrBadScheme is returned when a uri carries an unknown scheme.
*/
var ErrBadScheme = errors.New("Unknown uri scheme")

/*
schemeNames maps schemes to their string form.
*/
var schemeNames = map[UriScheme]string{
	SchemeFile:   "file",
	SchemeHTTP:   "http",
	SchemeHTTPS:  "https",
	SchemeMagnet: "magnet",
	SchemeYt:     "yt",
	SchemeSp:     "sp",
	SchemeFs:     "fs",
}

/*
String returns the string form of a scheme.
*/
func (s UriScheme) String() string {
	return schemeNames[s]
}

/*
Uri is a schemed resource locator.
*/
type Uri struct {
	Scheme UriScheme // Scheme of the resource
	Path   string    // Scheme-specific path
}

/*
FileUri returns a file uri for a given filesystem path.
*/
func FileUri(path string) Uri {
	return Uri{SchemeFile, path}
}

/*
ParseUri parses a uri of the form scheme:path.
*/
func ParseUri(s string) (Uri, error) {
	parts := strings.SplitN(s, ":", 2)

	if len(parts) != 2 {
		return Uri{}, fmt.Errorf("%v: missing scheme in %q", ErrBadScheme, s)
	}

	for scheme, name := range schemeNames {
		if name == parts[0] {
			return Uri{scheme, parts[1]}, nil
		}
	}

	return Uri{}, fmt.Errorf("%v: %q", ErrBadScheme, parts[0])
}

/*
String returns the string form scheme:path of this uri.
*/
func (u Uri) String() string {
	return fmt.Sprintf("%v:%v", u.Scheme, u.Path)
}
