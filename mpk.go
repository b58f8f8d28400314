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
MPK is a local-first media metadata database and embedded language
runtime. It catalogs audio tracks, samples, MIDI files and patches,
connects them through typed relationships and makes them queryable and
scriptable from the concise array language mk.
*/
package main

import (
	"fmt"
	"os"

	"devt.de/krotik/mpk/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mpk:", err)
		os.Exit(1)
	}
}
