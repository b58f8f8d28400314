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
Package hash contains content fingerprinting for media files.

Checksum

A Checksum is a 256-bit BLAKE3 digest of file content. Equal checksums imply
byte-identical content. Checksums are byte-stable across runs and platforms
and are used as node properties in the media graph.

Symbol hashes

HashStr produces 64-bit hashes for interned symbol names (djb2). These are
only used for in-memory lookup structures and are never persisted.
*/
package hash

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

/*
OutLen is the length of a Checksum in bytes.
*/
const OutLen = 32

/*
HexLen is the length of the hex representation of a Checksum.
*/
const HexLen = OutLen * 2

/*
Checksum is a 256-bit content digest.
*/
type Checksum [OutLen]byte

/*
Sum computes the Checksum of a byte slice.
*/
func Sum(data []byte) Checksum {
	return Checksum(blake3.Sum256(data))
}

/*
SumReader computes the Checksum of everything readable from r.
*/
func SumReader(r io.Reader) (Checksum, error) {
	var cs Checksum

	h := blake3.New(OutLen, nil)

	if _, err := io.Copy(h, bufio.NewReader(r)); err != nil {
		return cs, err
	}

	copy(cs[:], h.Sum(nil))

	return cs, nil
}

/*
SumFile computes the Checksum of a file's content.
*/
func SumFile(path string) (Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checksum{}, err
	}
	defer f.Close()

	return SumReader(f)
}

/*
FromHex decodes a Checksum from its hex representation.
*/
func FromHex(h string) (Checksum, error) {
	var cs Checksum

	if len(h) != HexLen {
		return cs, fmt.Errorf("invalid checksum length: %v", len(h))
	}

	b, err := hex.DecodeString(h)
	if err != nil {
		return cs, err
	}

	copy(cs[:], b)

	return cs, nil
}

/*
String returns the hex representation of this Checksum.
*/
func (cs Checksum) String() string {
	return hex.EncodeToString(cs[:])
}

/*
HashStr hashes a string to a 64-bit value (djb2).
*/
func HashStr(s string) uint64 {
	var ret uint64 = 5381

	for i := 0; i < len(s); i++ {
		ret = ret<<5 + ret + uint64(s[i])
	}

	return ret
}
