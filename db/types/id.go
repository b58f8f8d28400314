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
Package types contains the entities of the media graph and their byte-stable
binary representations.

The graph is made of four entities: nodes (media items), edges (typed
connections between nodes), meta entries (inverted index from a metadata
value to the nodes which carry it) and props (property vectors attached to
nodes or edges).

All serialized forms are fixed: integers are little-endian, ids and
timestamps are big-endian so lexicographic byte order matches natural
order, sum types carry a one byte discriminant and strings / vectors are
length-prefixed with a 32-bit count.
*/
package types

import (
	"bytes"
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

/*
IdLen is the length of an Id in bytes.
*/
const IdLen = 16

/*
Id is a 128-bit node identifier. Ids are time-ordered (48 bit millisecond
timestamp followed by 80 bit entropy) and lexicographically sortable in
their byte form. The string form is the 26 character Crockford alphabet.
*/
type Id [IdLen]byte

/*
entropy is the shared monotonic entropy source for id generation. Ids
generated within the same process sort strictly greater than all earlier
ones.
*/
var entropy = ulid.Monotonic(crand.Reader, 0)
var entropyMutex sync.Mutex

/*
NewId generates a new time-ordered Id.
*/
func NewId() Id {
	entropyMutex.Lock()
	defer entropyMutex.Unlock()

	return Id(ulid.MustNew(ulid.Timestamp(time.Now()), entropy))
}

/*
ParseId parses an Id from its 26 character string form.
*/
func ParseId(s string) (Id, error) {
	u, err := ulid.Parse(s)
	if err != nil {
		return Id{}, err
	}

	return Id(u), nil
}

/*
String returns the 26 character string form of this Id.
*/
func (id Id) String() string {
	return ulid.ULID(id).String()
}

/*
Compare compares two Ids byte-wise.
*/
func (id Id) Compare(other Id) int {
	return bytes.Compare(id[:], other[:])
}

/*
IdVec is an ordered set of Ids represented as a vector. The vector may
contain duplicates - deduplication is the reader's responsibility.
*/
type IdVec []Id

/*
Dedup returns the members of this vector with duplicates removed. The
first-seen order is preserved.
*/
func (v IdVec) Dedup() IdVec {
	seen := make(map[Id]bool, len(v))
	ret := make(IdVec, 0, len(v))

	for _, id := range v {
		if !seen[id] {
			seen[id] = true
			ret = append(ret, id)
		}
	}

	return ret
}

/*
Contains checks if a given Id is a member of this vector.
*/
func (v IdVec) Contains(id Id) bool {
	for _, i := range v {
		if i == id {
			return true
		}
	}

	return false
}

/*
Timestamp is a creation timestamp in nanoseconds. The serialized form is a
16 byte big-endian value (the upper 8 bytes are zero until the year 2554).
*/
type Timestamp uint64

/*
Now returns the current time as a Timestamp.
*/
func Now() Timestamp {
	return Timestamp(time.Now().UnixNano())
}
