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
	"bytes"
	"testing"

	"devt.de/krotik/mpk/hash"
)

func TestIdGeneration(t *testing.T) {
	id1 := NewId()
	id2 := NewId()

	if len(id1.String()) != 26 {
		t.Error("Id string form should have 26 characters:", id1)
		return
	}

	// Ids generated within the same process sort strictly greater

	if id1.Compare(id2) >= 0 {
		t.Error("Later id should sort greater:", id1, id2)
		return
	}

	parsed, err := ParseId(id1.String())
	if err != nil || parsed != id1 {
		t.Error("Unexpected id round trip result:", parsed, err)
		return
	}

	if _, err := ParseId("not an id"); err == nil {
		t.Error("Invalid id string should not parse")
		return
	}
}

func TestIdCodec(t *testing.T) {
	id := NewId()

	dec, err := DecodeId(EncodeId(id))
	if err != nil || dec != id {
		t.Error("Unexpected round trip result:", dec, err)
		return
	}

	if _, err := DecodeId([]byte{1, 2, 3}); err != ErrShortData {
		t.Error("Short data should be detected:", err)
		return
	}

	vec := IdVec{NewId(), NewId(), NewId()}

	decv, err := DecodeIdVec(EncodeIdVec(vec))
	if err != nil || len(decv) != 3 {
		t.Error("Unexpected round trip result:", decv, err)
		return
	}

	for i := range vec {
		if decv[i] != vec[i] {
			t.Error("Vector member mismatch at", i)
			return
		}
	}
}

func TestIdVecDedup(t *testing.T) {
	a, b := NewId(), NewId()

	vec := IdVec{a, b, a, a, b}

	dedup := vec.Dedup()
	if len(dedup) != 2 || dedup[0] != a || dedup[1] != b {
		t.Error("Dedup should preserve first-seen order:", dedup)
		return
	}

	if !vec.Contains(a) || vec.Contains(NewId()) {
		t.Error("Unexpected contains result")
		return
	}
}

func TestKindCodec(t *testing.T) {
	for _, kind := range []NodeKind{KindTrack, KindSample, KindMidi, KindPatch} {
		data := EncodeNodeKind(kind)

		if len(data) != 1 {
			t.Error("Node kind should serialize to 1 byte")
			return
		}

		dec, err := DecodeNodeKind(data)
		if err != nil || dec != kind {
			t.Error("Unexpected round trip result:", dec, err)
			return
		}
	}

	if _, err := DecodeNodeKind([]byte{99}); err == nil {
		t.Error("Unknown node kind should not decode")
		return
	}

	kind, err := ParseNodeKind("sample")
	if err != nil || kind != KindSample {
		t.Error("Unexpected parse result:", kind, err)
		return
	}

	if _, err := ParseNodeKind("flac"); err == nil {
		t.Error("Unknown kind name should not parse")
		return
	}
}

func TestEdgeKeyCodec(t *testing.T) {
	key := NewEdgeKey(EdgeNext, NewId(), NewId())

	data := EncodeEdgeKey(key)
	if len(data) != 33 {
		t.Error("Edge key should serialize to 33 bytes:", len(data))
		return
	}

	dec, err := DecodeEdgeKey(data)
	if err != nil || dec != key {
		t.Error("Unexpected round trip result:", dec, err)
		return
	}

	// Reversing inbound and outbound yields a distinct key

	rev := key.Reverse()
	if rev == key || rev.Reverse() != key {
		t.Error("Unexpected reverse result:", rev)
		return
	}

	if !bytes.HasPrefix(data, []byte{byte(EdgeNext)}) {
		t.Error("Serialized key should start with the kind discriminant")
		return
	}

	ts := Now()
	dects, err := DecodeTimestamp(EncodeTimestamp(ts))
	if err != nil || dects != ts {
		t.Error("Unexpected timestamp round trip:", dects, err)
		return
	}
}

func TestMetaKindCodec(t *testing.T) {
	metas := []MetaKind{
		PathMeta(FileUri("/s/a.wav")),
		SourceMeta(Uri{SchemeHTTPS, "//example.org/a"}),
		ArtistMeta("X"),
		AlbumMeta("LP1"),
		PlaylistMeta("warmup"),
		CollMeta("breaks"),
		GenreMeta("jungle"),
	}

	for _, mk := range metas {
		dec, err := DecodeMetaKind(EncodeMetaKind(mk))
		if err != nil || dec != mk {
			t.Error("Unexpected round trip result:", dec, err)
			return
		}
	}

	// Keys are byte-stable - the same logical value serializes identically

	b1 := EncodeMetaKind(PathMeta(FileUri("/x")))
	b2 := EncodeMetaKind(PathMeta(FileUri("/x")))

	if !bytes.Equal(b1, b2) {
		t.Error("Meta keys should be byte-stable")
		return
	}

	if _, err := DecodeMetaKind([]byte{77}); err == nil {
		t.Error("Unknown meta tag should not decode")
		return
	}
}

func TestUri(t *testing.T) {
	uri, err := ParseUri("file:/s/a.wav")
	if err != nil || uri.Scheme != SchemeFile || uri.Path != "/s/a.wav" {
		t.Error("Unexpected parse result:", uri, err)
		return
	}

	if uri.String() != "file:/s/a.wav" {
		t.Error("Unexpected string form:", uri)
		return
	}

	if _, err := ParseUri("gopher:/x"); err == nil {
		t.Error("Unknown scheme should not parse")
		return
	}

	if _, err := ParseUri("no-scheme"); err == nil {
		t.Error("Uri without scheme should not parse")
		return
	}
}

func TestPropCodec(t *testing.T) {
	props := PropVec{
		ChecksumProp{hash.Sum([]byte("abc"))},
		SourceProp{Uri{SchemeFs, "12345"}},
		DurationProp{1.5},
		ChannelsProp{2},
		SamplerateProp{44100},
		TagsProp{[]string{"drums", "loop"}},
		NotesProp{[]string{"from the gig"}},
	}

	for _, p := range props {
		dec, err := DecodeProp(EncodeProp(p))
		if err != nil || !PropEqual(dec, p) {
			t.Error("Unexpected round trip result:", dec, err)
			return
		}
	}

	decv, err := DecodePropVec(EncodePropVec(props))
	if err != nil || len(decv) != len(props) {
		t.Error("Unexpected vector round trip result:", decv, err)
		return
	}

	for i := range props {
		if !PropEqual(decv[i], props[i]) {
			t.Error("Vector member mismatch at", i)
			return
		}
	}

	if !props.Contains(ChannelsProp{2}) || props.Contains(ChannelsProp{4}) {
		t.Error("Unexpected contains result")
		return
	}

	if p := props.ByTag(PropTagDuration); p == nil || p.(DurationProp).Seconds != 1.5 {
		t.Error("Unexpected by-tag result:", p)
		return
	}

	if p := props.ByTag(99); p != nil {
		t.Error("Unknown tag should yield nil:", p)
		return
	}

	if _, err := DecodePropVec([]byte{1, 0, 0, 0, 99}); err == nil {
		t.Error("Unknown prop tag should not decode")
		return
	}
}
