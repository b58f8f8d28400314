/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ot

import (
	"path/filepath"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	f := New(174)
	f.TrimLen = 44100
	f.TrimEnd = 44100
	f.Gain = 12
	f.Quantize = 8
	f.Loop = LoopNormal
	f.Stretch = StretchBeat

	for i := 0; i < 4; i++ {
		if err := f.AddSlice(uint32(i*1000), uint32(i*1000+999), 0); err != nil {
			t.Error(err)
			return
		}
	}

	data, err := f.Encode()
	if err != nil {
		t.Error(err)
		return
	}

	if len(data) != FileSize {
		t.Error("File should be exactly 832 bytes:", len(data))
		return
	}

	// The header is fixed

	if string(data[0:4]) != "FORM" {
		t.Error("Unexpected header:", data[0:4])
		return
	}

	dec, err := Decode(data)
	if err != nil {
		t.Error(err)
		return
	}

	if dec.Tempo != 174 || dec.Gain != 12 || dec.Quantize != 8 ||
		dec.Loop != LoopNormal || dec.Stretch != StretchBeat {
		t.Error("Unexpected decode result:", dec)
		return
	}

	if dec.NumSlices != 4 || dec.Slices[2].Start != 2000 || dec.Slices[2].End != 2999 {
		t.Error("Unexpected slices:", dec.NumSlices, dec.Slices[2])
		return
	}
}

func TestChecksumValidation(t *testing.T) {
	f := New(120)

	data, err := f.Encode()
	if err != nil {
		t.Error(err)
		return
	}

	// A flipped byte breaks the checksum

	data[100]++

	if _, err := Decode(data); err != ErrBadChecksum {
		t.Error("Expected checksum error, got:", err)
		return
	}

	// Wrong sizes and headers are detected

	if _, err := Decode(data[:100]); err == nil {
		t.Error("Short file should not decode")
		return
	}

	bad := make([]byte, FileSize)
	if _, err := Decode(bad); err != ErrBadHeader {
		t.Error("Expected header error, got:", err)
		return
	}
}

func TestSliceLimit(t *testing.T) {
	f := New(120)

	for i := 0; i < SliceCount; i++ {
		if err := f.AddSlice(0, 1, 0); err != nil {
			t.Error(err)
			return
		}
	}

	if err := f.AddSlice(0, 1, 0); err == nil {
		t.Error("The 65th slice should be rejected")
		return
	}

	// Out of range gain is rejected

	f.Gain = 99

	if _, err := f.Encode(); err == nil {
		t.Error("Out of range gain should be rejected")
		return
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ot")

	f := New(140)
	f.AddSlice(0, 500, 250)

	if err := f.WriteFile(path); err != nil {
		t.Error(err)
		return
	}

	dec, err := ReadFile(path)
	if err != nil || dec.Tempo != 140 || dec.NumSlices != 1 {
		t.Error("Unexpected file round trip:", dec, err)
		return
	}
}
