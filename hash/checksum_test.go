/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package hash

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestChecksum(t *testing.T) {
	cs1 := Sum([]byte("some file content"))
	cs2 := Sum([]byte("some file content"))
	cs3 := Sum([]byte("some other content"))

	if cs1 != cs2 {
		t.Error("Checksum of identical content should be identical")
		return
	}

	if cs1 == cs3 {
		t.Error("Checksum of different content should differ")
		return
	}

	cs4, err := SumReader(bytes.NewReader([]byte("some file content")))
	if err != nil || cs4 != cs1 {
		t.Error("Unexpected reader checksum result:", cs4, err)
		return
	}

	if len(cs1.String()) != HexLen {
		t.Error("Unexpected hex length:", cs1.String())
		return
	}

	cs5, err := FromHex(cs1.String())
	if err != nil || cs5 != cs1 {
		t.Error("Unexpected hex round trip result:", cs5, err)
		return
	}

	if _, err := FromHex("zz"); err == nil {
		t.Error("Invalid hex string should not decode")
		return
	}
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")

	if err := os.WriteFile(path, []byte("RIFF data"), 0660); err != nil {
		t.Error(err)
		return
	}

	cs1, err := SumFile(path)
	if err != nil {
		t.Error(err)
		return
	}

	if cs2 := Sum([]byte("RIFF data")); cs1 != cs2 {
		t.Error("File checksum should equal content checksum")
		return
	}

	if _, err := SumFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Missing file should report an error")
		return
	}
}

func TestHashStr(t *testing.T) {
	h := HashStr("bazinga")

	if h%65521 != 57787 {
		t.Error("Unexpected djb2 hash value:", h)
		return
	}

	if HashStr("a") == HashStr("b") {
		t.Error("Different strings should hash differently")
		return
	}
}
