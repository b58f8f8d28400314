/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package flate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPackUnpack(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "repo")
	os.MkdirAll(filepath.Join(src, "samples"), 0770)

	os.WriteFile(filepath.Join(src, "mpk.toml"), []byte("[fs]\n"), 0660)
	os.WriteFile(filepath.Join(src, "samples", "a.wav"), []byte("RIFFdata"), 0660)

	archive := filepath.Join(dir, "repo.tar.zst")

	if err := Pack(src, archive, LevelDefault); err != nil {
		t.Error(err)
		return
	}

	if !IsTar(archive) {
		t.Error("Archive name should be recognized as tar")
		return
	}

	dst := filepath.Join(dir, "out")

	if err := Unpack(archive, dst); err != nil {
		t.Error(err)
		return
	}

	data, err := os.ReadFile(filepath.Join(dst, "repo", "samples", "a.wav"))
	if err != nil || string(data) != "RIFFdata" {
		t.Error("Unexpected unpacked content:", string(data), err)
		return
	}

	data, err = os.ReadFile(filepath.Join(dst, "repo", "mpk.toml"))
	if err != nil || string(data) != "[fs]\n" {
		t.Error("Unexpected unpacked content:", string(data), err)
		return
	}
}

func TestUnpackReplace(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "repo")
	os.MkdirAll(src, 0770)
	os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0660)

	archive := filepath.Join(dir, "repo.tar.zst")

	if err := Pack(src, archive, LevelBest); err != nil {
		t.Error(err)
		return
	}

	if err := UnpackReplace(archive, filepath.Join(dir, "out")); err != nil {
		t.Error(err)
		return
	}

	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("Source archive should have been removed")
		return
	}
}

func TestSingleFileCompression(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "a.bin")
	os.WriteFile(src, []byte("some content to compress"), 0660)

	compressed := filepath.Join(dir, "a.bin.zst")

	// Packing a single file skips the tar layer

	if err := Pack(src, compressed, LevelFastest); err != nil {
		t.Error(err)
		return
	}

	restored := filepath.Join(dir, "restored.bin")

	if err := Unpack(compressed, restored); err != nil {
		t.Error(err)
		return
	}

	data, err := os.ReadFile(restored)
	if err != nil || string(data) != "some content to compress" {
		t.Error("Unexpected restored content:", string(data), err)
		return
	}
}
