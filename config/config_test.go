/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"devt.de/krotik/common/testutil"
)

func TestBuildAndRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")

	cfg := Default(root)

	if err := cfg.Build(); err != nil {
		t.Error(err)
		return
	}

	// The media directories exist

	for _, dir := range []string{"analysis", "samples", "sesh", "plugins",
		"patches", "tracks"} {

		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Error("Missing media directory:", dir, err)
			return
		}
	}

	// Building twice is idempotent

	if err := cfg.Build(); err != nil {
		t.Error(err)
		return
	}

	if err := cfg.Write(root); err != nil {
		t.Error(err)
		return
	}

	loaded, err := Load(filepath.Join(root, ConfigFile))
	if err != nil {
		t.Error(err)
		return
	}

	if loaded.Fs.Root != root || loaded.Db.Mode != "small" ||
		loaded.Engine.Socket != cfg.Engine.Socket ||
		loaded.Metro.Bpm != 120 {
		t.Error("Unexpected loaded config:", loaded)
		return
	}

	if loaded.SampleDir() != filepath.Join(root, "samples") ||
		loaded.TrackDir() != filepath.Join(root, "tracks") {
		t.Error("Unexpected media dir paths")
		return
	}

	if len(loaded.MediaDirs()) != 6 {
		t.Error("Unexpected media dir count:", loaded.MediaDirs())
		return
	}

	// Loading a missing file reports an error

	if _, err := Load(filepath.Join(root, "nosuch.toml")); err == nil {
		t.Error("Missing config file should report an error")
		return
	}
}

func TestEncodeErrors(t *testing.T) {
	cfg := Default("/tmp/repo")

	// Write errors of the underlying writer surface

	etb := &testutil.ErrorTestingBuffer{RemainingSize: 10}

	if err := cfg.Encode(etb); err == nil {
		t.Error("A full buffer should report a write error")
		return
	}

	// A large enough buffer takes the whole configuration

	etb = &testutil.ErrorTestingBuffer{RemainingSize: 65536}

	if err := cfg.Encode(etb); err != nil || etb.WrittenSize == 0 {
		t.Error("Unexpected encode result:", etb.WrittenSize, err)
		return
	}
}
