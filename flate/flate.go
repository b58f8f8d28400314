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
Package flate contains the tar + zstd packaging of repository
directories.

Pack archives a directory (or compresses a single file) into a .tar.zst
archive; Unpack restores it. UnpackReplace additionally removes the
source archive.
*/
package flate

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

/*
Level is the compression level.
*/
type Level int

/*
Available compression levels
*/
const (
	LevelDefault Level = iota
	LevelFastest
	LevelBest
)

/*
encoderLevel maps levels to the underlying codec levels.
*/
func (l Level) encoderLevel() zstd.EncoderLevel {
	switch l {

	case LevelFastest:
		return zstd.SpeedFastest

	case LevelBest:
		return zstd.SpeedBestCompression
	}

	return zstd.SpeedDefault
}

/*
IsTar checks if a path names a tar archive.
*/
func IsTar(path string) bool {
	return strings.Contains(filepath.Base(path), ".tar")
}

/*
Pack archives a source directory into a compressed archive at dst. A
single file source is compressed without the tar layer.
*/
func Pack(src string, dst string, level Level) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return Compress(src, dst, level)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(level.encoderLevel()))
	if err != nil {
		return err
	}

	tw := tar.NewWriter(enc)

	base := filepath.Base(src)

	err = filepath.Walk(src, func(path string, fi os.FileInfo, werr error) error {
		if werr != nil {
			return werr
		}

		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			return rerr
		}

		name := filepath.ToSlash(filepath.Join(base, rel))

		hdr, herr := tar.FileInfoHeader(fi, "")
		if herr != nil {
			return herr
		}
		hdr.Name = name

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if fi.IsDir() {
			return nil
		}

		f, ferr := os.Open(path)
		if ferr != nil {
			return ferr
		}
		defer f.Close()

		_, cerr := io.Copy(tw, f)

		return cerr
	})

	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}

	return enc.Close()
}

/*
Unpack restores a compressed archive into a destination directory. A
plain compressed file is decompressed to the destination path.
*/
func Unpack(src string, dst string) error {
	if !IsTar(src) {
		return Decompress(src, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return err
	}
	defer dec.Close()

	tr := tar.NewReader(dec)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		path := filepath.Join(dst, filepath.FromSlash(hdr.Name))

		// Entries may not escape the destination directory

		if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(dst)) {
			continue
		}

		if hdr.FileInfo().IsDir() {
			if err := os.MkdirAll(path, hdr.FileInfo().Mode()); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return err
		}

		out, err := os.Create(path)
		if err != nil {
			return err
		}

		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}

		out.Close()
	}

	return nil
}

/*
UnpackReplace restores a compressed archive and removes the source
archive.
*/
func UnpackReplace(src string, dst string) error {
	if err := Unpack(src, dst); err != nil {
		return err
	}

	return os.Remove(src)
}

/*
Compress compresses a single file.
*/
func Compress(src string, dst string, level Level) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(level.encoderLevel()))
	if err != nil {
		return err
	}

	if _, err := io.Copy(enc, in); err != nil {
		return err
	}

	return enc.Close()
}

/*
Decompress decompresses a single file.
*/
func Decompress(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return err
	}
	defer dec.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, dec)

	return err
}
