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
Package ingest contains the media file walkers.

SyncSamples and SyncTracks walk a directory tree, checksum every media
file and store nodes, path metadata and properties in the media graph.
Track files additionally contribute artist, album and genre metadata
read from their tags. A file whose path is already known is skipped
unless its content changed - then its properties are recomputed. Errors
of single files are logged and never abort a walk.
*/
package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/mpk/db"
	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/hash"
	"github.com/dhowden/tag"
)

/*
sampleExts lists the file extensions treated as samples.
*/
var sampleExts = map[string]bool{
	".wav": true, ".aif": true, ".aiff": true, ".flac": true,
}

/*
trackExts lists the file extensions treated as tracks.
*/
var trackExts = map[string]bool{
	".mp3": true, ".flac": true, ".ogg": true, ".m4a": true, ".wav": true,
}

/*
Stats reports the outcome of a sync run.
*/
type Stats struct {
	Scanned int // Files considered
	Added   int // New nodes created
	Updated int // Nodes whose properties were recomputed
	Skipped int // Files already known and unchanged
	Errors  int // Files which could not be ingested
}

/*
Walker ingests media files into a graph manager.
*/
type Walker struct {
	gm  *db.Manager
	log logutil.Logger
}

/*
NewWalker creates a new ingest walker on a graph manager.
*/
func NewWalker(gm *db.Manager) *Walker {
	return &Walker{gm: gm, log: logutil.GetLogger("mpk.ingest")}
}

/*
SyncSamples walks a directory tree and ingests all sample files.
*/
func (w *Walker) SyncSamples(root string) (*Stats, error) {
	return w.sync(root, types.KindSample, sampleExts)
}

/*
SyncTracks walks a directory tree and ingests all track files.
*/
func (w *Walker) SyncTracks(root string) (*Stats, error) {
	return w.sync(root, types.KindTrack, trackExts)
}

/*
sync walks a directory tree and ingests all matching files. A single bad
file never aborts the walk.
*/
func (w *Walker) sync(root string, kind types.NodeKind, exts map[string]bool) (*Stats, error) {
	stats := &Stats{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			w.log.Warning("Cannot access ", path, ": ", werr)
			stats.Errors++
			return nil
		}

		if d.IsDir() || !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		stats.Scanned++

		if err := w.ingestFile(path, kind, stats); err != nil {
			w.log.Error("Cannot ingest ", path, ": ", err)
			stats.Errors++
		}

		return nil
	})

	if err != nil {
		return stats, err
	}

	return stats, nil
}

/*
ingestFile ingests a single file.
*/
func (w *Walker) ingestFile(path string, kind types.NodeKind, stats *Stats) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	uri := types.FileUri(abs)

	sum, err := hash.SumFile(path)
	if err != nil {
		return err
	}

	// A known path is only re-ingested when its content changed

	if node, err := w.gm.LookupPath(uri); err != nil {
		return err
	} else if node != nil {

		props, err := w.gm.FetchNodeProps(node.ID)
		if err != nil {
			return err
		}

		if p := props.ByTag(types.PropTagChecksum); p != nil &&
			p.(types.ChecksumProp).Sum == sum {

			w.log.Info("Skipping ", path, ": already exists")
			stats.Skipped++

			return nil
		}

		// The file's bytes changed: recompute the properties

		if err := w.gm.SetNodeProps(node.ID, w.fileProps(path, kind, sum)); err != nil {
			return err
		}

		stats.Updated++

		return nil
	}

	node := types.NewNode(kind)

	if err := w.gm.StoreNode(node); err != nil {
		return err
	}

	if err := w.gm.AddMeta(types.PathMeta(uri), node.ID); err != nil {
		return err
	}

	for _, p := range w.fileProps(path, kind, sum) {
		if err := w.gm.MergeNodeProp(node.ID, p); err != nil {
			return err
		}
	}

	if kind == types.KindTrack {
		w.tagMeta(path, node.ID)
	}

	stats.Added++

	return nil
}

/*
fileProps probes a file and returns its property vector.
*/
func (w *Walker) fileProps(path string, kind types.NodeKind, sum hash.Checksum) types.PropVec {
	props := types.PropVec{types.ChecksumProp{Sum: sum}}

	if info, err := ProbeWav(path); err == nil {
		props = append(props,
			types.DurationProp{Seconds: info.Duration},
			types.ChannelsProp{Count: info.Channels},
			types.SamplerateProp{Rate: info.Samplerate})
	}

	return props
}

/*
tagMeta reads the tags of a track and merges artist, album and genre
metadata. Tag errors are ignored - not every track carries tags.
*/
func (w *Walker) tagMeta(path string, id types.Id) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return
	}

	if artist := meta.Artist(); artist != "" {
		if err := w.gm.AddMeta(types.ArtistMeta(artist), id); err != nil {
			w.log.Warning("Cannot add artist for ", path, ": ", err)
		}
	}

	if album := meta.Album(); album != "" {
		if err := w.gm.AddMeta(types.AlbumMeta(album), id); err != nil {
			w.log.Warning("Cannot add album for ", path, ": ", err)
		}
	}

	if genre := meta.Genre(); genre != "" {
		if err := w.gm.AddMeta(types.GenreMeta(genre), id); err != nil {
			w.log.Warning("Cannot add genre for ", path, ": ", err)
		}
	}
}
