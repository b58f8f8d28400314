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

import "fmt"

/*
MetaTag is the discriminant of a MetaKind value.
*/
type MetaTag byte

/*
Available meta tags
*/
const (
	MetaPath MetaTag = iota
	MetaSource
	MetaArtist
	MetaAlbum
	MetaPlaylist
	MetaColl
	MetaGenre
)

/*
metaTreeNames maps meta tags to the names of the trees which store them.
*/
var metaTreeNames = map[MetaTag]string{
	MetaPath:     "path",
	MetaSource:   "source",
	MetaArtist:   "artist",
	MetaAlbum:    "album",
	MetaPlaylist: "playlist",
	MetaColl:     "coll",
	MetaGenre:    "genre",
}

/*
MetaKind is a metadata value which nodes can carry. Path and Source values
are uris, all other values are plain strings.
*/
type MetaKind struct {
	Tag MetaTag // Discriminant
	URI Uri     // Payload for Path / Source values
	Val string  // Payload for all other values
}

/*
PathMeta returns a path metadata value. Paths are unique per node.
*/
func PathMeta(uri Uri) MetaKind {
	return MetaKind{Tag: MetaPath, URI: uri}
}

/*
SourceMeta returns a source metadata value.
*/
func SourceMeta(uri Uri) MetaKind {
	return MetaKind{Tag: MetaSource, URI: uri}
}

/*
ArtistMeta returns an artist metadata value.
*/
func ArtistMeta(name string) MetaKind {
	return MetaKind{Tag: MetaArtist, Val: name}
}

/*
AlbumMeta returns an album metadata value.
*/
func AlbumMeta(name string) MetaKind {
	return MetaKind{Tag: MetaAlbum, Val: name}
}

/*
PlaylistMeta returns a playlist metadata value.
*/
func PlaylistMeta(name string) MetaKind {
	return MetaKind{Tag: MetaPlaylist, Val: name}
}

/*
CollMeta returns a collection metadata value.
*/
func CollMeta(name string) MetaKind {
	return MetaKind{Tag: MetaColl, Val: name}
}

/*
GenreMeta returns a genre metadata value.
*/
func GenreMeta(name string) MetaKind {
	return MetaKind{Tag: MetaGenre, Val: name}
}

/*
TreeName returns the name of the tree which stores values of this kind.
*/
func (mk MetaKind) TreeName() string {
	return metaTreeNames[mk.Tag]
}

/*
String returns a string representation of this metadata value.
*/
func (mk MetaKind) String() string {
	if mk.Tag == MetaPath || mk.Tag == MetaSource {
		return fmt.Sprintf("%v(%v)", metaTreeNames[mk.Tag], mk.URI)
	}

	return fmt.Sprintf("%v(%v)", metaTreeNames[mk.Tag], mk.Val)
}

/*
Meta is an inverted index entry from a metadata value to the nodes which
carry it.
*/
type Meta struct {
	ID    MetaKind // The metadata value
	Nodes IdVec    // Nodes carrying the value
}
