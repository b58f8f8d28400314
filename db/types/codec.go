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
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"devt.de/krotik/mpk/hash"
)

/*
Codec related error types
*/
var (
	ErrShortData = errors.New("Unexpected end of data")
	ErrBadTag    = errors.New("Unknown discriminant")
)

// Encoding
// ========

/*
appendU32 appends a little-endian uint32.
*/
func appendU32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

/*
appendString appends a length-prefixed UTF-8 string.
*/
func appendString(b []byte, s string) []byte {
	b = appendU32(b, uint32(len(s)))
	return append(b, s...)
}

/*
appendUri appends a uri as scheme tag plus length-prefixed path.
*/
func appendUri(b []byte, u Uri) []byte {
	b = append(b, byte(u.Scheme))
	return appendString(b, u.Path)
}

/*
EncodeId encodes an Id (16 bytes, big-endian).
*/
func EncodeId(id Id) []byte {
	ret := make([]byte, IdLen)
	copy(ret, id[:])
	return ret
}

/*
EncodeIdVec encodes a vector of Ids.
*/
func EncodeIdVec(v IdVec) []byte {
	ret := appendU32(nil, uint32(len(v)))

	for _, id := range v {
		ret = append(ret, id[:]...)
	}

	return ret
}

/*
EncodeNodeKind encodes a node kind (1 byte discriminant).
*/
func EncodeNodeKind(k NodeKind) []byte {
	return []byte{byte(k)}
}

/*
EncodeEdgeKey encodes an edge key (1 byte kind + inbound + outbound id).
*/
func EncodeEdgeKey(k EdgeKey) []byte {
	ret := make([]byte, 0, 1+2*IdLen)
	ret = append(ret, byte(k.Kind))
	ret = append(ret, k.Inbound[:]...)
	ret = append(ret, k.Outbound[:]...)
	return ret
}

/*
EncodeTimestamp encodes a timestamp (16 bytes, big-endian).
*/
func EncodeTimestamp(ts Timestamp) []byte {
	ret := make([]byte, 16)
	binary.BigEndian.PutUint64(ret[8:], uint64(ts))
	return ret
}

/*
EncodeMetaKind encodes a metadata value (1 byte tag + payload).
*/
func EncodeMetaKind(mk MetaKind) []byte {
	ret := []byte{byte(mk.Tag)}

	if mk.Tag == MetaPath || mk.Tag == MetaSource {
		return appendUri(ret, mk.URI)
	}

	return appendString(ret, mk.Val)
}

/*
EncodeProp encodes a single property (1 byte tag + payload).
*/
func EncodeProp(p Prop) []byte {
	ret := []byte{p.Tag()}

	switch pv := p.(type) {

	case ChecksumProp:
		ret = append(ret, pv.Sum[:]...)

	case SourceProp:
		ret = appendUri(ret, pv.URI)

	case DurationProp:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pv.Seconds))
		ret = append(ret, buf[:]...)

	case ChannelsProp:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], pv.Count)
		ret = append(ret, buf[:]...)

	case SamplerateProp:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], pv.Rate)
		ret = append(ret, buf[:]...)

	case TagsProp:
		ret = appendU32(ret, uint32(len(pv.Tags)))
		for _, s := range pv.Tags {
			ret = appendString(ret, s)
		}

	case NotesProp:
		ret = appendU32(ret, uint32(len(pv.Notes)))
		for _, s := range pv.Notes {
			ret = appendString(ret, s)
		}
	}

	return ret
}

/*
EncodePropVec encodes a vector of properties.
*/
func EncodePropVec(v PropVec) []byte {
	ret := appendU32(nil, uint32(len(v)))

	for _, p := range v {
		ret = append(ret, EncodeProp(p)...)
	}

	return ret
}

// Decoding
// ========

/*
reader is a cursor over serialized data.
*/
type reader struct {
	data []byte
	off  int
}

/*
u8 reads a single byte.
*/
func (r *reader) u8() (byte, error) {
	if r.off+1 > len(r.data) {
		return 0, ErrShortData
	}

	ret := r.data[r.off]
	r.off++

	return ret, nil
}

/*
u16 reads a little-endian uint16.
*/
func (r *reader) u16() (uint16, error) {
	if r.off+2 > len(r.data) {
		return 0, ErrShortData
	}

	ret := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2

	return ret, nil
}

/*
u32 reads a little-endian uint32.
*/
func (r *reader) u32() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, ErrShortData
	}

	ret := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4

	return ret, nil
}

/*
f64 reads a little-endian float64.
*/
func (r *reader) f64() (float64, error) {
	if r.off+8 > len(r.data) {
		return 0, ErrShortData
	}

	ret := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.off:]))
	r.off += 8

	return ret, nil
}

/*
bytes reads a fixed number of bytes.
*/
func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, ErrShortData
	}

	ret := r.data[r.off : r.off+n]
	r.off += n

	return ret, nil
}

/*
str reads a length-prefixed UTF-8 string.
*/
func (r *reader) str() (string, error) {
	l, err := r.u32()
	if err != nil {
		return "", err
	}

	b, err := r.bytes(int(l))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

/*
uri reads a scheme tag plus length-prefixed path.
*/
func (r *reader) uri() (Uri, error) {
	scheme, err := r.u8()
	if err != nil {
		return Uri{}, err
	}

	if _, ok := schemeNames[UriScheme(scheme)]; !ok {
		return Uri{}, fmt.Errorf("%v: uri scheme %v", ErrBadTag, scheme)
	}

	path, err := r.str()
	if err != nil {
		return Uri{}, err
	}

	return Uri{UriScheme(scheme), path}, nil
}

/*
DecodeId decodes an Id.
*/
func DecodeId(data []byte) (Id, error) {
	var id Id

	if len(data) != IdLen {
		return id, ErrShortData
	}

	copy(id[:], data)

	return id, nil
}

/*
DecodeIdVec decodes a vector of Ids.
*/
func DecodeIdVec(data []byte) (IdVec, error) {
	r := &reader{data, 0}

	l, err := r.u32()
	if err != nil {
		return nil, err
	}

	ret := make(IdVec, 0, l)

	for i := uint32(0); i < l; i++ {
		b, err := r.bytes(IdLen)
		if err != nil {
			return nil, err
		}

		var id Id
		copy(id[:], b)
		ret = append(ret, id)
	}

	return ret, nil
}

/*
DecodeNodeKind decodes a node kind.
*/
func DecodeNodeKind(data []byte) (NodeKind, error) {
	if len(data) != 1 {
		return 0, ErrShortData
	}

	kind := NodeKind(data[0])

	if _, ok := nodeKindNames[kind]; !ok {
		return 0, fmt.Errorf("%v: node kind %v", ErrBadTag, data[0])
	}

	return kind, nil
}

/*
DecodeEdgeKey decodes an edge key.
*/
func DecodeEdgeKey(data []byte) (EdgeKey, error) {
	var key EdgeKey

	if len(data) != 1+2*IdLen {
		return key, ErrShortData
	}

	kind := EdgeKind(data[0])
	if _, ok := edgeKindNames[kind]; !ok {
		return key, fmt.Errorf("%v: edge kind %v", ErrBadTag, data[0])
	}

	key.Kind = kind
	copy(key.Inbound[:], data[1:1+IdLen])
	copy(key.Outbound[:], data[1+IdLen:])

	return key, nil
}

/*
DecodeTimestamp decodes a timestamp.
*/
func DecodeTimestamp(data []byte) (Timestamp, error) {
	if len(data) != 16 {
		return 0, ErrShortData
	}

	return Timestamp(binary.BigEndian.Uint64(data[8:])), nil
}

/*
DecodeMetaKind decodes a metadata value.
*/
func DecodeMetaKind(data []byte) (MetaKind, error) {
	r := &reader{data, 0}

	tag, err := r.u8()
	if err != nil {
		return MetaKind{}, err
	}

	mtag := MetaTag(tag)

	if _, ok := metaTreeNames[mtag]; !ok {
		return MetaKind{}, fmt.Errorf("%v: meta tag %v", ErrBadTag, tag)
	}

	if mtag == MetaPath || mtag == MetaSource {
		uri, err := r.uri()
		if err != nil {
			return MetaKind{}, err
		}

		return MetaKind{Tag: mtag, URI: uri}, nil
	}

	val, err := r.str()
	if err != nil {
		return MetaKind{}, err
	}

	return MetaKind{Tag: mtag, Val: val}, nil
}

/*
decodeProp decodes a single property from a reader.
*/
func decodeProp(r *reader) (Prop, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}

	switch tag {

	case PropTagChecksum:
		b, err := r.bytes(hash.OutLen)
		if err != nil {
			return nil, err
		}

		var cs hash.Checksum
		copy(cs[:], b)

		return ChecksumProp{cs}, nil

	case PropTagSource:
		uri, err := r.uri()
		if err != nil {
			return nil, err
		}

		return SourceProp{uri}, nil

	case PropTagDuration:
		f, err := r.f64()
		if err != nil {
			return nil, err
		}

		return DurationProp{f}, nil

	case PropTagChannels:
		v, err := r.u16()
		if err != nil {
			return nil, err
		}

		return ChannelsProp{v}, nil

	case PropTagSamplerate:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}

		return SamplerateProp{v}, nil

	case PropTagTags, PropTagNotes:
		l, err := r.u32()
		if err != nil {
			return nil, err
		}

		items := make([]string, 0, l)
		for i := uint32(0); i < l; i++ {
			s, err := r.str()
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}

		if tag == PropTagTags {
			return TagsProp{items}, nil
		}

		return NotesProp{items}, nil
	}

	return nil, fmt.Errorf("%v: prop tag %v", ErrBadTag, tag)
}

/*
DecodeProp decodes a single property.
*/
func DecodeProp(data []byte) (Prop, error) {
	return decodeProp(&reader{data, 0})
}

/*
DecodePropVec decodes a vector of properties.
*/
func DecodePropVec(data []byte) (PropVec, error) {
	r := &reader{data, 0}

	l, err := r.u32()
	if err != nil {
		return nil, err
	}

	ret := make(PropVec, 0, l)

	for i := uint32(0); i < l; i++ {
		p, err := decodeProp(r)
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}

	return ret, nil
}
