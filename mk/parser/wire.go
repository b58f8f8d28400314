/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package parser

import (
	"encoding/binary"
	"errors"
	"math"
)

/*
Wire codec related error types
*/
var (
	ErrSerialization   = errors.New("Serialization failed")
	ErrDeserialization = errors.New("Deserialization failed")
)

/*
Wire tags for serialized AST nodes
*/
var wireTags = map[string]byte{
	NodeINT:    0,
	NodeFLOAT:  1,
	NodeDATE:   2,
	NodeTIME:   3,
	NodeCHAR:   4,
	NodeSTR:    5,
	NodeSYMBOL: 6,
	NodeNAME:   7,
	NodeLIST:   8,
	NodeMAP:    9,
	NodeTABLE:  10,
	NodeMONAD:  11,
	NodeDYAD:   12,
	NodeCOND:   13,
	NodeLAMBDA: 14,
	NodeCALL:   15,
	NodeSYS:    16,
	NodeASSIGN: 17,
}

/*
wireNames maps wire tags back to node kinds.
*/
var wireNames = make(map[byte]string)

func init() {
	for name, tag := range wireTags {
		wireNames[tag] = name
	}
}

/*
EncodeNode serializes a single AST node into a binary blob. Blobs are the
payload format of engine eval requests.
*/
func EncodeNode(node *ASTNode) ([]byte, error) {
	return encodeNode(nil, node)
}

/*
EncodeProgram serializes a program into a list of binary blobs.
*/
func EncodeProgram(program Program) ([][]byte, error) {
	ret := make([][]byte, 0, len(program))

	for _, node := range program {
		b, err := EncodeNode(node)
		if err != nil {
			return nil, err
		}

		ret = append(ret, b)
	}

	return ret, nil
}

/*
encodeNode appends the serialized form of a node to a buffer.
*/
func encodeNode(buf []byte, node *ASTNode) ([]byte, error) {
	tag, ok := wireTags[node.Name]
	if !ok {
		return nil, ErrSerialization
	}

	buf = append(buf, tag)

	var scratch [8]byte

	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		buf = append(buf, scratch[:4]...)
	}

	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		buf = append(buf, scratch[:]...)
	}

	writeStr := func(s string) {
		writeU32(uint32(len(s)))
		buf = append(buf, s...)
	}

	switch node.Name {

	case NodeINT, NodeDATE, NodeTIME:
		writeU64(uint64(node.IntVal))

	case NodeFLOAT:
		writeU64(math.Float64bits(node.FloatVal))

	case NodeCHAR, NodeSTR, NodeSYMBOL, NodeNAME:
		writeStr(node.StrVal)

	case NodeMONAD:
		buf = append(buf, byte(node.Monad), byte(node.Adverb))

	case NodeDYAD:
		buf = append(buf, byte(node.Dyad), byte(node.Adverb))

	case NodeSYS:
		buf = append(buf, byte(node.Sys))

	case NodeLAMBDA:
		writeU32(uint32(len(node.Args)))
		for _, arg := range node.Args {
			writeStr(arg)
		}

	case NodeASSIGN:
		writeStr(node.StrVal)
	}

	writeU32(uint32(len(node.Children)))

	for _, c := range node.Children {
		var err error

		if buf, err = encodeNode(buf, c); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

/*
DecodeNode deserializes a single AST node from a binary blob.
*/
func DecodeNode(data []byte) (*ASTNode, error) {
	node, off, err := decodeNode(data, 0)
	if err != nil {
		return nil, err
	}

	if off != len(data) {
		return nil, ErrDeserialization
	}

	return node, nil
}

/*
decodeNode deserializes a node starting at a given offset.
*/
func decodeNode(data []byte, off int) (*ASTNode, int, error) {
	if off >= len(data) {
		return nil, 0, ErrDeserialization
	}

	name, ok := wireNames[data[off]]
	if !ok {
		return nil, 0, ErrDeserialization
	}
	off++

	node := &ASTNode{Name: name}

	readU32 := func() (uint32, bool) {
		if off+4 > len(data) {
			return 0, false
		}
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return v, true
	}

	readU64 := func() (uint64, bool) {
		if off+8 > len(data) {
			return 0, false
		}
		v := binary.LittleEndian.Uint64(data[off:])
		off += 8
		return v, true
	}

	readStr := func() (string, bool) {
		l, ok := readU32()
		if !ok || off+int(l) > len(data) {
			return "", false
		}
		s := string(data[off : off+int(l)])
		off += int(l)
		return s, true
	}

	readByte := func() (byte, bool) {
		if off >= len(data) {
			return 0, false
		}
		b := data[off]
		off++
		return b, true
	}

	switch name {

	case NodeINT, NodeDATE, NodeTIME:
		v, ok := readU64()
		if !ok {
			return nil, 0, ErrDeserialization
		}
		node.IntVal = int64(v)

	case NodeFLOAT:
		v, ok := readU64()
		if !ok {
			return nil, 0, ErrDeserialization
		}
		node.FloatVal = math.Float64frombits(v)

	case NodeCHAR, NodeSTR, NodeSYMBOL, NodeNAME:
		s, ok := readStr()
		if !ok {
			return nil, 0, ErrDeserialization
		}
		node.StrVal = s

	case NodeMONAD:
		verb, ok1 := readByte()
		adverb, ok2 := readByte()
		if !ok1 || !ok2 {
			return nil, 0, ErrDeserialization
		}
		node.Monad = MonadicVerb(verb)
		node.Adverb = AdVerb(adverb)

	case NodeDYAD:
		verb, ok1 := readByte()
		adverb, ok2 := readByte()
		if !ok1 || !ok2 {
			return nil, 0, ErrDeserialization
		}
		node.Dyad = DyadicVerb(verb)
		node.Adverb = AdVerb(adverb)

	case NodeSYS:
		verb, ok := readByte()
		if !ok {
			return nil, 0, ErrDeserialization
		}
		node.Sys = SysVerb(verb)

	case NodeLAMBDA:
		count, ok := readU32()
		if !ok {
			return nil, 0, ErrDeserialization
		}

		for i := uint32(0); i < count; i++ {
			arg, ok := readStr()
			if !ok {
				return nil, 0, ErrDeserialization
			}
			node.Args = append(node.Args, arg)
		}

	case NodeASSIGN:
		s, ok := readStr()
		if !ok {
			return nil, 0, ErrDeserialization
		}
		node.StrVal = s
	}

	count, ok := readU32()
	if !ok {
		return nil, 0, ErrDeserialization
	}

	for i := uint32(0); i < count; i++ {
		var child *ASTNode
		var err error

		if child, off, err = decodeNode(data, off); err != nil {
			return nil, 0, err
		}

		node.Children = append(node.Children, child)
	}

	return node, off, nil
}
