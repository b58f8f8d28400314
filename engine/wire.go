/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package engine

import (
	"bytes"
	"encoding/binary"
	"math"
)

/*
Argument type tags of the wire envelope
*/
const (
	ArgInt32   = 'i'
	ArgInt64   = 'h'
	ArgFloat32 = 'f'
	ArgFloat64 = 'd'
	ArgString  = 's'
	ArgBlob    = 'b'
)

/*
Arg is a single typed argument of a message.
*/
type Arg struct {
	Tag byte    // Type tag
	I   int64   // Integer payload
	F   float64 // Float payload
	S   string  // String payload
	B   []byte  // Blob payload
}

/*
IntArg returns an integer argument.
*/
func IntArg(v int64) Arg { return Arg{Tag: ArgInt64, I: v} }

/*
FloatArg returns a float argument.
*/
func FloatArg(v float64) Arg { return Arg{Tag: ArgFloat64, F: v} }

/*
StrArg returns a string argument.
*/
func StrArg(s string) Arg { return Arg{Tag: ArgString, S: s} }

/*
BlobArg returns a blob argument.
*/
func BlobArg(b []byte) Arg { return Arg{Tag: ArgBlob, B: b} }

/*
Message is a self-describing typed envelope. Addresses are forward-slash
separated.
*/
type Message struct {
	Addr string // Address of the message
	Args []Arg  // Typed arguments
}

/*
NewMessage creates a new message.
*/
func NewMessage(addr string, args ...Arg) *Message {
	return &Message{Addr: addr, Args: args}
}

/*
writePadded writes a string with a zero terminator padded to a multiple
of four bytes.
*/
func writePadded(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)

	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

/*
Encode serializes a message into a datagram.
*/
func Encode(msg *Message) ([]byte, error) {
	if msg.Addr == "" || msg.Addr[0] != '/' {
		return nil, &Error{Type: ErrBadAddr, Detail: msg.Addr}
	}

	var buf bytes.Buffer

	writePadded(&buf, msg.Addr)

	tags := make([]byte, 0, len(msg.Args)+1)
	tags = append(tags, ',')
	for _, a := range msg.Args {
		tags = append(tags, a.Tag)
	}

	writePadded(&buf, string(tags))

	var scratch [8]byte

	for _, a := range msg.Args {

		switch a.Tag {

		case ArgInt32:
			binary.BigEndian.PutUint32(scratch[:4], uint32(int32(a.I)))
			buf.Write(scratch[:4])

		case ArgInt64:
			binary.BigEndian.PutUint64(scratch[:], uint64(a.I))
			buf.Write(scratch[:])

		case ArgFloat32:
			binary.BigEndian.PutUint32(scratch[:4], math.Float32bits(float32(a.F)))
			buf.Write(scratch[:4])

		case ArgFloat64:
			binary.BigEndian.PutUint64(scratch[:], math.Float64bits(a.F))
			buf.Write(scratch[:])

		case ArgString:
			writePadded(&buf, a.S)

		case ArgBlob:
			binary.BigEndian.PutUint32(scratch[:4], uint32(len(a.B)))
			buf.Write(scratch[:4])
			buf.Write(a.B)
			for buf.Len()%4 != 0 {
				buf.WriteByte(0)
			}

		default:
			return nil, &Error{Type: ErrBadArg, Detail: string(a.Tag)}
		}
	}

	return buf.Bytes(), nil
}

/*
readPadded reads a zero-terminated string padded to a multiple of four
bytes.
*/
func readPadded(data []byte, off int) (string, int, bool) {
	end := bytes.IndexByte(data[off:], 0)
	if end < 0 {
		return "", 0, false
	}

	s := string(data[off : off+end])

	off += end + 1
	for off%4 != 0 {
		off++
	}

	if off > len(data) {
		return "", 0, false
	}

	return s, off, true
}

/*
Decode deserializes a datagram into a message.
*/
func Decode(data []byte) (*Message, error) {
	badPacket := &Error{Type: ErrBadPacket, Detail: "truncated packet"}

	addr, off, ok := readPadded(data, 0)
	if !ok {
		return nil, badPacket
	}

	if addr == "" || addr[0] != '/' {
		return nil, &Error{Type: ErrBadAddr, Detail: addr}
	}

	msg := &Message{Addr: addr}

	if off >= len(data) {
		return msg, nil
	}

	tags, off, ok := readPadded(data, off)
	if !ok || len(tags) == 0 || tags[0] != ',' {
		return nil, badPacket
	}

	for _, tag := range []byte(tags[1:]) {

		switch tag {

		case ArgInt32:
			if off+4 > len(data) {
				return nil, badPacket
			}
			msg.Args = append(msg.Args, Arg{Tag: ArgInt32,
				I: int64(int32(binary.BigEndian.Uint32(data[off:])))})
			off += 4

		case ArgInt64:
			if off+8 > len(data) {
				return nil, badPacket
			}
			msg.Args = append(msg.Args, Arg{Tag: ArgInt64,
				I: int64(binary.BigEndian.Uint64(data[off:]))})
			off += 8

		case ArgFloat32:
			if off+4 > len(data) {
				return nil, badPacket
			}
			msg.Args = append(msg.Args, Arg{Tag: ArgFloat32,
				F: float64(math.Float32frombits(binary.BigEndian.Uint32(data[off:])))})
			off += 4

		case ArgFloat64:
			if off+8 > len(data) {
				return nil, badPacket
			}
			msg.Args = append(msg.Args, Arg{Tag: ArgFloat64,
				F: math.Float64frombits(binary.BigEndian.Uint64(data[off:]))})
			off += 8

		case ArgString:
			s, noff, ok := readPadded(data, off)
			if !ok {
				return nil, badPacket
			}
			msg.Args = append(msg.Args, Arg{Tag: ArgString, S: s})
			off = noff

		case ArgBlob:
			if off+4 > len(data) {
				return nil, badPacket
			}

			l := int(binary.BigEndian.Uint32(data[off:]))
			off += 4

			if off+l > len(data) {
				return nil, badPacket
			}

			b := make([]byte, l)
			copy(b, data[off:off+l])

			msg.Args = append(msg.Args, Arg{Tag: ArgBlob, B: b})

			off += l
			for off%4 != 0 {
				off++
			}

		default:
			return nil, &Error{Type: ErrBadArg, Detail: string(tag)}
		}
	}

	return msg, nil
}
