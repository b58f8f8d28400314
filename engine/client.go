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
	"net"
	"time"

	"devt.de/krotik/mpk/mk/parser"
)

/*
Client is a datagram client for the engine. It is used by the command
line tools to talk to a running daemon.
*/
type Client struct {
	conn    *net.UDPConn
	timeout time.Duration
}

/*
Dial connects a client to an engine address.
*/
func Dial(addr string, timeout time.Duration) (*Client, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, &Error{Type: ErrBadAddr, Detail: err.Error()}
	}

	conn, err := net.DialUDP("udp", nil, uaddr)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn, timeout: timeout}, nil
}

/*
LocalAddr returns the local address of the client (the address the
engine sees requests from).
*/
func (c *Client) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

/*
Close closes the client.
*/
func (c *Client) Close() error {
	return c.conn.Close()
}

/*
Call sends a request and awaits the reply.
*/
func (c *Client) Call(msg *Message) (*Message, error) {
	data, err := Encode(msg)
	if err != nil {
		return nil, err
	}

	if _, err := c.conn.Write(data); err != nil {
		return nil, err
	}

	return c.Recv()
}

/*
Recv awaits a single message (used for watch event streams after the
initial acknowledgement).
*/
func (c *Client) Recv() (*Message, error) {
	buf := make([]byte, MTU)

	c.conn.SetReadDeadline(time.Now().Add(c.timeout))

	n, err := c.conn.Read(buf)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, &Error{Type: ErrTimeout, Detail: c.conn.RemoteAddr().String()}
		}
		return nil, err
	}

	return Decode(buf[:n])
}

/*
resultErr converts an error reply into an error.
*/
func resultErr(reply *Message) error {
	if reply.Addr != AddrResultErr {
		return nil
	}

	detail := ""
	for _, a := range reply.Args {
		if a.Tag == ArgString {
			if detail != "" {
				detail += ": "
			}
			detail += a.S
		}
	}

	return &Error{Type: ErrBadCode, Detail: detail}
}

/*
Eval parses a source string locally and sends it for evaluation. Returns
the printed results.
*/
func (c *Client) Eval(src string) (string, error) {
	program, err := parser.Parse("eval", src)
	if err != nil {
		return "", err
	}

	blobs, err := parser.EncodeProgram(program)
	if err != nil {
		return "", err
	}

	args := make([]Arg, 0, len(blobs))
	for _, b := range blobs {
		args = append(args, BlobArg(b))
	}

	reply, err := c.Call(NewMessage("/mpk/vm/eval", args...))
	if err != nil {
		return "", err
	}

	if err := resultErr(reply); err != nil {
		return "", err
	}

	if len(reply.Args) > 0 {
		return reply.Args[0].S, nil
	}

	return "", nil
}

/*
DbQuery queries nodes by a metadata value. Returns the node ids.
*/
func (c *Client) DbQuery(kind string, val string) ([]string, error) {
	reply, err := c.Call(NewMessage("/mpk/db/query", StrArg(kind), StrArg(val)))
	if err != nil {
		return nil, err
	}

	if err := resultErr(reply); err != nil {
		return nil, err
	}

	var ids []string
	for _, a := range reply.Args {
		ids = append(ids, a.S)
	}

	return ids, nil
}

/*
DbList lists media nodes or edges.
*/
func (c *Client) DbList(what string) (string, error) {
	reply, err := c.Call(NewMessage("/mpk/db/list", StrArg(what)))
	if err != nil {
		return "", err
	}

	if err := resultErr(reply); err != nil {
		return "", err
	}

	if len(reply.Args) > 0 {
		return reply.Args[0].S, nil
	}

	return "", nil
}

/*
DbInfo reports store statistics.
*/
func (c *Client) DbInfo() (string, error) {
	reply, err := c.Call(NewMessage("/mpk/db/info"))
	if err != nil {
		return "", err
	}

	if err := resultErr(reply); err != nil {
		return "", err
	}

	if len(reply.Args) > 0 {
		return reply.Args[0].S, nil
	}

	return "", nil
}

/*
DbFlush flushes the store. Returns the on-disk size.
*/
func (c *Client) DbFlush() (int64, error) {
	reply, err := c.Call(NewMessage("/mpk/db/flush"))
	if err != nil {
		return 0, err
	}

	if err := resultErr(reply); err != nil {
		return 0, err
	}

	if len(reply.Args) > 0 {
		return reply.Args[0].I, nil
	}

	return 0, nil
}
