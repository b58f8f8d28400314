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
Package engine contains the MPK request dispatcher.

The engine listens on a datagram socket for typed message envelopes and
routes them by address prefix: /mpk/db/* operations go to the media
graph, /mpk/vm/* operations to the mk virtual machine and /mpk/proxy/*
messages are forwarded opaquely to an external peer. Every request which
completes within the request timeout gets a response: /ack, /reply,
/result/ok or /result/err. Malformed packets
are logged and answered with /result/err.

A websocket bridge (Sock) streams watch-prefix change events to
subscribed clients and accepts eval requests from REPL front-ends.
*/
package engine

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/common/timeutil"
	"devt.de/krotik/mpk/db"
	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/kv"
	"devt.de/krotik/mpk/mk/comp"
	"devt.de/krotik/mpk/mk/parser"
	"devt.de/krotik/mpk/mk/vm"
)

/*
MTU is the maximum datagram size of the engine.
*/
const MTU = 8192

/*
DefaultTimeout is the default per-request timeout.
*/
const DefaultTimeout = time.Second

/*
requestLogSize is the number of requests kept for work reporting.
*/
const requestLogSize = 100

/*
clientCacheSize is the number of recently seen clients kept in the
client registry.
*/
const clientCacheSize = 512

/*
Reply addresses
*/
const (
	AddrAck       = "/ack"
	AddrReply     = "/reply"
	AddrResultOk  = "/result/ok"
	AddrResultErr = "/result/err"
)

/*
Server is the engine request dispatcher.
*/
type Server struct {
	gm      *db.Manager
	machine *vm.Machine
	conn    *net.UDPConn
	timeout time.Duration
	proxy   *net.UDPAddr
	log     logutil.Logger
	reqLog  *datautil.RingBuffer
	clients *datautil.MapCache
	quit    chan struct{}
}

/*
NewServer creates a new engine server on a given manager and machine.
The machine's system verbs are wired to the graph through the server.
*/
func NewServer(gm *db.Manager, machine *vm.Machine, timeout time.Duration) *Server {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	s := &Server{
		gm:      gm,
		machine: machine,
		timeout: timeout,
		log:     logutil.GetLogger("mpk.engine"),
		reqLog:  datautil.NewRingBuffer(requestLogSize),
		clients: datautil.NewMapCache(clientCacheSize, 0),
		quit:    make(chan struct{}),
	}

	machine.SetSysHandler(&sysBridge{s})

	return s
}

/*
SetProxy sets the peer address for /mpk/proxy messages.
*/
func (s *Server) SetProxy(addr string) error {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return &Error{Type: ErrBadAddr, Detail: err.Error()}
	}

	s.proxy = uaddr

	return nil
}

/*
Listen binds the engine to a datagram address.
*/
func (s *Server) Listen(addr string) error {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return &Error{Type: ErrBadAddr, Detail: err.Error()}
	}

	conn, err := net.ListenUDP("udp", uaddr)
	if err != nil {
		return err
	}

	s.conn = conn
	s.log.Info("Listening on ", conn.LocalAddr())

	return nil
}

/*
KnownClient checks if an address recently sent a request. The registry
ages out - it reports recent activity, not a session.
*/
func (s *Server) KnownClient(addr string) bool {
	_, ok := s.clients.Get(addr)
	return ok
}

/*
Addr returns the bound address of the engine.
*/
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

/*
Run serves requests until Close is called. Requests are handled
sequentially - the VM is single-threaded.
*/
func (s *Server) Run() {
	buf := make([]byte, MTU)

	for {
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}

			s.log.Error("Receive failed: ", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		s.serve(data, raddr)
	}
}

/*
Close shuts the engine down.
*/
func (s *Server) Close() {
	close(s.quit)

	if s.conn != nil {
		s.conn.Close()
	}
}

/*
serve handles a single datagram and sends its response. A request which
exceeds the timeout logs an error and gets no response.
*/
func (s *Server) serve(data []byte, raddr *net.UDPAddr) {
	s.clients.Put(raddr.String(), timeutil.MakeTimestamp())

	msg, err := Decode(data)
	if err != nil {
		s.log.Error("Bad packet from ", raddr, ": ", err)
		s.send(errReply(err), raddr)
		return
	}

	s.reqLog.Add(fmt.Sprintf("%v %v %v", timeutil.MakeTimestamp(), raddr, msg.Addr))

	done := make(chan *Message, 1)

	go func() {
		done <- s.dispatch(msg, raddr)
	}()

	select {

	case reply := <-done:
		s.send(reply, raddr)

	case <-time.After(s.timeout):
		s.log.Error("Request ", msg.Addr, " from ", raddr, " timed out")
	}
}

/*
send encodes and sends a reply.
*/
func (s *Server) send(reply *Message, raddr *net.UDPAddr) {
	data, err := Encode(reply)
	if err != nil {
		s.log.Error("Could not encode reply: ", err)
		return
	}

	if _, err := s.conn.WriteToUDP(data, raddr); err != nil {
		s.log.Error("Could not send reply to ", raddr, ": ", err)
	}
}

/*
errReply builds a /result/err reply.
*/
func errReply(err error) *Message {
	if eerr, ok := err.(*Error); ok && eerr.Type == ErrBadCode {
		return NewMessage(AddrResultErr, StrArg("BadCode"), IntArg(int64(eerr.Code)))
	}

	if eerr, ok := err.(*Error); ok {
		name := "BadPacket"

		switch eerr.Type {
		case ErrBadAddr:
			name = "BadAddr"
		case ErrBadArg:
			name = "BadArg"
		}

		return NewMessage(AddrResultErr, StrArg(name), StrArg(err.Error()))
	}

	// Graph, compile and runtime errors travel as their message

	return NewMessage(AddrResultErr, StrArg(err.Error()))
}

/*
okReply builds a /result/ok reply.
*/
func okReply(args ...Arg) *Message {
	return NewMessage(AddrResultOk, args...)
}

/*
dispatch routes a request by address prefix.
*/
func (s *Server) dispatch(msg *Message, raddr *net.UDPAddr) *Message {

	switch {

	case strings.HasPrefix(msg.Addr, "/mpk/db/"):
		reply, err := s.dispatchDb(strings.TrimPrefix(msg.Addr, "/mpk/db/"), msg, raddr)
		if err != nil {
			return errReply(err)
		}
		return reply

	case strings.HasPrefix(msg.Addr, "/mpk/vm/"):
		reply, err := s.dispatchVM(strings.TrimPrefix(msg.Addr, "/mpk/vm/"), msg)
		if err != nil {
			return errReply(err)
		}
		return reply

	case strings.HasPrefix(msg.Addr, "/mpk/proxy/"):
		return s.dispatchProxy(msg)
	}

	return errReply(&Error{Type: ErrBadAddr, Detail: msg.Addr})
}

/*
strArg extracts a string argument.
*/
func strArg(msg *Message, i int) (string, error) {
	if i >= len(msg.Args) || msg.Args[i].Tag != ArgString {
		return "", &Error{Type: ErrBadArg,
			Detail: fmt.Sprintf("%v expects a string argument %v", msg.Addr, i)}
	}

	return msg.Args[i].S, nil
}

/*
dispatchDb handles graph operations.
*/
func (s *Server) dispatchDb(op string, msg *Message, raddr *net.UDPAddr) (*Message, error) {

	switch op {

	case "open":

		// The repository store is opened by the daemon; opening is
		// idempotent from the client's point of view

		return NewMessage(AddrAck), nil

	case "flush":
		n, err := s.gm.Flush()
		if err != nil {
			return nil, err
		}

		return okReply(IntArg(n)), nil

	case "info":
		info, err := s.gm.Info()
		if err != nil {
			return nil, err
		}

		return okReply(StrArg(info.String())), nil

	case "list":
		what, err := strArg(msg, 0)
		if err != nil {
			return nil, err
		}

		return s.dbList(what)

	case "query":
		return s.dbQuery(msg)

	case "get":
		return s.dbGet(msg)

	case "insert":
		kindStr, err := strArg(msg, 0)
		if err != nil {
			return nil, err
		}

		kind, err := types.ParseNodeKind(kindStr)
		if err != nil {
			return nil, &Error{Type: ErrBadArg, Detail: err.Error()}
		}

		node := types.NewNode(kind)
		if err := s.gm.StoreNode(node); err != nil {
			return nil, err
		}

		return okReply(StrArg(node.ID.String())), nil

	case "remove":
		idStr, err := strArg(msg, 0)
		if err != nil {
			return nil, err
		}

		id, err := types.ParseId(idStr)
		if err != nil {
			return nil, &Error{Type: ErrBadArg, Detail: err.Error()}
		}

		if err := s.gm.RemoveNode(id); err != nil {
			return nil, err
		}

		return NewMessage(AddrAck), nil

	case "swap":
		return s.dbSwap(msg)

	case "watch":
		return s.dbWatch(msg, raddr)
	}

	return nil, &Error{Type: ErrBadAddr, Detail: msg.Addr}
}

/*
dbList lists media nodes or edges.
*/
func (s *Server) dbList(what string) (*Message, error) {
	var lines []string

	switch what {

	case "media":
		err := s.gm.Nodes().ScanFrom(nil, func(n types.Node) bool {
			lines = append(lines, n.String())
			return true
		})
		if err != nil {
			return nil, err
		}

	case "edges":
		err := s.gm.Edges().Scan(func(e types.Edge) bool {
			lines = append(lines, e.String())
			return true
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, &Error{Type: ErrBadArg, Detail: what}
	}

	return okReply(StrArg(strings.Join(lines, "\n"))), nil
}

/*
dbQuery looks up nodes by a metadata value.
*/
func (s *Server) dbQuery(msg *Message) (*Message, error) {
	kind, err := strArg(msg, 0)
	if err != nil {
		return nil, err
	}

	val, err := strArg(msg, 1)
	if err != nil {
		return nil, err
	}

	var mk types.MetaKind

	switch kind {

	case "path":
		uri, uerr := types.ParseUri(val)
		if uerr != nil {
			uri = types.FileUri(val)
		}
		mk = types.PathMeta(uri)

	case "source":
		uri, uerr := types.ParseUri(val)
		if uerr != nil {
			return nil, &Error{Type: ErrBadArg, Detail: uerr.Error()}
		}
		mk = types.SourceMeta(uri)

	case "artist":
		mk = types.ArtistMeta(val)

	case "album":
		mk = types.AlbumMeta(val)

	case "playlist":
		mk = types.PlaylistMeta(val)

	case "coll":
		mk = types.CollMeta(val)

	case "genre":
		mk = types.GenreMeta(val)

	default:
		return nil, &Error{Type: ErrBadArg, Detail: kind}
	}

	vec, err := s.gm.Meta(mk)
	if err != nil {
		return nil, err
	}

	args := make([]Arg, 0, len(vec))
	for _, id := range vec {
		args = append(args, StrArg(id.String()))
	}

	return okReply(args...), nil
}

/*
dbGet fetches a node and its properties.
*/
func (s *Server) dbGet(msg *Message) (*Message, error) {
	idStr, err := strArg(msg, 0)
	if err != nil {
		return nil, err
	}

	id, err := types.ParseId(idStr)
	if err != nil {
		return nil, &Error{Type: ErrBadArg, Detail: err.Error()}
	}

	node, err := s.gm.FetchNode(id)
	if err != nil {
		return nil, err
	}

	if node == nil {
		return okReply(), nil
	}

	props, err := s.gm.FetchNodeProps(id)
	if err != nil {
		return nil, err
	}

	args := []Arg{StrArg(node.String())}
	for _, p := range props {
		args = append(args, StrArg(p.String()))
	}

	return okReply(args...), nil
}

/*
dbSwap does a compare-and-swap on a tree. Arguments: tree name, key blob,
old value blob (empty means expect absent), new value blob (empty means
delete).
*/
func (s *Server) dbSwap(msg *Message) (*Message, error) {
	treeName, err := strArg(msg, 0)
	if err != nil {
		return nil, err
	}

	if len(msg.Args) != 4 || msg.Args[1].Tag != ArgBlob ||
		msg.Args[2].Tag != ArgBlob || msg.Args[3].Tag != ArgBlob {
		return nil, &Error{Type: ErrBadArg, Detail: "swap expects tree, key, old, new"}
	}

	tree, err := s.gm.Store().Tree(treeName)
	if err != nil {
		return nil, err
	}

	var old, new []byte

	if len(msg.Args[2].B) > 0 {
		old = msg.Args[2].B
	}
	if len(msg.Args[3].B) > 0 {
		new = msg.Args[3].B
	}

	if err := tree.CompareAndSwap(msg.Args[1].B, old, new); err != nil {
		if cerr, ok := err.(*kv.CasError); ok {
			return NewMessage(AddrResultErr, StrArg("CasMismatch"),
				BlobArg(cerr.Current)), nil
		}
		return nil, err
	}

	return NewMessage(AddrAck), nil
}

/*
dbWatch subscribes the requester to change events of a key prefix.
Events stream back as /reply messages in commit order.
*/
func (s *Server) dbWatch(msg *Message, raddr *net.UDPAddr) (*Message, error) {
	treeName, err := strArg(msg, 0)
	if err != nil {
		return nil, err
	}

	var prefix []byte
	if len(msg.Args) > 1 && msg.Args[1].Tag == ArgBlob {
		prefix = msg.Args[1].B
	}

	tree, err := s.gm.Store().Tree(treeName)
	if err != nil {
		return nil, err
	}

	sub := tree.WatchPrefix(prefix)

	go func() {
		for {
			select {
			case <-s.quit:
				sub.Close()
				return

			case ev, ok := <-sub.C():
				if !ok {
					return
				}

				reply := NewMessage(AddrReply, StrArg(treeName),
					StrArg(ev.Type.String()), BlobArg(ev.Key), BlobArg(ev.Val))

				s.send(reply, raddr)
			}
		}
	}()

	return NewMessage(AddrAck), nil
}

/*
dispatchVM handles virtual machine operations.
*/
func (s *Server) dispatchVM(op string, msg *Message) (*Message, error) {

	switch op {

	case "eval":

		// The payload is a sequence of binary blobs, each a serialized
		// program node

		var program parser.Program

		for i, a := range msg.Args {
			if a.Tag != ArgBlob {
				return nil, &Error{Type: ErrBadArg,
					Detail: fmt.Sprintf("eval expects blob argument %v", i)}
			}

			node, err := parser.DecodeNode(a.B)
			if err != nil {
				return nil, &Error{Type: ErrBadPacket, Detail: err.Error()}
			}

			program = append(program, node)
		}

		unit, err := s.machine.Compiler().Compile(program, comp.OptTwo)
		if err != nil {
			return nil, err
		}

		results, err := s.machine.RunUnit(unit)
		if err != nil {

			// Compile and runtime errors become error replies; the
			// engine keeps accepting requests

			return nil, err
		}

		var lines []string
		for _, r := range results {
			lines = append(lines, vm.Display(r))
		}

		return okReply(StrArg(strings.Join(lines, "\n"))), nil

	case "load":
		path, err := strArg(msg, 0)
		if err != nil {
			return nil, err
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Type: ErrBadArg, Detail: err.Error()}
		}

		results, err := s.machine.Eval(string(src), comp.OptTwo)
		if err != nil {
			return nil, err
		}

		var lines []string
		for _, r := range results {
			lines = append(lines, vm.Display(r))
		}

		return okReply(StrArg(strings.Join(lines, "\n"))), nil

	case "vars":
		var lines []string
		for _, name := range s.machine.Vars() {
			lines = append(lines, name)
		}

		return okReply(StrArg(strings.Join(lines, "\n"))), nil

	case "work":
		return okReply(StrArg(strings.Join(s.reqLog.StringSlice(), "\n"))), nil

	case "gc":
		s.machine.Collect()
		return okReply(IntArg(s.machine.Gc().Live())), nil

	case "exit":
		s.machine.ExitRequested = true
		return NewMessage(AddrAck), nil
	}

	return nil, &Error{Type: ErrBadAddr, Detail: msg.Addr}
}

/*
dispatchProxy forwards a message opaquely to the configured peer.
*/
func (s *Server) dispatchProxy(msg *Message) *Message {
	if s.proxy == nil {
		return errReply(&Error{Type: ErrBadAddr, Detail: "no proxy peer configured"})
	}

	fwd := NewMessage(strings.TrimPrefix(msg.Addr, "/mpk/proxy"), msg.Args...)

	data, err := Encode(fwd)
	if err != nil {
		return errReply(err)
	}

	if _, err := s.conn.WriteToUDP(data, s.proxy); err != nil {
		s.log.Error("Proxy forward failed: ", err)
		return errReply(&Error{Type: ErrBadPacket, Detail: err.Error()})
	}

	return NewMessage(AddrAck)
}
