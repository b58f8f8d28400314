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
	"strings"
	"testing"
	"time"

	"devt.de/krotik/mpk/db"
	"devt.de/krotik/mpk/db/types"
	"devt.de/krotik/mpk/kv"
	"devt.de/krotik/mpk/mk/comp"
	"devt.de/krotik/mpk/mk/vm"
)

func TestWireRoundTrip(t *testing.T) {
	msg := NewMessage("/mpk/db/query",
		StrArg("artist"), StrArg("X"), IntArg(-42), FloatArg(1.5),
		BlobArg([]byte{1, 2, 3, 4, 5}))

	data, err := Encode(msg)
	if err != nil {
		t.Error(err)
		return
	}

	if len(data)%4 != 0 {
		t.Error("Datagrams should be padded to four bytes:", len(data))
		return
	}

	dec, err := Decode(data)
	if err != nil {
		t.Error(err)
		return
	}

	if dec.Addr != msg.Addr || len(dec.Args) != 5 {
		t.Error("Unexpected decode result:", dec)
		return
	}

	if dec.Args[0].S != "artist" || dec.Args[2].I != -42 ||
		dec.Args[3].F != 1.5 || len(dec.Args[4].B) != 5 {
		t.Error("Unexpected argument values:", dec.Args)
		return
	}

	// A message without arguments

	data, _ = Encode(NewMessage("/ack"))
	dec, err = Decode(data)
	if err != nil || dec.Addr != "/ack" || len(dec.Args) != 0 {
		t.Error("Unexpected decode result:", dec, err)
		return
	}

	// Malformed packets are detected

	if _, err := Decode([]byte("no-slash\x00\x00\x00\x00")); err == nil {
		t.Error("Address without slash should not decode")
		return
	}

	if _, err := Decode(data[:3]); err == nil {
		t.Error("Truncated packet should not decode")
		return
	}

	if _, err := Encode(NewMessage("noslash")); err == nil {
		t.Error("Address without slash should not encode")
		return
	}
}

/*
startTestServer starts an engine on the loopback interface.
*/
func startTestServer(t *testing.T) (*Server, *Client, *db.Manager) {
	store, err := kv.Open("", nil)
	if err != nil {
		t.Fatal(err)
	}

	gm, err := db.NewManager(store)
	if err != nil {
		t.Fatal(err)
	}

	machine := vm.NewMachine(comp.NewCompiler())
	srv := NewServer(gm, machine, 2*time.Second)

	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}

	go srv.Run()

	client, err := Dial(srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	return srv, client, gm
}

func TestEvalRequests(t *testing.T) {
	srv, client, _ := startTestServer(t)
	defer srv.Close()
	defer client.Close()

	res, err := client.Eval("1 + 2 3 4")
	if err != nil || res != "3 4 5" {
		t.Error("Unexpected eval result:", res, err)
		return
	}

	// The requester is registered in the client registry

	if !srv.KnownClient(client.LocalAddr()) {
		t.Error("Client should be registered after a request")
		return
	}

	if srv.KnownClient("10.0.0.1:1") {
		t.Error("Unknown address should not be registered")
		return
	}

	// State persists between requests

	if _, err := client.Eval("a : 40"); err != nil {
		t.Error(err)
		return
	}

	res, err = client.Eval("a + 2")
	if err != nil || res != "42" {
		t.Error("Unexpected eval result:", res, err)
		return
	}

	// A runtime error produces an error reply and the engine keeps
	// accepting requests

	if _, err := client.Eval("nosuch + 1"); err == nil {
		t.Error("Unbound name should produce an error reply")
		return
	}

	res, err = client.Eval("2 + 2")
	if err != nil || res != "4" {
		t.Error("Engine should keep accepting requests:", res, err)
		return
	}
}

func TestDbRequests(t *testing.T) {
	srv, client, gm := startTestServer(t)
	defer srv.Close()
	defer client.Close()

	// Seed two nodes through the graph manager

	n1 := types.NewNode(types.KindTrack)
	n2 := types.NewNode(types.KindTrack)
	gm.StoreNode(n1)
	gm.StoreNode(n2)
	gm.AddMeta(types.ArtistMeta("X"), n1.ID)
	gm.AddMeta(types.ArtistMeta("X"), n2.ID)

	ids, err := client.DbQuery("artist", "X")
	if err != nil || len(ids) != 2 || ids[0] != n1.ID.String() {
		t.Error("Unexpected query result:", ids, err)
		return
	}

	listing, err := client.DbList("media")
	if err != nil || !strings.Contains(listing, n1.ID.String()) {
		t.Error("Unexpected list result:", listing, err)
		return
	}

	info, err := client.DbInfo()
	if err != nil || !strings.Contains(info, "media: 2") {
		t.Error("Unexpected info result:", info, err)
		return
	}

	if _, err := client.DbFlush(); err != nil {
		t.Error(err)
		return
	}

	// Unknown addresses produce BadAddr

	reply, err := client.Call(NewMessage("/mpk/nosuch"))
	if err != nil || reply.Addr != AddrResultErr || reply.Args[0].S != "BadAddr" {
		t.Error("Unexpected reply:", reply, err)
		return
	}

	// Bad arguments produce BadArg

	reply, err = client.Call(NewMessage("/mpk/db/query", IntArg(1)))
	if err != nil || reply.Addr != AddrResultErr || reply.Args[0].S != "BadArg" {
		t.Error("Unexpected reply:", reply, err)
		return
	}
}

func TestWatchRequests(t *testing.T) {
	srv, client, gm := startTestServer(t)
	defer srv.Close()
	defer client.Close()

	reply, err := client.Call(NewMessage("/mpk/db/watch", StrArg("media")))
	if err != nil || reply.Addr != AddrAck {
		t.Error("Unexpected watch reply:", reply, err)
		return
	}

	node := types.NewNode(types.KindSample)
	gm.StoreNode(node)

	ev, err := client.Recv()
	if err != nil {
		t.Error(err)
		return
	}

	if ev.Addr != AddrReply || ev.Args[0].S != "media" || ev.Args[1].S != "insert" {
		t.Error("Unexpected event:", ev)
		return
	}

	if string(ev.Args[2].B) != string(types.EncodeId(node.ID)) {
		t.Error("Event should carry the inserted key")
		return
	}
}

func TestSysBridge(t *testing.T) {
	srv, client, gm := startTestServer(t)
	defer srv.Close()
	defer client.Close()

	// \db operations work from mk code through the bridge

	res, err := client.Eval("\\db (`insert; `sample)")
	if err != nil {
		t.Error(err)
		return
	}

	id := strings.TrimPrefix(strings.TrimSpace(res), "`")

	if _, perr := types.ParseId(id); perr != nil {
		t.Error("Insert should return a node id:", res)
		return
	}

	if c, _ := gm.NodeCount(); c != 1 {
		t.Error("Node should have been stored:", c)
		return
	}

	res, err = client.Eval("\\db `info")
	if err != nil || !strings.Contains(res, "media: 1") {
		t.Error("Unexpected info result:", res, err)
		return
	}

	// \w reports recent requests

	if _, err := client.Eval("\\w"); err != nil {
		t.Error(err)
		return
	}
}
