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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/mpk/mk/comp"
	"devt.de/krotik/mpk/mk/vm"
	"github.com/gorilla/websocket"
)

/*
sockUpgrader upgrades http connections to websocket connections.
*/
var sockUpgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
}

/*
Sock is the websocket bridge of the engine. Connected clients can watch
key prefixes of graph trees (change events stream in commit order) and
evaluate mk source.
*/
type Sock struct {
	srv   *Server
	log   logutil.Logger
	mutex sync.Mutex
}

/*
NewSock creates a new websocket bridge on an engine server.
*/
func NewSock(srv *Server) *Sock {
	return &Sock{srv: srv, log: logutil.GetLogger("mpk.sock")}
}

/*
sockRequest is a single client request.
*/
type sockRequest struct {
	Type   string `json:"type"`   // "watch" or "eval"
	Tree   string `json:"tree"`   // Tree to watch
	Prefix string `json:"prefix"` // Base64 key prefix to watch
	Src    string `json:"src"`    // Source to evaluate
}

/*
sockResponse is a single server message.
*/
type sockResponse struct {
	Type   string `json:"type"`             // "event", "result" or "error"
	Tree   string `json:"tree,omitempty"`   // Tree of a change event
	Event  string `json:"event,omitempty"`  // Kind of a change event
	Key    string `json:"key,omitempty"`    // Base64 key of a change event
	Val    string `json:"val,omitempty"`    // Base64 value of a change event
	Result string `json:"result,omitempty"` // Eval result
	Error  string `json:"error,omitempty"`  // Error message
}

/*
ServeHTTP upgrades a request and serves the connection.
*/
func (s *Sock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := sockUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Could not upgrade connection: ", err)
		return
	}

	s.log.Info("Websocket connection from ", r.RemoteAddr)

	defer conn.Close()

	write := func(res *sockResponse) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		return conn.WriteJSON(res)
	}

	for {
		var req sockRequest

		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Error("Read failed: ", err)
			}
			return
		}

		switch req.Type {

		case "watch":
			if err := s.watch(&req, write); err != nil {
				write(&sockResponse{Type: "error", Error: err.Error()})
			}

		case "eval":

			// Eval requests run on the engine's machine; errors keep the
			// connection alive

			results, err := s.srv.machine.Eval(req.Src, comp.OptTwo)

			var lines string
			for i, res := range results {
				if i > 0 {
					lines += "\n"
				}
				lines += vm.Display(res)
			}

			if err != nil {
				write(&sockResponse{Type: "error", Error: err.Error(), Result: lines})
				continue
			}

			write(&sockResponse{Type: "result", Result: lines})

		default:
			write(&sockResponse{Type: "error", Error: "unknown request type"})
		}
	}
}

/*
watch attaches a subscriber and streams its events to the client.
*/
func (s *Sock) watch(req *sockRequest, write func(*sockResponse) error) error {
	prefix, err := base64.StdEncoding.DecodeString(req.Prefix)
	if err != nil {
		return &Error{Type: ErrBadArg, Detail: err.Error()}
	}

	tree, err := s.srv.gm.Store().Tree(req.Tree)
	if err != nil {
		return err
	}

	sub := tree.WatchPrefix(prefix)

	go func() {
		defer sub.Close()

		for {
			select {

			case <-s.srv.quit:
				return

			case ev, ok := <-sub.C():
				if !ok {
					return
				}

				res := &sockResponse{
					Type:  "event",
					Tree:  req.Tree,
					Event: ev.Type.String(),
					Key:   base64.StdEncoding.EncodeToString(ev.Key),
					Val:   base64.StdEncoding.EncodeToString(ev.Val),
				}

				if err := write(res); err != nil {
					return
				}
			}
		}
	}()

	return nil
}

/*
MarshalEvent renders a change event as JSON (used by tests and external
consumers).
*/
func MarshalEvent(tree string, event string, key []byte, val []byte) ([]byte, error) {
	return json.Marshal(&sockResponse{
		Type:  "event",
		Tree:  tree,
		Event: event,
		Key:   base64.StdEncoding.EncodeToString(key),
		Val:   base64.StdEncoding.EncodeToString(val),
	})
}
