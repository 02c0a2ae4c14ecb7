// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/groblegark/oddjobs/internal/ojlog"
	"github.com/groblegark/oddjobs/internal/rpc/auth"
)

// Server frames rpc.Message values as consecutive JSON documents over a
// connection (the json.Decoder's native streaming mode needs no length
// prefix or delimiter) and dispatches requests through a Registry. It
// implements the daemon package's Server interface — HandleConn(ctx,
// net.Conn) — so internal/daemon never imports wire format or auth
// details, matching the seam spec.md §4.7.1 draws between the engine and
// the transport.
type Server struct {
	registry *Registry
	log      *ojlog.Logger
	auth     auth.Config
}

// NewServer builds a Server backed by registry, requiring every request
// (other than an initial handshake) to carry a token valid under authCfg.
func NewServer(registry *Registry, authCfg auth.Config, log *ojlog.Logger) *Server {
	return &Server{registry: registry, auth: authCfg, log: log}
}

// connWriter adapts a net.Conn's JSON encoder to the FrameWriter interface
// StreamWriter and Session expect, serializing concurrent writes from a
// streaming handler against the connection's read loop.
type connWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *connWriter) WriteMessage(msg *Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(msg)
}

// HandleConn serves one client connection until it disconnects or ctx is
// cancelled. The first request must present a valid token (issued by
// auth.Issue at daemon startup and read by the client from the state
// directory's token file) or the connection is closed — there is no
// per-method authorization beyond that, since a single-user daemon has
// exactly one principal.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)
	w := &connWriter{enc: json.NewEncoder(conn)}
	sess := NewSession(uuid.New().String(), w, s.registry)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && s.log != nil {
				s.log.Debug("rpc: connection read failed", "err", err)
			}
			return
		}

		if err := msg.Validate(); err != nil {
			w.WriteMessage(NewErrorResponse(msg.CorrelationID, "invalid_message", err.Error(), nil))
			continue
		}

		if msg.Type != MessageTypeRequest {
			w.WriteMessage(NewErrorResponse(msg.CorrelationID, "unexpected_type", "server only accepts request messages", nil))
			continue
		}

		if !sess.Authenticated() {
			if msg.Method != "auth.login" {
				w.WriteMessage(NewErrorResponse(msg.CorrelationID, "unauthenticated", "call auth.login first", nil))
				continue
			}
			if err := s.authenticate(&msg); err != nil {
				w.WriteMessage(NewErrorResponse(msg.CorrelationID, "unauthenticated", err.Error(), nil))
				continue
			}
			sess.SetAuthenticated(true)
			resp, _ := NewResponse(msg.CorrelationID, map[string]bool{"ok": true})
			w.WriteMessage(resp)
			continue
		}

		s.dispatch(ctx, &msg, w)
	}
}

func (s *Server) authenticate(req *Message) error {
	var params struct {
		Token string `json:"token"`
	}
	if err := req.UnmarshalParams(&params); err != nil {
		return err
	}
	_, err := auth.Verify(params.Token, s.auth)
	return err
}

func (s *Server) dispatch(ctx context.Context, req *Message, w *connWriter) {
	if s.registry.IsStream(req.Method) {
		writer := NewStreamWriter(w, req.CorrelationID, uuid.New().String())
		if err := s.registry.HandleStream(ctx, req, writer); err != nil {
			w.WriteMessage(NewErrorResponse(req.CorrelationID, "stream_error", err.Error(), nil))
			return
		}
		writer.Done()
		return
	}

	resp, err := s.registry.Handle(ctx, req)
	if err != nil {
		w.WriteMessage(NewErrorResponse(req.CorrelationID, "handler_error", err.Error(), nil))
		return
	}
	w.WriteMessage(resp)
}
