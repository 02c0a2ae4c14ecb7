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

// Package rpcclient is oj's client for ojd's Unix-socket RPC protocol
// (internal/rpc), the way internal/client is the conductor CLI's client
// for its controller's HTTP API: dial once, issue request/response calls,
// tear down on close.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/groblegark/oddjobs/internal/ojconfig"
	"github.com/groblegark/oddjobs/internal/rpc"
	"github.com/groblegark/oddjobs/internal/rpc/auth"
)

// Client is a connection to one running daemon.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
	mu   sync.Mutex
}

// Dial connects to the daemon's socket under stateDir (ojconfig.StateDir()
// if empty) and authenticates with the token written there at startup.
func Dial(ctx context.Context, stateDir string) (*Client, error) {
	if stateDir == "" {
		stateDir = ojconfig.StateDir()
	}
	dirs := ojconfig.Resolve(stateDir)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", dirs.Socket)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w (is ojd running?)", dirs.Socket, err)
	}

	c := &Client{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}

	secret, err := auth.ReadSecretFile(dirs.TokenFile)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rpcclient: read token: %w", err)
	}
	// The token file holds the raw HS256 secret shared with the running
	// daemon; the client mints its own short-lived JWT from it rather
	// than sending the secret itself over the wire.
	jwt, err := auth.Issue(auth.Config{Secret: secret, Issuer: "oj"})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rpcclient: issue token: %w", err)
	}
	if _, err := c.call(ctx, "auth.login", map[string]string{"token": jwt}, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rpcclient: authenticate: %w", err)
	}
	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call issues method with params and decodes the response into result
// (which may be nil to discard it).
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	_, err := c.call(ctx, method, params, result)
	return err
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) (*rpc.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, err := rpc.NewRequest(method, params)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Time{})
	}
	if err := c.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("rpcclient: send %s: %w", method, err)
	}

	var resp rpc.Message
	if err := c.dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("rpcclient: read %s response: %w", method, err)
	}
	if resp.Type == rpc.MessageTypeError && resp.Error != nil {
		return &resp, fmt.Errorf("rpcclient: %s: %s: %s", method, resp.Error.Code, resp.Error.Message)
	}
	if result != nil {
		if err := resp.UnmarshalResult(result); err != nil {
			return &resp, fmt.Errorf("rpcclient: decode %s result: %w", method, err)
		}
	}
	return &resp, nil
}
