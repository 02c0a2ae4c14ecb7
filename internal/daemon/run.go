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

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// RunOptions configures daemon execution, used by both foreground mode
// (ojd --foreground) and the CLI's own self-forked background mode.
type RunOptions struct {
	Version    string
	Commit     string
	StateDir   string // overrides ojconfig.StateDir() when non-empty
	AuthSecret []byte
	// MetricsAddr, if non-empty, binds a plain-HTTP /metrics listener.
	MetricsAddr string
	// BuildServer constructs the RPC transport once the Daemon exists, so
	// it can bind its handlers to d.Submit/d.State/d.ResolveAgentJob (see
	// SetRPCServer's doc comment). Required: Start refuses to run without
	// an RPC server wired in.
	BuildServer func(*Daemon) Server
}

// Run constructs and starts a Daemon with ojd's default adapters, blocking
// until SIGINT/SIGTERM or a startup error. This is ojd's sole entry point.
func Run(opts RunOptions) error {
	d, err := New(opts.StateDir, Options{
		Version:     opts.Version,
		Commit:      opts.Commit,
		AuthSecret:  opts.AuthSecret,
		MetricsAddr: opts.MetricsAddr,
	}, Deps{})
	if err != nil {
		return fmt.Errorf("daemon: create: %w", err)
	}
	if opts.BuildServer != nil {
		d.SetRPCServer(opts.BuildServer(d))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	select {
	case sig := <-sigCh:
		fmt.Printf("\nreceived signal %v, shutting down...\n", sig)
		cancel()
		if err := d.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("daemon: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
		return nil
	}
}
