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

// Command ojd is the oddjobs daemon: it owns the WAL, the materialized
// state, the engine loop, and the Unix socket oj talks to (spec.md §4.10).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/daemon"
	"github.com/groblegark/oddjobs/internal/ojlog"
	"github.com/groblegark/oddjobs/internal/rpc"
	"github.com/groblegark/oddjobs/internal/rpc/auth"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	stateDir := flag.String("state-dir", "", "daemon state directory (default: $OJ_STATE_DIR or ~/.local/state/oj)")
	metricsAddr := flag.String("metrics-addr", os.Getenv("OJ_METRICS_ADDR"), "host:port to serve /metrics on (default: disabled)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ojd %s+%s\n", version, commit)
		return
	}

	secret, err := auth.NewSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ojd: %v\n", err)
		os.Exit(1)
	}

	opts := daemon.RunOptions{
		Version:     version,
		Commit:      commit,
		StateDir:    *stateDir,
		AuthSecret:  secret,
		MetricsAddr: *metricsAddr,
		BuildServer: func(d *daemon.Daemon) daemon.Server {
			registry := rpc.NewRegistry()
			rpc.RegisterDomainHandlers(registry, rpc.Deps{
				Submit:          d.Submit,
				State:           d.State,
				ResolveAgentJob: d.ResolveAgentJob,
				Now:             core.SystemClock{}.EpochMs,
			})
			log := ojlog.New(ojlog.FromEnv())
			return rpc.NewServer(registry, auth.Config{Secret: secret, Issuer: "oj"}, log)
		},
	}

	if err := daemon.Run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ojd: %v\n", err)
		os.Exit(1)
	}
}
