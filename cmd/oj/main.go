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

// Command oj is the CLI client for ojd, talking spec.md §4.7.1's RPC
// protocol over a Unix socket (internal/rpcclient).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/oddjobs/internal/rpcclient"
)

var (
	version = "dev"
	commit  = "unknown"

	stateDir string
)

func main() {
	root := &cobra.Command{
		Use:           "oj",
		Short:         "oj drives ojd, the local job-orchestration daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&stateDir, "state-dir", "", "daemon state directory (default: $OJ_STATE_DIR)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newCancelCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newDecideCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the client version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("oj %s+%s\n", version, commit)
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "oj: %v\n", err)
		os.Exit(1)
	}
}

func dial(ctx context.Context) (*rpcclient.Client, error) {
	return rpcclient.Dial(ctx, stateDir)
}

func timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "oj: encode response: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func newRunCmd() *cobra.Command {
	var projectRoot, namespace string
	cmd := &cobra.Command{
		Use:   "run <job-name> [-- args...]",
		Short: "invoke a declared job, creating a new job run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeoutCtx()
			defer cancel()
			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			wd, _ := os.Getwd()
			if projectRoot == "" {
				projectRoot = wd
			}
			var result map[string]interface{}
			err = c.Call(ctx, "job.create", map[string]interface{}{
				"job_name":     args[0],
				"project_root": projectRoot,
				"invoke_dir":   wd,
				"namespace":    namespace,
				"args":         args[1:],
			}, &result)
			if err != nil {
				return err
			}
			printJSON(result)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project-root", "", "project root (default: cwd)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "job namespace")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list all known jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeoutCtx()
			defer cancel()
			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			var jobs []map[string]interface{}
			if err := c.Call(ctx, "job.list", nil, &jobs); err != nil {
				return err
			}
			printJSON(jobs)
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "show one job's full state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeoutCtx()
			defer cancel()
			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			var job map[string]interface{}
			if err := c.Call(ctx, "job.get", map[string]string{"id": args[0]}, &job); err != nil {
				return err
			}
			printJSON(job)
			return nil
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeoutCtx()
			defer cancel()
			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Call(ctx, "job.cancel", map[string]string{"id": args[0]}, nil)
		},
	}
}

func newResumeCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "resume <job-id>",
		Short: "resume a job waiting on input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeoutCtx()
			defer cancel()
			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			params := map[string]interface{}{"id": args[0]}
			if message != "" {
				params["message"] = message
			}
			return c.Call(ctx, "job.resume", params, nil)
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "message to hand the resumed job")
	return cmd
}

func newDecideCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "decide <decision-id> <choice>",
		Short: "resolve a pending decision gate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeoutCtx()
			defer cancel()
			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			params := map[string]interface{}{"id": args[0], "chosen": args[1]}
			if message != "" {
				params["message"] = message
			}
			return c.Call(ctx, "decision.resolve", params, nil)
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "note attached to the resolution")
	return cmd
}
