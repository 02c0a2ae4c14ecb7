// Package interp interpolates "${...}" placeholders found in shell/gate
// commands and agent prompts against a job's vars, and evaluates the
// boolean condition expressions runbooks may attach to a step via
// expr-lang/expr — the one place in oddjobs a user-authored expression
// needs a real evaluator rather than string substitution.
package interp

import (
	"fmt"
	"os"
	"strings"

	"github.com/expr-lang/expr"
)

// Expand substitutes every "${name}" occurrence in s with vars["name"],
// leaving unknown names as an empty string (runbook authors are expected to
// declare every var a step references; an unknown var is a silent no-op
// rather than a hard failure, since shell's own "${FOO:-}" can paper over
// it if that's the intent).
func Expand(s string, vars map[string]string) string {
	return os.Expand(s, func(name string) string {
		return vars[name]
	})
}

// Env builds the process environment for a Shell/SpawnAgent effect: the
// job's vars, OJ_NAMESPACE, and any extra overrides, each interpolated
// against vars first so one var can reference another.
func Env(vars map[string]string, namespace string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(vars)+len(extra)+1)
	for k, v := range vars {
		out[strings.ToUpper(k)] = Expand(v, vars)
	}
	out["OJ_NAMESPACE"] = namespace
	for k, v := range extra {
		out[k] = Expand(v, vars)
	}
	return out
}

// EvalBool compiles and runs a boolean expr-lang expression against vars,
// used for a runbook's optional step-level conditions. Returns false (not
// an error) on a malformed expression, since an optional gate must never
// crash the job it guards.
func EvalBool(exprSrc string, vars map[string]string) (bool, error) {
	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = v
	}
	program, err := expr.Compile(exprSrc, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("interp: compile expr %q: %w", exprSrc, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("interp: run expr %q: %w", exprSrc, err)
	}
	b, _ := out.(bool)
	return b, nil
}
