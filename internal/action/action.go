// Package action registers post-build actions against build targets and runs them, in
// registration order, once a target has been produced.
package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/postbuild/internal/buildctx"
	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

// FailurePolicy governs what happens to the rest of a target's chain when an action fails.
type FailurePolicy string

const (
	// PolicyAbort stops the chain and returns the failure to the caller.
	PolicyAbort FailurePolicy = "abort"
	// PolicyWarn logs the failure and continues with the next action.
	PolicyWarn FailurePolicy = "warn"
	// PolicyIgnore continues silently.
	PolicyIgnore FailurePolicy = "ignore"
)

// Policies lists the accepted failure policies.
var Policies = []FailurePolicy{PolicyAbort, PolicyWarn, PolicyIgnore}

// ParsePolicy converts s to a FailurePolicy. The empty string selects PolicyAbort.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicyWarn, PolicyIgnore:
		return p, nil
	default:
		names := make([]string, len(Policies))
		for i, policy := range Policies {
			names[i] = string(policy)
		}
		return "", fmt.Errorf("unknown failure policy %q (want one of %s)", s, strings.Join(names, ", "))
	}
}

// Action is an external tool invocation attached to a build target.
//
// Command, Description, Stdout, Dir and the values of Env are templates expanded against
// the build context when the target completes.
type Action struct {
	Name        string
	Target      string
	Command     []string
	Description string
	OnFailure   FailurePolicy
	Stdout      string
	Dir         string
	Env         map[string]string
	ExpandGlobs bool
	Timeout     time.Duration
}

// clone returns a deep copy so registered actions cannot be changed by the caller.
func (a Action) clone() Action {
	out := a
	out.Command = append([]string(nil), a.Command...)
	if a.Env != nil {
		out.Env = make(map[string]string, len(a.Env))
		for k, v := range a.Env {
			out.Env[k] = v
		}
	}
	return out
}

// templates returns every templated field of the action.
func (a Action) templates() []string {
	out := make([]string, 0, len(a.Command)+3+len(a.Env))
	out = append(out, a.Command...)
	out = append(out, a.Description, a.Stdout, a.Dir)
	for _, v := range a.Env {
		out = append(out, v)
	}
	return out
}

// Placeholders lists the distinct variables the action references.
func (a Action) Placeholders() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, tmpl := range a.templates() {
		refs, err := buildctx.Placeholders(tmpl)
		if err != nil {
			continue
		}
		for _, name := range refs {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

func (a Action) validate() error {
	if len(a.Command) == 0 || strings.TrimSpace(a.Command[0]) == "" {
		return pberrors.NewValidationError("command", "must name a program", nil)
	}
	if _, err := ParsePolicy(string(a.OnFailure)); err != nil {
		return pberrors.NewValidationError("on_failure", err.Error(), err)
	}
	if a.Timeout < 0 {
		return pberrors.NewValidationError("timeout", "must not be negative", nil)
	}
	for _, tmpl := range a.templates() {
		if err := buildctx.Validate(tmpl); err != nil {
			return pberrors.NewValidationError("template", err.Error(), err)
		}
	}
	return nil
}

func validTarget(target string) bool {
	return target != "" && !strings.ContainsAny(target, " \t\r\n")
}
