package config

import (
	"fmt"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
)

// BuildActions converts the enabled action declarations into actions, applying settings
// defaults. Document order is preserved.
func (c *Config) BuildActions() ([]action.Action, error) {
	defaultPolicy, err := action.ParsePolicy(c.Settings.DefaultOnFailure)
	if err != nil {
		return nil, err
	}

	out := make([]action.Action, 0, len(c.Actions))
	for i, decl := range c.Actions {
		if !decl.IsEnabled() {
			continue
		}

		policy := defaultPolicy
		if decl.OnFailure != "" {
			policy, err = action.ParsePolicy(decl.OnFailure)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fieldForAction(i, "on_failure"), err)
			}
		}

		timeout := decl.Timeout.Std()
		if timeout == 0 {
			timeout = c.Settings.DefaultTimeout.Std()
		}

		out = append(out, action.Action{
			Name:        decl.Name,
			Target:      decl.Target,
			Command:     decl.Command,
			Description: decl.Description,
			OnFailure:   policy,
			Stdout:      decl.Stdout,
			Dir:         decl.Dir,
			Env:         decl.Env,
			ExpandGlobs: decl.Glob,
			Timeout:     timeout,
		})
	}
	return out, nil
}

// Register adds every enabled action of the document to reg.
func (c *Config) Register(reg *action.Registry) error {
	actions, err := c.BuildActions()
	if err != nil {
		return err
	}
	for _, a := range actions {
		if err := reg.Register(a.Target, a); err != nil {
			return fmt.Errorf("register action %q for %s: %w", a.Name, a.Target, err)
		}
	}
	return nil
}
