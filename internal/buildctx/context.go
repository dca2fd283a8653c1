// Package buildctx holds the immutable set of variables available to post-build actions
// and expands ${name} placeholders against it.
package buildctx

import (
	"sort"
)

// Well-known variable names published by the build driver.
const (
	ProgName      = "PROGNAME"
	BuildDir      = "BUILD_DIR"
	ProjectDir    = "PROJECT_DIR"
	ProjectSrcDir = "PROJECT_SRC_DIR"
)

// Context maps variable names to the values resolved when a target finished building.
// The zero value is an empty context. Contexts are never mutated after construction.
type Context struct {
	vars map[string]string
}

// New returns a Context holding a copy of vars.
func New(vars map[string]string) Context {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return Context{vars: copied}
}

// Lookup returns the value bound to name.
func (c Context) Lookup(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Len reports the number of variables.
func (c Context) Len() int {
	return len(c.vars)
}

// Names returns variable names in sorted order.
func (c Context) Names() []string {
	names := make([]string, 0, len(c.vars))
	for k := range c.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the underlying variables.
func (c Context) Map() map[string]string {
	out := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// With returns a new Context where name is bound to value.
func (c Context) With(name, value string) Context {
	out := c.Map()
	out[name] = value
	return Context{vars: out}
}

// Merge returns a new Context where entries of overrides replace existing bindings.
func (c Context) Merge(overrides map[string]string) Context {
	out := c.Map()
	for k, v := range overrides {
		out[k] = v
	}
	return Context{vars: out}
}
