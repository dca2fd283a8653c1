package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
)

type validateOptions struct {
	vars   []string
	git    bool
	strict bool
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the action configuration and report variables the build context lacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, root, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "Set a build context variable (NAME=value, repeatable)")
	cmd.Flags().BoolVar(&opts.git, "git", false, "Include git variables in the context")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when an action references an unknown variable")
	return cmd
}

func runValidate(cmd *cobra.Command, root *rootFlags, opts *validateOptions) error {
	app, err := loadApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	reg := action.NewRegistry(nil)
	if err := app.Config.Register(reg); err != nil {
		return err
	}

	bctx, err := app.buildContext(contextOptions{Vars: opts.vars, Git: opts.git})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var missing []string
	total := 0
	for _, target := range reg.Targets() {
		for _, a := range reg.Actions(target) {
			total++
			for _, name := range a.Placeholders() {
				if _, ok := bctx.Lookup(name); !ok {
					missing = append(missing, fmt.Sprintf("%s/%s: %s", target, a.Name, name))
				}
			}
		}
	}

	fmt.Fprintf(out, "%s: %d actions across %d targets\n", app.ConfigPath, total, len(reg.Targets()))
	if len(missing) == 0 {
		fmt.Fprintln(out, "all referenced variables are defined")
		return nil
	}

	sort.Strings(missing)
	fmt.Fprintf(out, "variables not defined in the current context:\n  %s\n", strings.Join(missing, "\n  "))
	if opts.strict {
		return &exitError{code: 1, err: fmt.Errorf("%d unresolved variable references", len(missing))}
	}
	return nil
}
