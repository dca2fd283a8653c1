package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
)

type listOptions struct {
	target string
}

func newListCmd(root *rootFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the post-build actions registered per target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Only list actions for this target")
	return cmd
}

func runList(cmd *cobra.Command, root *rootFlags, opts *listOptions) error {
	app, err := loadApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	reg := action.NewRegistry(nil)
	if err := app.Config.Register(reg); err != nil {
		return err
	}

	targets := reg.Targets()
	if opts.target != "" {
		targets = []string{opts.target}
	}

	out := cmd.OutOrStdout()
	for i, target := range targets {
		if i > 0 {
			fmt.Fprintln(out)
		}
		renderTarget(out, target, reg.Actions(target))
	}
	return nil
}

func renderTarget(w io.Writer, target string, actions []action.Action) {
	fmt.Fprintf(w, "%s (%d actions)\n", target, len(actions))
	if len(actions) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tNAME\tON FAILURE\tTIMEOUT\tCOMMAND\tVARIABLES")
	for i, a := range actions {
		timeout := "-"
		if a.Timeout > 0 {
			timeout = a.Timeout.Truncate(time.Millisecond).String()
		}
		command := strings.Join(a.Command, " ")
		if a.Stdout != "" {
			command += " > " + a.Stdout
		}
		vars := strings.Join(a.Placeholders(), ",")
		if vars == "" {
			vars = "-"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\n", i+1, a.Name, a.OnFailure, timeout, command, vars)
	}
	tw.Flush()
}
