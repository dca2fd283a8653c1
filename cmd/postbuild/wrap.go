package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/postbuild/internal/runner"
)

func newWrapCmd(root *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "wrap --target TARGET -- BUILD-COMMAND [ARGS...]",
		Short: "Run a build command and, if it succeeds, the target's post-build actions",
		Long: "wrap runs the given build command with inherited output. When the build fails " +
			"postbuild exits with the build's status and no actions run. Otherwise the actions " +
			"registered for the target run as with 'postbuild run'.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			build := newRunner(cmd.OutOrStdout(), cmd.ErrOrStderr())
			res, err := build.Run(ctx, runner.Command{Args: args})
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("build command: %w", err)}
			}
			if res.ExitCode != 0 {
				return &exitError{code: res.ExitCode, err: fmt.Errorf("build command exited with status %d; skipping post-build actions", res.ExitCode)}
			}

			return notifyTarget(ctx, cmd, root, opts)
		},
	}

	addNotifyFlags(cmd, opts)
	return cmd
}
