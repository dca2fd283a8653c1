package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
	"github.com/alexisbeaulieu97/postbuild/internal/runner"
	"github.com/alexisbeaulieu97/postbuild/internal/tui"
)

type runOptions struct {
	Target string
	Vars   []string
	Git    bool
	DryRun bool
	TUI    bool
	Quiet  bool
}

// newRunner builds the process runner; tests replace it with a recorder.
var newRunner = func(stdout, stderr io.Writer) runner.Runner {
	return &runner.ExecRunner{Stdout: stdout, Stderr: stderr}
}

// isInteractive reports whether the TUI can take over the terminal.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func addNotifyFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Build target whose post-build actions should run")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "Set a build context variable (NAME=value, repeatable)")
	cmd.Flags().BoolVar(&opts.Git, "git", false, "Expose GIT_COMMIT, GIT_SHORT_COMMIT and GIT_BRANCH")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print substituted commands without running them")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "Show an interactive progress view on a terminal (Ctrl-C stops the actions)")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not print the summary")
	cmd.MarkFlagRequired("target") //nolint:errcheck
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the post-build actions of a target that has just been built",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return notifyTarget(ctx, cmd, root, opts)
		},
	}

	addNotifyFlags(cmd, opts)
	return cmd
}

// notifyTarget loads the configuration and runs every action registered for opts.Target.
func notifyTarget(ctx context.Context, cmd *cobra.Command, root *rootFlags, opts *runOptions) error {
	interactive := opts.TUI && isInteractive()

	// The TUI puts the terminal in raw mode, so Ctrl-C reaches the model instead of the signal handler.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logWriter := cmd.ErrOrStderr()
	toolOut, toolErr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if interactive {
		logWriter, toolOut, toolErr = io.Discard, io.Discard, io.Discard
	}

	app, err := loadApp(root, logWriter)
	if err != nil {
		return err
	}

	bctx, err := app.buildContext(contextOptions{Vars: opts.Vars, Git: opts.Git})
	if err != nil {
		return err
	}

	regOpts := []action.Option{action.WithLogger(app.Logger), action.WithDryRun(opts.DryRun)}

	var program *tea.Program
	done := make(chan error, 1)
	if interactive {
		actions, err := app.Config.BuildActions()
		if err != nil {
			return err
		}
		var targetActions []action.Action
		for _, a := range actions {
			if a.Target == opts.Target {
				targetActions = append(targetActions, a)
			}
		}
		program = tea.NewProgram(tui.NewModel(opts.Target, targetActions, bctx).WithCancel(cancel), tea.WithOutput(cmd.OutOrStdout()))
		regOpts = append(regOpts, action.WithObserver(tui.Observer{Program: program}))
		go func() {
			_, err := program.Run()
			done <- err
		}()
	}

	reg := action.NewRegistry(newRunner(toolOut, toolErr), regOpts...)
	if err := app.Config.Register(reg); err != nil {
		return err
	}

	outcomes, notifyErr := reg.NotifyTargetBuilt(ctx, opts.Target, bctx)

	if interactive {
		program.Send(tui.DoneMsg{Err: notifyErr})
		if err := <-done; err != nil {
			app.Logger.Warn(err, "progress display failed")
		}
	} else if !opts.Quiet {
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary(opts.Target, outcomes, notifyErr))
	}

	if notifyErr != nil {
		return &exitError{code: 1, err: notifyErr}
	}
	return nil
}
