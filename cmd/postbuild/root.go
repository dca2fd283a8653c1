package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	projectDir string
	verbose    bool
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "postbuild",
		Short:         "postbuild runs external tools after a build target is produced",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the action configuration (default: postbuild.yaml in the project directory)")
	cmd.PersistentFlags().StringVar(&flags.projectDir, "project-dir", "", "Project directory (default: current directory)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "console", "Log format (console or json)")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newWrapCmd(flags))
	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
