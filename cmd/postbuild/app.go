package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/postbuild/internal/buildctx"
	"github.com/alexisbeaulieu97/postbuild/internal/config"
	"github.com/alexisbeaulieu97/postbuild/internal/logger"
)

// appContext bundles what every command needs after start-up.
type appContext struct {
	ConfigPath string
	ProjectDir string
	Config     *config.Config
	Logger     *logger.Logger
}

// contextOptions controls how the build context is assembled.
type contextOptions struct {
	Vars []string
	Git  bool
}

func newLogger(flags *rootFlags, w io.Writer) (*logger.Logger, error) {
	level := flags.logLevel
	if level == "" {
		level = "info"
		if flags.verbose {
			level = "debug"
		}
	}

	var human bool
	switch strings.ToLower(flags.logFormat) {
	case "", "console":
		human = true
	case "json":
		human = false
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", flags.logFormat)
	}

	return logger.New(logger.Options{Level: level, HumanReadable: human, Writer: w})
}

func loadApp(flags *rootFlags, logWriter io.Writer) (*appContext, error) {
	log, err := newLogger(flags, logWriter)
	if err != nil {
		return nil, err
	}

	projectDir := flags.projectDir
	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
	}
	projectDir, err = filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	path, err := config.Discover(flags.configPath, projectDir)
	if err != nil {
		return nil, newCommandError("load configuration", "locating config file", err,
			"Pass --config or create postbuild.yaml in the project directory.")
	}

	cfg, err := config.ParseConfig(path)
	if err != nil {
		return nil, err
	}
	log.With("config", path).Debug("configuration loaded")

	return &appContext{ConfigPath: path, ProjectDir: projectDir, Config: cfg, Logger: log}, nil
}

// buildContext layers variables: project defaults, config variables, git metadata, then --var.
func (a *appContext) buildContext(opts contextOptions) (buildctx.Context, error) {
	overrides, err := parseVars(opts.Vars)
	if err != nil {
		return buildctx.Context{}, err
	}

	ctx := buildctx.New(map[string]string{
		buildctx.ProjectDir:    a.ProjectDir,
		buildctx.ProjectSrcDir: filepath.Join(a.ProjectDir, "src"),
	}).Merge(a.Config.Variables)

	if opts.Git {
		gitVars, err := buildctx.GitVariables(a.ProjectDir)
		switch {
		case errors.Is(err, buildctx.ErrNotRepository):
			a.Logger.Debug("project is not a git repository; git variables unavailable")
		case err != nil:
			return buildctx.Context{}, err
		default:
			ctx = ctx.Merge(gitVars)
		}
	}

	ctx = ctx.Merge(overrides)
	a.Logger.WithFields(map[string]any{"count": ctx.Len(), "variables": ctx.Names()}).Debug("build context assembled")
	return ctx, nil
}

func parseVars(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t$") {
			return nil, fmt.Errorf("invalid --var %q (want NAME=value)", pair)
		}
		out[key] = value
	}
	return out, nil
}
