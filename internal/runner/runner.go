// Package runner spawns external tools for post-build actions.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

// stderrTailLimit bounds how much stderr is retained for error messages.
const stderrTailLimit = 4096

// waitDelay bounds how long Wait keeps copying output after the process was killed.
const waitDelay = 2 * time.Second

// Command is a fully substituted process invocation expressed as an argument array.
type Command struct {
	Args        []string
	Dir         string
	Env         map[string]string
	Stdout      string
	ExpandGlobs bool
}

// Result captures how a spawned process ended.
type Result struct {
	ExitCode int
	Stderr   string
}

// Runner executes a command and reports its exit status. A process that ran and exited
// non-zero is not an error; launch failures are reported as *errors.SpawnError.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec, streaming output to the configured writers.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner returns a runner that inherits the current process's stdout and stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run spawns cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{ExitCode: -1}, pberrors.NewSpawnError("", errors.New("empty command"))
	}

	args := cmd.Args
	if cmd.ExpandGlobs {
		expanded, err := ExpandGlobs(args[1:], cmd.Dir)
		if err != nil {
			return Result{ExitCode: -1}, pberrors.NewSpawnError(args[0], err)
		}
		args = append([]string{args[0]}, expanded...)
	}

	proc := exec.CommandContext(ctx, args[0], args[1:]...)
	proc.Dir = cmd.Dir
	proc.Env = buildEnv(cmd.Env)
	proc.WaitDelay = waitDelay
	isolateProcessGroup(proc)

	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if cmd.Stdout != "" {
		// Truncated before launch, like a shell redirect, even if the tool then fails to start.
		file, err := os.Create(resolvePath(cmd.Dir, cmd.Stdout))
		if err != nil {
			return Result{ExitCode: -1}, pberrors.NewSpawnError(args[0], fmt.Errorf("open stdout file: %w", err))
		}
		defer file.Close()
		stdout = file
	}
	proc.Stdout = stdout

	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	tail := &tailBuffer{limit: stderrTailLimit}
	proc.Stderr = io.MultiWriter(stderr, tail)

	if err := proc.Start(); err != nil {
		return Result{ExitCode: -1}, pberrors.NewSpawnError(args[0], err)
	}

	err := proc.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1, Stderr: tail.String()}, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Stderr: tail.String()}, nil
		}
		return Result{ExitCode: -1, Stderr: tail.String()}, fmt.Errorf("wait for %s: %w", args[0], err)
	}

	return Result{ExitCode: 0, Stderr: tail.String()}, nil
}

// ExpandGlobs replaces arguments containing glob metacharacters with their sorted matches.
// Patterns without matches are kept unchanged, mirroring POSIX shells.
func ExpandGlobs(args []string, dir string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			out = append(out, arg)
			continue
		}

		pattern := resolvePath(dir, arg)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", arg, err)
		}
		if len(matches) == 0 {
			out = append(out, arg)
			continue
		}
		sort.Strings(matches)
		if !filepath.IsAbs(arg) && dir != "" {
			for i, m := range matches {
				if rel, err := filepath.Rel(dir, m); err == nil {
					matches[i] = rel
				}
			}
		}
		out = append(out, matches...)
	}
	return out, nil
}

func resolvePath(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(custom))
	for k := range custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, custom[k]))
	}
	return env
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
