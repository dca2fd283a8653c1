package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
}

func TestExecRunner_Success(t *testing.T) {
	skipOnWindows(t)

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	res, err := r.Run(context.Background(), Command{Args: []string{"echo", "hello world"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello world\n", stdout.String())
}

func TestExecRunner_NonZeroExitIsNotAnError(t *testing.T) {
	skipOnWindows(t)

	var stderr bytes.Buffer
	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	res, err := r.Run(context.Background(), Command{Args: []string{"sh", "-c", "echo 'not an ELF file' >&2; exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "not an ELF file", res.Stderr)
	assert.Equal(t, "not an ELF file\n", stderr.String(), "stderr is still streamed")
}

func TestExecRunner_MissingBinaryIsSpawnError(t *testing.T) {
	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	res, err := r.Run(context.Background(), Command{Args: []string{"this-command-does-not-exist"}})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)

	var spawnErr *pberrors.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "this-command-does-not-exist", spawnErr.Program)
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	_, err := (&ExecRunner{}).Run(context.Background(), Command{})
	var spawnErr *pberrors.SpawnError
	require.ErrorAs(t, err, &spawnErr)
}

func TestExecRunner_StdoutRedirect(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	var inherited bytes.Buffer
	r := &ExecRunner{Stdout: &inherited, Stderr: &bytes.Buffer{}}

	res, err := r.Run(context.Background(), Command{
		Args:   []string{"echo", "disassembly"},
		Dir:    dir,
		Stdout: "firmware.lst",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, inherited.String())

	data, err := os.ReadFile(filepath.Join(dir, "firmware.lst"))
	require.NoError(t, err)
	assert.Equal(t, "disassembly\n", string(data))
}

func TestExecRunner_StdoutFileCannotBeCreated(t *testing.T) {
	skipOnWindows(t)

	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	_, err := r.Run(context.Background(), Command{
		Args:   []string{"echo", "x"},
		Stdout: filepath.Join(t.TempDir(), "missing", "out.lst"),
	})

	var spawnErr *pberrors.SpawnError
	require.ErrorAs(t, err, &spawnErr)
}

func TestExecRunner_StdoutTruncatedEvenWhenLaunchFails(t *testing.T) {
	skipOnWindows(t)

	listing := filepath.Join(t.TempDir(), "firmware.lst")
	require.NoError(t, os.WriteFile(listing, []byte("stale listing\n"), 0o644))

	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	_, err := r.Run(context.Background(), Command{
		Args:   []string{"avr-objdump-does-not-exist", "-d"},
		Stdout: listing,
	})

	var spawnErr *pberrors.SpawnError
	require.ErrorAs(t, err, &spawnErr)

	data, err := os.ReadFile(listing)
	require.NoError(t, err)
	assert.Empty(t, data, "the redirect target is truncated like a shell redirect")
}

func TestExecRunner_EnvAndDir(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	_, err := r.Run(context.Background(), Command{
		Args: []string{"sh", "-c", "echo $FIRMWARE_NAME; pwd"},
		Dir:  dir,
		Env:  map[string]string{"FIRMWARE_NAME": "firmware"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "firmware", lines[0])
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, []string{dir, resolved}, lines[1])
}

func TestExecRunner_Timeout(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	_, err := r.Run(ctx, Command{Args: []string{"sleep", "5"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunner_TimeoutStopsChildProcesses(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	start := time.Now()
	_, err := r.Run(ctx, Command{Args: []string{"sh", "-c", "sleep 3; echo done"}})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second, "the shell's sleep must be killed with it")
	assert.NotContains(t, stdout.String(), "done")
}

func TestExecRunner_ExpandGlobs(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	for _, name := range []string{"main.cpp", "motors.cpp", "motors.h"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &bytes.Buffer{}}
	_, err := r.Run(context.Background(), Command{
		Args:        []string{"echo", filepath.Join(dir, "*.cpp")},
		ExpandGlobs: true,
	})
	require.NoError(t, err)

	want := filepath.Join(dir, "main.cpp") + " " + filepath.Join(dir, "motors.cpp")
	assert.Equal(t, want, strings.TrimSpace(stdout.String()))
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cpp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cpp"), nil, 0o644))

	t.Run("relative patterns resolve against dir", func(t *testing.T) {
		out, err := ExpandGlobs([]string{"-i", "*.cpp"}, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"-i", "a.cpp", "b.cpp"}, out)
	})

	t.Run("unmatched pattern passes through", func(t *testing.T) {
		out, err := ExpandGlobs([]string{"*.rs"}, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"*.rs"}, out)
	})

	t.Run("malformed pattern", func(t *testing.T) {
		_, err := ExpandGlobs([]string{"[a"}, dir)
		require.Error(t, err)
	})
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{Handler: func(ctx context.Context, cmd Command) (Result, error) {
		if cmd.Args[0] == "fail" {
			return Result{ExitCode: 1}, nil
		}
		return Result{}, nil
	}}

	args := []string{"ok", "a"}
	_, err := rec.Run(context.Background(), Command{Args: args})
	require.NoError(t, err)
	args[1] = "mutated"

	res, err := rec.Run(context.Background(), Command{Args: []string{"fail"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)

	assert.Equal(t, []string{"ok", "fail"}, rec.Programs())
	assert.Equal(t, "a", rec.Calls()[0].Args[1])
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{limit: 5}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defgh"))
	assert.Equal(t, "defgh", tb.String())
}
