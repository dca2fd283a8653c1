package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/postbuild/internal/runner"
	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

const firmwareConfig = `version: "1.0.0"
name: mazerunner
variables:
  BUILD_DIR: /out
actions:
  - target: firmware.elf
    name: size
    command: ["avr-size", "$BUILD_DIR/${PROGNAME}.elf"]
    description: "Building $BUILD_DIR/${PROGNAME}.hex"
    on_failure: warn
  - target: firmware.elf
    name: listing
    command: ["avr-objdump", "-d", "-S", "$BUILD_DIR/${PROGNAME}.elf"]
    stdout: "${PROGNAME}.lst"
    description: "Generate listing file ${PROGNAME}.lst"
  - target: firmware.elf
    name: format
    command: ["clang-format", "-i", "${PROJECT_SRC_DIR}/*"]
    glob: true
    description: "Format sources in ${PROJECT_SRC_DIR}"
    on_failure: ignore
  - target: upload
    name: notify
    command: ["node", "--version"]
`

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	cmd.SetArgs(args)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	err := cmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// useRecorder swaps the process runner for an in-memory recorder for the test's duration.
func useRecorder(t *testing.T, handler func(context.Context, runner.Command) (runner.Result, error)) *runner.Recorder {
	t.Helper()
	rec := &runner.Recorder{Handler: handler}
	original := newRunner
	newRunner = func(io.Writer, io.Writer) runner.Runner { return rec }
	t.Cleanup(func() { newRunner = original })
	return rec
}

func TestRunCommandFirmwareScenario(t *testing.T) {
	rec := useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	out, err := executeCommand(newRootCmd(), "run",
		"--config", cfgPath,
		"--project-dir", "/proj",
		"--target", "firmware.elf",
		"--var", "PROGNAME=firmware",
	)
	require.NoError(t, err)

	calls := rec.Calls()
	require.Len(t, calls, 3)
	require.Equal(t, []string{"avr-size", "/out/firmware.elf"}, calls[0].Args)
	require.Equal(t, []string{"avr-objdump", "-d", "-S", "/out/firmware.elf"}, calls[1].Args)
	require.Equal(t, "firmware.lst", calls[1].Stdout)
	require.Equal(t, []string{"clang-format", "-i", "/proj/src/*"}, calls[2].Args)

	require.Contains(t, out, "Generate listing file firmware.lst")
	require.Contains(t, out, "3 succeeded, 0 failed, 0 ignored, 0 skipped")
}

func TestRunCommandLogsBuildContext(t *testing.T) {
	useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	out, err := executeCommand(newRootCmd(), "run", "-c", cfgPath, "--project-dir", "/proj",
		"-t", "upload", "-q", "--log-level", "debug", "--log-format", "json", "--var", "PROGNAME=firmware")
	require.NoError(t, err)
	require.Contains(t, out, `"count":4`)
	require.Contains(t, out, `"variables":["BUILD_DIR","PROGNAME","PROJECT_DIR","PROJECT_SRC_DIR"]`)
}

func TestRunCommandAbortExitsNonZero(t *testing.T) {
	rec := useRecorder(t, func(_ context.Context, cmd runner.Command) (runner.Result, error) {
		if cmd.Args[0] == "avr-objdump" {
			return runner.Result{ExitCode: 1}, nil
		}
		return runner.Result{}, nil
	})
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "run", "-c", cfgPath, "-t", "firmware.elf", "--var", "PROGNAME=firmware", "-q")
	require.Error(t, err)
	require.Equal(t, []string{"avr-size", "avr-objdump"}, rec.Programs(), "format must not run after an aborting failure")

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.code)

	var failed *pberrors.ActionFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, "listing", failed.Action)
}

func TestRunCommandUnresolvedVariable(t *testing.T) {
	rec := useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "run", "-c", cfgPath, "-t", "firmware.elf")
	var unresolved *pberrors.UnresolvedVariableError
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, "PROGNAME", unresolved.Name)
	require.Empty(t, rec.Calls())
}

func TestRunCommandDryRun(t *testing.T) {
	rec := useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	out, err := executeCommand(newRootCmd(), "run", "-c", cfgPath, "-t", "firmware.elf", "--var", "PROGNAME=fw", "--dry-run")
	require.NoError(t, err)
	require.Empty(t, rec.Calls())
	require.Contains(t, out, "avr-size /out/fw.elf")
	require.Contains(t, out, "3 skipped")
}

func TestRunCommandRequiresTarget(t *testing.T) {
	useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "run", "-c", cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "target")
}

func TestRunCommandUnknownTargetIsNoop(t *testing.T) {
	rec := useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "run", "-c", cfgPath, "-t", "spiffs.bin")
	require.NoError(t, err)
	require.Empty(t, rec.Calls())
}

func TestRunCommandMissingConfig(t *testing.T) {
	_, err := executeCommand(newRootCmd(), "run", "-c", "/path/does/not/exist.yaml", "-t", "firmware.elf")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
	require.Contains(t, err.Error(), "Suggestion")
}

func TestRunCommandRejectsBadLogFormat(t *testing.T) {
	cfgPath := writeConfig(t, firmwareConfig)
	_, err := executeCommand(newRootCmd(), "run", "-c", cfgPath, "-t", "upload", "--log-format", "xml")
	require.ErrorContains(t, err, "unknown log format")
}

func TestWrapCommandSkipsActionsWhenBuildFails(t *testing.T) {
	rec := useRecorder(t, func(_ context.Context, cmd runner.Command) (runner.Result, error) {
		if cmd.Args[0] == "make" {
			return runner.Result{ExitCode: 2}, nil
		}
		return runner.Result{}, nil
	})
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "wrap", "-c", cfgPath, "-t", "upload", "--", "make", "all")
	require.Error(t, err)
	require.Equal(t, []string{"make"}, rec.Programs())

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.code, "the build's own status is propagated")
}

func TestWrapCommandRunsActionsAfterBuild(t *testing.T) {
	rec := useRecorder(t, nil)
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "wrap", "-c", cfgPath, "-t", "upload", "-q", "--", "make", "all")
	require.NoError(t, err)
	require.Equal(t, []string{"make", "node"}, rec.Programs())
	require.Equal(t, []string{"make", "all"}, rec.Calls()[0].Args)
}

func TestWrapCommandBuildSpawnFailure(t *testing.T) {
	useRecorder(t, func(_ context.Context, cmd runner.Command) (runner.Result, error) {
		return runner.Result{ExitCode: -1}, pberrors.NewSpawnError(cmd.Args[0], os.ErrNotExist)
	})
	cfgPath := writeConfig(t, firmwareConfig)

	_, err := executeCommand(newRootCmd(), "wrap", "-c", cfgPath, "-t", "upload", "--", "pio", "run")
	var spawnErr *pberrors.SpawnError
	require.ErrorAs(t, err, &spawnErr)
}

func TestListCommand(t *testing.T) {
	cfgPath := writeConfig(t, firmwareConfig)

	out, err := executeCommand(newRootCmd(), "list", "-c", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "firmware.elf (3 actions)")
	require.Contains(t, out, "upload (1 actions)")
	require.Contains(t, out, "avr-objdump -d -S $BUILD_DIR/${PROGNAME}.elf > ${PROGNAME}.lst")
	require.Contains(t, out, "BUILD_DIR,PROGNAME")

	out, err = executeCommand(newRootCmd(), "list", "-c", cfgPath, "-t", "upload")
	require.NoError(t, err)
	require.NotContains(t, out, "firmware.elf")
	require.Contains(t, out, "notify")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeConfig(t, firmwareConfig)

	out, err := executeCommand(newRootCmd(), "validate", "-c", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "4 actions across 2 targets")
	require.Contains(t, out, "firmware.elf/size: PROGNAME")

	_, err = executeCommand(newRootCmd(), "validate", "-c", cfgPath, "--strict")
	require.Error(t, err)

	out, err = executeCommand(newRootCmd(), "validate", "-c", cfgPath, "--strict", "--var", "PROGNAME=firmware")
	require.NoError(t, err)
	require.Contains(t, out, "all referenced variables are defined")
}

func TestValidateCommandReportsInvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, "version: \"1.0.0\"\nname: x\nactions:\n  - target: t\n    command: [a]\n    on_failure: sometimes\n")

	_, err := executeCommand(newRootCmd(), "validate", "-c", cfgPath)
	var validationErr *pberrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"PROGNAME=firmware", "FLAGS=-O2 -g", "EMPTY="})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"PROGNAME": "firmware", "FLAGS": "-O2 -g", "EMPTY": ""}, vars)

	for _, bad := range []string{"novalue", "=x", "A B=c", "$X=1"} {
		_, err := parseVars([]string{bad})
		require.Error(t, err, bad)
	}
}

func TestReportError(t *testing.T) {
	require.Equal(t, 3, reportError(&exitError{code: 3}))
	require.Equal(t, 1, reportError(errors.New("plain")))
	require.Equal(t, 1, reportError(&exitError{code: 1, err: errors.New("wrapped")}))
}
