package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/require"
)

func TestDiscoverExplicitPath(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "custom.yaml", firmwareYAML)
	got, err := Discover(path, "")
	require.NoError(t, err)
	require.Equal(t, path, got)

	_, err = Discover(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)

	_, err = Discover(t.TempDir(), "")
	require.ErrorContains(t, err, "is a directory")
}

func TestDiscoverProjectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "postbuild.toml"), []byte(firmwareTOML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "postbuild.yml"), []byte(firmwareYAML), 0o644))

	got, err := Discover("", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "postbuild.yml"), got, "YAML names are preferred")
}

func TestDiscoverUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	_, err := Discover("", t.TempDir())
	require.ErrorIs(t, err, ErrConfigNotFound)

	userFile := filepath.Join(home, "postbuild", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userFile), 0o755))
	require.NoError(t, os.WriteFile(userFile, []byte(firmwareYAML), 0o644))

	got, err := Discover("", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, userFile, got)
}
