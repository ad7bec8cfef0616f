package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Endpoint string            `json:"endpoint"`
	Workers  int               `json:"workers"`
	Headers  map[string]string `json:"headers"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "profrank.local.json5", LocalName("profrank.json5"))
	require.Equal(t, "/a/b/c.local.json", LocalName("/a/b/c.json"))
	require.Equal(t, "noext.local", LocalName("noext"))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cfg.json5"), `{
		// comments are allowed
		endpoint: "https://example.com/graphql",
		workers: 4,
		headers: {"User-Agent": "a"},
	}`)
	writeFile(t, filepath.Join(dir, "cfg.local.json5"), `{workers: 8}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "cfg.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/graphql", cfg.Endpoint)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, "a", cfg.Headers["User-Agent"])
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "cfg.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cfg.local.json5"), `{endpoint: "local"}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "cfg.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Endpoint)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cfg.json5"), `{endpoint: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "cfg.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}
