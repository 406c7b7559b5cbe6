package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
origin: "http://localhost:9090"
originTimeout: 2s
backend:
  kind: sqlite
  path: catalog.db
`)
	config, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", config.Listen)
	require.Equal(t, "http://localhost:9090", config.Origin)
	require.Equal(t, 2*time.Second, config.OriginTimeout)
	require.Equal(t, Backend{Kind: BackendSQLite, Path: "catalog.db"}, config.Backend)
}

func TestLoadKeepsDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, "origin: https://shop.example\n"))
	require.NoError(t, err)
	require.Equal(t, ":8080", config.Listen)
	require.Equal(t, 5*time.Second, config.OriginTimeout)
	require.Equal(t, BackendFixture, config.Backend.Kind)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "listen: [",
		"no path":        "backend:\n  kind: file\n",
		"unknown kind":   "backend:\n  kind: redis\n",
		"bad origin":     "origin: ftp://example.com\n",
		"empty listen":   "listen: \"\"\n",
		"negative delay": "originTimeout: -1s\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
