package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/config"
	"tidbyt.dev/gtfsgraph/testutil"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("identity: name\n"), 0644))
	cfg, err = loadConfig([]string{path})
	require.NoError(t, err)
	assert.Equal(t, config.IdentityByName, cfg.Identity)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	feed := testutil.BuildFeedDir(t, testutil.SimpleFeed())
	out := filepath.Join(dir, "graph.gexf")

	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_root: "+feed+"\noutput: "+out+"\nlog_level: error\n",
	), 0644))

	rootCmd.SetArgs([]string{path})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, out)

	rootCmd.SetArgs([]string{filepath.Join(dir, "missing.yaml")})
	assert.Error(t, rootCmd.Execute())
}
