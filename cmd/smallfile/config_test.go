package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParamsPrecedenceDefaultsThenYAMLThenCLI(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("iterations: 500\nthread-count: 9\n"), 0o644))

	cmd := &cobra.Command{Use: "test"}
	flagParams := bindParamFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--thread-count=3"}))

	g := &globalFlags{configPath: yamlPath}
	p, err := resolveParams(cmd, g, flagParams)
	require.NoError(t, err)

	assert.Equal(t, 500, p.Iterations, "YAML overlay applies where no CLI flag was set")
	assert.Equal(t, 3, p.ThreadCount, "explicit CLI flag overrides the YAML overlay")
}

func TestResolveParamsFallsBackToDefaultsWithoutYAML(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flagParams := bindParamFlags(cmd)
	require.NoError(t, cmd.ParseFlags(nil))

	g := &globalFlags{}
	p, err := resolveParams(cmd, g, flagParams)
	require.NoError(t, err)
	assert.Greater(t, p.Iterations, 0)
}
