package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electrocoords/pkg/affine"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.Conversion.Round)
	assert.Equal(t, affine.DefaultTolerance, cfg.Tolerance())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "electrocoords.yaml")
	yaml := `freesurfer:
  subjectsDir: /data/derivatives/freesurfer
conversion:
  round: false
  absTolerance: 0.001
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/derivatives/freesurfer", cfg.FreeSurfer.SubjectsDir)
	assert.False(t, cfg.Conversion.Round)
	assert.Equal(t, 0.001, cfg.Conversion.AbsTolerance)
	// untouched keys keep their defaults
	assert.Equal(t, affine.DefaultTolerance.Rel, cfg.Conversion.RelTolerance)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("conversion: [1, 2"), 0644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("conversion:\n  absTolerance: -1\n"), 0644))
	_, err = LoadConfig(negative)
	assert.Error(t, err)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "electrocoords.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
