package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("HELIX_TEST_TOKEN", "s3cret")
	path := writeFile(t, "name: helix\ntoken: ${HELIX_TEST_TOKEN}\n")

	cfg := sample{Port: 8080}
	require.NoError(t, Load(path, &cfg))
	require.Equal(t, "helix", cfg.Name)
	require.Equal(t, "s3cret", cfg.Token)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "port: 0\n")
	cfg := sample{Port: 8080}
	err := Load(path, &cfg)
	require.ErrorContains(t, err, "port must be positive")
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	require.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg))
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 9090}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	require.NoError(t, err)
	require.False(t, read)
	require.Equal(t, 9090, cfg.Port)

	cfg = sample{}
	_, err = LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	require.Error(t, err)

	path := writeFile(t, "port: 7070\n")
	read, err = LoadOptional(path, &cfg)
	require.NoError(t, err)
	require.True(t, read)
	require.Equal(t, 7070, cfg.Port)
}
