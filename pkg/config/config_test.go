package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Fails bool   `yaml:"fails"`
}

func (s *sample) Validate() error {
	if s.Fails {
		return errors.New("invalid")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CHATNOTES_TEST_NAME", "notes")
	p := writeFile(t, "name: ${CHATNOTES_TEST_NAME}\nport: 9000\n")

	s := sample{Port: 1}
	require.NoError(t, Load(p, &s))
	assert.Equal(t, "notes", s.Name)
	assert.Equal(t, 9000, s.Port)
}

func TestLoad_RunsValidator(t *testing.T) {
	p := writeFile(t, "fails: true\n")
	err := Load(p, &sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadOptional_MissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	require.NoError(t, LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &s))
	assert.Equal(t, sample{Name: "default", Port: 8080}, s)

	require.NoError(t, LoadOptional("", &s))
}

func TestLoadOptional_ValidatesDefaults(t *testing.T) {
	s := sample{Fails: true}
	assert.Error(t, LoadOptional("", &s))
}

func TestLoadOptional_ExistingFileOverrides(t *testing.T) {
	p := writeFile(t, "port: 9100\n")
	s := sample{Name: "default", Port: 8080}
	require.NoError(t, LoadOptional(p, &s))
	assert.Equal(t, "default", s.Name)
	assert.Equal(t, 9100, s.Port)
}
