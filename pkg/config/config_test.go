package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	s.valid = true
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "liblearn")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "liblearn" || s.Port != 9000 || !s.valid {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoadValidationError(t *testing.T) {
	path := writeFile(t, "name: x\nport: 0\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("error = %v, want validation failure", err)
	}
}

func TestLoadIfExists(t *testing.T) {
	s := sample{Port: 8080}
	found, err := LoadIfExists(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil || found {
		t.Fatalf("LoadIfExists(missing) = %v, %v", found, err)
	}
	if !s.valid || s.Port != 8080 {
		t.Errorf("defaults not validated: %+v", s)
	}

	path := writeFile(t, "port: 1234\n")
	found, err = LoadIfExists(path, &s)
	if err != nil || !found {
		t.Fatalf("LoadIfExists = %v, %v", found, err)
	}
	if s.Port != 1234 {
		t.Errorf("port = %d, want 1234", s.Port)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "port: 7\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Port != 7 {
		t.Errorf("port = %d, want 7", s.Port)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), "", &s); err == nil {
		t.Error("missing file without default should fail")
	}
}
