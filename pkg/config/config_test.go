package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBaseURL, EnvUsername, EnvPassword} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Render.Format != "svg" {
		t.Errorf("expected default format 'svg', got %q", cfg.Render.Format)
	}
	if cfg.Render.UnknownTypes != "skip" {
		t.Errorf("expected unknown types 'skip', got %q", cfg.Render.UnknownTypes)
	}
	if cfg.UI.SplitRatio != 0.4 {
		t.Errorf("expected split ratio 0.4, got %f", cfg.UI.SplitRatio)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Render.Format != "svg" {
		t.Errorf("expected default config, got format %q", cfg.Render.Format)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
servers:
  - name: local
    base_url: http://localhost:8080/flowable-admin/
    username: admin
    password: test
    timeout: 10s
  - name: prod
    base_url: https://flowable.example.com/

default_server: prod

render:
  format: png
  unknown_types: fail
  output_dir: ~/diagrams

journal:
  path: ~/cv/journal.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.Servers))
	}
	if cfg.Servers[0].Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Servers[0].Timeout)
	}
	if cfg.Render.Format != "png" || cfg.Render.UnknownTypes != "fail" {
		t.Errorf("render = %+v", cfg.Render)
	}
	// Paths should have ~ expanded
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "diagrams"); cfg.Render.OutputDir != want {
		t.Errorf("expected expanded output dir %q, got %q", want, cfg.Render.OutputDir)
	}
	if want := filepath.Join(home, "cv/journal.db"); cfg.JournalPath() != want {
		t.Errorf("expected journal path %q, got %q", want, cfg.JournalPath())
	}
	// Defaults survive for keys the file omits
	if cfg.UI.SplitRatio != 0.4 {
		t.Errorf("expected default split ratio, got %f", cfg.UI.SplitRatio)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"format":    "render:\n  format: gif\n",
		"unknown":   "render:\n  unknown_types: ignore\n",
		"duplicate": "servers:\n  - name: a\n  - name: A\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Servers = []Server{{Name: "local", BaseURL: "http://localhost/", Username: "admin", Timeout: time.Minute}}
	cfg.DefaultServer = "local"
	cfg.Journal.Disabled = true

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if len(loaded.Servers) != 1 || loaded.Servers[0].Timeout != time.Minute {
		t.Errorf("servers = %+v", loaded.Servers)
	}
	if loaded.JournalPath() != "" {
		t.Errorf("disabled journal should have no path, got %q", loaded.JournalPath())
	}
}

func TestFindServer(t *testing.T) {
	cfg := Config{Servers: []Server{{Name: "alpha"}, {Name: "Beta"}}}

	if s := cfg.FindServer("alpha"); s == nil || s.Name != "alpha" {
		t.Error("expected to find 'alpha'")
	}
	// Case-insensitive
	if s := cfg.FindServer("BETA"); s == nil || s.Name != "Beta" {
		t.Error("expected to find 'Beta' case-insensitively")
	}
	if s := cfg.FindServer("nonexistent"); s != nil {
		t.Error("expected nil for nonexistent server")
	}
}

func TestResolveServer(t *testing.T) {
	clearServerEnv(t)
	cfg := Config{
		Servers: []Server{
			{Name: "a", BaseURL: "http://a/"},
			{Name: "b", BaseURL: "http://b/", Username: "bob"},
		},
	}

	s, err := cfg.ResolveServer("")
	if err != nil || s.Name != "a" {
		t.Errorf("first server expected, got %+v (%v)", s, err)
	}

	cfg.DefaultServer = "b"
	if s, _ := cfg.ResolveServer(""); s.Name != "b" {
		t.Errorf("default server expected, got %q", s.Name)
	}
	if s, _ := cfg.ResolveServer("A"); s.Name != "a" {
		t.Errorf("named server expected, got %q", s.Name)
	}
	if _, err := cfg.ResolveServer("missing"); err == nil {
		t.Error("expected error for unknown server")
	}

	t.Setenv(EnvBaseURL, "http://env/")
	t.Setenv(EnvPassword, "secret")
	s, _ = cfg.ResolveServer("")
	if s.BaseURL != "http://env/" || s.Username != "bob" || s.Password != "secret" {
		t.Errorf("env overrides not applied: %+v", s)
	}
}

func TestResolveServer_EnvOnly(t *testing.T) {
	clearServerEnv(t)
	t.Setenv(EnvBaseURL, "http://only-env/")
	s, err := Config{}.ResolveServer("")
	if err != nil {
		t.Fatal(err)
	}
	if s.BaseURL != "http://only-env/" {
		t.Errorf("base url = %q", s.BaseURL)
	}
}

func TestLoadEnv(t *testing.T) {
	clearServerEnv(t)
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CASEVIEW_USERNAME=envuser\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// t.Setenv registers cleanup; unset so godotenv fills it in.
	os.Unsetenv(EnvUsername)
	if err := LoadEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(EnvUsername); got != "envuser" {
		t.Errorf("expected envuser, got %q", got)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	if got := ConfigPath(); got != "/tmp/xdg-config/caseview/config.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := DefaultConfig().JournalPath(); got != "/tmp/xdg-state/caseview/journal.db" {
		t.Errorf("JournalPath = %q", got)
	}
}
