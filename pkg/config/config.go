// Package config handles loading and saving caseview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/caseview/config.yaml
//   - State:   ~/.local/state/caseview/ (submission journal)
//
// Server settings can be overridden from the environment, optionally read
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "caseview"

// Environment overrides for the selected server.
const (
	EnvBaseURL  = "CASEVIEW_BASE_URL"
	EnvUsername = "CASEVIEW_USERNAME"
	EnvPassword = "CASEVIEW_PASSWORD"
)

// Server is an admin REST endpoint.
type Server struct {
	Name     string        `yaml:"name"`
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username,omitempty"`
	Password string        `yaml:"password,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// RenderConfig holds diagram output defaults.
type RenderConfig struct {
	Format       string `yaml:"format,omitempty"`        // svg or png
	UnknownTypes string `yaml:"unknown_types,omitempty"` // skip or fail
	OutputDir    string `yaml:"output_dir,omitempty"`
}

// JournalConfig controls the local submission history.
type JournalConfig struct {
	Path     string `yaml:"path,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// UIConfig holds TUI preferences.
type UIConfig struct {
	SplitRatio float64 `yaml:"split_ratio,omitempty"` // list/detail split (0.2-0.8)
}

// Config is the top-level configuration.
type Config struct {
	Servers       []Server      `yaml:"servers,omitempty"`
	DefaultServer string        `yaml:"default_server,omitempty"`
	Render        RenderConfig  `yaml:"render,omitempty"`
	Journal       JournalConfig `yaml:"journal,omitempty"`
	UI            UIConfig      `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Format:       "svg",
			UnknownTypes: "skip",
		},
		UI: UIConfig{SplitRatio: 0.4},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	cfg.Journal.Path = expandHome(cfg.Journal.Path)
	cfg.Render.OutputDir = expandHome(cfg.Render.OutputDir)
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Render.Format {
	case "", "svg", "png":
	default:
		return fmt.Errorf("render.format: unknown format %q", c.Render.Format)
	}
	switch c.Render.UnknownTypes {
	case "", "skip", "fail":
	default:
		return fmt.Errorf("render.unknown_types: want skip or fail, got %q", c.Render.UnknownTypes)
	}
	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		key := strings.ToLower(s.Name)
		if seen[key] {
			return fmt.Errorf("servers: duplicate name %q", s.Name)
		}
		seen[key] = true
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path. The file may hold
// credentials, so it is only readable by the owner.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindServer returns the server with the given name, or nil.
func (c Config) FindServer(name string) *Server {
	for i := range c.Servers {
		if strings.EqualFold(c.Servers[i].Name, name) {
			return &c.Servers[i]
		}
	}
	return nil
}

// ResolveServer picks the named server, else the default server, else the
// first one, and applies environment overrides on top. An empty result is
// not an error here; the caller decides whether a base URL is required.
func (c Config) ResolveServer(name string) (Server, error) {
	var s Server
	switch {
	case name != "":
		found := c.FindServer(name)
		if found == nil {
			return s, fmt.Errorf("no server named %q in config", name)
		}
		s = *found
	case c.DefaultServer != "":
		if found := c.FindServer(c.DefaultServer); found != nil {
			s = *found
		}
	case len(c.Servers) > 0:
		s = c.Servers[0]
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		s.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		s.Password = v
	}
	return s, nil
}

// JournalPath returns where the submission journal lives, or "" when it is
// disabled.
func (c Config) JournalPath() string {
	if c.Journal.Disabled {
		return ""
	}
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "journal.db")
}

// LoadEnv reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
