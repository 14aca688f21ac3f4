package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/pea/internal/logging"
)

// Config is the complete pea configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
	Registry RegistryConfig `yaml:"registry" json:"registry"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// IndexConfig controls what is indexed and where the index lives.
type IndexConfig struct {
	// File is the persisted JSON index.
	File string `yaml:"file" json:"file"`
	// ContentRoot is the media tree scanned at startup.
	ContentRoot string `yaml:"content_root" json:"content_root"`
	// ReceivedDir receives uploaded files. It is registered as a scan root.
	ReceivedDir string `yaml:"received_dir" json:"received_dir"`

	// Exclude holds doublestar globs relative to a scan root.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// SidecarExtensions are never indexed (encrypted companions and similar).
	SidecarExtensions []string `yaml:"sidecar_extensions" json:"sidecar_extensions"`

	IgnoreFiles    bool `yaml:"ignore_files" json:"ignore_files"`
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`
	ScanOnStart    bool `yaml:"scan_on_start" json:"scan_on_start"`

	// RequestTimeout bounds how long a caller waits on the index actor.
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
	// ScanWorkers bounds concurrent root rescans during reconcile.
	ScanWorkers int `yaml:"scan_workers" json:"scan_workers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Address is host:port. An empty host binds all interfaces.
	Address string `yaml:"address" json:"address"`
	// ClientDir holds the built web client (index.html and static/).
	ClientDir       string `yaml:"client_dir" json:"client_dir"`
	MaxUploadMB     int    `yaml:"max_upload_mb" json:"max_upload_mb"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// WatchConfig configures live filesystem following.
type WatchConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Debounce    string `yaml:"debounce" json:"debounce"`
	EventBuffer int    `yaml:"event_buffer" json:"event_buffer"`
}

// RegistryConfig configures discovery registration.
type RegistryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
	// ConfigFile is a JSON file {"url": ..., "auth": ...}, read when URL is empty.
	ConfigFile string `yaml:"config_file" json:"config_file"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

var defaultExcludePatterns = []string{
	"**/@eaDir/**",
	"**/$RECYCLE.BIN/**",
	"**/System Volume Information/**",
	"**/Thumbs.db",
	"**/desktop.ini",
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			File:              filepath.Join(DataDir(), "index.json"),
			ReceivedDir:       filepath.Join(DataDir(), "received"),
			Exclude:           append([]string(nil), defaultExcludePatterns...),
			SidecarExtensions: []string{"enc"},
			IgnoreFiles:       true,
			ScanOnStart:       true,
			RequestTimeout:    "30s",
			ScanWorkers:       4,
		},
		Server: ServerConfig{
			Address:         ":8080",
			MaxUploadMB:     2048,
			ShutdownTimeout: "10s",
		},
		Watch: WatchConfig{
			Enabled:     true,
			Debounce:    "500ms",
			EventBuffer: 1000,
		},
		Registry: RegistryConfig{
			ConfigFile: filepath.Join(DataDir(), "config.json"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      logging.DefaultLogPath(),
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DataDir returns ~/.pea.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".pea")
	}
	return filepath.Join(home, ".pea")
}

// GetUserConfigPath returns the user configuration file:
//   - $XDG_CONFIG_HOME/pea/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/pea/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pea", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "pea", "config.yaml")
	}
	return filepath.Join(home, ".config", "pea", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration in order of increasing precedence:
//  1. Defaults
//  2. User config (~/.config/pea/config.yaml)
//  3. Project config (.pea.yaml or .pea.yml in dir)
//  4. explicit, when non-empty (must exist)
//  5. Environment variables (PEA_*)
func Load(dir, explicit string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	if explicit != "" {
		if !fileExists(explicit) {
			return nil, fmt.Errorf("config file not found: %s", explicit)
		}
		if err := cfg.loadYAML(explicit); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromDir(dir string) error {
	if dir == "" {
		return nil
	}
	for _, name := range []string{".pea.yaml", ".pea.yml"} {
		if path := filepath.Join(dir, name); fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML overlays the keys present in path onto c.
// Exclude patterns accumulate instead of replacing.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	excludes := c.Index.Exclude
	next := *c
	next.Index.Exclude = nil
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	next.Index.Exclude = mergeUnique(excludes, next.Index.Exclude)
	*c = next
	return nil
}

func mergeUnique(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, s := range extra {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// applyEnvOverrides applies PEA_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PEA_INDEX_FILE"); v != "" {
		c.Index.File = v
	}
	if v := os.Getenv("PEA_FILES_DIR"); v != "" {
		c.Index.ContentRoot = v
	}
	if v := os.Getenv("PEA_RECEIVED_FILES_DIR"); v != "" {
		c.Index.ReceivedDir = v
	}
	if v := os.Getenv("PEA_CLIENT_CONTENT_DIR"); v != "" {
		c.Server.ClientDir = v
	}
	if v := os.Getenv("PEA_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("PEA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PEA_REGISTRY_URL"); v != "" {
		c.Registry.URL = v
	}
	if v := os.Getenv("PEA_REGISTRY_API_KEY"); v != "" {
		c.Registry.APIKey = v
	}
	if v := os.Getenv("PEA_WATCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Watch.Enabled = b
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.File == "" {
		return fmt.Errorf("index.file must be set")
	}
	for _, d := range []struct{ key, value string }{
		{"index.request_timeout", c.Index.RequestTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"watch.debounce", c.Watch.Debounce},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s must be a duration, got %q", d.key, d.value)
		}
	}
	if c.Index.ScanWorkers < 1 {
		return fmt.Errorf("index.scan_workers must be at least 1, got %d", c.Index.ScanWorkers)
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must be non-negative, got %d", c.Server.MaxUploadMB)
	}
	if c.Watch.EventBuffer < 1 {
		return fmt.Errorf("watch.event_buffer must be at least 1, got %d", c.Watch.EventBuffer)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	for _, ext := range c.Index.SidecarExtensions {
		if strings.Contains(ext, ".") || ext == "" {
			return fmt.Errorf("index.sidecar_extensions entries are bare extensions, got %q", ext)
		}
	}
	return nil
}

// RequestTimeout returns index.request_timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return mustDuration(c.Index.RequestTimeout, 30*time.Second)
}

// ShutdownTimeout returns server.shutdown_timeout as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return mustDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// WatchDebounce returns watch.debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return mustDuration(c.Watch.Debounce, 500*time.Millisecond)
}

// LoggingConfig converts the logging section for logging.Setup.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:         c.Logging.Level,
		FilePath:      c.Logging.File,
		MaxSizeMB:     c.Logging.MaxSizeMB,
		MaxFiles:      c.Logging.MaxFiles,
		WriteToStderr: true,
	}
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
