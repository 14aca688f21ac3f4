package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points user config and home at temp dirs so the developer's own
// configuration never leaks into tests.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{
		"PEA_INDEX_FILE", "PEA_FILES_DIR", "PEA_RECEIVED_FILES_DIR", "PEA_CLIENT_CONTENT_DIR",
		"PEA_ADDRESS", "PEA_LOG_LEVEL", "PEA_REGISTRY_URL", "PEA_REGISTRY_API_KEY", "PEA_WATCH_ENABLED",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults are applied
	assert.Equal(t, 1, cfg.Version)
	assert.True(t, filepath.IsAbs(cfg.Index.File))
	assert.Equal(t, "index.json", filepath.Base(cfg.Index.File))
	assert.Equal(t, []string{"enc"}, cfg.Index.SidecarExtensions)
	assert.Contains(t, cfg.Index.Exclude, "**/@eaDir/**")
	assert.True(t, cfg.Index.IgnoreFiles)
	assert.True(t, cfg.Index.ScanOnStart)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())

	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())

	assert.False(t, cfg.Registry.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	// Given: a project config that disables watching and adds an exclude
	yaml := `
index:
  content_root: /srv/media
  exclude:
    - "**/*.part"
watch:
  enabled: false
server:
  address: 127.0.0.1:9000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pea.yaml"), []byte(yaml), 0o644))

	// When: loading
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	// Then: overrides apply, unset keys keep defaults, excludes accumulate
	assert.Equal(t, "/srv/media", cfg.Index.ContentRoot)
	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.True(t, cfg.Index.ScanOnStart)
	assert.Contains(t, cfg.Index.Exclude, "**/*.part")
	assert.Contains(t, cfg.Index.Exclude, "**/Thumbs.db")
}

func TestLoad_PrecedenceUserProjectExplicitEnv(t *testing.T) {
	home := isolate(t)
	dir := t.TempDir()

	userPath := filepath.Join(home, ".config", "pea", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte("logging:\n  level: debug\nserver:\n  client_dir: /user\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pea.yml"), []byte("server:\n  client_dir: /project\n"), 0o644))
	explicit := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("index:\n  file: /explicit/index.json\n"), 0o644))
	t.Setenv("PEA_INDEX_FILE", "/env/index.json")

	cfg, err := Load(dir, explicit)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/project", cfg.Server.ClientDir)
	assert.Equal(t, "/env/index.json", cfg.Index.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PEA_FILES_DIR", "/media")
	t.Setenv("PEA_RECEIVED_FILES_DIR", "/uploads")
	t.Setenv("PEA_CLIENT_CONTENT_DIR", "/client")
	t.Setenv("PEA_REGISTRY_URL", "http://registry")
	t.Setenv("PEA_REGISTRY_API_KEY", "secret")
	t.Setenv("PEA_WATCH_ENABLED", "false")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "/media", cfg.Index.ContentRoot)
	assert.Equal(t, "/uploads", cfg.Index.ReceivedDir)
	assert.Equal(t, "/client", cfg.Server.ClientDir)
	assert.Equal(t, "http://registry", cfg.Registry.URL)
	assert.Equal(t, "secret", cfg.Registry.APIKey)
	assert.False(t, cfg.Watch.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load("", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "config file not found")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".pea.yaml"), []byte("index: [unclosed"), 0o644))
		_, err := Load(dir, "")
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("PEA_LOG_LEVEL", "loud")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "logging.level")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty index file", func(c *Config) { c.Index.File = "" }, "index.file"},
		{"bad timeout", func(c *Config) { c.Index.RequestTimeout = "soon" }, "index.request_timeout"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "x" }, "watch.debounce"},
		{"no workers", func(c *Config) { c.Index.ScanWorkers = 0 }, "index.scan_workers"},
		{"negative upload", func(c *Config) { c.Server.MaxUploadMB = -1 }, "server.max_upload_mb"},
		{"dotted sidecar", func(c *Config) { c.Index.SidecarExtensions = []string{".enc"} }, "sidecar_extensions"},
		{"zero buffer", func(c *Config) { c.Watch.EventBuffer = 0 }, "watch.event_buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	// Given: a modified config written as the project file
	cfg := NewConfig()
	cfg.Index.ContentRoot = "/data/movies"
	cfg.Registry.Enabled = true
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".pea.yaml")))

	// When: loading it back
	loaded, err := Load(dir, "")
	require.NoError(t, err)

	// Then: values survive and excludes are not duplicated
	assert.Equal(t, "/data/movies", loaded.Index.ContentRoot)
	assert.True(t, loaded.Registry.Enabled)
	assert.Equal(t, cfg.Index.Exclude, loaded.Index.Exclude)
}

func TestBackupFile_KeepsNewestBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	// Given: no file yet
	backup, err := BackupFile(path)
	require.NoError(t, err)
	assert.Empty(t, backup)

	// When: backing up more than MaxBackups times
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	for i := 0; i < MaxBackups+2; i++ {
		backup, err = BackupFile(path)
		require.NoError(t, err)
		assert.FileExists(t, backup)
		time.Sleep(2 * time.Millisecond)
	}

	// Then: only MaxBackups remain, newest first
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	assert.Equal(t, backup, backups[0])
}
