package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocal(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.LocalConfig), []byte(content), 0o644))
}

func writeGlobal(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o644))
}

func TestLoader_Load_NoConfigFiles(t *testing.T) {
	workDir := t.TempDir()

	cfg, err := NewLoaderWithGlobalDir(workDir, t.TempDir()).Load()

	require.NoError(t, err)
	dataDir := filepath.Join(workDir, domain.DataDirName)
	assert.Equal(t, domain.NewDefaultConfig(dataDir), cfg)
}

func TestLoader_Load_LocalConfigOnly(t *testing.T) {
	workDir := t.TempDir()
	writeLocal(t, workDir, `
[store]
driver = "sqlite"
path = "data/dorae.db"

[oracle]
provider = "openai"
base_url = "http://localhost:11434/v1"
model = "llama3"
timeout = "10s"

[timer]
oracle_timeout = "5s"
skip_overlap = true

[server]
addr = ":8080"

[log]
level = "debug"
dir = "/var/log/dorae"
`)

	cfg, err := NewLoaderWithGlobalDir(workDir, t.TempDir()).Load()

	require.NoError(t, err)
	assert.Equal(t, domain.StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(workDir, "data", "dorae.db"), cfg.Store.Path)
	assert.Equal(t, domain.OracleOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Oracle.BaseURL)
	assert.Equal(t, "llama3", cfg.Oracle.Model)
	assert.Equal(t, domain.Duration(10*time.Second), cfg.Oracle.Timeout)
	assert.Equal(t, domain.Duration(5*time.Second), cfg.Timer.OracleTimeout)
	assert.True(t, cfg.Timer.SkipOverlap)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/dorae", cfg.Log.Dir)
	assert.Empty(t, cfg.Warnings)
}

func TestLoader_Load_LocalOverridesGlobal(t *testing.T) {
	workDir := t.TempDir()
	globalDir := t.TempDir()
	writeGlobal(t, globalDir, `
[oracle]
provider = "openai"
model = "gpt-4o-mini"

[log]
level = "warn"
`)
	writeLocal(t, workDir, `
[oracle]
model = "gpt-4o"
`)

	cfg, err := NewLoaderWithGlobalDir(workDir, globalDir).Load()

	require.NoError(t, err)
	assert.Equal(t, domain.OracleOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, "gpt-4o", cfg.Oracle.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_Load_DriverDefaultPath(t *testing.T) {
	workDir := t.TempDir()
	writeLocal(t, workDir, "[store]\ndriver = \"git\"\n")

	cfg, err := NewLoaderWithGlobalDir(workDir, "").Load()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, domain.DataDirName, "store.git"), cfg.Store.Path)
}

func TestLoader_Load_UnknownKeysAndInvalidValues(t *testing.T) {
	workDir := t.TempDir()
	writeLocal(t, workDir, `
[store]
driver = "json"
compress = true

[timer]
oracle_timeout = "soon"
skip_overlap = "yes"

[workers]
default = "claude"
`)

	cfg, err := NewLoaderWithGlobalDir(workDir, "").Load()

	require.NoError(t, err)
	assert.Equal(t, []string{
		"invalid value in [timer]: oracle_timeout = soon",
		"invalid value in [timer]: skip_overlap = yes",
		"unknown key in [store]: compress",
		"unknown section: workers",
	}, cfg.Warnings)
	assert.Equal(t, domain.Duration(30*time.Second), cfg.Timer.OracleTimeout)
}

func TestLoader_Load_InvalidTOML(t *testing.T) {
	workDir := t.TempDir()
	writeLocal(t, workDir, "[store\ndriver = ")

	_, err := NewLoaderWithGlobalDir(workDir, "").Load()

	assert.ErrorContains(t, err, domain.LocalConfig)
}

func TestLoader_LoadWithOptions(t *testing.T) {
	workDir := t.TempDir()
	globalDir := t.TempDir()
	writeGlobal(t, globalDir, "[log]\nlevel = \"error\"\n")
	writeLocal(t, workDir, "[server]\naddr = \":9999\"\n")
	loader := NewLoaderWithGlobalDir(workDir, globalDir)

	t.Run("ignore global", func(t *testing.T) {
		cfg, err := loader.LoadWithOptions(domain.LoadConfigOptions{IgnoreGlobal: true})
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, ":9999", cfg.Server.Addr)
	})

	t.Run("ignore local", func(t *testing.T) {
		cfg, err := loader.LoadWithOptions(domain.LoadConfigOptions{IgnoreLocal: true})
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Log.Level)
		assert.Equal(t, "127.0.0.1:5001", cfg.Server.Addr)
	})
}

func TestLoader_LoadGlobal_NotFound(t *testing.T) {
	_, err := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir()).LoadGlobal()
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewLoaderWithGlobalDir(t.TempDir(), "").LoadGlobal()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
