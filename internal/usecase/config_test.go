package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfigManager struct {
	global, local domain.ConfigInfo
	initErr       error
	initGlobal    bool
	initLocal     bool
}

func (m *fakeConfigManager) GetGlobalConfigInfo() domain.ConfigInfo { return m.global }
func (m *fakeConfigManager) GetLocalConfigInfo() domain.ConfigInfo  { return m.local }

func (m *fakeConfigManager) InitGlobalConfig(*domain.Config) error {
	m.initGlobal = m.initErr == nil
	return m.initErr
}

func (m *fakeConfigManager) InitLocalConfig(*domain.Config) error {
	m.initLocal = m.initErr == nil
	return m.initErr
}

func TestInitConfig_Execute(t *testing.T) {
	mgr := &fakeConfigManager{
		global: domain.ConfigInfo{Path: "/home/me/.config/dorae/config.toml"},
		local:  domain.ConfigInfo{Path: "/data/config.toml"},
	}
	uc := NewInitConfig(mgr)
	cfg := domain.NewDefaultConfig("/data")

	out, err := uc.Execute(context.Background(), InitConfigInput{Config: cfg, Global: true})
	require.NoError(t, err)
	assert.Equal(t, "/home/me/.config/dorae/config.toml", out.Path)
	assert.True(t, mgr.initGlobal)

	out, err = uc.Execute(context.Background(), InitConfigInput{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, "/data/config.toml", out.Path)
	assert.True(t, mgr.initLocal)

	mgr.initErr = domain.ErrConfigExists
	_, err = uc.Execute(context.Background(), InitConfigInput{Config: cfg})
	assert.ErrorIs(t, err, domain.ErrConfigExists)
}

func TestShowConfig_Execute(t *testing.T) {
	cfg := domain.NewDefaultConfig("/data")
	mgr := &fakeConfigManager{global: domain.ConfigInfo{Path: "g", Exists: true, Content: "[log]"}}
	uc := NewShowConfig(mgr, &testutil.MockConfigLoader{Config: cfg})

	out, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Same(t, cfg, out.Effective)
	assert.True(t, out.GlobalConfig.Exists)
	assert.False(t, out.LocalConfig.Exists)

	_, err = NewShowConfig(mgr, &testutil.MockConfigLoader{Err: assert.AnError}).Execute(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestShowLogs_Execute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(domain.GlobalLogPath(dir), []byte("one\ntwo\nthree\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timer-j1.log"), []byte("tick\n"), 0o600))
	uc := NewShowLogs(dir)

	out, err := uc.Execute(context.Background(), ShowLogsInput{})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree", out.Content)

	out, err = uc.Execute(context.Background(), ShowLogsInput{Lines: 2})
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", out.Content)

	out, err = uc.Execute(context.Background(), ShowLogsInput{Subject: "timer-j1"})
	require.NoError(t, err)
	assert.Equal(t, "tick", out.Content)

	_, err = uc.Execute(context.Background(), ShowLogsInput{Subject: "timer-missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Execute(context.Background(), ShowLogsInput{Subject: "../etc/passwd"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewShowLogs("").Execute(context.Background(), ShowLogsInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
