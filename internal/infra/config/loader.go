// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dorae/dorae/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	workDir       string // Directory holding the local dorae.toml and the .dorae data dir
	globalConfDir string // Path to global config directory (e.g., ~/.config/dorae)
}

// NewLoader creates a new Loader.
func NewLoader(workDir string) *Loader {
	return &Loader{
		workDir:       workDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(workDir, globalConfDir string) *Loader {
	return &Loader{
		workDir:       workDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// DataDir returns the directory holding the default store and logs.
func (l *Loader) DataDir() string {
	return filepath.Join(l.workDir, domain.DataDirName)
}

// Load returns the merged configuration (defaults + global + local).
// Local config takes precedence over global config.
func (l *Loader) Load() (*domain.Config, error) {
	return l.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// LoadLocal returns only the local configuration.
func (l *Loader) LoadLocal() (*domain.Config, error) {
	return l.loadFile(filepath.Join(l.workDir, domain.LocalConfig))
}

// LoadWithOptions returns the merged configuration with options to ignore sources.
func (l *Loader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	var global, local *domain.Config
	var err error

	if !opts.IgnoreGlobal {
		global, err = l.LoadGlobal()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if !opts.IgnoreLocal {
		local, err = l.LoadLocal()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	dataDir := l.DataDir()
	base := domain.NewDefaultConfig(dataDir)
	pathSet := false

	// Merge: default <- global <- local (later takes precedence)
	for _, override := range []*domain.Config{global, local} {
		if override == nil {
			continue
		}
		pathSet = pathSet || override.Store.Path != ""
		base = mergeConfigs(base, override)
	}

	// A driver chosen without a path gets that driver's default location
	if !pathSet {
		base.Store.Path = domain.DefaultStorePath(dataDir, base.Store.Driver)
	}
	return base, nil
}

// loadFile loads a configuration from a file.
// Relative paths inside the file resolve against the file's directory.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := convertRawToDomainConfig(raw)
	dir := filepath.Dir(path)
	cfg.Store.Path = resolvePath(dir, cfg.Store.Path)
	cfg.Log.Dir = resolvePath(dir, cfg.Log.Dir)
	return cfg, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// convertRawToDomainConfig converts the raw map to domain config and collects warnings.
func convertRawToDomainConfig(raw map[string]any) *domain.Config {
	res := &domain.Config{}
	var warnings []string
	unknown := func(section, key string) {
		warnings = append(warnings, fmt.Sprintf("unknown key in [%s]: %s", section, key))
	}
	invalid := func(section, key string, v any) {
		warnings = append(warnings, fmt.Sprintf("invalid value in [%s]: %s = %v", section, key, v))
	}
	str := func(section, key string, v any, dst *string) {
		if s, ok := v.(string); ok {
			*dst = s
			return
		}
		invalid(section, key, v)
	}
	dur := func(section, key string, v any, dst *domain.Duration) {
		s, ok := v.(string)
		if !ok {
			invalid(section, key, v)
			return
		}
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			invalid(section, key, v)
			return
		}
		*dst = domain.Duration(d)
	}

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
			continue
		}
		switch section {
		case "store":
			for k, v := range m {
				switch k {
				case "driver":
					str(section, k, v, &res.Store.Driver)
				case "path":
					str(section, k, v, &res.Store.Path)
				case "namespace":
					str(section, k, v, &res.Store.Namespace)
				case "key_env":
					str(section, k, v, &res.Store.KeyEnv)
				default:
					unknown(section, k)
				}
			}
		case "oracle":
			for k, v := range m {
				switch k {
				case "provider":
					str(section, k, v, &res.Oracle.Provider)
				case "base_url":
					str(section, k, v, &res.Oracle.BaseURL)
				case "model":
					str(section, k, v, &res.Oracle.Model)
				case "api_key_env":
					str(section, k, v, &res.Oracle.APIKeyEnv)
				case "timeout":
					dur(section, k, v, &res.Oracle.Timeout)
				default:
					unknown(section, k)
				}
			}
		case "timer":
			for k, v := range m {
				switch k {
				case "oracle_timeout":
					dur(section, k, v, &res.Timer.OracleTimeout)
				case "skip_overlap":
					if b, ok := v.(bool); ok {
						res.Timer.SkipOverlap = b
					} else {
						invalid(section, k, v)
					}
				default:
					unknown(section, k)
				}
			}
		case "server":
			for k, v := range m {
				switch k {
				case "addr":
					str(section, k, v, &res.Server.Addr)
				default:
					unknown(section, k)
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					str(section, k, v, &res.Log.Level)
				case "dir":
					str(section, k, v, &res.Log.Dir)
				default:
					unknown(section, k)
				}
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
		}
	}

	sort.Strings(warnings)
	res.Warnings = warnings
	return res
}

// mergeConfigs merges two configs, with override taking precedence.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := *base
	result.Warnings = append(append([]string{}, base.Warnings...), override.Warnings...)

	if override.Store.Driver != "" {
		result.Store.Driver = override.Store.Driver
	}
	if override.Store.Path != "" {
		result.Store.Path = override.Store.Path
	}
	if override.Store.Namespace != "" {
		result.Store.Namespace = override.Store.Namespace
	}
	if override.Store.KeyEnv != "" {
		result.Store.KeyEnv = override.Store.KeyEnv
	}
	if override.Oracle.Provider != "" {
		result.Oracle.Provider = override.Oracle.Provider
	}
	if override.Oracle.BaseURL != "" {
		result.Oracle.BaseURL = override.Oracle.BaseURL
	}
	if override.Oracle.Model != "" {
		result.Oracle.Model = override.Oracle.Model
	}
	if override.Oracle.APIKeyEnv != "" {
		result.Oracle.APIKeyEnv = override.Oracle.APIKeyEnv
	}
	if override.Oracle.Timeout != 0 {
		result.Oracle.Timeout = override.Oracle.Timeout
	}
	if override.Timer.OracleTimeout != 0 {
		result.Timer.OracleTimeout = override.Timer.OracleTimeout
	}
	if override.Timer.SkipOverlap {
		result.Timer.SkipOverlap = override.Timer.SkipOverlap
	}
	if override.Server.Addr != "" {
		result.Server.Addr = override.Server.Addr
	}
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	if override.Log.Dir != "" {
		result.Log.Dir = override.Log.Dir
	}

	return &result
}
