package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Directory and file names.
const (
	AppName        = "dorae"
	ConfigFileName = "config.toml"
	LocalConfig    = "dorae.toml"
	DataDirName    = ".dorae"
)

// Store drivers.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreGit    = "git"
)

// Oracle providers.
const (
	OracleGemini = "gemini"
	OracleOpenAI = "openai"
	OracleNone   = "none"
)

// Config represents the application configuration.
type Config struct {
	Warnings []string     `toml:"-"`
	Store    StoreConfig  `toml:"store"`
	Oracle   OracleConfig `toml:"oracle"`
	Server   ServerConfig `toml:"server"`
	Log      LogConfig    `toml:"log"`
	Timer    TimerConfig  `toml:"timer"`
}

// StoreConfig holds settings from the [store] section.
type StoreConfig struct {
	Driver    string `toml:"driver,omitempty"`    // "json" (default), "sqlite" or "git"
	Path      string `toml:"path,omitempty"`      // File, database or repository path
	Namespace string `toml:"namespace,omitempty"` // Ref namespace for the git store
	KeyEnv    string `toml:"key_env,omitempty"`   // Environment variable holding the git store encryption key
}

// OracleConfig holds settings from the [oracle] section.
type OracleConfig struct {
	Provider  string   `toml:"provider,omitempty"`    // "gemini" (default), "openai" or "none"
	BaseURL   string   `toml:"base_url,omitempty"`    // OpenAI-compatible endpoint
	Model     string   `toml:"model,omitempty"`       // Model name
	APIKeyEnv string   `toml:"api_key_env,omitempty"` // Environment variable holding the API key
	Timeout   Duration `toml:"timeout,omitempty"`     // HTTP timeout per request
}

// ServerConfig holds settings from the [server] section.
type ServerConfig struct {
	Addr string `toml:"addr,omitempty"`
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // debug, info, warn, error
	Dir   string `toml:"dir,omitempty"`   // Empty disables file logs
}

// TimerConfig holds settings from the [timer] section.
type TimerConfig struct {
	OracleTimeout Duration `toml:"oracle_timeout,omitempty"` // Bound on one decision call
	SkipOverlap   bool     `toml:"skip_overlap,omitempty"`   // Skip a tick while the previous one runs
}

// Duration is a time.Duration that reads and writes as "30s" in TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// NewDefaultConfig returns the built-in configuration rooted at dataDir.
func NewDefaultConfig(dataDir string) *Config {
	return &Config{
		Store: StoreConfig{
			Driver:    StoreJSON,
			Path:      DefaultStorePath(dataDir, StoreJSON),
			Namespace: AppName,
		},
		Oracle: OracleConfig{
			Provider:  OracleGemini,
			Model:     "gemini-2.0-flash",
			APIKeyEnv: "GEMINI_API_KEY",
			Timeout:   Duration(60 * time.Second),
		},
		Server: ServerConfig{Addr: "127.0.0.1:5001"},
		Log: LogConfig{
			Level: "info",
			Dir:   filepath.Join(dataDir, "logs"),
		},
		Timer: TimerConfig{
			OracleTimeout: Duration(30 * time.Second),
		},
	}
}

// DefaultStorePath returns the default store location for a driver.
func DefaultStorePath(dataDir, driver string) string {
	switch driver {
	case StoreSQLite:
		return filepath.Join(dataDir, "store.db")
	case StoreGit:
		return filepath.Join(dataDir, "store.git")
	default:
		return filepath.Join(dataDir, "store.json")
	}
}

// GlobalConfigDir returns the global config directory under configHome.
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, AppName)
}

// GlobalLogPath returns the path of the global log file.
func GlobalLogPath(logDir string) string {
	return filepath.Join(logDir, AppName+".log")
}

// SubjectLogPath returns the path of a per-subject log file.
func SubjectLogPath(logDir, subject string) string {
	return filepath.Join(logDir, subject+".log")
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// LoadConfigOptions selects which configuration files are read.
type LoadConfigOptions struct {
	IgnoreGlobal bool
	IgnoreLocal  bool
}

// ConfigInfo describes one configuration file.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// ConfigManager inspects and creates configuration files.
type ConfigManager interface {
	GetGlobalConfigInfo() ConfigInfo
	GetLocalConfigInfo() ConfigInfo
	InitGlobalConfig(cfg *Config) error
	InitLocalConfig(cfg *Config) error
}

// RenderConfigTemplate renders a commented configuration file showing cfg's values.
func RenderConfigTemplate(cfg *Config) string {
	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		// Should never happen with valid data
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}
	return buf.String()
}
