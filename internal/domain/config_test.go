package domain

import (
	"strings"
	"testing"
	"time"
)

func TestGlobalConfigDir(t *testing.T) {
	got := GlobalConfigDir("/home/user/.config")
	want := "/home/user/.config/dorae"
	if got != want {
		t.Errorf("GlobalConfigDir() = %q, want %q", got, want)
	}
}

func TestLogPaths(t *testing.T) {
	if got := GlobalLogPath("/data/logs"); got != "/data/logs/dorae.log" {
		t.Errorf("GlobalLogPath() = %q", got)
	}
	if got := SubjectLogPath("/data/logs", "timer-abc"); got != "/data/logs/timer-abc.log" {
		t.Errorf("SubjectLogPath() = %q", got)
	}
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig("/data")

	if cfg.Store.Driver != StoreJSON {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, StoreJSON)
	}
	if cfg.Store.Path != "/data/store.json" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Oracle.Provider != OracleGemini {
		t.Errorf("Oracle.Provider = %q, want %q", cfg.Oracle.Provider, OracleGemini)
	}
	if time.Duration(cfg.Timer.OracleTimeout) != 30*time.Second {
		t.Errorf("Timer.OracleTimeout = %v, want 30s", cfg.Timer.OracleTimeout)
	}
	if cfg.Timer.SkipOverlap {
		t.Error("Timer.SkipOverlap should default to false")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("45s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if time.Duration(d) != 45*time.Second {
		t.Errorf("Duration = %v, want 45s", d)
	}
	b, _ := d.MarshalText()
	if string(b) != "45s" {
		t.Errorf("MarshalText() = %q", b)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestRenderConfigTemplate(t *testing.T) {
	cfg := NewDefaultConfig("/data")
	out := RenderConfigTemplate(cfg)

	for _, want := range []string{
		"[store]",
		`# driver = "json"`,
		`# path = "/data/store.json"`,
		"[oracle]",
		`# model = "gemini-2.0-flash"`,
		`# oracle_timeout = "30s"`,
		"# skip_overlap = false",
		`# addr = "127.0.0.1:5001"`,
		`# level = "info"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("template output missing %q", want)
		}
	}
}
