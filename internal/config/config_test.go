package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Collector.Step != DefaultCollectorStep {
		t.Errorf("Collector.Step = %d, want %d", cfg.Collector.Step, DefaultCollectorStep)
	}
	if cfg.Collector.Backoff != 2*time.Second {
		t.Errorf("Collector.Backoff = %v, want 2s", cfg.Collector.Backoff)
	}
	if got := cfg.TelegramCLI.Addr(); got != "localhost:4458" {
		t.Errorf("TelegramCLI.Addr() = %q", got)
	}
	if cfg.Report.PeakWindow != time.Hour {
		t.Errorf("Report.PeakWindow = %v, want 1h", cfg.Report.PeakWindow)
	}
	if cfg.Gemini.Enabled() {
		t.Error("Gemini should be disabled without an API key")
	}
	if task, ok := cfg.Scheduler.Tasks["sql_maintenance"]; !ok || !task.Enabled {
		t.Errorf("default sql_maintenance task missing: %+v", cfg.Scheduler.Tasks)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
collector:
  step: 50
  backoff: 5s
report:
  title: Guild chat
  timezone: Europe/Helsinki
`)
	t.Setenv("TGSTATS_REPORT_TITLE", "From env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("step", DefaultCollectorStep, "")
	if err := fs.Parse([]string{"--step", "25"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := LoadConfig(path, fs)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
	if cfg.Collector.Step != 25 {
		t.Errorf("Collector.Step = %d, want flag value 25", cfg.Collector.Step)
	}
	if cfg.Collector.Backoff != 5*time.Second {
		t.Errorf("Collector.Backoff = %v, want 5s", cfg.Collector.Backoff)
	}
	if cfg.Report.Title != "From env" {
		t.Errorf("Report.Title = %q, want env override", cfg.Report.Title)
	}
	loc, err := cfg.Report.Location()
	if err != nil || loc.String() != "Europe/Helsinki" {
		t.Errorf("Report.Location() = %v, %v", loc, err)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad log level", body: "logger:\n  level: loud\n"},
		{name: "zero step", body: "collector:\n  step: 0\n"},
		{name: "unknown timezone", body: "report:\n  timezone: Mars/Olympus\n"},
		{name: "bad port", body: "telegram_cli:\n  port: 70000\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body), nil)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("LoadConfig() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for name, wantErr := range map[string]bool{
		"":        true,
		"a":       true,
		"ab":      false,
		"guild":   false,
		"../etc":  true,
		"dir\\db": true,
	} {
		err := ValidateName(name)
		if (err != nil) != wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", name, err, wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error does not wrap ErrInvalidName", name)
		}
	}
}

func TestValidatePeerID(t *testing.T) {
	t.Parallel()

	for id, wantErr := range map[string]bool{
		"0100000012345678abcdef0011223344":  false,
		"0100000012345678ABCDEF0011223344":  false,
		"$100000012345678abcdef0011223344":  true,
		"0100000012345678abcdef001122334":   true,
		"0100000012345678abcdef00112233445": true,
		"zz00000012345678abcdef0011223344":  true,
	} {
		err := ValidatePeerID(id)
		if (err != nil) != wantErr {
			t.Errorf("ValidatePeerID(%q) error = %v, wantErr %v", id, err, wantErr)
		}
	}
}
