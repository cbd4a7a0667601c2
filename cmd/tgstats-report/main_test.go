package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/edgard/tgstats/internal/report"
)

func TestParseFlagsSections(t *testing.T) {
	t.Parallel()

	fs, configPath, sections, err := parseFlags([]string{"--no-summary", "--no-xlsx", "--config", "c.yaml", "chat"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if configPath != "c.yaml" || fs.Arg(0) != "chat" {
		t.Errorf("parseFlags() config = %q, args = %v", configPath, fs.Args())
	}

	want := report.AllSections()
	want.Summary = false
	want.XLSX = false
	if sections != want {
		t.Errorf("sections = %+v, want %+v", sections, want)
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "missing.yaml")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "help", args: []string{"--help"}, want: 0},
		{name: "no name", args: []string{"--config", cfgPath}, want: 1},
		{name: "short name", args: []string{"--config", cfgPath, "--db-dir", dir, "x"}, want: 1},
		{name: "missing database", args: []string{"--config", cfgPath, "--db-dir", dir, "chat"}, want: 1},
		{name: "unknown flag", args: []string{"--bogus"}, want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := run(context.Background(), tc.args, io.Discard); got != tc.want {
				t.Errorf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}
