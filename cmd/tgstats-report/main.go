// Package main contains the entrypoint of the report generator. It reads
// <db-dir>/<name>.db and writes a static statistics page with charts and a
// workbook into a directory named after the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/database"
	"github.com/edgard/tgstats/internal/gemini"
	"github.com/edgard/tgstats/internal/logger"
	"github.com/edgard/tgstats/internal/report"

	_ "time/tzdata"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(exitCode)
}

// sectionFlags maps each --no-<name> flag to its section switch.
func sectionFlags(s *report.Sections) map[string]*bool {
	return map[string]*bool{
		"population": &s.Population,
		"messages":   &s.Messages,
		"activity":   &s.Activity,
		"general":    &s.General,
		"talkers":    &s.Talkers,
		"topics":     &s.Topics,
		"words":      &s.Words,
		"bots":       &s.Bots,
		"emojis":     &s.Emojis,
		"summary":    &s.Summary,
		"xlsx":       &s.XLSX,
	}
}

func parseFlags(args []string, stderr io.Writer) (*pflag.FlagSet, string, report.Sections, error) {
	fs := pflag.NewFlagSet("tgstats-report", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tgstats-report [flags] <name>")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "./config.yaml", "Path to configuration file")
	fs.String("out", "", "Output directory (default <db-dir>/<name>)")
	fs.String("timezone", config.DefaultReportTimezone, "Time zone used for days and hours")
	fs.String("db-dir", ".", "Directory holding the databases")
	fs.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("log-json", false, "Log in JSON")

	disabled := report.Sections{}
	for name, p := range sectionFlags(&disabled) {
		fs.BoolVar(p, "no-"+name, false, "Leave out the "+name+" section")
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", report.Sections{}, err
	}

	sections := report.AllSections()
	enabled := sectionFlags(&sections)
	for name, off := range sectionFlags(&disabled) {
		if *off {
			*enabled[name] = false
		}
	}
	return fs, *configPath, sections, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs, configPath, sections, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	name := fs.Arg(0)

	cfg, err := config.LoadConfig(configPath, fs)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	if err := config.ValidateName(name); err != nil {
		log.Error("Invalid database name", "error", err)
		return 1
	}

	dbPath := database.Path(cfg.Database.Dir, name)
	if _, err := os.Stat(dbPath); err != nil {
		log.Error("Database not found", "path", dbPath, "error", database.ErrNotInitialized)
		return 1
	}
	db, err := database.NewDB(dbPath)
	if err != nil {
		log.Error("Failed to connect to database", "path", dbPath, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	count, err := store.CountMessages(ctx, "")
	if err != nil {
		log.Error("Failed to read database", "error", err)
		return 1
	}
	if count == 0 {
		log.Error("Nothing to report", "path", dbPath, "error", database.ErrNotInitialized)
		return 1
	}

	dir := cfg.Report.OutputDir
	if dir == "" {
		dir = report.DefaultDir(cfg.Database.Dir, name)
	}
	opts, err := report.OptionsFromConfig(cfg.Report, dir)
	if err != nil {
		log.Error("Invalid report configuration", "error", err)
		return 1
	}
	opts.Sections = sections

	var summarizer report.Summarizer
	if sections.Summary && cfg.Gemini.Enabled() {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Warn("Gemini client unavailable, leaving out the summary", "error", err)
		} else {
			summarizer = gemClient
		}
	}

	data, err := report.NewGenerator(store, log, summarizer).Generate(ctx, opts)
	if err != nil {
		log.Error("Failed to generate report", "error", err)
		return 1
	}

	log.Info("Report written",
		"dir", dir,
		"index", filepath.Join(dir, report.IndexFile),
		"messages", data.General.Messages)
	return 0
}
