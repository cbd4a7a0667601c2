// Package main contains the entrypoint of the history dump. It copies the
// history of one conversation from a running telegram-cli daemon into
// <db-dir>/<name>.db, or with --listen captures new messages through the
// Telegram Bot API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/pflag"

	"github.com/edgard/tgstats/internal/bot"
	"github.com/edgard/tgstats/internal/bot/handlers"
	"github.com/edgard/tgstats/internal/bot/tasks"
	"github.com/edgard/tgstats/internal/collector"
	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/database"
	"github.com/edgard/tgstats/internal/gemini"
	"github.com/edgard/tgstats/internal/logger"
	"github.com/edgard/tgstats/internal/report"
	"github.com/edgard/tgstats/internal/telegram"
	"github.com/edgard/tgstats/internal/telegramcli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

type flags struct {
	configPath string
	id         string
	dialogs    bool
	initDB     bool
	resume     bool
	listen     bool
}

func parseFlags(args []string, stderr io.Writer) (*pflag.FlagSet, *flags, error) {
	f := &flags{}
	fs := pflag.NewFlagSet("tgstats-dump", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tgstats-dump [flags] <name>")
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configPath, "config", "./config.yaml", "Path to configuration file")
	fs.StringVar(&f.id, "id", "", "Dialog id to dump, as printed by --dialogs (needed with --initdb)")
	fs.BoolVar(&f.dialogs, "dialogs", false, "List dialogs and exit")
	fs.BoolVar(&f.initDB, "initdb", false, "Create the database and record the dialog id")
	fs.BoolVarP(&f.resume, "continue", "c", false, "Resume from the stored cursor")
	fs.BoolVar(&f.listen, "listen", false, "Capture new messages through the Telegram Bot API instead of dumping")
	fs.Int("step", config.DefaultCollectorStep, "Messages requested per page")
	fs.String("db-dir", ".", "Directory holding the databases")
	fs.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("log-json", false, "Log in JSON")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fs, f, nil
}

// run parses arguments, executes the requested mode and returns the exit
// code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.LoadConfig(f.configPath, fs)
	if err != nil {
		slog.Error("Failed to load configuration", "path", f.configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	client := telegramcli.NewClient(cfg.TelegramCLI, log)
	if f.dialogs {
		if err := listDialogs(ctx, client, stdout); err != nil {
			log.Error("Failed to list dialogs", "error", err)
			return 1
		}
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	name := fs.Arg(0)
	if err := config.ValidateName(name); err != nil {
		log.Error("Invalid database name", "error", err)
		return 1
	}
	if f.initDB {
		if err := config.ValidatePeerID(f.id); err != nil {
			log.Error("Invalid dialog id", "error", err)
			return 1
		}
	}

	dbPath := database.Path(cfg.Database.Dir, name)
	if f.initDB {
		if err := os.MkdirAll(cfg.Database.Dir, 0o755); err != nil {
			log.Error("Failed to create database directory", "dir", cfg.Database.Dir, "error", err)
			return 1
		}
	} else if _, err := os.Stat(dbPath); err != nil {
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

	if f.listen {
		return listen(ctx, cfg, name, store, log)
	}

	peer, err := collector.ResolvePeer(ctx, store, f.id, f.initDB, log)
	if err != nil {
		log.Error("Failed to resolve dialog", "error", err)
		return 1
	}
	cursor, err := collector.LoadCursor(ctx, store, f.resume, database.LegacyOffsetPath(cfg.Database.Dir, name), log)
	if err != nil {
		log.Error("Failed to load cursor", "error", err)
		return 1
	}

	c := collector.New(client, store, log, collector.Options{
		Step:    cfg.Collector.Step,
		Backoff: cfg.Collector.Backoff,
	})
	res, err := c.Run(ctx, peer, cursor)
	log.Info("Dump finished",
		"pages", res.Pages,
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"retries", res.Retries,
		"cursor", res.Cursor,
		"exhausted", res.Exhausted)

	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		log.Info("Dump interrupted, resume with --continue", "cursor", res.Cursor)
		return 0
	default:
		log.Error("Dump failed", "error", err)
		return 1
	}
}

func listDialogs(ctx context.Context, client *telegramcli.Client, out io.Writer) error {
	dialogs, err := client.ListDialogs(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, d := range dialogs {
		fmt.Fprintf(w, "%s\t%s\n", d.ID, d.Name)
	}
	return w.Flush()
}

// listen runs live capture until ctx is cancelled.
func listen(ctx context.Context, cfg *config.Config, name string, store database.Store, log *slog.Logger) int {
	reportOpts, err := report.OptionsFromConfig(cfg.Report, outputDir(cfg, name))
	if err != nil {
		log.Error("Invalid report configuration", "error", err)
		return 1
	}

	var summarizer report.Summarizer
	if cfg.Gemini.Enabled() {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
		summarizer = gemClient
	}
	reporter := report.NewGenerator(store, log, summarizer)

	hDeps := handlers.HandlerDeps{
		Logger:        log,
		Config:        cfg,
		Store:         store,
		Reporter:      reporter,
		ReportOptions: reportOpts,
	}
	tDeps := tasks.TaskDeps{
		Logger:        log,
		Store:         store,
		Reporter:      reporter,
		ReportOptions: reportOpts,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewCaptureHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if _, err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	if err := bot.NewBot(log, tg, sched).Run(ctx); err != nil {
		log.Error("Live capture failed", "error", err)
		return 1
	}
	return 0
}

// outputDir is the configured report directory or <db-dir>/<name>.
func outputDir(cfg *config.Config, name string) string {
	if cfg.Report.OutputDir != "" {
		return cfg.Report.OutputDir
	}
	return report.DefaultDir(cfg.Database.Dir, name)
}
