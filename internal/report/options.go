package report

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/edgard/tgstats/internal/config"
)

// Sections selects which parts of the report are computed and rendered.
type Sections struct {
	Population bool
	Messages   bool
	Activity   bool
	General    bool
	Talkers    bool
	Topics     bool
	Words      bool
	Bots       bool
	Emojis     bool
	Summary    bool
	XLSX       bool
}

// AllSections enables everything.
func AllSections() Sections {
	return Sections{
		Population: true,
		Messages:   true,
		Activity:   true,
		General:    true,
		Talkers:    true,
		Topics:     true,
		Words:      true,
		Bots:       true,
		Emojis:     true,
		Summary:    true,
		XLSX:       true,
	}
}

// Options parameterizes one report run.
type Options struct {
	Title    string
	Dir      string
	Location *time.Location

	InitialPopulation int
	TopTalkers        int
	TopWords          int
	TopEmojis         int
	TopCommands       int
	TopCommandUsers   int
	TopBots           int
	TopRenames        int
	PeakWindow        time.Duration
	SummaryMessages   int

	Sections Sections
}

// ErrNoOutputDir is returned when Options.Dir is empty.
var ErrNoOutputDir = errors.New("report output directory not set")

// DefaultDir is the output directory used when none is configured: a
// directory named after the database, next to it.
func DefaultDir(dbDir, name string) string {
	return filepath.Join(dbDir, name)
}

// OptionsFromConfig builds Options writing into dir with every section on.
func OptionsFromConfig(cfg config.ReportConfig, dir string) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Title:             cfg.Title,
		Dir:               dir,
		Location:          loc,
		InitialPopulation: cfg.InitialPopulation,
		TopTalkers:        cfg.TopTalkers,
		TopWords:          cfg.TopWords,
		TopEmojis:         cfg.TopEmojis,
		TopCommands:       cfg.TopCommands,
		TopCommandUsers:   cfg.TopCommandUsers,
		TopBots:           cfg.TopBots,
		TopRenames:        cfg.TopRenames,
		PeakWindow:        cfg.PeakWindow,
		SummaryMessages:   cfg.SummaryMessages,
		Sections:          AllSections(),
	}, nil
}
