// Package report turns stored chat history into a static statistics page:
// PNG charts, an index.html and an optional XLSX workbook.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/edgard/tgstats/internal/logger"
	"github.com/edgard/tgstats/internal/stats"
)

// Summarizer writes a prose summary of recent messages.
type Summarizer interface {
	Summarize(ctx context.Context, lines []stats.Line) (string, error)
}

// TalkerWindow is a talker ranking over one period.
type TalkerWindow struct {
	Label    string
	Talkers  []stats.Talker
	Messages int
}

// Data is everything rendered into the report.
type Data struct {
	Title     string
	Generated time.Time
	Sections  Sections

	Population []stats.PopulationDay
	Volume     []stats.DayCount
	Activity   [24]int
	General    stats.General
	Peak       stats.Peak
	Talkers    []TalkerWindow
	Renames    []stats.Rename
	Words      []stats.Frequency
	Emojis     []stats.Frequency
	Commands   []stats.CommandUsage
	Bots       []stats.Frequency
	Summary    string
}

var talkerWindows = []struct {
	label  string
	window time.Duration
}{
	{label: "All time"},
	{label: "Last week", window: 7 * 24 * time.Hour},
	{label: "Last month", window: 30 * 24 * time.Hour},
	{label: "Last year", window: 365 * 24 * time.Hour},
}

// Generator computes and writes reports.
type Generator struct {
	src        stats.Source
	log        *slog.Logger
	summarizer Summarizer
	now        func() time.Time
}

// NewGenerator creates a Generator. summarizer may be nil.
func NewGenerator(src stats.Source, log *slog.Logger, summarizer Summarizer) *Generator {
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{
		src:        src,
		log:        log.With("component", "report"),
		summarizer: summarizer,
		now:        time.Now,
	}
}

// Collect computes the aggregates of every enabled section.
func (g *Generator) Collect(ctx context.Context, opts Options) (*Data, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	sec := opts.Sections
	if g.summarizer == nil {
		sec.Summary = false
	}

	data := &Data{Title: opts.Title, Generated: g.now().In(loc), Sections: sec}
	var err error

	if sec.Population {
		g.log.InfoContext(ctx, "Computing population")
		if data.Population, err = stats.Population(ctx, g.src, loc, opts.InitialPopulation); err != nil {
			return nil, err
		}
	}
	if sec.Messages {
		g.log.InfoContext(ctx, "Computing daily volume")
		if data.Volume, err = stats.DailyVolume(ctx, g.src, loc); err != nil {
			return nil, err
		}
	}
	if sec.Activity {
		g.log.InfoContext(ctx, "Computing hourly activity")
		if data.Activity, err = stats.HourlyActivity(ctx, g.src, loc); err != nil {
			return nil, err
		}
	}
	if sec.General {
		g.log.InfoContext(ctx, "Computing general numbers")
		if data.General, err = stats.GeneralNumbers(ctx, g.src, loc); err != nil {
			return nil, err
		}
		if data.Peak, err = stats.PeakRate(ctx, g.src, opts.PeakWindow, loc); err != nil {
			return nil, err
		}
	}
	if sec.Talkers {
		g.log.InfoContext(ctx, "Computing talkers")
		for _, w := range talkerWindows {
			var since int64
			if w.window > 0 {
				since = stats.Since(data.Generated, w.window)
			}
			talkers, err := stats.Talkers(ctx, g.src, since)
			if err != nil {
				return nil, err
			}
			tw := TalkerWindow{Label: w.label, Talkers: stats.Top(talkers, opts.TopTalkers)}
			for _, t := range talkers {
				tw.Messages += t.Messages
			}
			data.Talkers = append(data.Talkers, tw)
		}
	}
	if sec.Topics {
		g.log.InfoContext(ctx, "Computing topics")
		if data.Renames, err = stats.Renames(ctx, g.src, loc, opts.TopRenames); err != nil {
			return nil, err
		}
	}
	if sec.Words {
		g.log.InfoContext(ctx, "Computing word frequency")
		if data.Words, err = stats.WordFrequency(ctx, g.src, opts.TopWords); err != nil {
			return nil, err
		}
	}
	if sec.Emojis {
		g.log.InfoContext(ctx, "Computing emoji frequency")
		if data.Emojis, err = stats.EmojiFrequency(ctx, g.src, opts.TopEmojis); err != nil {
			return nil, err
		}
	}
	if sec.Bots {
		g.log.InfoContext(ctx, "Computing commands and bots")
		if data.Commands, err = stats.Commands(ctx, g.src, opts.TopCommands, opts.TopCommandUsers); err != nil {
			return nil, err
		}
		if data.Bots, err = stats.Bots(ctx, g.src, opts.TopBots); err != nil {
			return nil, err
		}
	}
	if sec.Summary {
		data.Summary = g.summarize(ctx, loc, opts.SummaryMessages)
		data.Sections.Summary = data.Summary != ""
	}

	return data, nil
}

// summarize returns "" when the summary cannot be produced; a missing
// summary does not fail the report.
func (g *Generator) summarize(ctx context.Context, loc *time.Location, limit int) string {
	g.log.InfoContext(ctx, "Requesting chat summary", "messages", limit)
	lines, err := stats.RecentTexts(ctx, g.src, loc, limit)
	if err != nil {
		g.log.WarnContext(ctx, "Failed to read messages for summary", "error", err)
		return ""
	}
	if len(lines) == 0 {
		return ""
	}
	summary, err := g.summarizer.Summarize(ctx, lines)
	if err != nil {
		g.log.WarnContext(ctx, "Chat summary failed, leaving it out", "error", err)
		return ""
	}
	return summary
}

// Generate computes the report and writes it into opts.Dir.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Data, error) {
	if opts.Dir == "" {
		return nil, ErrNoOutputDir
	}

	data, err := g.Collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := writeCharts(data, opts.Dir, data.Generated.Location()); err != nil {
		return nil, err
	}
	if err := writeHTML(data, opts.Dir); err != nil {
		return nil, err
	}
	if data.Sections.XLSX {
		if err := writeWorkbook(data, opts.Dir); err != nil {
			return nil, err
		}
	}

	g.log.InfoContext(ctx, "Report written", "dir", opts.Dir)
	return data, nil
}
