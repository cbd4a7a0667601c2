package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/xuri/excelize/v2"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/database"
	"github.com/edgard/tgstats/internal/stats"
)

var refTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeSummarizer struct {
	lines []stats.Line
	out   string
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, lines []stats.Line) (string, error) {
	f.lines = lines
	return f.out, f.err
}

func seedStore(t *testing.T, payloads ...string) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	for _, p := range payloads {
		ev, err := chat.Decode([]byte(p))
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", p, err)
		}
		row, err := database.MessageFromEvent(ev)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.SaveMessage(context.Background(), row); err != nil {
			t.Fatalf("SaveMessage() error = %v", err)
		}
	}
	return store
}

func msg(id string, at time.Time, from, text string) string {
	return fmt.Sprintf(`{"event":"message","id":%q,"date":%d,"from":{"id":"1","print_name":%q},"to":{"id":"$chat"},"text":%q}`,
		id, at.Unix(), from, text)
}

func svc(id string, at time.Time, from, action, title string) string {
	return fmt.Sprintf(`{"event":"service","id":%q,"date":%d,"from":{"id":"1","print_name":%q},"action":{"type":%q,"title":%q}}`,
		id, at.Unix(), from, action, title)
}

func sampleStore(t *testing.T) database.Store {
	return seedStore(t,
		svc("s1", refTime.AddDate(-2, 0, 0), "admin", chat.ActionAddUser, ""),
		svc("s2", refTime.AddDate(-1, -1, 0), "admin", chat.ActionRename, "Old <name>"),
		msg("m1", refTime.AddDate(-1, -1, 0), "alice", "/roll 2d6 🎲"),
		msg("m2", refTime.AddDate(0, 0, -20), "<b>bob</b>", "hello hello world 😀"),
		msg("m3", refTime.AddDate(0, 0, -2), "alice", "hello again"),
		msg("m4", refTime.Add(-time.Hour), "dice_bot", "6"),
	)
}

func newTestGenerator(src stats.Source, s Summarizer) *Generator {
	g := NewGenerator(src, nil, s)
	g.now = func() time.Time { return refTime }
	return g
}

func testOptions(dir string) Options {
	return Options{
		Title:           "Test <Chat>",
		Dir:             dir,
		Location:        time.UTC,
		TopTalkers:      15,
		TopWords:        50,
		TopEmojis:       20,
		TopCommands:     6,
		TopCommandUsers: 6,
		TopBots:         5,
		TopRenames:      10,
		PeakWindow:      time.Hour,
		SummaryMessages: 10,
		Sections:        AllSections(),
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()
	summarizer := &fakeSummarizer{out: "They rolled dice."}
	g := newTestGenerator(sampleStore(t), summarizer)

	data, err := g.Collect(context.Background(), testOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(data.Talkers) != 4 {
		t.Fatalf("talker windows = %d, want 4", len(data.Talkers))
	}
	wantCounts := map[string]int{"All time": 4, "Last week": 2, "Last month": 3, "Last year": 3}
	for _, tw := range data.Talkers {
		if tw.Messages != wantCounts[tw.Label] {
			t.Errorf("%s messages = %d, want %d", tw.Label, tw.Messages, wantCounts[tw.Label])
		}
	}
	if top := data.Talkers[0].Talkers[0]; top.Name != "alice" || top.Messages != 2 {
		t.Errorf("top talker = %+v, want alice with 2", top)
	}

	if len(data.Population) != 1 || data.Population[0].Total != 1 {
		t.Errorf("Population = %+v", data.Population)
	}
	if len(data.Renames) != 1 || data.Renames[0].NewTitle != "Old <name>" {
		t.Errorf("Renames = %+v", data.Renames)
	}
	if len(data.Commands) != 1 || data.Commands[0].Command != "/roll" {
		t.Errorf("Commands = %+v", data.Commands)
	}
	if len(data.Bots) != 1 || data.Bots[0].Key != "dice bot" {
		t.Errorf("Bots = %+v", data.Bots)
	}
	if data.Words[0] != (stats.Frequency{Key: "hello", Count: 3}) {
		t.Errorf("top word = %+v", data.Words[0])
	}
	if data.General.Messages != 4 || data.General.Services != 2 {
		t.Errorf("General = %+v", data.General)
	}

	if data.Summary != "They rolled dice." || !data.Sections.Summary {
		t.Errorf("Summary = %q, enabled %v", data.Summary, data.Sections.Summary)
	}
	if len(summarizer.lines) != 4 || summarizer.lines[3].Name != "dice bot" {
		t.Errorf("summarizer got %+v", summarizer.lines)
	}
}

func TestCollectSkipsDisabledSections(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(sampleStore(t), nil)
	opts := testOptions(t.TempDir())
	opts.Sections = Sections{Activity: true}

	data, err := g.Collect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if data.Population != nil || data.Talkers != nil || data.Words != nil || data.General.Messages != 0 {
		t.Errorf("disabled sections were computed: %+v", data)
	}
	if data.Activity[11] != 1 {
		t.Errorf("Activity = %v, want one message at 11", data.Activity)
	}
}

func TestCollectSummaryFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(sampleStore(t), &fakeSummarizer{err: errors.New("quota exceeded")})

	data, err := g.Collect(context.Background(), testOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if data.Sections.Summary || data.Summary != "" {
		t.Errorf("summary section enabled after failure: %q", data.Summary)
	}
}

func TestGenerateWritesReport(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "chat")
	g := newTestGenerator(sampleStore(t), nil)

	if _, err := g.Generate(context.Background(), testOptions(dir)); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, name := range []string{IndexFile, PopulationChart, MessagesChart, ActivityChart, WorkbookFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	page, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)
	for _, want := range []string{
		"<title>Test &lt;Chat&gt;</title>",
		"&lt;b&gt;bob&lt;/b&gt;",
		"Old &lt;name&gt;",
		`src="population.png"`,
		"<h2>Top talkers: Last week</h2>",
		"50.0%",
		"Generated 10. March 2024 12:00",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
	if strings.Contains(html, "<b>bob</b>") || strings.Contains(html, "<h2>Summary</h2>") {
		t.Error("index.html contains unescaped name or a summary without summarizer")
	}

	book, err := excelize.OpenFile(filepath.Join(dir, WorkbookFile))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer book.Close()
	if sheets := book.GetSheetList(); len(sheets) != 10 || sheets[0] != "General" {
		t.Errorf("sheets = %v", sheets)
	}
	rows, err := book.GetRows("Words")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 2 || rows[1][0] != "hello" || rows[1][1] != "3" {
		t.Errorf("Words sheet = %v", rows)
	}
}

func TestGenerateDisabledSections(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	g := newTestGenerator(sampleStore(t), nil)
	opts := testOptions(dir)
	opts.Sections.Population = false
	opts.Sections.Talkers = false
	opts.Sections.XLSX = false

	if _, err := g.Generate(context.Background(), opts); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, name := range []string{PopulationChart, WorkbookFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s written for a disabled section", name)
		}
	}
	page, _ := os.ReadFile(filepath.Join(dir, IndexFile))
	if strings.Contains(string(page), "<h2>Members</h2>") || strings.Contains(string(page), "Top talkers") {
		t.Error("index.html renders disabled sections")
	}
}

func TestGenerateEmptyStore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	g := newTestGenerator(seedStore(t), nil)

	data, err := g.Generate(context.Background(), testOptions(dir))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if data.General.MediaShare() != 0 {
		t.Errorf("MediaShare() = %v on empty store", data.General.MediaShare())
	}
	page, _ := os.ReadFile(filepath.Join(dir, IndexFile))
	if !strings.Contains(string(page), "No messages.") {
		t.Error("empty talker table not reported")
	}
}

func TestGenerateRequiresDir(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(seedStore(t), nil)
	if _, err := g.Generate(context.Background(), testOptions("")); !errors.Is(err, ErrNoOutputDir) {
		t.Errorf("Generate() error = %v, want ErrNoOutputDir", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()
	cfg := config.ReportConfig{
		Title:      "Chat",
		Timezone:   "Europe/Helsinki",
		TopTalkers: 15,
		PeakWindow: time.Hour,
	}
	opts, err := OptionsFromConfig(cfg, "out")
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.Location.String() != "Europe/Helsinki" || opts.Dir != "out" || opts.Sections != AllSections() {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}

	cfg.Timezone = "Mars/Olympus"
	if _, err := OptionsFromConfig(cfg, "out"); err == nil {
		t.Error("OptionsFromConfig() with unknown timezone error = nil")
	}
}
