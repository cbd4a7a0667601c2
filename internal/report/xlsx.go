package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/edgard/tgstats/internal/stats"
)

// WorkbookFile is the spreadsheet export name.
const WorkbookFile = "stats.xlsx"

// workbook appends one sheet per table, reusing the default first sheet.
type workbook struct {
	f      *excelize.File
	sheets int
}

func (w *workbook) sheet(name string, header []any, rows [][]any) error {
	if w.sheets == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return err
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return err
	}
	w.sheets++

	if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func buildWorkbook(data *Data) (*excelize.File, error) {
	w := &workbook{f: excelize.NewFile()}
	sec := data.Sections
	const dateFormat = "2006-01-02"

	type table struct {
		enabled bool
		name    string
		header  []any
		rows    func() [][]any
	}
	tables := []table{
		{sec.General, "General", []any{"Metric", "Value"}, func() [][]any {
			g := data.General
			return [][]any{
				{"Messages", g.Messages},
				{"Text messages", g.Texts},
				{"Words", g.Words},
				{"Documents", g.Documents},
				{"Photos", g.Photos},
				{"Service events", g.Services},
				{"Talkers", g.Talkers},
				{"Peak messages", data.Peak.Count},
			}
		}},
		{sec.Population, "Population", []any{"Day", "Members", "Joined", "Left"}, func() [][]any {
			rows := make([][]any, len(data.Population))
			for i, d := range data.Population {
				rows[i] = []any{d.Day.Format(dateFormat), d.Total, d.Joins, d.Leaves}
			}
			return rows
		}},
		{sec.Messages, "Daily", []any{"Day", "Messages"}, func() [][]any {
			rows := make([][]any, len(data.Volume))
			for i, d := range data.Volume {
				rows[i] = []any{d.Day.Format(dateFormat), d.Messages}
			}
			return rows
		}},
		{sec.Activity, "Hourly", []any{"Hour", "Messages"}, func() [][]any {
			rows := make([][]any, len(data.Activity))
			for h, n := range data.Activity {
				rows[h] = []any{h, n}
			}
			return rows
		}},
		{sec.Talkers, "Talkers", []any{"Period", "Talker", "Messages", "Words", "Documents", "Photos"}, func() [][]any {
			var rows [][]any
			for _, tw := range data.Talkers {
				for _, t := range tw.Talkers {
					rows = append(rows, []any{tw.Label, t.Name, t.Messages, t.Words, t.Documents, t.Photos})
				}
			}
			return rows
		}},
		{sec.Topics, "Topics", []any{"Time", "Old title", "New title", "Changed by"}, func() [][]any {
			rows := make([][]any, len(data.Renames))
			for i, r := range data.Renames {
				rows[i] = []any{r.Time.Format("2006-01-02 15:04"), r.OldTitle, r.NewTitle, r.Actor}
			}
			return rows
		}},
		{sec.Words, "Words", []any{"Word", "Count"}, func() [][]any { return frequencyRows(data.Words) }},
		{sec.Emojis, "Emojis", []any{"Emoji", "Count"}, func() [][]any { return frequencyRows(data.Emojis) }},
		{sec.Bots, "Commands", []any{"Command", "User", "Count"}, func() [][]any {
			var rows [][]any
			for _, c := range data.Commands {
				rows = append(rows, []any{c.Command, "", c.Count})
				for _, u := range c.Users {
					rows = append(rows, []any{c.Command, u.Key, u.Count})
				}
			}
			return rows
		}},
		{sec.Bots, "Bots", []any{"Bot", "Messages"}, func() [][]any { return frequencyRows(data.Bots) }},
	}

	for _, t := range tables {
		if !t.enabled {
			continue
		}
		if err := w.sheet(t.name, t.header, t.rows()); err != nil {
			_ = w.f.Close()
			return nil, fmt.Errorf("failed to fill sheet %s: %w", t.name, err)
		}
	}
	if w.sheets == 0 {
		_ = w.f.Close()
		return nil, nil
	}
	w.f.SetActiveSheet(0)
	return w.f, nil
}

func frequencyRows(freq []stats.Frequency) [][]any {
	rows := make([][]any, len(freq))
	for i, f := range freq {
		rows[i] = []any{f.Key, f.Count}
	}
	return rows
}

func writeWorkbook(data *Data, dir string) error {
	f, err := buildWorkbook(data)
	if err != nil || f == nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filepath.Join(dir, WorkbookFile)); err != nil {
		return fmt.Errorf("failed to write %s: %w", WorkbookFile, err)
	}
	return nil
}
