package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/edgard/tgstats/internal/stats"
)

// IndexFile is the report page name.
const IndexFile = "index.html"

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.New(IndexFile).Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"percent": func(part, whole int) string {
		return fmt.Sprintf("%.1f%%", stats.Percent(part, whole))
	},
	"datetime": func(t time.Time) string { return t.Format("02. January 2006 15:04") },
	"duration": func(d time.Duration) string {
		if d%time.Hour == 0 {
			if h := int(d / time.Hour); h != 1 {
				return fmt.Sprintf("%d hours", h)
			}
			return "hour"
		}
		return d.String()
	},
}).ParseFS(templateFS, "templates/index.html"))

func renderHTML(data *Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", IndexFile, err)
	}
	return buf.Bytes(), nil
}

func writeHTML(data *Data, dir string) error {
	page, err := renderHTML(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), page, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", IndexFile, err)
	}
	return nil
}
