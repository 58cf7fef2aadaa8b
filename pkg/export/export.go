package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/parser"
)

// Exporter handles exporting log records to various formats
type Exporter struct {
	now func() time.Time
}

// ExportFormat represents different export formats
type ExportFormat string

const (
	FormatText ExportFormat = "text"
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatHTML ExportFormat = "html"
)

// JSONTimeFormat is the ts layout written by the json format. It is accepted
// back by the line parser.
const JSONTimeFormat = "2006-01-02T15:04:05.000-07:00"

// ExportOptions contains configuration for export operations
type ExportOptions struct {
	Format     ExportFormat      `json:"format"`
	OutputPath string            `json:"output_path"`
	TimeFormat string            `json:"time_format"` // text, csv and html only
	Metadata   map[string]string `json:"metadata"`
}

// New creates a new Exporter
func New() *Exporter {
	return &Exporter{now: time.Now}
}

// ParseFormat validates a format name
func ParseFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(s))
	for _, supported := range SupportedFormats() {
		if f == supported {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// SupportedFormats returns the list of supported export formats
func SupportedFormats() []ExportFormat {
	return []ExportFormat{FormatText, FormatJSON, FormatCSV, FormatHTML}
}

// ExportRecords writes records to options.OutputPath, creating its directory.
// An empty record list still produces the file with any header.
func (e *Exporter) ExportRecords(records []models.LogRecord, options ExportOptions) error {
	if options.OutputPath == "" {
		return fmt.Errorf("no output path")
	}

	outputDir := filepath.Dir(options.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := e.Write(file, records, options); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// Write renders records to w in options.Format
func (e *Exporter) Write(w io.Writer, records []models.LogRecord, options ExportOptions) error {
	if options.TimeFormat == "" {
		options.TimeFormat = time.RFC3339Nano
	}

	switch options.Format {
	case FormatText, "":
		return e.exportText(w, records, options)
	case FormatJSON:
		return e.exportJSON(w, records)
	case FormatCSV:
		return e.exportCSV(w, records, options)
	case FormatHTML:
		return e.exportHTML(w, records, options)
	default:
		return fmt.Errorf("unsupported export format: %s", options.Format)
	}
}

// exportText writes one formatted line per record, preceded by a metadata
// header when metadata is set
func (e *Exporter) exportText(writer io.Writer, records []models.LogRecord, options ExportOptions) error {
	w := bufio.NewWriter(writer)

	if len(options.Metadata) > 0 {
		w.WriteString("# Export Metadata\n")
		for _, key := range sortedKeys(options.Metadata) {
			fmt.Fprintf(w, "# %s: %s\n", key, options.Metadata[key])
		}
		fmt.Fprintf(w, "# Exported at: %s\n", e.now().Format(time.RFC3339))
		fmt.Fprintf(w, "# Total records: %d\n\n", len(records))
	}

	for i := range records {
		w.WriteString(FormatRecord(&records[i], options.TimeFormat))
		w.WriteByte('\n')
	}

	return w.Flush()
}

// exportJSON writes one JSON object per line in the same shape the line
// parser reads
func (e *Exporter) exportJSON(writer io.Writer, records []models.LogRecord) error {
	w := bufio.NewWriter(writer)

	var buf []byte
	for i := range records {
		buf = AppendJSON(buf[:0], &records[i])
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}

	return w.Flush()
}

// exportCSV writes a header row and one row per record
func (e *Exporter) exportCSV(writer io.Writer, records []models.LogRecord, options ExportOptions) error {
	w := csv.NewWriter(writer)

	header := []string{"line", "timestamp", "level", "message", "caller", "payload"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Line),
			r.Timestamp.Format(options.TimeFormat),
			r.Level.String(),
			r.Message,
			r.Caller,
			r.Payload,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// exportHTML writes a standalone page with one row per record
func (e *Exporter) exportHTML(writer io.Writer, records []models.LogRecord, options ExportOptions) error {
	w := bufio.NewWriter(writer)

	w.WriteString(`<!DOCTYPE html>
<html>
<head>
    <title>Log Export</title>
    <meta charset="utf-8">
    <style>
        body { font-family: monospace; background-color: #1e1e1e; color: #d4d4d4; }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        .metadata { background-color: #2d2d30; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .record { padding: 5px; border-bottom: 1px solid #404040; }
        .timestamp { color: #4fc1ff; }
        .caller { color: #ce9178; }
        .level-debug { color: #0a0af0; }
        .level-info { color: #0af00a; }
        .level-warn { color: #f0f00a; }
        .level-error { color: #f03c0a; }
        .level-panic { color: #f00a0a; }
        .level-na { color: #505050; }
        .payload { background-color: #0f1419; padding: 10px; margin-top: 5px; border-left: 3px solid #007acc; }
    </style>
</head>
<body>
    <div class="container">
`)

	w.WriteString("        <div class=\"metadata\">\n")
	w.WriteString("            <h2>Export Information</h2>\n")
	fmt.Fprintf(w, "            <p>Exported at: %s</p>\n", e.now().Format(time.RFC3339))
	fmt.Fprintf(w, "            <p>Total records: %d</p>\n", len(records))
	for _, key := range sortedKeys(options.Metadata) {
		fmt.Fprintf(w, "            <p>%s: %s</p>\n", html.EscapeString(key), html.EscapeString(options.Metadata[key]))
	}
	w.WriteString("        </div>\n")

	for _, r := range records {
		w.WriteString("        <div class=\"record\">")
		fmt.Fprintf(w, `<span class="timestamp">%s</span> `, html.EscapeString(r.Timestamp.Format(options.TimeFormat)))
		fmt.Fprintf(w, `<span class="%s">%s</span> `, levelClass(r.Level), html.EscapeString(r.Level.String()))
		w.WriteString(html.EscapeString(r.Message))
		if r.Caller != "" {
			fmt.Fprintf(w, ` <span class="caller">%s</span>`, html.EscapeString(r.Caller))
		}
		if r.Payload != "" {
			fmt.Fprintf(w, `<div class="payload">%s</div>`, html.EscapeString(r.Payload))
		}
		w.WriteString("</div>\n")
	}

	w.WriteString(`    </div>
</body>
</html>
`)

	return w.Flush()
}

// FormatRecord renders a record as a single line of text
func FormatRecord(r *models.LogRecord, timeFormat string) string {
	var b strings.Builder

	b.WriteString(r.Timestamp.Format(timeFormat))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	if r.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(r.Caller)
	}
	if r.Payload != "" {
		b.WriteByte(' ')
		b.WriteString(r.Payload)
	}

	return b.String()
}

// AppendJSON appends r as a JSON log line with the reserved keys first and
// the payload members after them
func AppendJSON(dst []byte, r *models.LogRecord) []byte {
	dst = append(dst, `{"ts":`...)
	dst = parser.AppendQuoted(dst, r.Timestamp.Format(JSONTimeFormat))
	dst = append(dst, `,"level":`...)
	dst = parser.AppendQuoted(dst, r.Level.String())
	dst = append(dst, `,"msg":`...)
	dst = parser.AppendQuoted(dst, r.Message)

	if r.Caller != "" {
		dst = append(dst, `,"caller":`...)
		dst = parser.AppendQuoted(dst, r.Caller)
	}

	// the payload is a normalized object; splice its members in
	if len(r.Payload) > 2 {
		dst = append(dst, ',')
		dst = append(dst, r.Payload[1:len(r.Payload)-1]...)
	}

	return append(dst, '}')
}

// DefaultFileName returns a timestamped export file name in dir
func (e *Exporter) DefaultFileName(dir string, format ExportFormat) string {
	ext := string(format)
	if format == FormatText {
		ext = "log"
	}
	name := fmt.Sprintf("lvx-export-%s.%s", e.now().Format("20060102-150405"), ext)
	return filepath.Join(dir, name)
}

// GenerateDefaultOptions returns default export options
func (e *Exporter) GenerateDefaultOptions(outputPath string, format ExportFormat) ExportOptions {
	return ExportOptions{
		Format:     format,
		OutputPath: outputPath,
		TimeFormat: time.RFC3339Nano,
		Metadata: map[string]string{
			"tool": "lvx",
		},
	}
}

func levelClass(l models.Level) string {
	if l == models.LevelUnknown {
		return "level-na"
	}
	return "level-" + strings.ToLower(l.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
