package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/parser"
)

func testRecords() []models.LogRecord {
	return []models.LogRecord{
		{
			Timestamp: time.Date(2024, 1, 2, 15, 4, 5, 123000000, time.FixedZone("", 3600)),
			Level:     models.LevelInfo,
			Message:   "start \"api\"",
			Caller:    "main.go:10",
			Payload:   `{"a":2,"nested":{"k":"v"},"x":1}`,
			Line:      1,
		},
		{
			Timestamp: models.DefaultTimestamp,
			Level:     models.LevelUnknown,
			Message:   "oops, again",
			Line:      3,
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	records := testRecords()

	var buf bytes.Buffer
	if err := New().Write(&buf, records, ExportOptions{Format: FormatJSON}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	p := parser.New()
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(records) {
		t.Fatalf("Expected %d lines, got %d", len(records), len(lines))
	}

	for i, line := range lines {
		got, ok := p.ParseLine(line)
		if !ok {
			t.Fatalf("Line %d did not parse back: %s", i, line)
		}
		want := records[i]
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("Line %d: timestamp %v, want %v", i, got.Timestamp, want.Timestamp)
		}
		if got.Level != want.Level || got.Message != want.Message || got.Caller != want.Caller || got.Payload != want.Payload {
			t.Errorf("Line %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	err := New().Write(&buf, testRecords(), ExportOptions{Format: FormatCSV, TimeFormat: time.RFC3339})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "line,timestamp,level,message,caller,payload" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][2] != "INFO" || rows[1][3] != `start "api"` {
		t.Errorf("Unexpected first row %v", rows[1])
	}
	if rows[2][2] != "N/A" || rows[2][3] != "oops, again" || rows[2][5] != "" {
		t.Errorf("Unexpected second row %v", rows[2])
	}
}

func TestTextWithMetadata(t *testing.T) {
	e := New()
	e.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	options := ExportOptions{
		Format:     FormatText,
		TimeFormat: time.RFC3339,
		Metadata:   map[string]string{"session": "abc", "source": "app.log"},
	}
	if err := e.Write(&buf, testRecords(), options); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# session: abc\n# source: app.log\n",
		"# Total records: 2",
		"2024-01-02T15:04:05+01:00 INFO  start \"api\" caller=main.go:10 {\"a\":2",
		"N/A   oops, again\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestExportRecordsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.html")

	if err := New().ExportRecords(testRecords(), ExportOptions{Format: FormatHTML, OutputPath: path}); err != nil {
		t.Fatalf("ExportRecords failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if !strings.Contains(string(data), "start &#34;api&#34;") {
		t.Errorf("Expected escaped message in HTML output")
	}

	if err := New().ExportRecords(testRecords(), ExportOptions{Format: FormatText}); err == nil {
		t.Error("Expected error without an output path")
	}
}

func TestExportRecordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := New().ExportRecords(nil, ExportOptions{Format: FormatCSV, OutputPath: path}); err != nil {
		t.Fatalf("ExportRecords failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if string(data) != "line,timestamp,level,message,caller,payload\n" {
		t.Errorf("Expected header only, got %q", data)
	}
}

func TestFormatRecord(t *testing.T) {
	records := testRecords()

	tests := []struct {
		record models.LogRecord
		want   string
	}{
		{records[0], `2024-01-02T15:04:05+01:00 INFO  start "api" caller=main.go:10 {"a":2,"nested":{"k":"v"},"x":1}`},
		{records[1], `1970-01-01T00:00:00Z N/A   oops, again`},
	}

	for _, tt := range tests {
		if got := FormatRecord(&tt.record, time.RFC3339); got != tt.want {
			t.Errorf("FormatRecord() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Errorf("Expected csv, got %v (%v)", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected unsupported format to be rejected")
	}
}

func TestDefaultFileName(t *testing.T) {
	e := New()
	e.now = func() time.Time { return time.Date(2024, 5, 1, 13, 14, 15, 0, time.UTC) }

	got := e.DefaultFileName("/tmp", FormatText)
	if got != filepath.Join("/tmp", "lvx-export-20240501-131415.log") {
		t.Errorf("Unexpected file name %s", got)
	}
}
