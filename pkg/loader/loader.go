package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hpcloud/tail"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/parser"
	"github.com/rs/zerolog/log"
)

// Stats describes one ingestion run
type Stats struct {
	Lines   int           // lines read, including rejected ones
	Kept    int           // lines that became records
	Dropped int           // lines rejected by the parser
	Bytes   int64         // uncompressed bytes read
	Elapsed time.Duration
}

// Loader reads a log file into an ordered record list
type Loader struct {
	parser  *parser.LogParser
	records []models.LogRecord
	stats   Stats
}

// New creates a new Loader
func New() *Loader {
	return &Loader{
		parser: parser.New(),
	}
}

// Load reads path to EOF. Files ending in .zst or .gz are decompressed first.
// Malformed lines are skipped and counted; open or read failures abort the load.
func Load(path string) ([]models.LogRecord, Stats, error) {
	return New().Load(path)
}

// Load reads path to EOF and returns the records in line order
func (l *Loader) Load(path string) ([]models.LogRecord, Stats, error) {
	l.records = nil
	l.stats = Stats{}
	start := time.Now()

	var err error
	switch compression(path) {
	case "zstd":
		err = l.loadCompressed(path, func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		})
	case "gzip":
		err = l.loadCompressed(path, func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		})
	default:
		err = l.loadPlain(path)
	}
	if err != nil {
		return nil, Stats{}, err
	}

	l.stats.Elapsed = time.Since(start)

	log.Debug().
		Str("path", path).
		Int("lines", l.stats.Lines).
		Int("kept", l.stats.Kept).
		Int("dropped", l.stats.Dropped).
		Int64("bytes", l.stats.Bytes).
		Dur("elapsed", l.stats.Elapsed).
		Msg("loaded log file")

	records := l.records
	l.records = nil
	return records, l.stats, nil
}

// LoadReader ingests an already opened stream
func (l *Loader) LoadReader(r io.Reader) ([]models.LogRecord, Stats, error) {
	l.records = nil
	l.stats = Stats{}
	start := time.Now()

	if err := l.readLines(r); err != nil {
		return nil, Stats{}, err
	}

	l.stats.Elapsed = time.Since(start)
	records := l.records
	l.records = nil
	return records, l.stats, nil
}

// loadPlain reads an uncompressed file once through a non-following tail
func (l *Loader) loadPlain(path string) error {
	config := tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}

	t, err := tail.TailFile(path, config)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	var readErr error
	for line := range t.Lines {
		if line.Err != nil {
			if readErr == nil {
				readErr = line.Err
			}
			continue
		}
		l.addLine(line.Text)
	}

	if err := t.Wait(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if readErr != nil {
		return fmt.Errorf("failed to read %s: %w", path, readErr)
	}

	return nil
}

func (l *Loader) loadCompressed(path string, open func(io.Reader) (io.ReadCloser, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rc, err := open(f)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	defer rc.Close()

	if err := l.readLines(rc); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// readLines splits r on '\n'; a final line without a newline is kept
func (l *Loader) readLines(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		text, err := br.ReadString('\n')
		if len(text) > 0 {
			l.addLine(strings.TrimSuffix(text, "\n"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (l *Loader) addLine(text string) {
	l.stats.Lines++
	l.stats.Bytes += int64(len(text)) + 1

	record, ok := l.parser.ParseLine(text)
	if !ok {
		l.stats.Dropped++
		return
	}

	record.Line = l.stats.Lines
	l.records = append(l.records, record)
	l.stats.Kept++
}

func compression(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return "zstd"
	case strings.HasSuffix(lower, ".gz"):
		return "gzip"
	default:
		return ""
	}
}
