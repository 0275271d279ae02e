// Package runlog persists per-run outputs: the row-structured data file, the
// human-readable log, and the run metadata written once at start.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/rig-monitor/internal/telemetry"
)

// Recorder is what the control loop needs from the run logger.
type Recorder interface {
	// LogColumns writes the data-file header from the reading's columns.
	// Called once, with the first reading.
	LogColumns(r telemetry.Reading) error

	// LogRow appends the reading to the data file and the text log.
	LogRow(r telemetry.Reading) error
}

// Logger writes a run's output files under <dir>/<name>/:
// data.csv, log.txt and meta.toml.
type Logger struct {
	dir        string
	appendMode bool

	meta *os.File
	log  *os.File
	data *os.File
}

// New creates the run directory and opens the output files. In append mode
// the data file is appended to and no header is written; the log and meta
// files are always truncated.
func New(dir, name string, appendMode bool) (*Logger, error) {
	runDir := filepath.Join(dir, name)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	meta, err := os.Create(filepath.Join(runDir, "meta.toml"))
	if err != nil {
		return nil, fmt.Errorf("open meta file: %w", err)
	}

	logFile, err := os.Create(filepath.Join(runDir, "log.txt"))
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("open log file: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	data, err := os.OpenFile(filepath.Join(runDir, "data.csv"), flags, 0o644)
	if err != nil {
		meta.Close()
		logFile.Close()
		return nil, fmt.Errorf("open data file: %w", err)
	}

	return &Logger{
		dir:        runDir,
		appendMode: appendMode,
		meta:       meta,
		log:        logFile,
		data:       data,
	}, nil
}

// Dir returns the run's output directory.
func (l *Logger) Dir() string {
	return l.dir
}

// WriteMeta writes the run parameters as flat TOML key/value pairs. Unset
// optionals should be omitted from the map (TOML has no null).
func (l *Logger) WriteMeta(meta map[string]any) error {
	if err := toml.NewEncoder(l.meta).Encode(meta); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return l.meta.Sync()
}

// LogColumns writes the CSV header row. Skipped in append mode: the columns
// are assumed to match the existing file.
func (l *Logger) LogColumns(r telemetry.Reading) error {
	if l.appendMode {
		return nil
	}
	if _, err := fmt.Fprintln(l.data, strings.Join(r.Keys, ",")); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// LogRow appends one CSV row and one text-log block, flushing both so a
// crashed run loses at most the current reading.
func (l *Logger) LogRow(r telemetry.Reading) error {
	cols := make([]string, len(r.Keys))
	for i, key := range r.Keys {
		cols[i] = formatValue(r.Values[key])
	}
	if _, err := fmt.Fprintln(l.data, strings.Join(cols, ",")); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	if err := l.data.Sync(); err != nil {
		return fmt.Errorf("sync data: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Timestamp: %s\n", formatValue(r.Time()))
	for _, key := range r.Keys {
		if key == telemetry.TimeKey {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", key, formatValue(r.Values[key]))
	}
	b.WriteString("\n")
	if _, err := l.log.WriteString(b.String()); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	if err := l.log.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

// Close closes all output files.
func (l *Logger) Close() error {
	var errs []error
	for _, f := range []*os.File{l.meta, l.log, l.data} {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// formatValue renders a value with the shortest representation that parses
// back to the same float64.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
