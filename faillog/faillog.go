// Package faillog appends rows that could not be obfuscated to a journal
// under logs/failures/. The journal never affects checkpoint progress; it
// exists so an operator can repair or re-run failed rows by hand.
package faillog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FailedRow is one journal line.
type FailedRow struct {
	TableName        string         `json:"TableName"`
	PrimaryKeyValues map[string]any `json:"PrimaryKeyValues"`
	OriginalValues   map[string]any `json:"OriginalValues,omitempty"`
	ObfuscatedValues map[string]any `json:"ObfuscatedValues,omitempty"`
	ErrorMessage     string         `json:"ErrorMessage"`
	Timestamp        time.Time      `json:"Timestamp"`
}

type Logger struct {
	mu     sync.Mutex
	sink   *lumberjack.Logger
	path   string
	count  int64
	closed bool
}

// New opens logs/failures/<database>_failures_<timestamp>.log under dir and
// writes a comment header. The lumberjack sink is unbuffered, so records
// survive a crash, and caps runaway journals by size.
func New(dir, database, runID string) (*Logger, error) {
	base := filepath.Join(dir, "failures")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(base, fmt.Sprintf("%s_failures_%s.log", database, time.Now().UTC().Format("20060102T150405Z")))

	l := &Logger{
		sink: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    256, // MB
			MaxBackups: 4,
		},
		path: path,
	}
	header := fmt.Sprintf("# dataveil failure log\n# Database: %s\n# Run: %s\n# Started: %s\n",
		database, runID, time.Now().UTC().Format(time.RFC3339))
	if _, err := l.sink.Write([]byte(header)); err != nil {
		return nil, err
	}
	return l, nil
}

// Path is where records are being appended.
func (l *Logger) Path() string { return l.path }

// Count is the number of records appended so far.
func (l *Logger) Count() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Record appends one failed row. Appends are mutex-serialized; a marshal
// failure falls back to a plain-text line rather than losing the record.
func (l *Logger) Record(row FailedRow) {
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(row)
	if err != nil {
		raw = []byte(fmt.Sprintf("%s\t%v\t%s", row.TableName, row.PrimaryKeyValues, row.ErrorMessage))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.count++
	l.sink.Write(append(raw, '\n'))
}

// Close writes the completion marker and releases the sink.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	fmt.Fprintf(l.sink, "# Completed: %s\n", time.Now().UTC().Format(time.RFC3339))
	return l.sink.Close()
}
