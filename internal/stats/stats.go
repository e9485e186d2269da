// Package stats keeps an append-only log of reading sessions as one JSON
// object per line, plus simple aggregation over it.
package stats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Record describes one finished reading session.
type Record struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Kind            string    `json:"kind"` // "file" or "url"
	Questions       int       `json:"questions"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Summary aggregates the whole log.
type Summary struct {
	Sessions       int
	Questions      int
	TotalDuration  time.Duration
	ByKind         map[string]int
	LastWeek       int     // sessions ended in the last 7 days
	AvgQuestions   float64 // questions per session
	LongestSession Record
}

// Log is the on-disk JSONL file.
type Log struct {
	path   string
	logger *zap.Logger
}

// NewLog points at a JSONL file, creating parent directories on first append.
func NewLog(path string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{path: path, logger: logger}
}

// Append writes one record to the end of the log.
func (l *Log) Append(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create stats dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open stats log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Records reads the full log. A missing file is an empty log. Corrupt lines
// are skipped with a warning so one bad write never hides the history.
func (l *Log) Records() ([]Record, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open stats log: %w", err)
	}
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			l.logger.Warn("skipping corrupt stats line",
				zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stats log: %w", err)
	}
	return out, nil
}

// Summarize aggregates the log.
func (l *Log) Summarize() (Summary, error) {
	recs, err := l.Records()
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{ByKind: make(map[string]int)}
	weekAgo := time.Now().AddDate(0, 0, -7)
	for _, r := range recs {
		sum.Sessions++
		sum.Questions += r.Questions
		sum.TotalDuration += time.Duration(r.DurationSeconds * float64(time.Second))
		sum.ByKind[r.Kind]++
		if r.EndedAt.After(weekAgo) {
			sum.LastWeek++
		}
		if r.DurationSeconds > sum.LongestSession.DurationSeconds {
			sum.LongestSession = r
		}
	}
	if sum.Sessions > 0 {
		sum.AvgQuestions = float64(sum.Questions) / float64(sum.Sessions)
	}
	return sum, nil
}

// ExportCSV writes the log as CSV with a header row.
func (l *Log) ExportCSV(w io.Writer) error {
	recs, err := l.Records()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "kind", "questions", "started_at", "ended_at", "duration_seconds"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		row := []string{
			r.ID,
			r.Title,
			r.Kind,
			strconv.Itoa(r.Questions),
			r.StartedAt.Format(time.RFC3339),
			r.EndedAt.Format(time.RFC3339),
			strconv.FormatFloat(r.DurationSeconds, 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
