// Package report writes the JSON result artifacts a run produces:
// results/latest.json, a timestamped archive copy, and an append-only
// JSONL stream of live events for a following process to tail.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Writer owns the output directory a run's artifacts land in.
type Writer struct {
	OutputDir string
}

// New ensures OutputDir exists and returns a Writer rooted there.
func New(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create report output dir %q: %w", outputDir, err)
	}
	return &Writer{OutputDir: outputDir}, nil
}

// WriteResult writes result to latest.json and to a timestamped archive
// file, so successive runs don't clobber each other's history.
func (w *Writer) WriteResult(result model.AggregatedResult) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal aggregated result: %w", err)
	}

	latestPath := filepath.Join(w.OutputDir, "latest.json")
	if err := os.WriteFile(latestPath, b, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", latestPath, err)
	}

	archiveDir := filepath.Join(w.OutputDir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("cannot create archive dir: %w", err)
	}
	stamp := result.StartTime.UTC().Format("20060102T150405Z")
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s.json", stamp, sanitizeName(result.ProjectName)))
	if err := os.WriteFile(archivePath, b, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", archivePath, err)
	}

	info, statErr := os.Stat(latestPath)
	if statErr != nil {
		return fmt.Errorf("report written but not found at %s: %w", latestPath, statErr)
	}
	if info.Size() == 0 {
		return fmt.Errorf("report at %s is empty — write may have failed silently", latestPath)
	}
	return nil
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "run"
	}
	return string(out)
}

// EventKind names one live-events.jsonl record type.
type EventKind string

const (
	EventDiscovered  EventKind = "test_discovered"
	EventSuiteStart  EventKind = "suite_start"
	EventStepStart   EventKind = "step_start"
	EventStepEnd     EventKind = "step_end"
	EventSuiteEnd    EventKind = "suite_end"
	EventExecutionEnd EventKind = "execution_end"
)

// Event is one append-only record in live-events.jsonl.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
	NodeID    string      `json:"node_id,omitempty"`
	StepName  string      `json:"step_name,omitempty"`
	Status    string      `json:"status,omitempty"`
	Detail    interface{} `json:"detail,omitempty"`
}

// EventSink is an append-only JSONL stream. Emit and Close serialize on a
// mutex, so one sink can be shared across goroutines.
type EventSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventSink opens (creating/truncating) outputDir/live-events.jsonl.
func NewEventSink(outputDir string) (*EventSink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, "live-events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return &EventSink{file: f, enc: json.NewEncoder(f)}, nil
}

// Emit appends one event, serialized under a mutex so concurrent
// scheduler workers can safely share one sink.
func (s *EventSink) Emit(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(e)
}

// Close flushes and closes the underlying file.
func (s *EventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
