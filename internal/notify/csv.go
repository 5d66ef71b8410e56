package notify

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tools.zach/dev/steamwatch/internal/presence"
	"tools.zach/dev/steamwatch/internal/timefmt"
)

// csvHeader is written once when the file is created or empty.
var csvHeader = []string{"Date", "Status", "ActivityName", "ActivityID"}

// CSVSink appends one row per status or activity change. The file is opened
// per batch so external rotation or deletion is picked up.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a CSVSink for path and checks that the file can be
// opened for appending, writing the header when the file is new.
func NewCSVSink(path string) (*CSVSink, error) {
	s := &CSVSink{path: path}
	if err := s.append(nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the CSV file path.
func (s *CSVSink) Path() string { return s.path }

// Name implements [Sink].
func (*CSVSink) Name() string { return "csv" }

// Deliver implements [Sink]. Each row carries the status and activity as
// they stood after the change.
func (s *CSVSink) Deliver(_ context.Context, b Batch) error {
	if len(b.Events) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(b.Events))
	for _, ev := range b.Events {
		status := b.Snapshot.Status
		name, id := b.Snapshot.ActivityName, b.Snapshot.ActivityID
		switch e := ev.(type) {
		case presence.StatusChanged:
			status = e.To
		case presence.ActivityChanged:
			name, id = e.NewName, e.NewID
		}
		rows = append(rows, []string{timefmt.CSV(ev.At()), status.String(), name, id})
	}
	return s.append(rows)
}

// append opens the file, writes the header if the file is empty and then
// the given rows.
func (s *CSVSink) append(rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating csv directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening csv file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv rows: %w", err)
	}
	return nil
}
