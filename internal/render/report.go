package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// SessionFile is what `watch --session-out` saves and `report` reads
type SessionFile struct {
	Session      *metrics.SessionResult     `json:"session"`
	Transactions []transactions.Transaction `json:"transactions"`
	Archive      map[string]int64           `json:"archive,omitempty"`
}

// WriteSessionFile saves a session as indented JSON
func WriteSessionFile(path string, s *SessionFile) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// ReadSessionFile loads a session saved by WriteSessionFile
func ReadSessionFile(path string) (*SessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s SessionFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	if s.Session == nil {
		return nil, fmt.Errorf("session file %s has no session", path)
	}
	return &s, nil
}

// Report writes the markdown summary and every chart with data into dir,
// returning the files it created
func Report(dir string, s *SessionFile) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	write := func(name string, render func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = render(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if errors.Is(err, ErrNoData) {
			os.Remove(path)
			return nil
		}
		if err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	prefix := s.Session.SessionID
	steps := []struct {
		name   string
		render func(io.Writer) error
	}{
		{prefix + "_summary.md", func(w io.Writer) error {
			SessionMarkdown(w, s.Session)
			return nil
		}},
		{prefix + "_status.png", func(w io.Writer) error {
			return StatusChart(w, s.Session.Counters)
		}},
		{prefix + "_risk.png", func(w io.Writer) error {
			return RiskBandChart(w, s.Transactions)
		}},
		{prefix + "_latency.png", func(w io.Writer) error {
			return LatencyChart(w, s.Session.Summary)
		}},
	}

	for _, step := range steps {
		if err := write(step.name, step.render); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", step.name, err)
		}
	}
	return files, nil
}
