package sinks

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arnavsurve/pagerun/pkg/log"
	"github.com/rs/zerolog"
)

// FileSink keeps a JSON-lines copy of a run's log. Records use zerolog's
// field names so the file reads like raw zerolog output after redaction.
// Output is buffered until Close.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

// NewFileSink truncates or creates path, creating its directory first.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory for %q: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &FileSink{f: f, w: w, enc: enc}, nil
}

func (s *FileSink) Write(event *log.LogEvent) error {
	record := make(map[string]any, len(event.Fields)+3)
	for k, v := range event.Fields {
		record[k] = v
	}
	record[zerolog.LevelFieldName] = event.Level.String()
	record[zerolog.TimestampFieldName] = event.Timestamp.Format(time.RFC3339Nano)
	record[zerolog.MessageFieldName] = event.Message

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return os.ErrClosed
	}
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("encoding log record: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the file. Further writes fail.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := errors.Join(s.w.Flush(), s.f.Close())
	s.f = nil
	return err
}
