package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/arnavsurve/pagerun/pkg/security"
	"github.com/arnavsurve/pagerun/pkg/types"
	"github.com/rs/zerolog"
)

// LogEvent represents a log event that will be written to sinks
type LogEvent struct {
	Level     types.Level
	Message   string
	Fields    map[string]any
	Timestamp time.Time
}

// Sink defines the interface for log output destinations
type Sink interface {
	Write(event *LogEvent) error
	io.Closer
}

// Router routes log events to multiple sinks. It is the io.Writer handed to
// zerolog, so every JSON line zerolog produces is decoded once and fanned out.
type Router struct {
	Redactor *security.Redactor

	mu    sync.Mutex
	sinks []Sink
}

func NewRouter(sinks ...Sink) *Router {
	return &Router{sinks: sinks}
}

var reservedFields = map[string]struct{}{
	zerolog.LevelFieldName:     {},
	zerolog.MessageFieldName:   {},
	zerolog.TimestampFieldName: {},
}

func (r *Router) Write(p []byte) (n int, err error) {
	var zerologOutput map[string]any
	if err := json.Unmarshal(p, &zerologOutput); err != nil {
		fmt.Fprintf(os.Stderr, "Router: Error unmarshaling log line: %v, data: %s\n", err, string(p))
		return len(p), nil
	}

	evt := &LogEvent{
		Level:  types.InfoLevel,
		Fields: make(map[string]any),
	}

	if lvlStr, ok := zerologOutput[zerolog.LevelFieldName].(string); ok {
		if zlLevel, err := zerolog.ParseLevel(lvlStr); err == nil {
			evt.Level = ConvertZerologLevel(zlLevel)
		}
	}
	if msg, ok := zerologOutput[zerolog.MessageFieldName].(string); ok {
		evt.Message = msg
	}
	if tsStr, ok := zerologOutput[zerolog.TimestampFieldName].(string); ok {
		evt.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	for k, v := range zerologOutput {
		if _, isReserved := reservedFields[k]; !isReserved {
			evt.Fields[k] = v
		}
	}

	r.redact(evt)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sink := range r.sinks {
		if err := sink.Write(evt); err != nil {
			fmt.Fprintf(os.Stderr, "Router: Error writing to sink: %v\n", err)
		}
	}

	return len(p), nil
}

func (r *Router) redact(evt *LogEvent) {
	if r.Redactor == nil {
		return
	}
	evt.Message = r.Redactor.Redact(evt.Message)
	for k, v := range evt.Fields {
		switch val := v.(type) {
		case string:
			evt.Fields[k] = r.Redactor.Redact(val)
		case map[string]any:
			for kk, vv := range val {
				if strVal, ok := vv.(string); ok {
					val[kk] = r.Redactor.Redact(strVal)
				}
			}
		case []any:
			for i, vv := range val {
				if strVal, ok := vv.(string); ok {
					val[i] = r.Redactor.Redact(strVal)
				}
			}
		}
	}
}

func ConvertZerologLevel(zl zerolog.Level) types.Level {
	switch zl {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return types.DebugLevel
	case zerolog.InfoLevel:
		return types.InfoLevel
	case zerolog.WarnLevel:
		return types.WarnLevel
	case zerolog.ErrorLevel:
		return types.ErrorLevel
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return types.FatalLevel
	default:
		return types.InfoLevel
	}
}

func (r *Router) AddSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
}

func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
