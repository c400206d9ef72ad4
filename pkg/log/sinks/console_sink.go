package sinks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/arnavsurve/pagerun/pkg/log"
	"github.com/arnavsurve/pagerun/pkg/types"
	"github.com/fatih/color"
)

// ConsoleSink renders human-readable, colored log lines. It writes to stderr
// by default because stdout is reserved for relayed page console output.
type ConsoleSink struct {
	out      io.Writer
	minLevel types.Level
}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stderr, minLevel: types.InfoLevel}
}

// NewConsoleSinkWriter returns a ConsoleSink writing to w at the given
// minimum level.
func NewConsoleSinkWriter(w io.Writer, minLevel types.Level) *ConsoleSink {
	return &ConsoleSink{out: w, minLevel: minLevel}
}

var levelColorMap = map[types.Level]*color.Color{
	types.DebugLevel: color.New(color.FgCyan),
	types.InfoLevel:  color.New(color.FgGreen),
	types.WarnLevel:  color.New(color.FgYellow),
	types.ErrorLevel: color.New(color.FgRed),
	types.FatalLevel: color.New(color.FgRed, color.Bold),
}

// fields rendered inline or used as the label; everything else goes into the
// trailing key=value list.
var consoleHiddenFields = map[string]struct{}{
	"component": {},
	"run_id":    {},
	"error":     {},
}

func (c *ConsoleSink) Write(event *log.LogEvent) error {
	if event.Level < c.minLevel {
		return nil
	}

	component := getStringField(event.Fields, "component")
	errorMsg := getStringField(event.Fields, "error")
	levelStr := strings.ToUpper(event.Level.String())
	timestampStr := event.Timestamp.Format(time.RFC3339)

	levelFmt := color.New(color.FgWhite).SprintFunc()
	if lc, ok := levelColorMap[event.Level]; ok {
		levelFmt = lc.SprintFunc()
	}
	timestampFmt := color.New(color.FgWhite).SprintFunc()

	label := component
	if label == "" {
		label = "pagerun"
	}

	commonPrefix := fmt.Sprintf("[%s %s] %s: ",
		levelFmt(levelStr),
		timestampFmt(timestampStr),
		color.CyanString(label),
	)

	var output string
	switch {
	case event.Message != "" && errorMsg != "":
		output = fmt.Sprintf("%s%s: %s", commonPrefix, event.Message, color.RedString(errorMsg))
	case errorMsg != "":
		output = fmt.Sprintf("%s%s", commonPrefix, color.RedString(errorMsg))
	case event.Message != "":
		output = commonPrefix + event.Message
	default:
		fieldsStr, _ := json.MarshalIndent(event.Fields, "", "  ")
		output = commonPrefix + string(fieldsStr)
	}

	if extra := formatExtraFields(event.Fields); extra != "" && (event.Message != "" || errorMsg != "") {
		output += " " + color.BlueString(extra)
	}

	_, err := fmt.Fprintln(c.out, output)
	return err
}

func formatExtraFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, hidden := consoleHiddenFields[k]; !hidden {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// Helper to safely get string field from LogEvent.Fields
func getStringField(fields map[string]any, key string) string {
	if val, ok := fields[key]; ok {
		if strVal, isStr := val.(string); isStr {
			return strVal
		}
	}
	return ""
}

func (c *ConsoleSink) Close() error {
	return nil // never close stderr
}
