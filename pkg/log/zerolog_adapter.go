package log

import (
	"io"
	"time"

	"github.com/arnavsurve/pagerun/pkg/types"
	"github.com/rs/zerolog"
)

// ZerologAdapter implements types.Logger on a zerolog.Logger.
type ZerologAdapter struct {
	zl zerolog.Logger
}

func NewZerologAdapter(zl zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{zl: zl}
}

// New builds the logger for a run: timestamped JSON lines into w, normally a
// *Router, dropping events below level.
func New(w io.Writer, level zerolog.Level) *ZerologAdapter {
	return NewZerologAdapter(zerolog.New(w).Level(level).With().Timestamp().Logger())
}

// Nop discards everything.
func Nop() *ZerologAdapter {
	return NewZerologAdapter(zerolog.Nop())
}

func (a *ZerologAdapter) Debug() types.Event { return a.at(zerolog.DebugLevel) }
func (a *ZerologAdapter) Info() types.Event  { return a.at(zerolog.InfoLevel) }
func (a *ZerologAdapter) Warn() types.Event  { return a.at(zerolog.WarnLevel) }
func (a *ZerologAdapter) Error() types.Event { return a.at(zerolog.ErrorLevel) }

// Fatal records at fatal level but does not exit; the command layer owns the
// exit code.
func (a *ZerologAdapter) Fatal() types.Event { return a.at(zerolog.FatalLevel) }

func (a *ZerologAdapter) With() types.Context {
	return zerologContext{zc: a.zl.With()}
}

// at returns a disabled (nil) event when level is filtered out; zerolog's
// event methods are no-ops on nil.
func (a *ZerologAdapter) at(level zerolog.Level) types.Event {
	return zerologEvent{e: a.zl.WithLevel(level)}
}

type zerologEvent struct {
	e *zerolog.Event
}

func (ev zerologEvent) Msg(msg string)               { ev.e.Msg(msg) }
func (ev zerologEvent) Msgf(format string, v ...any) { ev.e.Msgf(format, v...) }

func (ev zerologEvent) Err(err error) types.Event {
	return zerologEvent{e: ev.e.Err(err)}
}

func (ev zerologEvent) Interface(key string, value any) types.Event {
	return zerologEvent{e: ev.e.Interface(key, value)}
}

func (ev zerologEvent) Str(key, value string) types.Event {
	return zerologEvent{e: ev.e.Str(key, value)}
}

func (ev zerologEvent) Int(key string, value int) types.Event {
	return zerologEvent{e: ev.e.Int(key, value)}
}

func (ev zerologEvent) Dur(key string, value time.Duration) types.Event {
	return zerologEvent{e: ev.e.Dur(key, value)}
}

type zerologContext struct {
	zc zerolog.Context
}

func (c zerologContext) Str(key, value string) types.Context {
	return zerologContext{zc: c.zc.Str(key, value)}
}

func (c zerologContext) Int(key string, value int) types.Context {
	return zerologContext{zc: c.zc.Int(key, value)}
}

func (c zerologContext) Interface(key string, value any) types.Context {
	return zerologContext{zc: c.zc.Interface(key, value)}
}

func (c zerologContext) Timestamp() types.Context {
	return zerologContext{zc: c.zc.Timestamp()}
}

func (c zerologContext) Logger() types.Logger {
	return NewZerologAdapter(c.zc.Logger())
}
