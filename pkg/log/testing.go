package log

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Entry is one captured log record.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// recording is the state shared by a TestLogger and its With children.
type recording struct {
	mu      sync.Mutex
	level   Level
	entries []Entry
}

// TestLogger keeps every record in memory so tests can assert on what the
// trainer, storage and server layers logged.
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	models, err := trainer.Train(rows, cfg, trainer.WithLogger(logger))
//	assert.True(t, logger.ContainsField(log.PhaseKey, log.PhaseImportance))
type TestLogger struct {
	rec    *recording
	fields []any
}

// NewTestLogger captures records at level and above.
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{rec: &recording{level: level}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

// With returns a child that shares the captured records.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(t.fields)+len(fields))
	merged = append(merged, t.fields...)
	merged = append(merged, fields...)
	return &TestLogger{rec: t.rec, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	return level >= t.rec.level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	if !t.Enabled(context.Background(), level) {
		return
	}
	e := Entry{Level: level, Message: msg, Fields: make(map[string]any)}
	addFields(e.Fields, t.fields)
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e.Fields["error"] = err.Error()
			fields = fields[1:]
		}
	}
	addFields(e.Fields, fields)

	t.rec.mu.Lock()
	t.rec.entries = append(t.rec.entries, e)
	t.rec.mu.Unlock()
}

func addFields(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// Entries returns a copy of the captured records in order.
func (t *TestLogger) Entries() []Entry {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	return append([]Entry(nil), t.rec.entries...)
}

// ContainsMessage reports whether any record's message contains s.
func (t *TestLogger) ContainsMessage(s string) bool {
	for _, e := range t.Entries() {
		if strings.Contains(e.Message, s) {
			return true
		}
	}
	return false
}

// ContainsField reports whether any record has key set to value.
func (t *TestLogger) ContainsField(key string, value any) bool {
	for _, e := range t.Entries() {
		if v, ok := e.Fields[key]; ok && reflect.DeepEqual(v, value) {
			return true
		}
	}
	return false
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.rec.mu.Lock()
	t.rec.entries = nil
	t.rec.mu.Unlock()
}

// String renders the records one per line, fields sorted by key.
func (t *TestLogger) String() string {
	var b strings.Builder
	for _, e := range t.Entries() {
		fmt.Fprintf(&b, "%s %s", e.Level, e.Message)
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TestLoggerProvider hands out component loggers that all record into one
// TestLogger.
type TestLoggerProvider struct {
	logger *TestLogger
}

func NewTestLoggerProvider(level Level) *TestLoggerProvider {
	return &TestLoggerProvider{logger: NewTestLogger(level)}
}

// Logger returns the root recorder.
func (p *TestLoggerProvider) Logger() *TestLogger {
	return p.logger
}

func (p *TestLoggerProvider) GetLogger() Logger {
	return p.logger
}

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.rec.mu.Lock()
	p.logger.rec.level = level
	p.logger.rec.mu.Unlock()
}
