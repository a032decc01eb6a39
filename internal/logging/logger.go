// Package logging provides a runtime.Logger for processes that run the engine
// outside of Nakama.
package logging

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/heroiclabs/nakama-common/runtime"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = map[Level]func(a ...interface{}) string{
	LevelDebug: color.New(color.FgHiBlack).SprintFunc(),
	LevelInfo:  color.New(color.FgHiCyan).SprintFunc(),
	LevelWarn:  color.New(color.FgHiYellow).SprintFunc(),
	LevelError: color.New(color.FgHiRed, color.Bold).SprintFunc(),
}

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO ",
	LevelWarn:  "WARN ",
	LevelError: "ERROR",
}

// ParseLevel maps a flag value to a Level. Unknown names yield LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes one line per entry: timestamp, colored level tag, message, sorted fields.
type Logger struct {
	out    io.Writer
	mu     *sync.Mutex
	min    Level
	fields map[string]interface{}
	now    func() time.Time
}

var _ runtime.Logger = (*Logger)(nil)

// New returns a logger writing entries at min or above to out.
func New(out io.Writer, min Level) *Logger {
	return &Logger{
		out:    out,
		mu:     &sync.Mutex{},
		min:    min,
		fields: map[string]interface{}{},
		now:    time.Now,
	}
}

func (l *Logger) Debug(format string, v ...interface{}) { l.write(LevelDebug, format, v) }
func (l *Logger) Info(format string, v ...interface{})  { l.write(LevelInfo, format, v) }
func (l *Logger) Warn(format string, v ...interface{})  { l.write(LevelWarn, format, v) }
func (l *Logger) Error(format string, v ...interface{}) { l.write(LevelError, format, v) }

func (l *Logger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

func (l *Logger) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

func (l *Logger) write(level Level, format string, v []interface{}) {
	if level < l.min {
		return
	}

	var b strings.Builder
	b.WriteString(l.now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(levelTags[level](levelNames[level]))
	b.WriteByte(' ')
	fmt.Fprintf(&b, format, v...)

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}
