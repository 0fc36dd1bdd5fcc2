package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Log levels in increasing severity.
var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// Logger is a structured logger that writes to a console writer and the store.
type Logger struct {
	store     *Store
	component string
	out       io.Writer
	mu        *sync.Mutex // guards out and minLevel, shared by derived loggers
	minLevel  *int
	fields    map[string]interface{}
}

// NewLogger creates a new logger for a component writing to stderr.
// store may be nil, in which case entries are only printed.
func NewLogger(store *Store, component string) *Logger {
	minLevel := levelRank["INFO"]
	return &Logger{
		store:     store,
		component: component,
		out:       os.Stderr,
		mu:        &sync.Mutex{},
		minLevel:  &minLevel,
		fields:    make(map[string]interface{}),
	}
}

// Discard returns a logger that prints nothing and stores nothing.
func Discard() *Logger {
	l := NewLogger(nil, "")
	l.out = io.Discard
	return l
}

// SetOutput changes where this logger and loggers derived from it later
// print.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

// SetLevel sets the minimum printed level for this logger and every logger
// derived from the same root. Every level is still stored.
func (l *Logger) SetLevel(level string) error {
	rank, ok := levelRank[strings.ToUpper(level)]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	l.mu.Lock()
	*l.minLevel = rank
	l.mu.Unlock()
	return nil
}

// Component returns a logger for another component sharing output and store.
func (l *Logger) Component(component string) *Logger {
	c := l.clone()
	c.component = component
	return c
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	c := l.clone()
	for k, v := range fields {
		c.fields[k] = v
	}
	return c
}

func (l *Logger) clone() *Logger {
	l.mu.Lock()
	out := l.out
	l.mu.Unlock()

	c := &Logger{
		store:     l.store,
		component: l.component,
		out:       out,
		mu:        l.mu,
		minLevel:  l.minLevel,
		fields:    make(map[string]interface{}, len(l.fields)+1),
	}
	for k, v := range l.fields {
		c.fields[k] = v
	}
	return c
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log("DEBUG", msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log("INFO", msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, args...)
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var fieldsJSON string
	if len(l.fields) > 0 {
		if data, err := json.Marshal(l.fields); err == nil {
			fieldsJSON = string(data)
		}
	}

	l.mu.Lock()
	if levelRank[level] >= *l.minLevel {
		timestamp := time.Now().Format("2006/01/02 15:04:05")
		fmt.Fprintf(l.out, "%s [%s] [%s] %s", timestamp, l.component, level, msg)
		if fieldsJSON != "" {
			fmt.Fprintf(l.out, " %s", fieldsJSON)
		}
		fmt.Fprintln(l.out)
	}
	l.mu.Unlock()

	if l.store != nil {
		l.store.WriteLog(level, l.component, msg, fieldsJSON)
	}
}

// StdLogWriter returns an io.Writer for use with the standard log package.
func (l *Logger) StdLogWriter(level string) io.Writer {
	return &stdLogWriter{logger: l, level: level}
}

type stdLogWriter struct {
	logger *Logger
	level  string
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	// Remove "[component] " prefix if present
	if strings.HasPrefix(msg, "[") {
		if idx := strings.Index(msg, "] "); idx >= 0 {
			msg = msg[idx+2:]
		}
	}
	w.logger.log(w.level, msg)
	return len(p), nil
}

// RedirectStdLog redirects the standard log package to this logger.
func (l *Logger) RedirectStdLog(level string) {
	log.SetOutput(l.StdLogWriter(level))
	log.SetFlags(0) // Remove default timestamp since we add our own
}
