package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a level name to a LogLevel, defaulting to INFO.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Field attaches a named value to a log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a log field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger provides structured, leveled logging with a component tag.
// All pipeline stages log through it; logging is not behavior-bearing.
type Logger struct {
	mu        sync.Mutex
	level     LogLevel
	format    string // "json" or "text"
	output    io.Writer
	component string
}

// NewLogger creates a new logger writing text entries to stdout at INFO.
func NewLogger() *Logger {
	return &Logger{
		level:  INFO,
		format: "text",
		output: os.Stdout,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat sets the logging format ("json" or "text")
func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = strings.ToLower(format)
}

// SetOutput sets the logging output destination
func (l *Logger) SetOutput(output io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = output
}

// WithComponent returns a logger bound to a component name. The returned
// logger shares the parent's level, format and output.
func (l *Logger) WithComponent(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		level:     l.level,
		format:    l.format,
		output:    l.output,
		component: component,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, nil, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, nil, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, nil, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(ERROR, msg, err, fields...)
}

func (l *Logger) log(level LogLevel, msg string, err error, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]any, len(fields))
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	var line string
	if l.format == "json" {
		if b, marshalErr := json.Marshal(entry); marshalErr == nil {
			line = string(b)
		} else {
			line = fmt.Sprintf("failed to marshal log entry: %v", marshalErr)
		}
	} else {
		line = l.formatTextEntry(entry)
	}

	fmt.Fprintln(l.output, line)
}

func (l *Logger) formatTextEntry(entry *LogEntry) string {
	var b strings.Builder

	b.WriteString(entry.Timestamp)
	b.WriteString(" [")
	b.WriteString(entry.Level)
	b.WriteString("]")
	if entry.Component != "" {
		b.WriteString(" [")
		b.WriteString(entry.Component)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(entry.Message)

	if entry.Error != "" {
		b.WriteString(fmt.Sprintf(" error=%q", entry.Error))
	}
	for k, v := range entry.Fields {
		b.WriteString(fmt.Sprintf(" %s=%v", k, v))
	}

	return b.String()
}
