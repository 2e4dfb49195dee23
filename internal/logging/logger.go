package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Field is a single structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithFields expands a map into fields. Pass the result with `...`
// or directly as the only argument of a log call.
func WithFields(fields map[string]interface{}) Field {
	return Field{Value: fields}
}

// Logger is a leveled structured logger safe for concurrent use.
type Logger struct {
	entry *logrus.Logger
}

func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

func NewWithWriter(level Level, w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(toLogrus(level))
	return &Logger{entry: l}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.with(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.with(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.with(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.with(fields).Error(msg)
}

func (l *Logger) with(fields []Field) *logrus.Entry {
	data := logrus.Fields{}
	for _, f := range fields {
		if m, ok := f.Value.(map[string]interface{}); ok && f.Key == "" {
			for k, v := range m {
				data[k] = v
			}
			continue
		}
		data[f.Key] = f.Value
	}
	return l.entry.WithFields(data)
}

func toLogrus(level Level) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
