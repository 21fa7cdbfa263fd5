package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/minnesingerthule/VRIL-Storage/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a small leveled logger with optional named sub-loggers,
// writing to the terminal and/or a lumberjack-rotated file.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)

	Named(name string) Logger
}

type loggerImpl struct {
	cfg    config.LogConfig
	name   string
	level  LogLevel
	writer io.Writer
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
}

func New(name string, cfg config.LogConfig) Logger {
	impl := &loggerImpl{
		cfg:   cfg,
		name:  name,
		level: ParseLevel(cfg.Level),
	}
	impl.setupWriter()
	return impl
}

func (l *loggerImpl) setupWriter() {
	var writers []io.Writer

	if !l.cfg.NoTerminal {
		writers = append(writers, os.Stdout)
	}

	if l.cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   l.cfg.File,
			MaxSize:    l.cfg.Rotation.MaxSize,
			MaxBackups: l.cfg.Rotation.MaxBackups,
			MaxAge:     l.cfg.Rotation.MaxAge,
			Compress:   l.cfg.Rotation.Compress,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	l.writer = io.MultiWriter(writers...)
}

func (l *loggerImpl) log(level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format(l.cfg.TimeFormat)
	formatted := fmt.Sprintf(msg, args...)

	if l.cfg.JSON {
		entry := logEntry{
			Timestamp: timestamp,
			Level:     level.String(),
			Message:   formatted,
		}
		if l.name != "" {
			entry.Service = l.name
		}
		jsonBytes, _ := json.Marshal(entry)
		fmt.Fprintf(l.writer, "%s\n", jsonBytes)
	} else {
		prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
		if l.name != "" {
			prefix = fmt.Sprintf("%s [%s]", prefix, l.name)
		}

		if !l.cfg.NoTerminal && !l.cfg.NoColor {
			fmt.Fprintf(l.writer, "%s%s %s\033[0m\n", color(level), prefix, formatted)
		} else {
			fmt.Fprintf(l.writer, "%s %s\n", prefix, formatted)
		}
	}

	if level == LevelFatal {
		os.Exit(1)
	}
}

func (l *loggerImpl) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *loggerImpl) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *loggerImpl) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *loggerImpl) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }
func (l *loggerImpl) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args...) }

func (l *loggerImpl) Named(name string) Logger {
	child := &loggerImpl{
		cfg:    l.cfg,
		level:  l.level,
		writer: l.writer,
	}
	if l.name != "" {
		child.name = fmt.Sprintf("%s/%s", l.name, name)
	} else {
		child.name = name
	}
	return child
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() Logger {
	return &loggerImpl{
		cfg:    config.LogConfig{TimeFormat: time.RFC3339, NoTerminal: true, NoColor: true},
		level:  LevelFatal + 1,
		writer: io.Discard,
	}
}
