// Package logging wraps the standard library logger with the level
// filtering the teacher never formalized (it gates noise by hand with
// "DEBUG" prefixes on fmt.Printf calls); LOG_LEVEL drives the same effect
// through a real filter instead.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is one of the five levels from spec.md §6 (LOG_LEVEL).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

// ParseLevel parses LOG_LEVEL; unknown values default to Info, matching the
// teacher's getEnv-with-default convention.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "SILENT":
		return LevelSilent
	default:
		return LevelInfo
	}
}

// Logger is a level-filtered wrapper over *log.Logger.
type Logger struct {
	level Level
	out   *log.Logger
}

// New creates a Logger writing to stderr with the standard library's
// timestamp prefix, as the teacher does implicitly via package-level log.
func New(level Level) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) logf(lvl Level, prefix, format string, args ...interface{}) {
	if lvl < l.level {
		return
	}
	l.out.Printf(prefix+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, "DEBUG ", format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, "", format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, "WARN ", format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, "ERROR ", format, args...) }

// Done logs a phase-completion line in the teacher's "✓ ..." style.
func (l *Logger) Done(format string, args ...interface{}) {
	l.logf(LevelInfo, "✓ ", format, args...)
}
