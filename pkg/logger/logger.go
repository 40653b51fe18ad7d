package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled logger shared by the ledger server and the auditor.
// - Debug/Info/Warn/Error/Fatal variants and Init(level)
// - Named(component) returns a logger that prefixes every line with [component]

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// ParseLevel maps a level name to a Level; unknown names map to Info.
func ParseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}

func header(lvl Level, component string) string {
	h := fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(lvl.String()))
	if component != "" {
		h += "[" + component + "] "
	}
	return h
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func output(l Level, component, format string, v ...interface{}) {
	if l != LevelFatal && !shouldLog(l) {
		return
	}
	logger.Printf(header(l, component)+format, v...)
}

func Debugf(format string, v ...interface{}) { output(LevelDebug, "", format, v...) }
func Infof(format string, v ...interface{})  { output(LevelInfo, "", format, v...) }
func Warnf(format string, v ...interface{})  { output(LevelWarn, "", format, v...) }
func Errorf(format string, v ...interface{}) { output(LevelError, "", format, v...) }

func Fatalf(format string, v ...interface{}) {
	output(LevelFatal, "", format, v...)
	os.Exit(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return level.String()
}

// Logger is a component-scoped view of the global logger. The zero value
// logs without a component prefix.
type Logger struct {
	component string
}

// Named returns a logger whose lines carry [component].
func Named(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) name() string {
	if l == nil {
		return ""
	}
	return l.component
}

func (l *Logger) Debugf(format string, v ...interface{}) { output(LevelDebug, l.name(), format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { output(LevelInfo, l.name(), format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { output(LevelWarn, l.name(), format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { output(LevelError, l.name(), format, v...) }
