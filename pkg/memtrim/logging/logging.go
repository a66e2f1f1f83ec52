// Package logging provides structured logging with file rotation for
// memtrim. The CLI, the TUI dashboard, and the daemon all log through it.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level: "info",
//	    Path:  logging.DefaultLogPath(),
//	}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("monitor")
//	logger.Info("poll tick", "used_mb", 4210)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names (daemon, monitor, release, tui)
	// to per-component level overrides.
	Components map[string]string

	// ConsoleLevel enables stderr output at the specified level.
	// Empty string disables console output.
	ConsoleLevel string

	// TUIMode disables console output (the TUI owns the screen) and
	// enables the ring buffer backing the dashboard log panel.
	TUIMode bool
}

// Entry is a single log record delivered to subscribers and the
// TUI ring buffer.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Logger wraps charmbracelet/log with component identification.
type Logger struct {
	file      *log.Logger // always present, io.Discard before Init
	console   *log.Logger // optional stderr output
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	emit(l.file, level, msg, args...)
	if l.console != nil {
		emit(l.console, level, msg, args...)
	}
	reg.broadcast(Entry{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
	})
}

func emit(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional context fields.
func (l *Logger) With(args ...interface{}) *Logger {
	next := &Logger{
		file:      l.file.With(args...),
		component: l.component,
	}
	if l.console != nil {
		next.console = l.console.With(args...)
	}
	return next
}

// registry holds the package-level logging state.
type registry struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger
	subscribers map[chan Entry]struct{}

	consoleEnabled bool
	consoleLevel   Level
	tuiMode        bool

	buffer *Buffer
}

var reg = &registry{
	loggers:     make(map[string]*Logger),
	components:  make(map[string]Level),
	subscribers: make(map[chan Entry]struct{}),
}

// Init initializes the logging system. Before Init is called all loggers
// write to io.Discard.
func Init(cfg Config) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.initialized {
		if reg.writer != nil {
			if err := reg.writer.Close(); err != nil {
				return fmt.Errorf("closing existing writer: %w", err)
			}
		}
		reg.loggers = make(map[string]*Logger)
		reg.components = make(map[string]Level)
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	reg.level = level

	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		reg.components[comp] = parsed
	}

	reg.tuiMode = cfg.TUIMode
	reg.consoleEnabled = false
	if cfg.ConsoleLevel != "" && !cfg.TUIMode {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		reg.consoleLevel = consoleLevel
		reg.consoleEnabled = true
	}

	if cfg.TUIMode {
		reg.buffer = NewBuffer(DefaultBufferSize)
	} else {
		reg.buffer = nil
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	reg.writer = writer

	reg.initialized = true

	// Rebind loggers handed out before Init.
	for component := range reg.loggers {
		reg.loggers[component] = newLogger(component)
	}

	return nil
}

// Get returns the logger for the given component, creating it on first use.
// Component level overrides from the config take precedence over the
// default level.
func Get(component string) *Logger {
	reg.mu.RLock()
	if logger, ok := reg.loggers[component]; ok {
		reg.mu.RUnlock()
		return logger
	}
	reg.mu.RUnlock()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if logger, ok := reg.loggers[component]; ok {
		return logger
	}

	logger := newLogger(component)
	reg.loggers[component] = logger
	return logger
}

// newLogger builds a component logger. Caller holds reg.mu.
func newLogger(component string) *Logger {
	level := reg.level
	if override, ok := reg.components[component]; ok {
		level = override
	}

	if !reg.initialized {
		return &Logger{
			file: log.NewWithOptions(io.Discard, log.Options{
				Level:  level.toCharmLevel(),
				Prefix: component,
			}),
			component: component,
		}
	}

	logger := &Logger{
		file: log.NewWithOptions(reg.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}

	if reg.consoleEnabled && !reg.tuiMode {
		logger.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           reg.consoleLevel.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if !reg.initialized {
		return nil
	}

	for ch := range reg.subscribers {
		close(ch)
		delete(reg.subscribers, ch)
	}

	if reg.writer != nil {
		if err := reg.writer.Close(); err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
		reg.writer = nil
	}

	reg.initialized = false
	reg.loggers = make(map[string]*Logger)
	reg.components = make(map[string]Level)

	return nil
}

// Subscribe returns a buffered channel receiving log entries. The TUI
// uses this for real-time log panel updates; entries are dropped rather
// than blocking when the subscriber falls behind.
func Subscribe() <-chan Entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ch := make(chan Entry, 100)
	reg.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription channel. The caller drains it.
func Unsubscribe(ch <-chan Entry) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for subCh := range reg.subscribers {
		if subCh == ch {
			delete(reg.subscribers, subCh)
			return
		}
	}
}

func (r *registry) broadcast(entry Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.buffer != nil {
		r.buffer.Add(entry)
	}

	for ch := range r.subscribers {
		select {
		case ch <- entry:
		default:
			// Subscriber is behind; drop.
		}
	}
}

// GetBuffer returns the TUI log buffer, or nil outside TUI mode.
func GetBuffer() *Buffer {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.buffer
}

// DefaultLogPath returns $XDG_STATE_HOME/memtrim/memtrim.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "memtrim", "memtrim.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
