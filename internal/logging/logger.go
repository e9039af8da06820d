package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger levels
const (
	DEBUG = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	globalLogger *Logger
	globalMu     sync.Mutex

	defaultLogDir  = filepath.Join(".mlbstats", "logs")
	defaultLogFile = "mlbstats.log"
	maxLogSize     = int64(10 * 1024 * 1024) // 10MB
	maxLogAge      = 7 * 24 * time.Hour
)

// Logger writes leveled, timestamped lines to a rotating log file and,
// optionally, to a mirror writer such as stderr.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	logger  *log.Logger
	mirror  io.Writer
	level   int
	logPath string

	maxSize     int64
	currentSize int64
}

// Initialize sets up the global logger under projectDir. Calling it again
// replaces the previous logger.
func Initialize(projectDir string) error {
	l := &Logger{level: INFO, maxSize: maxLogSize}
	if err := l.open(filepath.Join(projectDir, defaultLogDir)); err != nil {
		return err
	}

	globalMu.Lock()
	old := globalLogger
	globalLogger = l
	globalMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// New returns a logger that writes only to w. Useful in tests and for
// commands that should not touch the project directory.
func New(w io.Writer, level int) *Logger {
	return &Logger{
		logger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		level:  level,
	}
}

// GetLogger returns the global logger. Before Initialize has been called it
// falls back to a WARN-level logger on stderr.
func GetLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = New(os.Stderr, WARN)
	}
	return globalLogger
}

// SetLogger swaps the global logger and returns the previous one.
func SetLogger(l *Logger) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	old := globalLogger
	globalLogger = l
	return old
}

func (l *Logger) open(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	l.logPath = filepath.Join(logDir, defaultLogFile)
	return l.openLogFile()
}

func (l *Logger) openLogFile() error {
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if info, err := file.Stat(); err == nil {
		l.currentSize = info.Size()
	}

	l.file = file
	l.logger = log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return nil
}

// rotateIfNeeded moves the current file aside once it exceeds maxSize.
func (l *Logger) rotateIfNeeded() error {
	if l.file == nil || l.currentSize < l.maxSize {
		return nil
	}

	l.file.Close()

	timestamp := time.Now().Format("20060102-150405")
	rotatedPath := filepath.Join(filepath.Dir(l.logPath), fmt.Sprintf("mlbstats-%s.log", timestamp))
	if err := os.Rename(l.logPath, rotatedPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	if err := l.openLogFile(); err != nil {
		return err
	}

	go l.cleanOldLogs()
	return nil
}

// cleanOldLogs removes rotated files older than maxLogAge.
func (l *Logger) cleanOldLogs() {
	logDir := filepath.Dir(l.logPath)
	files, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxLogAge)
	for _, file := range files {
		if file.IsDir() || file.Name() == defaultLogFile || filepath.Ext(file.Name()) != ".log" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(logDir, file.Name()))
		}
	}
}

func (l *Logger) write(level int, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.logger == nil {
		return
	}

	l.rotateIfNeeded()

	msg := fmt.Sprintf(format, v...)
	fullMsg := fmt.Sprintf("[%s] %s", getLevelString(level), strings.TrimRight(msg, "\n"))

	l.logger.Output(3, fullMsg)
	if l.mirror != nil {
		fmt.Fprintln(l.mirror, fullMsg)
	}

	l.currentSize += int64(len(fullMsg)) + 1
}

func getLevelString(level int) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name ("debug", "info", ...) to its constant.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", name)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) { l.write(DEBUG, format, v...) }

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) { l.write(INFO, format, v...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) { l.write(WARN, format, v...) }

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) { l.write(ERROR, format, v...) }

// SetLevel sets the logging level
func (l *Logger) SetLevel(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetMirror copies every emitted line to w (nil disables).
func (l *Logger) SetMirror(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = w
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.logger = nil
		return err
	}
	return nil
}

// GetLogPath returns the current log file path, or "" for loggers made
// with New.
func (l *Logger) GetLogPath() string {
	return l.logPath
}

// Debug logs a debug message using the global logger
func Debug(format string, v ...interface{}) { GetLogger().Debug(format, v...) }

// Info logs an info message using the global logger
func Info(format string, v ...interface{}) { GetLogger().Info(format, v...) }

// Warn logs a warning message using the global logger
func Warn(format string, v ...interface{}) { GetLogger().Warn(format, v...) }

// Error logs an error message using the global logger
func Error(format string, v ...interface{}) { GetLogger().Error(format, v...) }

// Writer returns an io.Writer that logs each write at INFO.
func Writer() io.Writer {
	return &logWriter{}
}

type logWriter struct{}

func (w *logWriter) Write(p []byte) (n int, err error) {
	GetLogger().Info("%s", p)
	return len(p), nil
}

// RedirectStandardLog redirects the standard log package to the global logger.
func RedirectStandardLog() {
	log.SetOutput(Writer())
	log.SetFlags(0)
}
