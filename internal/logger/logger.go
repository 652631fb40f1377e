package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger provides leveled logging (info/warning/error/debug) to stdout/stderr
// and, optionally, a log file.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	debugLog   *log.Logger
	debug      bool
	file       *os.File
	mu         sync.Mutex
}

// New creates a Logger. When logFile is not empty every level is also
// appended to that file.
func New(logFile string, debug bool) (*Logger, error) {
	var out, errOut io.Writer = os.Stdout, os.Stderr
	var file *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logFile, err)
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
		errOut = io.MultiWriter(os.Stderr, f)
	}

	l := NewWithWriters(out, errOut, debug)
	l.file = file
	return l, nil
}

// NewWithWriters creates a Logger writing info, warning and debug lines to out
// and errors to errOut.
func NewWithWriters(out, errOut io.Writer, debug bool) *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		infoLog:    log.New(out, "INFO    ", flags),
		warningLog: log.New(out, "WARNING ", flags),
		errorLog:   log.New(errOut, "ERROR   ", flags),
		debugLog:   log.New(out, "DEBUG   ", flags|log.Lshortfile),
		debug:      debug,
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriters(io.Discard, io.Discard, false)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// Debug writes a formatted entry only when debug logging is enabled.
func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.debug {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugLog.Output(2, fmt.Sprintf(format, v...))
}

// Fields logs one info line per key, like the startup configuration dump.
func (l *Logger) Fields(fields map[string]string) {
	for k, v := range fields {
		l.Info("%s - %s", k, v)
	}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
