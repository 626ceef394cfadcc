package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger is the minimal logging surface used by fetchers and workers.
// Log is the normal info-level line.
type Logger interface {
	Log(format string, args ...any)
	Debug(format string, args ...any)
	Warn(format string, args ...any)
}

// logrusLogger adapts a logrus entry to Logger.
type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Log(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

// NewLogrusLogger wraps a logrus logger tagged with the component name.
func NewLogrusLogger(base *logrus.Logger, component string) Logger {
	return &logrusLogger{entry: base.WithField("component", component)}
}

// prefixLogger wraps a logger with an ID prefix.
type prefixLogger struct {
	id   string
	base Logger
}

func (p *prefixLogger) Log(format string, args ...any) {
	p.base.Log("[%s] "+format, append([]any{p.id}, args...)...)
}

func (p *prefixLogger) Debug(format string, args ...any) {
	p.base.Debug("[%s] "+format, append([]any{p.id}, args...)...)
}

func (p *prefixLogger) Warn(format string, args ...any) {
	p.base.Warn("[%s] "+format, append([]any{p.id}, args...)...)
}

func newShortID() string {
	return uuid.New().String()[:8]
}

type noopLogger struct{}

func (noopLogger) Log(string, ...any)   {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// setupLogging builds the process logger. Output goes to stdout and, when
// logFile is set, is appended to that file as well.
func setupLogging(level, logFile string) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if logFile == "" {
		logger.SetOutput(os.Stdout)
		return logger, io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, f))
	return logger, f, nil
}
