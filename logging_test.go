package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixLogger(t *testing.T) {
	rec := &recordingLogger{}
	l := &prefixLogger{id: "abcd1234", base: rec}

	l.Log("GET %s -> %d", "https://example.test/", 200)
	require.Len(t, rec.lines, 1)
	assert.Equal(t, "[abcd1234] GET https://example.test/ -> 200", rec.lines[0])
}

func TestNewShortID(t *testing.T) {
	a, b := newShortID(), newShortID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	NewLogrusLogger(base, "fetch").Log("Following redirect to: %s", "https://example.test/b")

	assert.Contains(t, buf.String(), "component=fetch")
	assert.Contains(t, buf.String(), "Following redirect to: https://example.test/b")
}

func TestLogrusLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.WarnLevel)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	l := NewLogrusLogger(base, "fetch")
	l.Debug("GET https://example.test/ -> 200")
	l.Log("Following redirect to: https://example.test/b")
	l.Warn("cloudflare challenge detected at https://example.test/b")

	assert.NotContains(t, buf.String(), "-> 200")
	assert.NotContains(t, buf.String(), "Following redirect")
	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), "challenge detected")

	buf.Reset()
	base.SetLevel(logrus.DebugLevel)
	l.Debug("GET https://example.test/ -> 200")
	assert.Contains(t, buf.String(), "level=debug")
}

func TestSetupLogging(t *testing.T) {
	_, _, err := setupLogging("loud", "")
	assert.ErrorContains(t, err, "invalid log level")

	path := filepath.Join(t.TempDir(), "cloakfetch.log")
	logger, closer, err := setupLogging("debug", path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
