package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{level: level, out: log.New(&buf, "", 0)}, &buf
}

func TestParseLevelRecognizesEachNamedLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("Error"))
	assert.Equal(t, LevelSilent, ParseLevel("SILENT"))
}

func TestParseLevelDefaultsToInfoForUnknownValue(t *testing.T) {
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}

func TestLoggerSuppressesBelowConfiguredLevel(t *testing.T) {
	l, buf := newTestLogger(LevelWarn)
	l.Debugf("debug message")
	l.Infof("info message")
	assert.Empty(t, buf.String())

	l.Warnf("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestLoggerSilentLevelSuppressesEverything(t *testing.T) {
	l, buf := newTestLogger(LevelSilent)
	l.Debugf("a")
	l.Infof("b")
	l.Warnf("c")
	l.Errorf("d")
	l.Done("e")
	assert.Empty(t, buf.String())
}

func TestDonePrefixesCheckmark(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)
	l.Done("migrated %d projects", 3)
	assert.True(t, strings.HasPrefix(buf.String(), "✓ migrated 3 projects"))
}

func TestErrorfPrefixesLevelLabel(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)
	l.Errorf("something broke")
	assert.True(t, strings.HasPrefix(buf.String(), "ERROR something broke"))
}
