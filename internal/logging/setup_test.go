package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSONMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := Configure(Options{Level: "debug", JSON: true, Writer: &buf, Logger: logrus.New()})

	logger.WithFields(logrus.Fields{
		"dsn":           "postgres://admin:hunter2@db:5432/records",
		logrus.ErrorKey: errors.New("dial postgres://admin:hunter2@db:5432/records failed"),
	}).Debug("opening backend")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "opening backend", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "postgres://*:*@db:5432/records", entry["dsn"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"":        logrus.InfoLevel,
		"TRACE":   logrus.TraceLevel,
		"debug":   logrus.DebugLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Configure(Options{Level: "info", Writer: &buf, Logger: logrus.New()})
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}
