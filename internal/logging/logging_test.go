package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-mapper/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.WithField("run", "x").Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "x", line["run"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(config.LogConfig{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)

	log.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
