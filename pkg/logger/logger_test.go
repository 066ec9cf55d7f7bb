package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStructured_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newStructured(&buf, "production")

	log.Debug("hidden")
	log.Info("rating submitted", "restaurant_id", "r1", "count", 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rating submitted", entry["msg"])
	assert.Equal(t, "r1", entry["restaurant_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewStructured_DevelopmentIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newStructured(&buf, "development")

	log.Debug("transaction attempt", "attempt", 1)

	assert.Contains(t, buf.String(), "transaction attempt")
	assert.Contains(t, buf.String(), "attempt=1")
}
