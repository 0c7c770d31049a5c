package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{"", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"Error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
}

// TestSetupJSON verifies Setup writes JSON at the configured level
func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(context.Background(), Options{Level: "warn", Output: &buf}))
	t.Cleanup(func() { _ = Setup(context.Background(), Options{Level: "info"}) })

	Info("hidden")
	Warn("shown", "field", "Gender")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "Gender", rec["field"])
	assert.Equal(t, LevelWarning, GetLevel())
}

func TestCountHTTPStatus(t *testing.T) {
	before5xx := Total5xxErrors.Load()
	before4xx := Total4xxErrors.Load()

	CountHTTPStatus(200)
	CountHTTPStatus(422)
	CountHTTPStatus(500)

	assert.Equal(t, before5xx+1, Total5xxErrors.Load())
	assert.Equal(t, before4xx+1, Total4xxErrors.Load())
}
