package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Warn("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[WARN] also shown")

	l.SetLevel(DEBUG)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestLoggerMirror(t *testing.T) {
	var file, mirror bytes.Buffer
	l := New(&file, DEBUG)
	l.SetMirror(&mirror)

	l.Error("boom: %v", "cause")

	assert.Contains(t, file.String(), "[ERROR] boom: cause")
	assert.Equal(t, "[ERROR] boom: cause\n", mirror.String())
}

func TestInitializeWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir))
	t.Cleanup(func() { SetLogger(nil).Close() })

	Info("opened session for %s", "https://example.test")
	require.NoError(t, GetLogger().Close())

	data, err := os.ReadFile(filepath.Join(dir, ".mlbstats", "logs", "mlbstats.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[INFO] opened session for https://example.test"))
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "debug", want: DEBUG},
		{in: " WARN ", want: WARN},
		{in: "", want: INFO},
		{in: "error", want: ERROR},
		{in: "loud", want: INFO, wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
