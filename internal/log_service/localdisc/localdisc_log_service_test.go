package localdisc

import (
	"os"
	"strings"
	"testing"

	"github.com/AnishMulay/sandfile/internal/log_service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDiscLogService_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		minLevel string
		wantIn   []string
		wantOut  []string
	}{
		{
			name:     "info drops debug",
			minLevel: "INFO",
			wantIn:   []string{"INFO: info message", "WARN: warn message", "ERROR: error message"},
			wantOut:  []string{"DEBUG: debug message"},
		},
		{
			name:     "error keeps only errors",
			minLevel: "error",
			wantIn:   []string{"ERROR: error message"},
			wantOut:  []string{"DEBUG: debug message", "INFO: info message", "WARN: warn message"},
		},
		{
			name:     "no level keeps everything",
			minLevel: "",
			wantIn:   []string{"DEBUG: debug message", "INFO: info message", "WARN: warn message", "ERROR: error message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls, err := NewLocalDiscLogService(t.TempDir(), "node-a", tt.minLevel)
			require.NoError(t, err)
			t.Cleanup(func() { _ = ls.Close() })

			ls.Debug(log_service.LogEvent{Message: "debug message"})
			ls.Info(log_service.LogEvent{Message: "info message"})
			ls.Warn(log_service.LogEvent{Message: "warn message"})
			ls.Error(log_service.LogEvent{Message: "error message"})

			data, err := os.ReadFile(ls.Path())
			require.NoError(t, err)
			content := string(data)

			for _, s := range tt.wantIn {
				assert.Contains(t, content, s)
			}
			for _, s := range tt.wantOut {
				assert.NotContains(t, content, s)
			}
		})
	}
}

func TestLocalDiscLogService_FormatsMetadataSorted(t *testing.T) {
	ls, err := NewLocalDiscLogService(t.TempDir(), "node-b")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ls.Close() })

	ls.Info(log_service.LogEvent{
		Message:  "file created",
		Metadata: map[string]any{"size": 0, "name": "notes.txt"},
	})

	data, err := os.ReadFile(ls.Path())
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, "[node-b] INFO: file created name=notes.txt size=0")
}

func TestLocalDiscLogService_DropsAfterClose(t *testing.T) {
	ls, err := NewLocalDiscLogService(t.TempDir(), "node-d")
	require.NoError(t, err)

	ls.Info(log_service.LogEvent{Message: "before"})
	require.NoError(t, ls.Close())
	require.NoError(t, ls.Close())
	ls.Info(log_service.LogEvent{Message: "after"})

	data, err := os.ReadFile(ls.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO: before")
	assert.NotContains(t, string(data), "after")
}
