package logger

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igrepost/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{"debug level", "debug", false},
		{"info level", "info", false},
		{"warn level", "warn", false},
		{"error level", "error", false},
		{"invalid level", "loud", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(&config.LoggingConfig{Level: tt.level})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = parseLogLevel("nope")
	assert.Error(t, err)
}

func TestTestLoggerCapture(t *testing.T) {
	l := NewTestLogger()

	l.Info("poll started")
	l.WithField("item", "abc123").Error("fetch failed")
	l.InfoWithFields("published", map[string]interface{}{"creator": "alice"})

	assert.True(t, l.HasMessage("poll started"))
	assert.True(t, l.HasError())

	errs := l.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "abc123", errs[0].Fields["item"])

	infos := l.GetMessagesByLevel("INFO")
	require.Len(t, infos, 2)
	assert.Equal(t, "alice", infos[1].Fields["creator"])
}

func TestTestLoggerWithError(t *testing.T) {
	l := NewTestLogger()
	l.WithError(errors.New("boom")).Warn("cleanup failed")

	warns := l.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.EqualError(t, warns[0].Error, "boom")
}

func TestDerivedLoggerMergesFields(t *testing.T) {
	l := NewTestLogger()
	l.WithField("poll", 3).WithFields(map[string]interface{}{"item": "xyz"}).Info("processing")

	msgs := l.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 3, msgs[0].Fields["poll"])
	assert.Equal(t, "xyz", msgs[0].Fields["item"])
}
