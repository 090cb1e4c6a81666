package observability

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"garbage", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		log := NewLogger("test", tc.level)
		assert.Equal(t, tc.want, log.GetLevel(), "level %q", tc.level)
	}
}

// Fatal and friends are pointer-receiver methods, so callers must bind
// the returned logger to a variable before chaining them.
func TestNewLoggerBindsBeforeChaining(t *testing.T) {
	log := NewLogger("boot", "error")
	event := log.Error()
	assert.NotNil(t, event)
	event.Msg("boot check")
}
