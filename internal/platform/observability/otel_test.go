package observability

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseLevel(raw), raw)
	}
}

func TestInstruments_NilSafe(t *testing.T) {
	var instruments *Instruments
	assert.NotNil(t, instruments.Tracer("test"))
	assert.NotNil(t, instruments.Meter("test"))
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("SERVICE_VERSION", "1.4.0")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "0.25")

	s := SettingsFromEnv()

	assert.Equal(t, "1.4.0", s.ServiceVersion)
	assert.Equal(t, "local", s.Environment)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.False(t, s.OTLPInsecure)
	assert.Equal(t, 0.25, s.SampleRatio)
}

func TestSettingsFromEnv_IgnoresOutOfRangeRatio(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "3")

	assert.Equal(t, 1.0, SettingsFromEnv().SampleRatio)
}
