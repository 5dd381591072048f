package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfigure_AttachesServiceAndVersionToEveryLine(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "videofeedd", Version: "1.2.3"})

	WithComponent("pool").Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "videofeedd", entry["service"])
	require.Equal(t, "1.2.3", entry["version"])
	require.Equal(t, "pool", entry["component"])
	require.Equal(t, "hello", entry["message"])
}

func TestConfigure_DefaultsServiceNameWhenUnset(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	L().Info().Msg("x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "divinefeed", entry["service"])
}

func TestSetLevel_ChangesGlobalLevelWithoutReconfiguring(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})

	require.NoError(t, SetLevel("warn"))
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	L().Info().Msg("suppressed")
	require.Empty(t, buf.Bytes(), "info line must be filtered out once the level is raised to warn")

	L().Warn().Msg("kept")
	require.NotEmpty(t, buf.Bytes())
}

func TestSetLevel_RejectsUnknownLevel(t *testing.T) {
	Configure(Config{Level: "info"})
	err := SetLevel("not-a-level")
	require.ErrorIs(t, err, ErrInvalidLogLevel)
}
