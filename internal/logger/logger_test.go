package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("debug")

	levels := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range levels {
		t.Run(in, func(t *testing.T) {
			SetLevel(in)
			require.Equal(t, want, zerolog.GlobalLevel())
		})
	}
}

func TestSetFormat(t *testing.T) {
	original := Log
	defer func() { Log = original }()

	t.Run("json", func(t *testing.T) {
		SetFormat("json")
		require.NotNil(t, Log)
	})

	t.Run("console", func(t *testing.T) {
		SetFormat("console")
		require.NotNil(t, Log)
	})
}

func TestForUser(t *testing.T) {
	original := Log
	defer func() { Log = original }()

	var buf bytes.Buffer
	Log = zerolog.New(&buf)

	l := ForUser(42)
	l.Info().Msg("hello")

	require.Contains(t, buf.String(), `"user_hash":"`+HashUserID(42)+`"`)
	require.NotContains(t, buf.String(), `"42"`)
}
