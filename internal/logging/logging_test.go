package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestSetupFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestSetupUnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("chatty", &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestRedactsSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("debug", &buf)

	logger.Info("configured",
		"passphrase", "correct horse",
		"secret_key", "AKIA-SECRET",
		"account_number", "00112233",
		"Address", "12 MG Road",
		"user_id", 7,
	)

	out := buf.String()
	require.NotContains(t, out, "correct horse")
	require.NotContains(t, out, "AKIA-SECRET")
	require.NotContains(t, out, "00112233")
	require.NotContains(t, out, "12 MG Road")
	require.Contains(t, out, "user_id=7")
	require.Contains(t, out, "passphrase=[REDACTED]")
}

func TestRedactsGroupsAndWith(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("info", &buf)

	logger.With("token", "tok-123").Info("upload",
		slog.Group("s3", slog.String("bucket", "vault"), slog.String("access_key", "AK-1")),
	)

	out := buf.String()
	require.NotContains(t, out, "tok-123")
	require.NotContains(t, out, "AK-1")
	require.Contains(t, out, "s3.bucket=vault")
}
