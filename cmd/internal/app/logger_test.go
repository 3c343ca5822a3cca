package app

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		t.Run("level "+tc.in, func(t *testing.T) {
			t.Parallel()
			if got := parseLogLevel(tc.in); got != tc.want {
				t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewLoggerHandlerSelection(t *testing.T) {
	if _, ok := NewLogger("info", "json").Handler().(*slog.JSONHandler); !ok {
		t.Fatalf("format json must select the JSON handler")
	}
	if _, ok := NewLogger("info", "").Handler().(*slog.JSONHandler); !ok {
		t.Fatalf("unknown format must fall back to JSON")
	}
	if _, ok := NewLogger("debug", "pretty").Handler().(*prettyHandler); !ok {
		t.Fatalf("format pretty must select the dev handler")
	}
	if _, ok := NewLogger("debug", "text").Handler().(*prettyHandler); !ok {
		t.Fatalf("format text aliases the dev handler")
	}
}
