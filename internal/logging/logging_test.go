package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, " WARN ": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigure_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "debug", JSON: true, Output: &buf})
	t.Cleanup(func() { Configure(Options{}) })

	L().Debug("fetched", "artifact", "registry.db")
	if !strings.Contains(buf.String(), `"artifact":"registry.db"`) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

func TestInitFromEnv(t *testing.T) {
	t.Setenv("FEATUREPULL_LOG_LEVEL", "error")
	t.Setenv("FEATUREPULL_LOG_JSON", "true")
	InitFromEnv()
	t.Cleanup(func() { Configure(Options{}) })

	if L().Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("warn should be disabled at error level")
	}
}
