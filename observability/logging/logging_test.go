package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestMaskFieldRedactsUnknownKeys(t *testing.T) {
	attr := MaskField("otlp_headers", "authorization=Bearer secret")
	if attr.Value.String() != RedactedValue {
		t.Fatalf("expected headers to be masked, got %q", attr.Value.String())
	}

	attr = MaskField("network", "meridian-local")
	if attr.Value.String() != "meridian-local" {
		t.Fatalf("allowlisted key must pass through, got %q", attr.Value.String())
	}

	attr = MaskField("otlp_headers", "")
	if attr.Value.String() != "" {
		t.Fatalf("empty values must stay empty, got %q", attr.Value.String())
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("token=abc"); got != RedactedValue {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := MaskValue("  "); got != "  " {
		t.Fatalf("blank values must pass through, got %q", got)
	}
}

func TestRedactionAllowlistIsSortedAndClosed(t *testing.T) {
	keys := RedactionAllowlist()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("allowlist not sorted at %d: %v", i, keys)
		}
	}
	for _, key := range keys {
		if !IsAllowlisted(key) {
			t.Fatalf("reported key %q not actually allowlisted", key)
		}
	}
	if IsAllowlisted("otlp_headers") {
		t.Fatal("credential-bearing key must never be allowlisted")
	}
}
