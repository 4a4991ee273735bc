package log

import "testing"

func TestParseLogLevelPublic(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
		ok    bool
	}{
		{"debug", DebugLevel, true},
		{"INFO", InfoLevel, true},
		{"Warn", WarnLevel, true},
		{"warning", WarnLevel, true},
		{"error", ErrorLevel, true},
		{"fatal", FatalLevel, true},
		{"bogus", InfoLevel, false},
		{"", InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := ParseLogLevel(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLogLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	if DebugLevel.String() != "debug" {
		t.Errorf("DebugLevel.String() = %q, want %q", DebugLevel.String(), "debug")
	}
	if LogLevel(99).String() != "unknown" {
		t.Errorf("unrecognized LogLevel.String() = %q, want %q", LogLevel(99).String(), "unknown")
	}
}
