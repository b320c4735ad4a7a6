package xlog_test

import (
	"testing"

	"github.com/omeyang/xroll/pkg/observability/xlog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    xlog.Level
		wantErr bool
	}{
		{"debug", xlog.LevelDebug, false},
		{"INFO", xlog.LevelInfo, false},
		{" warn ", xlog.LevelWarn, false},
		{"Warning", xlog.LevelWarn, false},
		{"error", xlog.LevelError, false},
		{"", xlog.LevelInfo, true},
		{"trace", xlog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := xlog.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelText(t *testing.T) {
	text, err := xlog.LevelWarn.MarshalText()
	if err != nil || string(text) != "WARN" {
		t.Fatalf("MarshalText() = %q, %v", text, err)
	}

	var l xlog.Level
	if err := l.UnmarshalText([]byte("debug")); err != nil || l != xlog.LevelDebug {
		t.Fatalf("UnmarshalText(debug) = %v, %v", l, err)
	}
	if err := l.UnmarshalText([]byte("loud")); err == nil {
		t.Fatal("UnmarshalText(loud) error = nil")
	}
	if l != xlog.LevelDebug {
		t.Errorf("failed UnmarshalText changed level to %v", l)
	}
	if got := (xlog.LevelInfo + 2).String(); got != "INFO+2" {
		t.Errorf("String() = %q", got)
	}
}
