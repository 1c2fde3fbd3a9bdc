package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "defaults", want: zapcore.InfoLevel},
		{name: "debug json", level: "debug", format: "json", want: zapcore.DebugLevel},
		{name: "warn console", level: "warn", format: "console", want: zapcore.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, err := New(tc.level, tc.format)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !log.Core().Enabled(tc.want) {
				t.Errorf("level %s not enabled", tc.want)
			}
			if tc.want > zapcore.DebugLevel && log.Core().Enabled(tc.want-1) {
				t.Errorf("level %s enabled below %s", tc.want-1, tc.want)
			}
		})
	}
}
