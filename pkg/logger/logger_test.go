package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestLogLedgerAlarmIsStructured(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo, true, false)

	l.LogLedgerAlarm(context.Background(), "trip-1", errors.New("over credit"), map[string]interface{}{"seats": 2})

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if record["level"] != "ERROR" {
		t.Fatalf("expected ERROR level, got %v", record["level"])
	}
	if record["alarm"] != true {
		t.Fatalf("expected alarm attribute, got %v", record["alarm"])
	}
	if record["trip_id"] != "trip-1" || record["error"] != "over credit" {
		t.Fatalf("unexpected attributes: %v", record)
	}
	if record["seats"] != float64(2) {
		t.Fatalf("expected seats field, got %v", record["seats"])
	}
}

func TestGetLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := getLogLevel(in); got != want {
			t.Errorf("getLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDiscardDropsInfo(t *testing.T) {
	l := Discard()
	if l.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("discard logger should not be enabled for info")
	}
}
