package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func prettyLine(t *testing.T, color bool, build func(log *slog.Logger)) string {
	t.Helper()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, color)
	build(slog.New(h))
	return strings.TrimRight(buf.String(), "\n")
}

func TestPrettyHandler_PlainOutput(t *testing.T) {
	line := prettyLine(t, false, func(log *slog.Logger) {
		log.Info("http.request",
			"method", "GET",
			"path", "/auth/token",
			"status", 200,
			"duration_ms", int64(12),
		)
	})

	for _, want := range []string{
		"lvl=[INFO]",
		"msg=http.request",
		"method=GET",
		"path=/auth/token",
		"status=200",
		"duration=12ms",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("line missing %q: %s", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("color escapes in colorless output: %q", line)
	}
}

func TestPrettyHandler_ColorsAreStrippable(t *testing.T) {
	colored := prettyLine(t, true, func(log *slog.Logger) {
		log.Error("bridge.provision.fail", "status", 500, "outcome", "failed")
	})
	plain := stripANSI(colored)

	if colored == plain {
		t.Fatalf("expected color escapes in colored output")
	}
	for _, want := range []string{"lvl=[ERROR]", "status=500", "outcome=failed"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("stripped line missing %q: %s", want, plain)
		}
	}
}

func TestPrettyHandler_QuotesValuesWithSpaces(t *testing.T) {
	line := prettyLine(t, false, func(log *slog.Logger) {
		log.Info("msg", "user_agent", "Mozilla/5.0 (X11)")
	})
	if !strings.Contains(line, `user_agent="Mozilla/5.0 (X11)"`) {
		t.Fatalf("value not quoted: %s", line)
	}
}

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	line := prettyLine(t, false, func(log *slog.Logger) {
		log.With("component", "bridge").WithGroup("db").Info("query", "table", "profiles")
	})
	if !strings.Contains(line, "component=bridge") {
		t.Fatalf("pre-bound attr missing: %s", line)
	}
	if !strings.Contains(line, "db.table=profiles") {
		t.Fatalf("group prefix missing: %s", line)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error disabled at warn level")
	}
}

func TestValueToString_Kinds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   slog.Value
		want string
	}{
		{in: slog.StringValue("x"), want: "x"},
		{in: slog.IntValue(-7), want: "-7"},
		{in: slog.Uint64Value(7), want: "7"},
		{in: slog.BoolValue(true), want: "true"},
		{in: slog.DurationValue(2 * time.Second), want: "2s"},
		{in: slog.TimeValue(now), want: "2026-08-30T12:00:00Z"},
	}

	for _, tc := range cases {
		if got := valueToString(tc.in); got != tc.want {
			t.Fatalf("valueToString(%v)=%q want=%q", tc.in, got, tc.want)
		}
	}
}
