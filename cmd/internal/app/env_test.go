package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("CRABBA_TEST_STR", "")
	if got := EnvString("CRABBA_TEST_STR", "def"); got != "def" {
		t.Fatalf("empty var: got %q", got)
	}
	t.Setenv("CRABBA_TEST_STR", "  value  ")
	if got := EnvString("CRABBA_TEST_STR", "def"); got != "value" {
		t.Fatalf("trimmed var: got %q", got)
	}
}

func TestEnvFirstString(t *testing.T) {
	t.Setenv("CRABBA_TEST_NEW", "")
	t.Setenv("CRABBA_TEST_OLD", "legacy-value")
	if got := EnvFirstString("def", "CRABBA_TEST_NEW", "CRABBA_TEST_OLD"); got != "legacy-value" {
		t.Fatalf("legacy fallback: got %q", got)
	}

	t.Setenv("CRABBA_TEST_NEW", "new-value")
	if got := EnvFirstString("def", "CRABBA_TEST_NEW", "CRABBA_TEST_OLD"); got != "new-value" {
		t.Fatalf("first key must win: got %q", got)
	}

	t.Setenv("CRABBA_TEST_NEW", "")
	t.Setenv("CRABBA_TEST_OLD", "")
	if got := EnvFirstString("def", "CRABBA_TEST_NEW", "CRABBA_TEST_OLD"); got != "def" {
		t.Fatalf("default: got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("CRABBA_TEST_BOOL", "true")
	if !EnvBool("CRABBA_TEST_BOOL", false) {
		t.Fatalf("true not parsed")
	}
	t.Setenv("CRABBA_TEST_BOOL", "nope")
	if !EnvBool("CRABBA_TEST_BOOL", true) {
		t.Fatalf("invalid value must fall back to default")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("CRABBA_TEST_INT", "42")
	if got := EnvInt("CRABBA_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("CRABBA_TEST_INT", "-3")
	if got := EnvInt("CRABBA_TEST_INT", 7); got != 7 {
		t.Fatalf("non-positive must fall back, got %d", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("CRABBA_TEST_DUR", "90s")
	if got := EnvDuration("CRABBA_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("got %v", got)
	}
	t.Setenv("CRABBA_TEST_DUR", "-5m")
	if got := EnvDuration("CRABBA_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("negative must fall back, got %v", got)
	}
}

func TestEnvStrings(t *testing.T) {
	t.Setenv("CRABBA_TEST_LIST", "")
	def := []string{"localhost"}
	got := EnvStrings("CRABBA_TEST_LIST", def)
	if len(got) != 1 || got[0] != "localhost" {
		t.Fatalf("default: got %v", got)
	}

	t.Setenv("CRABBA_TEST_LIST", "a, b ,,c")
	got = EnvStrings("CRABBA_TEST_LIST", def)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("parsed: got %v", got)
	}
}
