package app

import "testing"

func TestLoadConfig_HomeserverURLPrecedence(t *testing.T) {
	t.Setenv("CRABBA_MATRIX_HOMESERVER_URL", "")
	t.Setenv("CRABBA_MATRIX_BASE_URL", "")

	if cfg := LoadConfig(); cfg.HomeserverURL != "" {
		t.Fatalf("expected empty homeserver URL, got %q", cfg.HomeserverURL)
	}

	t.Setenv("CRABBA_MATRIX_BASE_URL", "https://legacy.example.org")
	if cfg := LoadConfig(); cfg.HomeserverURL != "https://legacy.example.org" {
		t.Fatalf("legacy var not honored: %q", cfg.HomeserverURL)
	}

	t.Setenv("CRABBA_MATRIX_HOMESERVER_URL", "https://matrix.crabba.net")
	if cfg := LoadConfig(); cfg.HomeserverURL != "https://matrix.crabba.net" {
		t.Fatalf("primary var must win: %q", cfg.HomeserverURL)
	}
}

func TestLoadConfig_BridgeDefaults(t *testing.T) {
	t.Setenv("CRABBA_MATRIX_DOMAIN", "")
	t.Setenv("CRABBA_MATRIX_STALE_DOMAINS", "")
	t.Setenv("CRABBA_BRIDGE_AUTO_PROVISION", "")

	cfg := LoadConfig()
	if cfg.Bridge.ServerDomain != "crabba.net" {
		t.Fatalf("server domain=%q", cfg.Bridge.ServerDomain)
	}
	if len(cfg.Bridge.StaleDomains) != 1 || cfg.Bridge.StaleDomains[0] != "localhost" {
		t.Fatalf("stale domains=%v", cfg.Bridge.StaleDomains)
	}
	if !cfg.Bridge.AutoProvision {
		t.Fatalf("auto-provision should default to on")
	}
}

func TestLoadConfig_BridgeOverrides(t *testing.T) {
	t.Setenv("CRABBA_MATRIX_DOMAIN", "chat.example.org")
	t.Setenv("CRABBA_MATRIX_STALE_DOMAINS", "localhost,old.example.org")
	t.Setenv("CRABBA_BRIDGE_AUTO_PROVISION", "false")
	t.Setenv("CRABBA_SYNC_KEY", "hook-key")

	cfg := LoadConfig()
	if cfg.Bridge.ServerDomain != "chat.example.org" {
		t.Fatalf("server domain=%q", cfg.Bridge.ServerDomain)
	}
	if len(cfg.Bridge.StaleDomains) != 2 {
		t.Fatalf("stale domains=%v", cfg.Bridge.StaleDomains)
	}
	if cfg.Bridge.AutoProvision {
		t.Fatalf("auto-provision override ignored")
	}
	if cfg.Bridge.SyncKey != "hook-key" {
		t.Fatalf("sync key=%q", cfg.Bridge.SyncKey)
	}
}
