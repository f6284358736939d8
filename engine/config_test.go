package main

import "testing"

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HashMB != 64 || cfg.Threads != 1 || cfg.MoveOverheadMs != 80 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Style != "Normal" {
		t.Fatalf("default style must be Normal, got %q", cfg.Style)
	}
}

func TestConfigStoreUpdate(t *testing.T) {
	store := NewConfigStore()
	store.Update(func(c *Config) { c.Threads = 8 })
	if got := store.Get().Threads; got != 8 {
		t.Fatalf("update not visible: %d", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FIANCHETTO_HASH_MB", "256")
	t.Setenv("FIANCHETTO_THREADS", "4")
	t.Setenv("FIANCHETTO_STYLE", "Petrosian")
	t.Setenv("FIANCHETTO_LOG_SEARCH_STATS", "true")

	store := NewConfigStore()
	store.ApplyEnv()
	cfg := store.Get()
	if cfg.HashMB != 256 || cfg.Threads != 4 || cfg.Style != "Petrosian" || !cfg.LogSearchStats {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
}

func TestApplyEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("FIANCHETTO_HASH_MB", "not-a-number")
	t.Setenv("FIANCHETTO_STYLE", "Kasparov")

	store := NewConfigStore()
	store.ApplyEnv()
	cfg := store.Get()
	if cfg.HashMB != 64 {
		t.Fatalf("invalid hash value must keep the default, got %d", cfg.HashMB)
	}
	if cfg.Style != "Normal" {
		t.Fatalf("unknown style must keep the default, got %q", cfg.Style)
	}
}
