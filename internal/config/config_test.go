package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		DefaultSession:      "work",
		APIBaseURL:          "https://api.example.test",
		MessagePollInterval: Duration{3 * time.Second},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.APIBaseURL != "https://api.example.test" {
		t.Errorf("APIBaseURL = %q", loaded.APIBaseURL)
	}
	if loaded.MessagePollInterval.Duration != 3*time.Second {
		t.Errorf("MessagePollInterval = %v, want 3s", loaded.MessagePollInterval)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("default_session = \"main\"\nconversation_poll_interval = \"30s\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ConversationPollInterval.Duration != 30*time.Second {
		t.Errorf("ConversationPollInterval = %v, want 30s", cfg.ConversationPollInterval)
	}
	if cfg.MessagePollInterval.Duration != DefaultMessageInterval {
		t.Errorf("MessagePollInterval = %v, want %v", cfg.MessagePollInterval, DefaultMessageInterval)
	}
	if cfg.CacheNamespace != DefaultCacheNamespace {
		t.Errorf("CacheNamespace = %q, want %q", cfg.CacheNamespace, DefaultCacheNamespace)
	}
	if cfg.DBBusyTimeout.Duration != DefaultDBBusyTimeout {
		t.Errorf("DBBusyTimeout = %v, want %v", cfg.DBBusyTimeout, DefaultDBBusyTimeout)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("message_poll_interval = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid duration")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
