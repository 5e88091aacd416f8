package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "127.0.0.1:8787" {
		t.Fatalf("want loopback default, got %q", cfg.Addr)
	}
	if cfg.DBPath != "ffe_pre_engage.sqlite" {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.HTTPTimeout)
	}
	if cfg.WebhookURL != "" {
		t.Fatalf("webhook must default to disabled, got %q", cfg.WebhookURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("WEBHOOK_URL", "https://hooks.example/ffe")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" || cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.WebhookURL != "https://hooks.example/ffe" {
		t.Fatalf("webhook override not applied: %q", cfg.WebhookURL)
	}
}
