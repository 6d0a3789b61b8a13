package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.StoreDriver != "postgres" {
		t.Fatalf("expected postgres driver by default, got %q", cfg.StoreDriver)
	}
	if cfg.GetAPIBasePath() != "/api/v1" {
		t.Fatalf("unexpected base path %q", cfg.GetAPIBasePath())
	}
	if cfg.Kafka.Enabled {
		t.Fatal("kafka should be disabled by default")
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LEDGER_AUDIT_INTERVAL", "90s")
	t.Setenv("FEED_SUBSCRIBER_BUFFER", "not-a-number")
	t.Setenv("DB_NAME", "trips")

	cfg := Load()

	if !cfg.UsesMemoryStore() {
		t.Fatalf("expected memory store, got %q", cfg.StoreDriver)
	}
	if !cfg.Kafka.Enabled {
		t.Fatal("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Audit.Interval != 90*time.Second {
		t.Fatalf("unexpected audit interval %v", cfg.Audit.Interval)
	}
	if cfg.Feed.SubscriberBuffer != 32 {
		t.Fatalf("invalid int should fall back, got %d", cfg.Feed.SubscriberBuffer)
	}
	if cfg.Database.DSN != "host=localhost port=5432 user=busline_user password=busline_password dbname=trips sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.Database.DSN)
	}
}
