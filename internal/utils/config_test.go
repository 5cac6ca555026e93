package utils

import (
	"strings"
	"testing"
)

func TestLoadConfigDefaultsToSupabase(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Driver != StoreDriverSupabase {
		t.Fatalf("expected supabase driver, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Supabase.URL != "https://example.supabase.co" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Store.Supabase.URL)
	}
	if cfg.Upstream.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected upstream base url %q", cfg.Upstream.BaseURL)
	}
}

func TestLoadConfigReportsMissingSecrets(t *testing.T) {
	t.Setenv("STORE_DRIVER", "supabase")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatalf("expected missing secrets error")
	}

	for _, key := range []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %v", key, err)
		}
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: "sqlite"},
		Upstream: UpstreamConfig{APIKey: "sk-test"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestValidateMongoDriver(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: StoreDriverMongo, Mongo: MongoConfig{URI: "mongodb://localhost:27017"}},
		Upstream: UpstreamConfig{APIKey: "sk-test"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildDSNPrefersExplicitDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "grader",
		Password: "pw",
		Database: "feedback",
	}
	if got := cfg.BuildDSN(); got != "postgres://grader:pw@db:5432/feedback" {
		t.Fatalf("unexpected dsn %q", got)
	}

	cfg.DSN = "postgres://explicit"
	if got := cfg.BuildDSN(); got != "postgres://explicit" {
		t.Fatalf("expected explicit dsn, got %q", got)
	}
}

func TestLoadStoreConfigIgnoresUpstreamKey(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("OPENAI_API_KEY", "")

	store, err := LoadStoreConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Driver != StoreDriverMongo || store.Mongo.URI != "mongodb://db:27017" {
		t.Fatalf("unexpected store config: %+v", store)
	}
}

func TestParseInt32FallsBackOutOfRange(t *testing.T) {
	cases := map[string]int32{
		"16":          16,
		" 4 ":         4,
		"4294967304":  8,
		"-4294967304": 8,
		"eight":       8,
		"":            8,
	}
	for value, want := range cases {
		if got := parseInt32(value, 8); got != want {
			t.Fatalf("parseInt32(%q) = %d, want %d", value, got, want)
		}
	}
}

func TestLoadStoreConfigIgnoresOversizedPoolSize(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://explicit")
	t.Setenv("POSTGRES_MAX_CONNS", "4294967304")

	store, err := LoadStoreConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Postgres.MaxConns != 8 {
		t.Fatalf("expected default max conns, got %d", store.Postgres.MaxConns)
	}
}
