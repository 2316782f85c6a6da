package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.ServiceName != "aidis-mcp" {
		t.Fatalf("service name = %q", cfg.Server.ServiceName)
	}
	if cfg.Tools.Prefix != "aidis" {
		t.Fatalf("tool prefix = %q", cfg.Tools.Prefix)
	}
	if cfg.Database.Port != 5432 {
		t.Fatalf("database port = %d", cfg.Database.Port)
	}
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("DATABASE_HOST", "legacy-host")
	t.Setenv("AIDIS_DATABASE_HOST", "preferred-host")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AIDIS_LOG_LEVEL", "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Database.Host != "preferred-host" {
		t.Fatalf("database host = %q, want AIDIS_ form to win", cfg.Database.Host)
	}
	// With the preferred form unset, the legacy form applies.
	if cfg.Log.Level != "error" {
		t.Fatalf("log level = %q, want legacy fallback", cfg.Log.Level)
	}
}

func TestSkipFlags(t *testing.T) {
	t.Setenv("AIDIS_SKIP_DATABASE", "true")
	t.Setenv("AIDIS_SKIP_STDIO", "1")
	t.Setenv("AIDIS_SKIP_BACKGROUND", "not-a-bool")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if !cfg.SkipDatabase {
		t.Fatal("AIDIS_SKIP_DATABASE=true should set SkipDatabase")
	}
	if !cfg.SkipStdio {
		t.Fatal("AIDIS_SKIP_STDIO=1 should set SkipStdio")
	}
	if cfg.SkipBackground {
		t.Fatal("unparseable bool should keep the default")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.yaml")
	body := []byte(`
server:
  host: 0.0.0.0
  port: 9300
database:
  name: aidis_test
log:
  level: debug
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9300 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Database.Name != "aidis_test" {
		t.Fatalf("database name = %q", cfg.Database.Name)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	// Untouched fields keep defaults.
	if cfg.Database.Port != 5432 {
		t.Fatalf("database port = %d, want default", cfg.Database.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing explicit config file")
	}
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, Name: "aidis", User: "svc",
		Password: "secret", SSLMode: "disable",
	}
	dsn := cfg.DSN()
	want := "host=db port=5433 dbname=aidis user=svc sslmode=disable password=secret"
	if dsn != want {
		t.Fatalf("DSN() = %q, want %q", dsn, want)
	}
}
