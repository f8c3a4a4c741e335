package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{"ORGADMIN_AUTH_SECRET": testSecret}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":9090" {
		t.Fatalf("unexpected addresses: %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 168*time.Hour {
		t.Fatalf("unexpected ttls: %v %v", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.AuthIssuer != "orgadmin" || !cfg.MigrateOnStart {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"short secret":   {"ORGADMIN_AUTH_SECRET": "short"},
		"refresh below access": {
			"ORGADMIN_AUTH_SECRET": testSecret,
			"ORGADMIN_ACCESS_TTL":  "1h",
			"ORGADMIN_REFRESH_TTL": "30m",
		},
		"bad duration": {
			"ORGADMIN_AUTH_SECRET": testSecret,
			"ORGADMIN_ACCESS_TTL":  "soon",
		},
		"bad cost": {
			"ORGADMIN_AUTH_SECRET": testSecret,
			"ORGADMIN_BCRYPT_COST": "99",
		},
		"bad log format": {
			"ORGADMIN_AUTH_SECRET": testSecret,
			"ORGADMIN_LOG_FORMAT":  "xml",
		},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromEnv(lookupFrom(env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestFromEnvEmptyGRPCAddrDisables(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		"ORGADMIN_AUTH_SECRET": testSecret,
		"ORGADMIN_GRPC_ADDR":   "",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("expected grpc disabled, got %q", cfg.GRPCAddr)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ORGADMIN_AUTH_SECRET="+testSecret+"\nORGADMIN_HTTP_ADDR=:7070\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ORGADMIN_AUTH_SECRET", "")
	os.Unsetenv("ORGADMIN_AUTH_SECRET")
	t.Setenv("ORGADMIN_HTTP_ADDR", "")
	os.Unsetenv("ORGADMIN_HTTP_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("expected address from env file, got %q", cfg.HTTPAddr)
	}
}
