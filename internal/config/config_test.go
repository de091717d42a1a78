package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DB_DRIVER", "JWT_EXPIRATION_HOURS", "CORS_ORIGINS", "ENABLE_GUEST_AUTH", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" || c.JWTExpiration != 24*time.Hour {
		t.Fatalf("defaults = %+v", c)
	}
	if !c.EnableGuestAuth || c.RedisURL != "" || c.LinkCacheTTL != 5*time.Minute {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("REQUEST_TIMEOUT_SEC", "bogus")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ENABLE_GUEST_AUTH", "no")
	c := FromEnv()
	if c.DBDriver != "postgres" || c.JWTExpiration != 2*time.Hour || c.RequestTimeout != 30*time.Second {
		t.Fatalf("overrides = %+v", c)
	}
	if !reflect.DeepEqual(c.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("origins = %v", c.CORSOrigins)
	}
	if c.EnableGuestAuth {
		t.Fatal("guest auth should be off")
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")
	t.Setenv("AUTH_HMAC_SECRET", "from-env")

	f := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(f, []byte("HTTP_ADDR=:9999\nAUTH_HMAC_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("HTTP_ADDR") })

	c := Load(f, filepath.Join(t.TempDir(), "missing.env"))
	if c.HTTPAddr != ":9999" {
		t.Fatalf("addr = %q", c.HTTPAddr)
	}
	if c.AuthHMACSecret != "from-env" {
		t.Fatalf("existing env must win, got %q", c.AuthHMACSecret)
	}
}
