package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration

	DBDriver string
	DBDSN    string

	AuthHMACSecret string
	JWTExpiration  time.Duration

	CORSOrigins     []string
	EnableGuestAuth bool

	// RedisURL empty disables the link cache.
	RedisURL     string
	LinkCacheTTL time.Duration
}

// Load reads an optional .env file (existing variables win) and then the
// environment.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.Printf("[config] %s: %v", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		JWTExpiration:  time.Duration(envInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,

		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		EnableGuestAuth: envBool("ENABLE_GUEST_AUTH", true),

		RedisURL:     envOr("REDIS_URL", ""),
		LinkCacheTTL: time.Duration(envInt("LINK_CACHE_TTL_SEC", 300)) * time.Second,
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] %s=%q is not a positive integer, using %d", k, v, def)
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
