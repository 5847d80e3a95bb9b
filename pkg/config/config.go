package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	StoreNone     = "none"
	StoreSupabase = "supabase"
	StoreAirtable = "airtable"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all application configuration values
type Config struct {
	Port           string
	GinMode        string
	AllowedOrigins []string
	RequireRole    bool

	Store           string
	SupabaseURL     string
	SupabaseAnonKey string
	SupabaseTable   string
	AirtableAPIKey  string
	AirtableBaseID  string
	AirtableTable   string
	DatabaseURL     string
	SQLitePath      string

	RedisURL string
	LockTTL  time.Duration

	DNSServer  string
	DNSTimeout time.Duration

	GeoCountryHeader string
	GeoCityHeader    string
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RequireRole:    getBool("WAITLIST_REQUIRE_ROLE", true),

		Store:           strings.ToLower(strings.TrimSpace(os.Getenv("WAITLIST_STORE"))),
		SupabaseURL:     strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseTable:   getEnv("SUPABASE_TABLE", "leads"),
		AirtableAPIKey:  os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:  os.Getenv("AIRTABLE_BASE_ID"),
		AirtableTable:   getEnv("AIRTABLE_TABLE", "leads"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      os.Getenv("SQLITE_PATH"),

		RedisURL: os.Getenv("REDIS_URL"),
		LockTTL:  time.Duration(getInt("LOCK_TTL_SECONDS", 30)) * time.Second,

		DNSServer:  os.Getenv("DNS_SERVER"),
		DNSTimeout: time.Duration(getInt("DNS_TIMEOUT_SECONDS", 5)) * time.Second,

		GeoCountryHeader: getEnv("GEO_COUNTRY_HEADER", "X-Vercel-IP-Country"),
		GeoCityHeader:    getEnv("GEO_CITY_HEADER", "X-Vercel-IP-City"),
	}

	if cfg.Store == "" {
		cfg.Store = cfg.inferStore()
	}
	return cfg
}

// DevMode reports whether signups are validated without being persisted
func (c *Config) DevMode() bool {
	return c.Store == StoreNone
}

func (c *Config) inferStore() string {
	switch {
	case c.DatabaseURL != "":
		return StorePostgres
	case c.SupabaseURL != "" && c.SupabaseAnonKey != "":
		return StoreSupabase
	case c.AirtableAPIKey != "" && c.AirtableBaseID != "":
		return StoreAirtable
	case c.SQLitePath != "":
		return StoreSQLite
	default:
		return StoreNone
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
