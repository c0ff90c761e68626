package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds every setting the service reads at start-up.
type Config struct {
	Port string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	JWTSecret          string

	// Tables selects the catalog tables backend: "rest" (PostgREST) or "postgres".
	Tables      string
	DatabaseURL string

	SessionSecret string
	RolloutKey    string

	LogLevel string
	LogMode  string
	LogFile  string

	WhatsAppNumber string
	GatewayTimeout time.Duration
	ViewTTL        time.Duration
	MaxViews       int
}

// Load reads a local .env when one exists, then the process environment.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Println("error loading .env file:", err)
		} else {
			log.Println(".env file loaded")
		}
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		JWTSecret:          getEnv("SUPABASE_JWT_SECRET", ""),
		Tables:             strings.ToLower(getEnv("CATALOG_TABLES", "rest")),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		RolloutKey:         getEnv("ROLLOUT_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogMode:            getEnv("LOG_MODE", "development"),
		LogFile:            getEnv("LOG_FILE", ""),
		WhatsAppNumber:     getEnv("WHATSAPP_NUMBER", "917307262985"),
		GatewayTimeout:     getDuration("GATEWAY_TIMEOUT", 10*time.Second),
		ViewTTL:            getDuration("VIEW_TTL", 30*time.Minute),
		MaxViews:           getInt("MAX_VIEWS", 1024),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := cast.ToIntE(v)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
