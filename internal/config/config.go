package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	// Storage selects where session records live: sqlite or redis.
	Storage  string
	RedisURL string

	// CatalogURL is a remote JSON catalog; empty serves the seeded sqlite one.
	CatalogURL     string
	CatalogTimeout time.Duration

	DebounceWindow time.Duration
	ToastTTL       time.Duration
	CheckoutDelay  time.Duration
	SessionIdle    time.Duration
	TaxRate        float64
}

func Load() Config {
	// .env is optional
	_ = godotenv.Load()

	cfg := Config{
		Port:           env("PORT", "8081"),
		DBDSN:          env("DB_DSN", "storefront.db"), // sqlite file in project root
		LogFile:        env("LOG_FILE", "./storefront.log"),
		Storage:        env("STORAGE", StorageSQLite),
		RedisURL:       env("REDIS_URL", "redis://localhost:6379/0"),
		CatalogURL:     os.Getenv("CATALOG_URL"),
		CatalogTimeout: duration("CATALOG_TIMEOUT", 5*time.Second),
		DebounceWindow: duration("DEBOUNCE_WINDOW", 300*time.Millisecond),
		ToastTTL:       duration("TOAST_TTL", 3000*time.Millisecond),
		CheckoutDelay:  duration("CHECKOUT_DELAY", 2000*time.Millisecond),
		SessionIdle:    duration("SESSION_IDLE", 30*time.Minute),
		TaxRate:        rate("TAX_RATE", 0.10),
	}
	if cfg.Storage != StorageSQLite && cfg.Storage != StorageRedis {
		log.Printf("[config] unknown STORAGE=%q, using %s", cfg.Storage, StorageSQLite)
		cfg.Storage = StorageSQLite
	}
	if os.Getenv("LOG_FILE") == "-" {
		cfg.LogFile = ""
	}

	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s STORAGE=%s CATALOG_URL=%q DEBOUNCE_WINDOW=%s TOAST_TTL=%s CHECKOUT_DELAY=%s SESSION_IDLE=%s TAX_RATE=%.2f",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.Storage, cfg.CatalogURL,
		cfg.DebounceWindow, cfg.ToastTTL, cfg.CheckoutDelay, cfg.SessionIdle, cfg.TaxRate)
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Printf("[config] bad %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

func rate(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 1 {
		log.Printf("[config] bad %s=%q, using %.2f", key, raw, def)
		return def
	}
	return f
}
