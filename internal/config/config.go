// Package config reads runtime settings from the environment, optionally seeded from a .env file.
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
	DBPath      string
	Port        string
	CORSOrigins []string

	AggregateInterval     time.Duration
	AggregateQueryTimeout time.Duration
	CollectionBatchSize   int
	DeckBatchSize         int

	OnDemandRatePerSecond float64
	OnDemandBurst         int
}

// Load reads the configuration. A .env file (ENV_FILE or ./.env) is applied first
// without overriding variables that are already set; NO_DOTENV=1 skips it.
func Load() Config {
	if os.Getenv("NO_DOTENV") != "1" {
		path := os.Getenv("ENV_FILE")
		if path == "" {
			path = ".env"
		}
		if err := godotenv.Load(path); err == nil {
			log.Printf("Config: loaded environment from %s", path)
		}
	}

	return Config{
		DBPath:                getString("DB_PATH", "./swu_collection.db"),
		Port:                  getString("PORT", "8080"),
		CORSOrigins:           getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		AggregateInterval:     getDuration("AGGREGATE_INTERVAL", 5*time.Minute),
		AggregateQueryTimeout: getDuration("AGGREGATE_QUERY_TIMEOUT", 30*time.Second),
		CollectionBatchSize:   getInt("COLLECTION_BATCH_SIZE", 25),
		DeckBatchSize:         getInt("DECK_BATCH_SIZE", 250),
		OnDemandRatePerSecond: getFloat("ONDEMAND_RATE_PER_SECOND", 5),
		OnDemandBurst:         getInt("ONDEMAND_BURST", 10),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Config: ignoring invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("Config: ignoring invalid %s=%q, using %g", key, v, def)
		return def
	}
	return f
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Config: ignoring invalid %s=%q, using %v", key, v, def)
		return def
	}
	return d
}
