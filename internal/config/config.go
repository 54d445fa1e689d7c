package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Station feed addressing.
	FeedBaseURL string
	Site        int
	Device      int

	// HTTPTimeout bounds one outbound feed fetch.
	HTTPTimeout time.Duration

	// FetchInterval controls how often the current day is re-ingested.
	FetchInterval time.Duration

	// DBPath is the DuckDB database file; empty means in-memory.
	DBPath string

	// Graph rendering collaborator (out-of-process).
	GraphCommand string
	GraphDir     string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.FeedBaseURL = getenvDefault("FEED_BASE_URL", "http://203.239.47.148:8080")
	cfg.Site = getenvInt("SITE", 85)
	cfg.Device = getenvInt("DEVICE", 1)

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// Ingestion interval: default 10 minutes. Re-ingesting the same day is
	// harmless, the store drops duplicates.
	intervalStr := getenvDefault("FETCH_INTERVAL", "10m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	cfg.DBPath = getenvDefault("DB_PATH", "aws_log.db")
	cfg.GraphCommand = getenvDefault("GRAPH_CMD", "python3 aws_graph.py")
	cfg.GraphDir = getenvDefault("GRAPH_DIR", "./graphs")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
