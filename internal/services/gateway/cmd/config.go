package main

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	TrackerURL      string
	TimeoutMs       int
	BreakerFailures int
	BreakerOpenMs   int
	LogLevel        string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func loadConfig() Config {
	return Config{
		Port:            getenv("PORT", "5009"),
		TrackerURL:      getenv("TRACKER_URL", "http://efficiency-tracker:8080"),
		TimeoutMs:       getenvInt("TIMEOUT_MS", 3000),
		BreakerFailures: getenvInt("CB_FAILS", 3),
		BreakerOpenMs:   getenvInt("CB_OPEN_MS", 15000),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}
}

func (c Config) timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }
func (c Config) openFor() time.Duration { return time.Duration(c.BreakerOpenMs) * time.Millisecond }
