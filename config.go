package main

import (
	"encoding/json"
	"errors"
	"log"
	"os"
)

const defaultPort = 8000

type DBConfig struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBname   string `json:"dbname"`
}

type Config struct {
	Port int    `json:"port"`
	Dir  string `json:"dir"`

	// Relay mounts the embedded relay on /relay; Metrics mounts
	// Prometheus counters on /metrics. Both default to off so a bare
	// run is just the static demo server.
	Relay   bool      `json:"relay"`
	Metrics bool      `json:"metrics"`
	DB      *DBConfig `json:"db"`
}

// GetConfig reads config.json next to the binary. A missing file is fine
// and yields the defaults; a file that exists but does not parse is a
// startup fault.
func GetConfig(path string) Config {
	config := Config{Port: defaultPort}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := json.Unmarshal(data, &config); err != nil {
		log.Fatalf("invalid config %s: %v", path, err)
	}
	if config.Port == 0 {
		config.Port = defaultPort
	}
	return config
}
