package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

type Config struct {
	ServerPort           string `json:"server_port"`
	DatabasePath         string `json:"database_path"`
	AllowedOrigins       string `json:"allowed_origins"`
	GeoapifyAPIKey       string `json:"geoapify_api_key"`
	GeoapifyBaseURL      string `json:"geoapify_base_url"`
	PresenceTTLMinutes   int    `json:"presence_ttl_minutes"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
	Production           bool   `json:"production"`
}

var (
	instance *Config
	once     sync.Once
)

func getConfigPath() string {
	configDir := os.Getenv("MEETPOINT_CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			configDir = "."
		} else {
			configDir = filepath.Join(homeDir, ".meetpoint")
		}
	}
	return filepath.Join(configDir, "config.json")
}

func GetConfig() *Config {
	once.Do(func() {
		instance = &Config{
			ServerPort:      "3000",
			DatabasePath:    "",
			AllowedOrigins:  "http://localhost:5173,http://localhost:3000",
			GeoapifyBaseURL: "https://api.geoapify.com",
		}

		configPath := getConfigPath()

		// Try to load existing config
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, instance); err != nil {
				// Config file is corrupted, will use defaults
			}
		}

		// Set defaults
		if instance.PresenceTTLMinutes == 0 {
			instance.PresenceTTLMinutes = 10
		}
		if instance.SweepIntervalSeconds == 0 {
			instance.SweepIntervalSeconds = 60
		}
		if instance.GeoapifyBaseURL == "" {
			instance.GeoapifyBaseURL = "https://api.geoapify.com"
		}

		needsSave := false
		if instance.DatabasePath == "" {
			configDir := filepath.Dir(configPath)
			instance.DatabasePath = filepath.Join(configDir, "meetpoint.db")
			needsSave = true
		}

		// Override with environment variables
		if port := os.Getenv("MEETPOINT_PORT"); port != "" {
			instance.ServerPort = port
		}
		if dbPath := os.Getenv("MEETPOINT_DB_PATH"); dbPath != "" {
			instance.DatabasePath = dbPath
		}
		if key := os.Getenv("GEOAPIFY_API_KEY"); key != "" {
			instance.GeoapifyAPIKey = key
		}
		if origins := os.Getenv("MEETPOINT_ALLOWED_ORIGINS"); origins != "" {
			instance.AllowedOrigins = origins
		}
		if os.Getenv("MEETPOINT_PRODUCTION") == "true" {
			instance.Production = true
		}

		if needsSave {
			instance.Save()
		}
	})

	return instance
}

func (c *Config) Save() error {
	configPath := getConfigPath()

	// Create config directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}
