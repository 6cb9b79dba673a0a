package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the relay configuration.
// Everything has a sensible local default; nothing is required.
type Config struct {
	Host           string // Interface to bind, localhost by default
	Port           int    // Preferred WebSocket port
	AutoPort       bool   // Scan for the next free port when Port is taken
	PortProbeLimit int    // How many successive ports to try in auto mode
	PortFile       string // Sidecar file publishing the bound port
	PlaylistFile   string // JSON file holding the saved playlist
	// 日志配置
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		Host:           getEnv("RELAY_HOST", "127.0.0.1"),
		Port:           getEnvInt("RELAY_PORT", 8765),
		AutoPort:       getEnvBool("RELAY_AUTO_PORT", false),
		PortProbeLimit: getEnvInt("RELAY_PORT_PROBE_LIMIT", 10),
		PortFile:       getEnv("RELAY_PORT_FILE", ".relay_port"),
		PlaylistFile:   getEnv("PLAYLIST_FILE", "saved_playlist.json"),
		// 日志默认输出到控制台
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
