package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	if settingsPath := os.Getenv("LIVESTATUS_SETTINGS"); settingsPath != "" {
		cfg.Settings.Path = settingsPath
	}

	// Database configuration
	if dbPath := os.Getenv("LIVESTATUS_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Detector configuration
	if timeout, ok := durationFromEnv("LIVESTATUS_STEP_TIMEOUT_MS", time.Millisecond); ok {
		cfg.Detector.StepTimeout = timeout
	}

	if push := os.Getenv("LIVESTATUS_PUSH_EVENTS"); push != "" {
		if val, err := strconv.ParseBool(push); err == nil {
			cfg.Detector.Push = val
		}
	}

	if timeout, ok := durationFromEnv("LIVESTATUS_HTTP_TIMEOUT", time.Second); ok {
		cfg.Publisher.Timeout = timeout
	}

	if timeout, ok := durationFromEnv("LIVESTATUS_WAKE_TIMEOUT", time.Second); ok {
		cfg.Guard.Timeout = timeout
	}

	// Daemon configuration
	if pidFile := os.Getenv("LIVESTATUS_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if lockFile := os.Getenv("LIVESTATUS_LOCK_FILE"); lockFile != "" {
		cfg.Daemon.LockFile = lockFile
	}

	if logFile := os.Getenv("LIVESTATUS_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Web configuration
	if webEnabled := os.Getenv("LIVESTATUS_WEB"); webEnabled != "" {
		if val, err := strconv.ParseBool(webEnabled); err == nil {
			cfg.Web.Enabled = val
		}
	}

	if webHost := os.Getenv("LIVESTATUS_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("LIVESTATUS_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// durationFromEnv reads a positive integer count of unit
func durationFromEnv(name string, unit time.Duration) (time.Duration, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
