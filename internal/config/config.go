package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the daemon-level configuration. The per-cycle run settings
// (endpoint, key, interval) live in the settings file instead.
type Config struct {
	// Settings file configuration
	Settings SettingsConfig

	// Database configuration
	Database DatabaseConfig

	// Detector configuration
	Detector DetectorConfig

	// Publisher configuration
	Publisher PublisherConfig

	// Guard configuration
	Guard GuardConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Web server configuration
	Web WebConfig
}

// SettingsConfig locates the run settings
type SettingsConfig struct {
	Path string // Empty means ~/.config/livestatus/settings.toml
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// DetectorConfig holds foreground detection configuration
type DetectorConfig struct {
	StepTimeout time.Duration // Bound on each query of the fallback chain
	Push        bool          // Follow window change events instead of querying per tick
}

// PublisherConfig holds network configuration
type PublisherConfig struct {
	Timeout time.Duration // Overall deadline of one publish
}

// GuardConfig holds the wake resource configuration
type GuardConfig struct {
	Timeout time.Duration // Lapse window of the inhibitor if it is not renewed
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile  string // Path to PID file for daemon management
	LockFile string // Path to the singleton lock
	LogFile  string // Output of the detached daemon
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled bool
	Host    string // Host to bind web server to
	Port    int    // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	uid := os.Getuid()
	return &Config{
		Settings: SettingsConfig{
			Path: "",
		},
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/livestatus/livestatus.db
		},
		Detector: DetectorConfig{
			StepTimeout: 2 * time.Second,
			Push:        true,
		},
		Publisher: PublisherConfig{
			Timeout: 30 * time.Second,
		},
		Guard: GuardConfig{
			Timeout: 10 * time.Minute,
		},
		Daemon: DaemonConfig{
			PIDFile:  fmt.Sprintf("/tmp/livestatus-%d.pid", uid),
			LockFile: fmt.Sprintf("/tmp/livestatus-%d.lock", uid),
			LogFile:  fmt.Sprintf("/tmp/livestatus-%d.log", uid),
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    12390,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Detector.StepTimeout <= 0 {
		return fmt.Errorf("detector step timeout must be positive, got %v", c.Detector.StepTimeout)
	}

	if c.Publisher.Timeout < time.Second {
		return fmt.Errorf("publish timeout (%v) cannot be less than 1s", c.Publisher.Timeout)
	}

	if c.Guard.Timeout < time.Minute {
		return fmt.Errorf("guard timeout (%v) cannot be less than 1m", c.Guard.Timeout)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Daemon.LockFile == "" {
		return fmt.Errorf("lock file path cannot be empty")
	}

	if c.Daemon.LogFile == "" {
		return fmt.Errorf("log file path cannot be empty")
	}

	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// WebAddress returns host:port of the local status API
func (c *Config) WebAddress() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Settings:
    Path: %s
  Database:
    Path: %s
  Detector:
    Step Timeout: %v
    Push Events: %v
  Publisher:
    Timeout: %v
  Guard:
    Timeout: %v
  Daemon:
    PID File: %s
    Lock File: %s
    Log File: %s
  Web:
    Enabled: %v
    Host: %s
    Port: %d`,
		c.Settings.Path,
		c.Database.Path,
		c.Detector.StepTimeout,
		c.Detector.Push,
		c.Publisher.Timeout,
		c.Guard.Timeout,
		c.Daemon.PIDFile,
		c.Daemon.LockFile,
		c.Daemon.LogFile,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
	)
}
