package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton
// Should be called once at application startup
func Initialize() error {
	v = viper.New()

	// Set config file name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config search paths (in order of precedence)
	// 1. Walk up from CWD to find a project .burndown/ directory
	//    This allows commands to work from subdirectories
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			appDir := filepath.Join(dir, ".burndown")
			configPath := filepath.Join(appDir, "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.AddConfigPath(appDir)
				break
			}
			if info, err := os.Stat(appDir); err == nil && info.IsDir() {
				v.AddConfigPath(appDir)
				break
			}
		}

		v.AddConfigPath(filepath.Join(cwd, ".burndown"))
	}

	// 2. User config directory (~/.config/burndown/)
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "burndown"))
	}

	// 3. Home directory (~/.burndown/)
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".burndown"))
	}

	// Automatic environment variable binding
	// Environment variables take precedence over config file
	// E.g., BURNDOWN_ADDR, BURNDOWN_DB, BURNDOWN_LOG_FILE
	v.SetEnvPrefix("BURNDOWN")

	// Replace hyphens and dots with underscores for env var mapping
	// This allows BURNDOWN_LOG_FILE to map to the "log-file" config key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Set defaults for all settings
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", defaultDBPath())
	v.SetDefault("log-file", "")
	v.SetDefault("token-ttl", 24*time.Hour)
	v.SetDefault("bcrypt-cost", 10)
	v.SetDefault("shutdown-timeout", 10*time.Second)
	v.SetDefault("token-purge-interval", time.Hour)

	// Log rotation knobs
	v.SetDefault("log-max-size", 10)   // MB
	v.SetDefault("log-max-backups", 3) // files
	v.SetDefault("log-max-age", 7)     // days
	v.SetDefault("log-compress", true)

	// Read config file if it exists (don't error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// defaultDBPath places the database under the user's home directory,
// falling back to the working directory.
func defaultDBPath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".burndown", "burndown.db")
	}
	return "burndown.db"
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
