package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitialize(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if v == nil {
		t.Fatal("viper instance is nil after Initialize()")
	}
}

func TestDefaults(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"addr", ":8080", func(k string) interface{} { return GetString(k) }},
		{"log-file", "", func(k string) interface{} { return GetString(k) }},
		{"token-ttl", 24 * time.Hour, func(k string) interface{} { return GetDuration(k) }},
		{"bcrypt-cost", 10, func(k string) interface{} { return GetInt(k) }},
		{"shutdown-timeout", 10 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"log-max-size", 10, func(k string) interface{} { return GetInt(k) }},
		{"log-compress", true, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"BURNDOWN_ADDR", "addr", ":9090", ":9090", func(k string) interface{} { return GetString(k) }},
		{"BURNDOWN_DB", "db", "/tmp/test.db", "/tmp/test.db", func(k string) interface{} { return GetString(k) }},
		{"BURNDOWN_LOG_FILE", "log-file", "/tmp/burndown.log", "/tmp/burndown.log", func(k string) interface{} { return GetString(k) }},
		{"BURNDOWN_TOKEN_TTL", "token-ttl", "12h", 12 * time.Hour, func(k string) interface{} { return GetDuration(k) }},
		{"BURNDOWN_BCRYPT_COST", "bcrypt-cost", "4", 4, func(k string) interface{} { return GetInt(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			oldValue := os.Getenv(tt.envVar)
			_ = os.Setenv(tt.envVar, tt.value)
			defer os.Setenv(tt.envVar, oldValue)

			err := Initialize()
			if err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}

			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
addr: ":7070"
bcrypt-cost: 6
token-ttl: 48h
`
	appDir := filepath.Join(tmpDir, ".burndown")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		t.Fatalf("failed to create .burndown directory: %v", err)
	}
	configPath := filepath.Join(appDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	defer os.Chdir(origDir)

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}

	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if got := GetString("addr"); got != ":7070" {
		t.Errorf("GetString(addr) = %q, want \":7070\"", got)
	}
	if got := GetInt("bcrypt-cost"); got != 6 {
		t.Errorf("GetInt(bcrypt-cost) = %d, want 6", got)
	}
	if got := GetDuration("token-ttl"); got != 48*time.Hour {
		t.Errorf("GetDuration(token-ttl) = %v, want 48h", got)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `addr: ":7070"`
	appDir := filepath.Join(tmpDir, ".burndown")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		t.Fatalf("failed to create .burndown directory: %v", err)
	}

	configPath := filepath.Join(appDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	defer os.Chdir(origDir)

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}

	// Config file value
	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("addr"); got != ":7070" {
		t.Errorf("GetString(addr) from config file = %q, want \":7070\"", got)
	}

	// Environment variable overrides config file
	_ = os.Setenv("BURNDOWN_ADDR", ":6060")
	defer func() { _ = os.Unsetenv("BURNDOWN_ADDR") }()

	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("addr"); got != ":6060" {
		t.Errorf("GetString(addr) with env var = %q, want \":6060\" (env should override config)", got)
	}
}

func TestSetAndGet(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("test-key", "test-value")
	if got := GetString("test-key"); got != "test-value" {
		t.Errorf("GetString(test-key) = %q, want \"test-value\"", got)
	}

	Set("test-bool", true)
	if got := GetBool("test-bool"); got != true {
		t.Errorf("GetBool(test-bool) = %v, want true", got)
	}

	Set("test-int", 42)
	if got := GetInt("test-int"); got != 42 {
		t.Errorf("GetInt(test-int) = %d, want 42", got)
	}
}

func TestAllSettings(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("custom-key", "custom-value")

	settings := AllSettings()
	if settings == nil {
		t.Fatal("AllSettings() returned nil")
	}

	if val, ok := settings["custom-key"]; !ok || val != "custom-value" {
		t.Errorf("AllSettings() missing or incorrect custom-key: got %v", val)
	}
}
