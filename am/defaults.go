package am

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("api.requests_per_second", 5.0) // keeps rapid paging from flooding the API
	v.SetDefault("api.version_constraint", DefaultVersionRange)
	v.SetDefault("api.block_private_ips", false) // admin APIs usually live on private networks

	v.SetDefault("storage.path", filepath.Join(HomeDir(), "storage.db"))

	v.SetDefault("views.per_page", 0)
	v.SetDefault("views.path", "")

	v.SetDefault("search.debounce_ms", DefaultDebounceMs)

	v.SetDefault("display.timezone", "Local")
	v.SetDefault("display.currency", DefaultCurrency)
}

// BindSensitiveEnvVars explicitly binds configuration that is commonly
// injected by the environment
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("api.base_url", "HIREPANEL_API_BASE_URL", "API_BASE_URL")
	_ = v.BindEnv("storage.path", "HIREPANEL_STORAGE_PATH")
}

// HomeDir returns ~/.hirepanel (or the working directory when no home is set)
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hirepanel"
	}
	return filepath.Join(home, ".hirepanel")
}

// Timeout returns the API request timeout
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// DebounceInterval returns the search quiet period
func (c *Config) DebounceInterval() time.Duration {
	if c.Search.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.Search.DebounceMs) * time.Millisecond
}

// Location resolves display.timezone, falling back to time.Local
func (c *Config) Location() *time.Location {
	switch c.Display.Timezone {
	case "", "Local":
		return time.Local
	case "UTC":
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetCurrency returns the display currency (default: USD)
func (c *Config) GetCurrency() string {
	if c.Display.Currency == "" {
		return DefaultCurrency
	}
	return c.Display.Currency
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{API: %s, Storage: %s, Search: {DebounceMs: %d}}",
		c.API.BaseURL, c.Storage.Path, c.Search.DebounceMs)
}
