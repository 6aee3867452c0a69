// Package am holds the hirepanel configuration ("I am"): where the API lives,
// how the console talks to it, and how records are displayed.
package am

// Config represents the hirepanel configuration
type Config struct {
	API     APIConfig     `mapstructure:"api" toml:"api" yaml:"api" json:"api"`
	Storage StorageConfig `mapstructure:"storage" toml:"storage" yaml:"storage" json:"storage"`
	Views   ViewsConfig   `mapstructure:"views" toml:"views" yaml:"views" json:"views"`
	Search  SearchConfig  `mapstructure:"search" toml:"search" yaml:"search" json:"search"`
	Display DisplayConfig `mapstructure:"display" toml:"display" yaml:"display" json:"display"`
}

// APIConfig configures the external recruiting API
type APIConfig struct {
	BaseURL           string  `mapstructure:"base_url" toml:"base_url" yaml:"base_url" json:"base_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"` // 0 = unlimited
	VersionConstraint string  `mapstructure:"version_constraint" toml:"version_constraint" yaml:"version_constraint" json:"version_constraint"`       // semver constraint checked against X-API-Version
	BlockPrivateIPs   bool    `mapstructure:"block_private_ips" toml:"block_private_ips" yaml:"block_private_ips" json:"block_private_ips"`
}

// StorageConfig configures the local key/value store holding the session
type StorageConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`
}

// ViewsConfig configures paginated views
type ViewsConfig struct {
	PerPage int    `mapstructure:"per_page" toml:"per_page" yaml:"per_page" json:"per_page"` // 0 = each view's own page size
	Path    string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`                 // optional TOML file with extra view declarations
}

// SearchConfig configures debounced search
type SearchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
}

// DisplayConfig configures cell formatting
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone" toml:"timezone" yaml:"timezone" json:"timezone"` // IANA name, "Local" or "UTC"
	Currency string `mapstructure:"currency" toml:"currency" yaml:"currency" json:"currency"` // ISO 4217 code for salary columns
}

// Defaults that are also referenced outside of SetDefaults
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultTimeoutSeconds = 30
	DefaultDebounceMs     = 400
	DefaultCurrency       = "USD"
	DefaultVersionRange   = ">= 1.0.0, < 2.0.0"
)

// File system constants
const (
	DefaultDirPermissions  = 0700 // session storage lives here
	DefaultFilePermissions = 0600
)
