package am

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	loadMu        sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper
	checkedFiles  []SourceFile
)

// SourceFile is one entry of the configuration cascade
type SourceFile struct {
	Path   string `json:"path"`
	Scope  string `json:"scope"` // system, user, project
	Exists bool   `json:"exists"`
}

// Load reads the hirepanel configuration using Viper
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for key-based access
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the defaults
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return LoadWithViper(v)
}

// Reset clears the cached configuration (useful for testing and reloads)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	checkedFiles = nil
}

// Sources returns the configuration files that were considered, in
// precedence order (lowest first)
func Sources() []SourceFile {
	loadMu.Lock()
	defer loadMu.Unlock()
	initViper()
	out := make([]SourceFile, len(checkedFiles))
	copy(out, checkedFiles)
	return out
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("HIREPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for am.toml
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges configuration files in precedence order
// system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) {
	type candidate struct{ path, scope string }

	candidates := []candidate{
		{"/etc/hirepanel/am.toml", "system"},
		{filepath.Join(HomeDir(), "am.toml"), "user"},
	}
	if project := findProjectConfig(); project != "" {
		candidates = append(candidates, candidate{project, "project"})
	}

	checkedFiles = checkedFiles[:0]
	for _, c := range candidates {
		_, statErr := os.Stat(c.path)
		checkedFiles = append(checkedFiles, SourceFile{Path: c.path, Scope: c.scope, Exists: statErr == nil})
		if statErr != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(c.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
	}
}

// ActiveConfigFile returns the highest-precedence config file that exists,
// or "" when running purely on defaults
func ActiveConfigFile() string {
	sources := Sources()
	for i := len(sources) - 1; i >= 0; i-- {
		if sources[i].Exists {
			return sources[i].Path
		}
	}
	return ""
}
