package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	JWT     JWTConfig     `yaml:"jwt"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Catalog CatalogConfig `yaml:"catalog"`
	Station StationConfig `yaml:"station"`
	Journal JournalConfig `yaml:"journal"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings. An empty address disables the
// token blacklist.
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// SessionConfig holds connection limits
type SessionConfig struct {
	MaxPlayers int `yaml:"max_players"`
}

// CatalogConfig points at the item and recipe content
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StationConfig sizes each player's crafting station
type StationConfig struct {
	InventoryWidth   int    `yaml:"inventory_width"`
	InventoryHeight  int    `yaml:"inventory_height"`
	TrayWidth        int    `yaml:"tray_width"`  // used when no container is in effect
	TrayHeight       int    `yaml:"tray_height"` // used when no container is in effect
	MaxPatternWidth  int    `yaml:"max_pattern_width"`
	MaxPatternHeight int    `yaml:"max_pattern_height"`
	DefaultContainer string `yaml:"default_container"` // overrides the catalog
	FallbackRecipe   string `yaml:"fallback_recipe"`   // overrides the catalog
	ConsumePattern   bool   `yaml:"consume_pattern"`
}

// JournalConfig controls the compressed craft journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "blacklist:"
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 100
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "./configs/catalog.yaml"
	}
	if cfg.Station.InventoryWidth == 0 {
		cfg.Station.InventoryWidth = 6
	}
	if cfg.Station.InventoryHeight == 0 {
		cfg.Station.InventoryHeight = 10
	}
	if cfg.Station.TrayWidth == 0 {
		cfg.Station.TrayWidth = 3
	}
	if cfg.Station.TrayHeight == 0 {
		cfg.Station.TrayHeight = 3
	}
	if cfg.Station.MaxPatternWidth == 0 {
		cfg.Station.MaxPatternWidth = 3
	}
	if cfg.Station.MaxPatternHeight == 0 {
		cfg.Station.MaxPatternHeight = 3
	}
	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = "./data/journal"
	}
}
