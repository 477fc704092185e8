package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/luck"
	"github.com/gravitas-games/cachegrid/internal/merge"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds all server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	JWT     JWTConfig     `yaml:"jwt"`
	Game    GameConfig    `yaml:"game"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host string `yaml:"host" env:"CACHEGRID_HOST"`
	Port int    `yaml:"port" env:"CACHEGRID_PORT"`

	// AllowedOrigins lists the browser origins accepted on /ws. Empty
	// accepts any origin.
	AllowedOrigins []string `yaml:"allowed_origins" env:"CACHEGRID_ALLOWED_ORIGINS" envSeparator:","`
}

// LogConfig selects logger level and format ("text" or "json")
type LogConfig struct {
	Level  string `yaml:"level" env:"CACHEGRID_LOG_LEVEL"`
	Format string `yaml:"format" env:"CACHEGRID_LOG_FORMAT"`
}

// StorageConfig selects the flyweight store backend
type StorageConfig struct {
	Backend    string `yaml:"backend" env:"CACHEGRID_STORAGE_BACKEND"`
	SQLitePath string `yaml:"sqlite_path" env:"CACHEGRID_SQLITE_PATH"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address" env:"CACHEGRID_REDIS_ADDRESS"`
	Password        string `yaml:"password" env:"CACHEGRID_REDIS_PASSWORD"`
	DB              int    `yaml:"db" env:"CACHEGRID_REDIS_DB"`
	KeyPrefix       string `yaml:"key_prefix" env:"CACHEGRID_REDIS_KEY_PREFIX"`
	BlacklistPrefix string `yaml:"blacklist_prefix" env:"CACHEGRID_REDIS_BLACKLIST_PREFIX"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Enabled             bool   `yaml:"enabled" env:"CACHEGRID_JWT_ENABLED"`
	Issuer              string `yaml:"issuer" env:"CACHEGRID_JWT_ISSUER"`
	PublicKeyURL        string `yaml:"public_key_url" env:"CACHEGRID_JWT_PUBLIC_KEY_URL"`
	PublicKeyFile       string `yaml:"public_key_file" env:"CACHEGRID_JWT_PUBLIC_KEY_FILE"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// GameConfig holds the world and rule parameters
type GameConfig struct {
	Seed             string  `yaml:"seed" env:"CACHEGRID_SEED"`
	OriginLat        float64 `yaml:"origin_lat"`
	OriginLng        float64 `yaml:"origin_lng"`
	TileDegrees      float64 `yaml:"tile_degrees"`
	SpawnProbability float64 `yaml:"spawn_probability"`
	ViewRadius       int     `yaml:"view_radius"`     // tiles around the player when no viewport is supplied
	InteractRadius   float64 `yaml:"interact_radius"` // tiles, per axis
	WinThreshold     int     `yaml:"win_threshold" env:"CACHEGRID_WIN_THRESHOLD"`
}

// SessionConfig holds game session settings
type SessionConfig struct {
	MaxPlayers int `yaml:"max_players" env:"CACHEGRID_MAX_PLAYERS"`
}

// Layout returns the grid layout described by the game section.
func (g GameConfig) Layout() grid.Layout {
	return grid.Layout{
		Origin:      grid.LatLng{Lat: g.OriginLat, Lng: g.OriginLng},
		TileDegrees: g.TileDegrees,
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads configuration from a YAML file, then applies CACHEGRID_*
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendMemory
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "./data/cachegrid.db"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "cachegrid:"
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Game.OriginLat == 0 && cfg.Game.OriginLng == 0 {
		cfg.Game.OriginLat = grid.DefaultOriginLat
		cfg.Game.OriginLng = grid.DefaultOriginLng
	}
	if cfg.Game.TileDegrees == 0 {
		cfg.Game.TileDegrees = grid.DefaultTileDegrees
	}
	if cfg.Game.SpawnProbability == 0 {
		cfg.Game.SpawnProbability = luck.DefaultSpawnProbability
	}
	if cfg.Game.ViewRadius == 0 {
		cfg.Game.ViewRadius = 8
	}
	if cfg.Game.InteractRadius == 0 {
		cfg.Game.InteractRadius = merge.DefaultReach
	}
	if cfg.Game.WinThreshold == 0 {
		cfg.Game.WinThreshold = merge.DefaultWinThreshold
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 100
	}
}

// Validate rejects settings the game cannot run with.
func (cfg *Config) Validate() error {
	switch cfg.Storage.Backend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Game.TileDegrees <= 0 {
		return fmt.Errorf("tile_degrees must be positive, got %v", cfg.Game.TileDegrees)
	}
	if cfg.Game.SpawnProbability < 0 || cfg.Game.SpawnProbability > 1 {
		return fmt.Errorf("spawn_probability must be within [0,1], got %v", cfg.Game.SpawnProbability)
	}
	if cfg.Game.ViewRadius < 0 {
		return fmt.Errorf("view_radius must not be negative, got %d", cfg.Game.ViewRadius)
	}
	if cfg.JWT.Enabled && cfg.JWT.PublicKeyURL == "" && cfg.JWT.PublicKeyFile == "" {
		return fmt.Errorf("jwt is enabled but no public key source is configured")
	}
	return nil
}
