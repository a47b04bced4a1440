package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database    Database    `yaml:"database" json:"database"`
	User        User        `yaml:"user" json:"user"`
	Log         Log         `yaml:"log" json:"log"`
	Progression Progression `yaml:"progression" json:"progression"`
	Daily       Daily       `yaml:"daily" json:"daily"`
	Cache       Cache       `yaml:"cache" json:"cache"`
}

type Database struct {
	// Path of the SQLite file; empty means ~/.lifequest.db.
	Path string `yaml:"path" json:"path"`
}

type User struct {
	ID string `yaml:"id" json:"id"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type Progression struct {
	BaseXPToNextLevel int     `yaml:"base_xp_to_next_level" json:"base_xp_to_next_level"`
	LevelGrowth       float64 `yaml:"level_growth" json:"level_growth"`
	BaseStat          int     `yaml:"base_stat" json:"base_stat"`
	StatFloor         int     `yaml:"stat_floor" json:"stat_floor"`
}

type Daily struct {
	PenaltyRatio float64 `yaml:"penalty_ratio" json:"penalty_ratio"`
}

type Cache struct {
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	FetchThrottle time.Duration `yaml:"fetch_throttle" json:"fetch_throttle"`
}

// Env holds overrides read from LQ_* variables. split_words maps DBPath to
// LQ_DB_PATH and LogLevel to LQ_LOG_LEVEL.
type Env struct {
	DBPath    string `split_words:"true"`
	User      string `split_words:"true"`
	LogLevel  string `split_words:"true"`
	LogFormat string `split_words:"true"`
}

func Default() Config {
	return Config{
		User: User{ID: "main_user"},
		Log:  Log{Level: "warn", Format: "console"},
		Progression: Progression{
			BaseXPToNextLevel: 100,
			LevelGrowth:       1.1,
			BaseStat:          5,
			StatFloor:         0,
		},
		Daily: Daily{PenaltyRatio: 0.5},
		Cache: Cache{TTL: 10 * time.Second, FetchThrottle: 2 * time.Second},
	}
}

// Load reads the YAML file at path (a missing file is fine), then applies .env
// and LQ_* environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var env Env
	if err := envconfig.Process("LQ", &env); err != nil {
		return Config{}, fmt.Errorf("env overrides: %w", err)
	}
	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env Env) {
	if env.DBPath != "" {
		c.Database.Path = env.DBPath
	}
	if env.User != "" {
		c.User.ID = env.User
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.User.ID) == "" {
		return errors.New("config: user.id is required")
	}
	p := c.Progression
	if p.BaseXPToNextLevel <= 0 {
		return fmt.Errorf("config: progression.base_xp_to_next_level must be positive (got %d)", p.BaseXPToNextLevel)
	}
	if p.LevelGrowth <= 1 {
		return fmt.Errorf("config: progression.level_growth must be > 1 (got %v)", p.LevelGrowth)
	}
	if p.StatFloor > p.BaseStat {
		return fmt.Errorf("config: progression.stat_floor %d exceeds base_stat %d", p.StatFloor, p.BaseStat)
	}
	if c.Daily.PenaltyRatio < 0 || c.Daily.PenaltyRatio > 1 {
		return fmt.Errorf("config: daily.penalty_ratio must be within [0,1] (got %v)", c.Daily.PenaltyRatio)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive (got %s)", c.Cache.TTL)
	}
	if c.Cache.FetchThrottle < 0 {
		return fmt.Errorf("config: cache.fetch_throttle must not be negative (got %s)", c.Cache.FetchThrottle)
	}
	return nil
}
