// Package config loads server settings from an optional chunkspan.yaml, a
// .env file and CHUNKSPAN_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CHUNKSPAN_DB_PATH
const EnvPrefix = "CHUNKSPAN"

type Config struct {
	DB     DBConfig
	Log    LogConfig
	Search SearchConfig
}

type DBConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type SearchConfig struct {
	DefaultField   string
	Workers        int
	WorkLimit      int
	CacheSize      int
	ChunkCacheSize int
	StopWords      []string
}

// Options controls where Load looks for settings
type Options struct {
	ConfigFile  string   // explicit config file; skips the search paths
	SearchPaths []string // directories searched for chunkspan.yaml
	EnvFiles    []string // dotenv files; missing files are ignored
}

// DefaultOptions searches the working directory and ~/.chunkspan
func DefaultOptions() Options {
	return Options{
		SearchPaths: []string{".", "$HOME/.chunkspan"},
		EnvFiles:    []string{".env"},
	}
}

// Load reads the configuration
func Load(opts Options) (*Config, error) {
	for _, f := range opts.EnvFiles {
		// a missing dotenv file is normal outside development
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("chunkspan")
		v.SetConfigType("yaml")
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		DB: DBConfig{
			Path: v.GetString("db.path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Search: SearchConfig{
			DefaultField:   v.GetString("search.default_field"),
			Workers:        v.GetInt("search.workers"),
			WorkLimit:      v.GetInt("search.work_limit"),
			CacheSize:      v.GetInt("search.cache_size"),
			ChunkCacheSize: v.GetInt("search.chunk_cache_size"),
			StopWords:      v.GetStringSlice("search.stop_words"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "chunkspan.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("search.default_field", "text")
	v.SetDefault("search.workers", 4)
	v.SetDefault("search.work_limit", 0)
	v.SetDefault("search.cache_size", 1000)
	v.SetDefault("search.chunk_cache_size", 10)
	v.SetDefault("search.stop_words", []string{})
}

// Validate checks the values Load cannot fix up on its own
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if c.Search.Workers <= 0 {
		return fmt.Errorf("search.workers must be positive, got %d", c.Search.Workers)
	}
	if c.Search.WorkLimit < 0 {
		return fmt.Errorf("search.work_limit must not be negative, got %d", c.Search.WorkLimit)
	}
	return nil
}
