package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"minifeed/auth"
	"minifeed/remote"
)

type Config struct {
	APIURL             string        `envconfig:"API_URL" default:"http://localhost:8080/api/"`
	FeedPath           string        `envconfig:"FEED_PATH"`
	Token              string        `envconfig:"TOKEN"`
	TokenFile          string        `envconfig:"TOKEN_FILE"`
	DiscoverLimit      int           `envconfig:"DISCOVER_LIMIT" default:"5"`
	FollowCheckWorkers int           `envconfig:"FOLLOW_CHECK_WORKERS" default:"1"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`

	ServerPort  int    `envconfig:"SERVER_PORT" default:"8080"`
	MongoURL    string `envconfig:"MONGO_URL"`
	MongoDBName string `envconfig:"MONGO_DBNAME" default:"minifeed"`
	RedisURL    string `envconfig:"REDIS_URL"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	SeedFile    string `envconfig:"SEED_FILE"`
}

// Load reads the environment after applying the given dotenv files, or
// ".env" when none are given. Missing dotenv files are ignored; variables
// already set in the environment win over dotenv values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Token != "" && c.TokenFile != "" {
		return errors.New("TOKEN and TOKEN_FILE are mutually exclusive")
	}
	if c.DiscoverLimit < 0 {
		return fmt.Errorf("DISCOVER_LIMIT must not be negative, got %d", c.DiscoverLimit)
	}
	if c.FollowCheckWorkers < 1 {
		return fmt.Errorf("FOLLOW_CHECK_WORKERS must be at least 1, got %d", c.FollowCheckWorkers)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// TokenProvider returns where bearer tokens come from. With neither TOKEN
// nor TOKEN_FILE set the viewer is anonymous.
func (c *Config) TokenProvider() auth.TokenProvider {
	switch {
	case c.TokenFile != "":
		return auth.FileToken{Path: c.TokenFile}
	case c.Token != "":
		return auth.StaticToken(strings.TrimSpace(c.Token))
	}
	return auth.TokenFunc(func(context.Context) (string, error) {
		return "", auth.ErrNoToken
	})
}

func (c *Config) ClientOptions(log *zap.Logger) []remote.Option {
	return []remote.Option{
		remote.WithFeedPath(c.FeedPath),
		remote.WithLogger(log),
		remote.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}),
	}
}

func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
