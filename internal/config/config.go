package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`

	DevServer DevServerConfig `yaml:"dev_server"`
}

type APIConfig struct {
	BaseURL  string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:80"`
	LoginURL string        `yaml:"login_url" env:"LOGIN_URL" env-default:"/html/signin.html"`
	Timeout  time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend" env:"STORE_BACKEND" env-default:"file"`
	Path      string `yaml:"path" env:"STORE_PATH"`
	Namespace string `yaml:"namespace" env:"STORE_NAMESPACE" env-default:"default"`
}

type DynamoDBConfig struct {
	Endpoint  string `yaml:"endpoint" env:"DYNAMODB_ENDPOINT"`
	Region    string `yaml:"region" env:"DYNAMODB_REGION" env-default:"us-east-1"`
	TableName string `yaml:"table_name" env:"DYNAMODB_TABLE_NAME" env-default:"StudySyncCredentials"`
}

type RedisConfig struct {
	Endpoint string `yaml:"endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// DevServerConfig configures cmd/devserver, the local stand-in backend.
type DevServerConfig struct {
	Addr         string        `yaml:"addr" env:"DEVSERVER_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"DEVSERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"DEVSERVER_WRITE_TIMEOUT" env-default:"10s"`
	// NoSeed starts the backend empty instead of with the demo catalog.
	NoSeed bool `yaml:"no_seed" env:"DEVSERVER_NO_SEED"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads the YAML file at path (or CONFIG_PATH) when one is given and
// overlays the environment on top of it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		// ReadConfig overlays the environment on the file itself.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Store.Backend == StoreFile && cfg.Store.Path == "" {
		p, err := DefaultStorePath()
		if err != nil {
			return nil, err
		}
		cfg.Store.Path = p
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}

	if c.API.LoginURL == "" {
		return fmt.Errorf("LOGIN_URL must not be empty")
	}

	switch c.Store.Backend {
	case StoreFile, StoreMemory, StoreRedis, StoreDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Store.Backend == StoreDynamoDB && c.DynamoDB.TableName == "" {
		return fmt.Errorf("DYNAMODB_TABLE_NAME is required for the dynamodb store")
	}

	return nil
}

// DefaultStorePath is the credentials file under the user config directory.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "studysync", "credentials.json"), nil
}
