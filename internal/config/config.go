package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Database struct {
		// Driver is one of: mysql, postgres, sqlite.
		Driver    string `yaml:"driver"`
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		User      string `yaml:"user"`
		Password  string `yaml:"password"`
		Name      string `yaml:"name"`
		SSLMode   string `yaml:"sslMode"`
		LocalPath string `yaml:"localPath"` // sqlite only
	} `yaml:"database"`

	Mistral struct {
		APIKey      string  `yaml:"apiKey"`
		BaseURL     string  `yaml:"baseURL"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
		TimeoutSec  int     `yaml:"timeoutSec"`
	} `yaml:"mistral"`

	Crypto struct {
		Secret string `yaml:"secret"`
	} `yaml:"crypto"`

	Chat struct {
		ContextLimit int `yaml:"contextLimit"`
	} `yaml:"chat"`

	Pipeline struct {
		SecuringDelayMS int `yaml:"securingDelayMs"`
	} `yaml:"pipeline"`

	Auth struct {
		// APIKeys maps a user id to its key.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"ratelimit"`

	Clauses []Clause `yaml:"clauses"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Clause is one config-seeded entry of the clause library.
type Clause struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Title    string `yaml:"title"`
	Text     string `yaml:"text"`
}

// Load reads the yaml config file and applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.LocalPath == "" {
		c.Database.LocalPath = "lexpacte.db"
	}
	if c.Mistral.BaseURL == "" {
		c.Mistral.BaseURL = "https://api.mistral.ai/v1"
	}
	if c.Mistral.Model == "" {
		c.Mistral.Model = "mistral-large-latest"
	}
	if c.Mistral.TimeoutSec == 0 {
		c.Mistral.TimeoutSec = 120
	}
	if c.Chat.ContextLimit == 0 {
		c.Chat.ContextLimit = 12000
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 1
	}
}

// Secrets may come from the environment instead of the yaml file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		c.Mistral.APIKey = v
	}
	if v := os.Getenv("LEXPACTE_CRYPTO_SECRET"); v != "" {
		c.Crypto.Secret = v
	}
	if v := os.Getenv("LEXPACTE_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

// MistralTimeout returns the per-call model timeout.
func (c *Config) MistralTimeout() time.Duration {
	return time.Duration(c.Mistral.TimeoutSec) * time.Second
}

// SecuringDelay returns the pre-extraction pause.
func (c *Config) SecuringDelay() time.Duration {
	return time.Duration(c.Pipeline.SecuringDelayMS) * time.Millisecond
}

// MySQLDSN builds the MySQL connection string.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the Postgres connection string.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
