package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type StoreConfig struct {
	Driver         string         `mapstructure:"driver"` // memory, postgres, firebase
	DatabaseURL    string         `mapstructure:"database_url"`
	MaxCASAttempts int            `mapstructure:"max_cas_attempts"`
	Firebase       FirebaseConfig `mapstructure:"firebase"`
}

type FirebaseConfig struct {
	DatabaseURL     string `mapstructure:"database_url"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	Provider string `mapstructure:"provider"` // jwt, firebase
}

type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HardcoverConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TokenKey string        `mapstructure:"token_key"` // base64, 32 bytes
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type CascadeConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Config struct {
	ServerPort string          `mapstructure:"server_port"`
	LogLevel   string          `mapstructure:"log_level"`
	JWTSecret  string          `mapstructure:"jwt_secret"`
	BaseURL    string          `mapstructure:"base_url"`
	Store      StoreConfig     `mapstructure:"store"`
	Email      EmailConfig     `mapstructure:"email"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Gateway    GatewayConfig   `mapstructure:"gateway"`
	Hardcover  HardcoverConfig `mapstructure:"hardcover"`
	Temporal   TemporalConfig  `mapstructure:"temporal"`
	Cascade    CascadeConfig   `mapstructure:"cascade"`
	CORS       CORSConfig      `mapstructure:"cors"`
}

// Load reads config.yaml from the current directory or ./config, then applies
// CLURB_* environment overrides. A .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CLURB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.max_cas_attempts", 5)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("auth.provider", "jwt")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("hardcover.endpoint", "https://api.hardcover.app/v1/graphql")
	v.SetDefault("hardcover.timeout", 30*time.Second)
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("cascade.max_concurrency", 8)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{
		"jwt_secret", "base_url", "store.database_url",
		"store.firebase.database_url", "store.firebase.project_id", "store.firebase.credentials_file",
		"email.from", "email.smtp_host", "email.username", "email.password",
		"gateway.base_url", "hardcover.token_key",
	} {
		v.SetDefault(key, "")
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must be set")
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres driver")
		}
	case "firebase":
		if c.Store.Firebase.DatabaseURL == "" {
			return errors.New("store.firebase.database_url is required for the firebase driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Auth.Provider {
	case "jwt":
		if c.JWTSecret == "" {
			return errors.New("jwt_secret must be set when auth.provider is jwt")
		}
	case "firebase":
		if c.Store.Firebase.DatabaseURL == "" && c.Store.Firebase.ProjectID == "" {
			return errors.New("store.firebase settings are required when auth.provider is firebase")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}

	if c.Store.MaxCASAttempts <= 0 {
		c.Store.MaxCASAttempts = 5
	}
	if c.Cascade.MaxConcurrency <= 0 {
		c.Cascade.MaxConcurrency = 8
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	return nil
}
