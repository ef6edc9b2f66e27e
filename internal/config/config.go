// Package config loads the application configuration from a YAML file with
// environment-variable overrides on top, so secrets can live in .env locally
// and in real env vars in production.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the outreach engine. It is loaded once
// at startup and injected as an immutable value; components never read
// ambient globals.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	SES       SESConfig       `yaml:"ses"`
	Bedrock   BedrockConfig   `yaml:"bedrock"`
	Sender    SenderConfig    `yaml:"sender"`
	Sending   SendingConfig   `yaml:"sending"`
	AutoReply AutoReplyConfig `yaml:"auto_reply"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the dispatch-kick broker settings. Redis is optional:
// without it the workers still run on their timers, kicks are just dropped.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES transport credentials.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// BedrockConfig holds the content-generation model settings.
type BedrockConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Region            string `yaml:"region"`
	ModelID           string `yaml:"model_id"`            // email writing and reply drafting
	ClassifierModelID string `yaml:"classifier_model_id"` // cheaper model for classification
}

// SenderConfig holds the outbound identity and company details that end up
// in generated emails.
type SenderConfig struct {
	Name               string `yaml:"name"`
	Email              string `yaml:"email"`
	ReplyTo            string `yaml:"reply_to"`
	CompanyName        string `yaml:"company_name"`
	CompanyAddress     string `yaml:"company_address"`
	CalendlyLink       string `yaml:"calendly_link"`
	UnsubscribeBaseURL string `yaml:"unsubscribe_base_url"`
}

// SendingConfig holds dispatch pacing rules.
type SendingConfig struct {
	DailySendLimit     int `yaml:"daily_send_limit"`
	CycleMinutes       int `yaml:"cycle_minutes"`
	LookaheadMinutes   int `yaml:"lookahead_minutes"`
	ThrottleMinSeconds int `yaml:"throttle_min_seconds"`
	ThrottleMaxSeconds int `yaml:"throttle_max_seconds"`
}

// AutoReplyConfig controls the automated response path. The randomized delay
// window makes automated replies look human-paced.
type AutoReplyConfig struct {
	Enabled         bool `yaml:"enabled"`
	MinDelaySeconds int  `yaml:"min_delay_seconds"`
	MaxDelaySeconds int  `yaml:"max_delay_seconds"`
	SweepMinutes    int  `yaml:"sweep_minutes"`
}

// Load reads and parses the configuration file, applying defaults.
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
	return &cfg, nil
}

// Default returns a config with only defaults applied, used when no config
// file is present and everything comes from the environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = "us-east-1"
	}
	if cfg.Bedrock.ModelID == "" {
		cfg.Bedrock.ModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Bedrock.ClassifierModelID == "" {
		cfg.Bedrock.ClassifierModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if cfg.Sending.DailySendLimit == 0 {
		cfg.Sending.DailySendLimit = 20
	}
	if cfg.Sending.CycleMinutes == 0 {
		cfg.Sending.CycleMinutes = 10
	}
	if cfg.Sending.LookaheadMinutes == 0 {
		cfg.Sending.LookaheadMinutes = 5
	}
	if cfg.Sending.ThrottleMinSeconds == 0 {
		cfg.Sending.ThrottleMinSeconds = 2
	}
	if cfg.Sending.ThrottleMaxSeconds == 0 {
		cfg.Sending.ThrottleMaxSeconds = 5
	}
	if cfg.AutoReply.MinDelaySeconds == 0 {
		cfg.AutoReply.MinDelaySeconds = 1800
	}
	if cfg.AutoReply.MaxDelaySeconds == 0 {
		cfg.AutoReply.MaxDelaySeconds = 10800
	}
	if cfg.AutoReply.SweepMinutes == 0 {
		cfg.AutoReply.SweepMinutes = 5
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is loaded first if present (no error if missing).
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = Default()
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("BEDROCK_ENABLED"); v != "" {
		cfg.Bedrock.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Bedrock.ModelID = v
	}
	if v := os.Getenv("SENDER_NAME"); v != "" {
		cfg.Sender.Name = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		cfg.Sender.Email = v
	}
	if v := os.Getenv("REPLY_TO_EMAIL"); v != "" {
		cfg.Sender.ReplyTo = v
	}
	if v := os.Getenv("UNSUBSCRIBE_BASE_URL"); v != "" {
		cfg.Sender.UnsubscribeBaseURL = v
	}
	if v := os.Getenv("DAILY_SEND_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DAILY_SEND_LIMIT: %w", err)
		}
		cfg.Sending.DailySendLimit = limit
	}
	if v := os.Getenv("AUTO_REPLY_ENABLED"); v != "" {
		cfg.AutoReply.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AUTO_REPLY_MIN_DELAY"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTO_REPLY_MIN_DELAY: %w", err)
		}
		cfg.AutoReply.MinDelaySeconds = d
	}
	if v := os.Getenv("AUTO_REPLY_MAX_DELAY"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTO_REPLY_MAX_DELAY: %w", err)
		}
		cfg.AutoReply.MaxDelaySeconds = d
	}

	return cfg, nil
}
