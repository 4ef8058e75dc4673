package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Storage struct {
		Type      string `yaml:"type"`       // local, s3
		BasePath  string `yaml:"base_path"`  // for local storage
		BaseURL   string `yaml:"base_url"`   // public URL base
		Bucket    string `yaml:"bucket"`     // for S3
		Region    string `yaml:"region"`     // for S3
		AccessKey string `yaml:"access_key"` // for S3
		SecretKey string `yaml:"secret_key"` // for S3
		Endpoint  string `yaml:"endpoint"`   // for S3-compatible providers
	} `yaml:"storage"`

	Quota struct {
		Tiers        map[string]TierLimits `yaml:"tiers"`
		LinkDefaults LinkDefaults          `yaml:"link_defaults"`
	} `yaml:"quota"`

	RateLimit struct {
		UploadsPerMinute int `yaml:"uploads_per_minute"`
	} `yaml:"rate_limit"`
}

// TierLimits are the account ceilings derived from the subscription tier.
type TierLimits struct {
	UsageLimit  int64 `yaml:"usage_limit"`
	MaxFileSize int64 `yaml:"max_file_size"`
}

// LinkDefaults are applied to new collection links unless overridden.
type LinkDefaults struct {
	UsageLimit  int64 `yaml:"usage_limit"`
	MaxFiles    int64 `yaml:"max_files"`
	MaxFileSize int64 `yaml:"max_file_size"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or falls back to environment variables when
// DATABASE_URL is set (test/deploy mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	if port, err := strconv.Atoi(os.Getenv("SERVER_PORT")); err == nil && port > 0 {
		cfg.Server.Port = port
	} else {
		cfg.Server.Port = 8080
	}
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")

	cfg.Email.SMTPHost = "smtp.test.com"
	cfg.Email.SMTPPort = 587
	cfg.Email.FromEmail = "noreply@dropnest.io"
	cfg.Email.FromName = "DropNest"

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/api/v1/files"

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Quota.Tiers == nil {
		cfg.Quota.Tiers = map[string]TierLimits{}
	}
	if _, ok := cfg.Quota.Tiers["free"]; !ok {
		cfg.Quota.Tiers["free"] = TierLimits{
			UsageLimit:  1 << 30, // 1GB
			MaxFileSize: 100 << 20,
		}
	}
	if _, ok := cfg.Quota.Tiers["pro"]; !ok {
		cfg.Quota.Tiers["pro"] = TierLimits{
			UsageLimit:  100 << 30,
			MaxFileSize: 5 << 30,
		}
	}
	if _, ok := cfg.Quota.Tiers["business"]; !ok {
		cfg.Quota.Tiers["business"] = TierLimits{
			UsageLimit:  1 << 40,
			MaxFileSize: 20 << 30,
		}
	}
	if cfg.Quota.LinkDefaults.UsageLimit == 0 {
		cfg.Quota.LinkDefaults.UsageLimit = 500 << 20 // 500MB
	}
	if cfg.Quota.LinkDefaults.MaxFiles == 0 {
		cfg.Quota.LinkDefaults.MaxFiles = 100
	}
	if cfg.Quota.LinkDefaults.MaxFileSize == 0 {
		cfg.Quota.LinkDefaults.MaxFileSize = 100 << 20
	}
	if cfg.RateLimit.UploadsPerMinute == 0 {
		cfg.RateLimit.UploadsPerMinute = 60
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

// TierFor resolves the limits of a tier name, falling back to free.
func (c *Config) TierFor(tier string) TierLimits {
	if limits, ok := c.Quota.Tiers[tier]; ok {
		return limits
	}
	return c.Quota.Tiers["free"]
}
