// Load envs from .env
// Load YAML config
// Validate config
// Provide default values

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramToken string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`

	// Operators allowed to drive the bot. Anyone else gets a fixed rejection.
	OperatorIDs []int64 `yaml:"operator_ids" env:"OPERATOR_IDS"`

	// Channel confirmed postings are broadcast to. Zero disables publishing;
	// everything else keeps working.
	BroadcastChannelID int64 `yaml:"broadcast_channel_id" env:"BROADCAST_CHANNEL_ID"`

	// Public site root used to build the canonical /job/<slug> links.
	SiteRootURL string `yaml:"site_root_url" env:"SITE_ROOT_URL"`

	GroqAPIKey string `yaml:"groq_api_key" env:"GROQ_API_KEY"`

	// Tuning knobs, env only (Go duration strings like "5m").
	BatchStride        time.Duration `yaml:"-" env:"BATCH_STRIDE"`
	WorkerPollInterval time.Duration `yaml:"-" env:"WORKER_POLL_INTERVAL"`
	HarvestTimeout     time.Duration `yaml:"-" env:"HARVEST_TIMEOUT"`
}

func Load() *Config {
	_ = godotenv.Load()

	//Load yaml config
	cfg := &Config{}

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Printf("Warning: Could not read config.yaml: %v", err)
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("Error parsing config.yaml: %v", err)
		}
	}

	//Override with env vars
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.GroqAPIKey = key
	}

	if ops := os.Getenv("OPERATOR_IDS"); ops != "" {
		ids, err := parseIDList(ops)
		if err != nil {
			log.Fatalf("Invalid OPERATOR_IDS: %v", err)
		}
		cfg.OperatorIDs = ids
	}

	if channel := os.Getenv("BROADCAST_CHANNEL_ID"); channel != "" {
		id, err := strconv.ParseInt(channel, 10, 64)
		if err != nil {
			log.Fatalf("Invalid BROADCAST_CHANNEL_ID: %v", err)
		}
		cfg.BroadcastChannelID = id
	}

	if root := os.Getenv("SITE_ROOT_URL"); root != "" {
		cfg.SiteRootURL = root
	}

	cfg.BatchStride = durationEnv("BATCH_STRIDE")
	cfg.WorkerPollInterval = durationEnv("WORKER_POLL_INTERVAL")
	cfg.HarvestTimeout = durationEnv("HARVEST_TIMEOUT")

	//Set default values if not set
	if cfg.SiteRootURL == "" {
		cfg.SiteRootURL = "https://example.com"
	}
	cfg.SiteRootURL = strings.TrimRight(cfg.SiteRootURL, "/")

	if cfg.BatchStride == 0 {
		cfg.BatchStride = 5 * time.Minute
	}

	if cfg.WorkerPollInterval == 0 {
		cfg.WorkerPollInterval = time.Minute
	}

	if cfg.HarvestTimeout == 0 {
		cfg.HarvestTimeout = 10 * time.Second
	}

	//Validate required fields
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if cfg.GroqAPIKey == "" {
		log.Fatal("GROQ_API_KEY is required")
	}

	if len(cfg.OperatorIDs) == 0 {
		log.Fatal("OPERATOR_IDS is required")
	}

	return cfg
}

// IsOperator reports whether the identity is on the allow-list.
func (c *Config) IsOperator(id int64) bool {
	for _, op := range c.OperatorIDs {
		if op == id {
			return true
		}
	}
	return false
}

func durationEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	return d
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
