package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Loyalty  LoyaltyConfig
	Broker   BrokerConfig
	Session  SessionConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token      string
	AdminToken string // admin bot: catalog and reports
	Login      string // super admin password for the admin bot
	AdminID    int64
}

// LoyaltyConfig can also be loaded from the YAML file named by LOYALTY_FILE.
type LoyaltyConfig struct {
	CoffeeLimit      int      `yaml:"coffee_limit"`
	Category         string   `yaml:"category"`
	BaristaUsernames []string `yaml:"barista_usernames"`
	QuantityOptions  []int    `yaml:"quantity_options"`
	Currency         string   `yaml:"currency"`
}

type BrokerConfig struct {
	URL string // empty: notify customers directly from the bot
}

type SessionConfig struct {
	TTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	coffeeLimit, err := strconv.Atoi(getEnv("COFFEE_LIMIT", "5"))
	if err != nil {
		return nil, fmt.Errorf("COFFEE_LIMIT: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "2h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	adminID, _ := strconv.ParseInt(getEnv("ADMIN_ID", "0"), 10, 64)

	cfg := &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "coffee"),
		},
		Telegram: TelegramConfig{
			Token:      getEnv("TOKEN", ""),
			AdminToken: getEnv("ADMIN_TOKEN", ""),
			Login:      getEnv("LOGIN", ""),
			AdminID:    adminID,
		},
		Loyalty: LoyaltyConfig{
			CoffeeLimit:      coffeeLimit,
			Category:         getEnv("LOYALTY_CATEGORY", "Coffee"),
			BaristaUsernames: splitList(getEnv("BARISTA_USERNAMES", "")),
			QuantityOptions:  []int{1, 2, 3, 4, 5},
			Currency:         getEnv("CURRENCY", "MDL"),
		},
		Broker: BrokerConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Session: SessionConfig{
			TTL: ttl,
		},
	}

	if path := getEnv("LOYALTY_FILE", ""); path != "" {
		if err := loadLoyaltyFile(path, &cfg.Loyalty); err != nil {
			return nil, err
		}
	}
	if cfg.Loyalty.CoffeeLimit <= 0 {
		return nil, fmt.Errorf("coffee limit must be > 0, got %d", cfg.Loyalty.CoffeeLimit)
	}
	return cfg, nil
}

// loadLoyaltyFile overlays the fields present in the YAML file onto l.
func loadLoyaltyFile(path string, l *LoyaltyConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read loyalty file: %w", err)
	}
	if err := yaml.Unmarshal(data, l); err != nil {
		return fmt.Errorf("parse loyalty file: %w", err)
	}
	return nil
}

// IsBaristaUsername reports whether username is listed in BARISTA_USERNAMES (without the leading @).
func (l LoyaltyConfig) IsBaristaUsername(username string) bool {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return false
	}
	for _, u := range l.BaristaUsernames {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "@")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
