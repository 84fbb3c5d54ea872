package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppHost   string
	HTTPPort  string
	AppEnv    string
	LogLevel  string
	LogFormat string

	// DatabaseURLOverride, when set, wins over the DB_* parts.
	DatabaseURLOverride string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	LLM struct {
		APIKey  string
		BaseURL string
		Model   string
		Timeout time.Duration
	}

	Twilio struct {
		AccountSID   string
		AuthToken    string
		FromNumber   string
		SupportPhone string
		BaseURL      string
	}

	KafkaBrokers     []string
	KafkaTopicTicket string

	ChatHistoryWindow int
	SessionCacheSize  int

	APICatalogFile    string
	DashboardCacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:             getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:            firstEnv("APP_PORT", "HTTP_PORT", "8097"),
		AppEnv:              getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		DatabaseURLOverride: getEnv("DATABASE_URL", ""),
		KafkaBrokers:        ParseList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket:    getEnv("KAFKA_TOPIC_TICKET", "apihub.tickets"),
		APICatalogFile:      getEnv("API_CATALOG_FILE", ""),
	}
	cfg.DB.Host = getEnv("DB_HOST", "")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "apihub_support")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.LLM.APIKey = firstEnv("GROQ_API_KEY", "LLM_API_KEY", "")
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.LLM.Model = getEnv("LLM_MODEL", "llama3-8b-8192")

	cfg.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", "")
	cfg.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.Twilio.FromNumber = getEnv("TWILIO_NUMBER", "")
	cfg.Twilio.SupportPhone = getEnv("SUPPORT_PHONE_NUMBER", "")
	cfg.Twilio.BaseURL = getEnv("TWILIO_BASE_URL", "https://api.twilio.com")

	var err error
	if cfg.LLM.Timeout, err = getDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.DashboardCacheTTL, err = getDuration("DASHBOARD_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ChatHistoryWindow, err = getInt("CHAT_HISTORY_WINDOW", 5); err != nil {
		return nil, err
	}
	if cfg.SessionCacheSize, err = getInt("SESSION_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
// Messaging credentials are optional and only reported by MessagingConfigured.
func (c *Config) Validate() error {
	if c.DatabaseURLOverride == "" && (c.DB.Host == "" || c.DB.Database == "") {
		return errors.New("config: DATABASE_URL or DB_HOST and DB_DATABASE are required")
	}
	if c.AppEnv == "production" && c.DatabaseURLOverride == "" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.LLM.APIKey == "" {
		return errors.New("config: GROQ_API_KEY (or LLM_API_KEY) is required")
	}
	if c.ChatHistoryWindow < 1 {
		return errors.New("config: CHAT_HISTORY_WINDOW must be at least 1")
	}
	if c.SessionCacheSize < 1 {
		return errors.New("config: SESSION_CACHE_SIZE must be at least 1")
	}
	return nil
}

// ValidateDatabase is the subset of Validate used by commands that never call the model.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURLOverride == "" && (c.DB.Host == "" || c.DB.Database == "") {
		return errors.New("config: DATABASE_URL or DB_HOST and DB_DATABASE are required")
	}
	return nil
}

func (c *Config) MessagingConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" &&
		c.Twilio.FromNumber != "" && c.Twilio.SupportPhone != ""
}

func (c *Config) DSN() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

// ParseList splits "a,b , c" into its non-empty trimmed parts.
func ParseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
