package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"outagereminder/internal/outage"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Timezone string         `yaml:"timezone" validate:"required"`
	Group    string         `yaml:"group" validate:"omitempty,max=16"`
	DryRun   bool           `yaml:"dry_run"`
	SyncCron string         `yaml:"sync_cron"`

	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	DatabaseURL string `yaml:"database_url"`

	Google  GoogleConfig  `yaml:"google"`
	Fetch   FetchConfig   `yaml:"fetch"`
	S3      S3Config      `yaml:"s3"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`

	location *time.Location
}

type TelegramConfig struct {
	Channel     string `yaml:"channel"`
	MaxMessages int    `yaml:"max_messages" validate:"min=1,max=1000"`
}

type GoogleConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path" validate:"required"`
	CalendarID      string `yaml:"calendar_id" validate:"required"`
}

type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries" validate:"min=0,max=10"`
	RateLimitRPS float64       `yaml:"rate_limit_rps" validate:"min=0"`
}

type S3Config struct {
	Endpoint       string `yaml:"endpoint"`
	PublicEndpoint string `yaml:"public_endpoint"`
	Bucket         string `yaml:"bucket"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Region         string `yaml:"region"`
	UseSSL         bool   `yaml:"use_ssl"`
	FeedKey        string `yaml:"feed_key"`
}

// Enabled reports whether an ICS feed upload target is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// NotifyConfig enables a Bot API message for every batch of new reminders.
type NotifyConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
}

func (c NotifyConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
	File   string `yaml:"file"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "invalid config"
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{MaxMessages: 50},
		Timezone: "Europe/Kyiv",
		SyncCron: "*/30 * * * *",
		HTTPAddr: ":8080",
		Google: GoogleConfig{
			TokenPath:  "token.json",
			CalendarID: "primary",
		},
		Fetch: FetchConfig{
			Timeout:      12 * time.Second,
			Retries:      2,
			RateLimitRPS: 1.5,
		},
		S3: S3Config{
			Region:  "us-east-1",
			UseSSL:  true,
			FeedKey: "outages/schedule.ics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the config from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
// The timezone is loaded here so a bad zone stops the process before any work.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Telegram.Channel = getenv("TELEGRAM_CHANNEL", c.Telegram.Channel)
	c.Telegram.MaxMessages = getenvInt("MAX_MESSAGES", c.Telegram.MaxMessages)
	c.Timezone = getenv("DEFAULT_TIMEZONE", c.Timezone)
	c.Group = getenv("OUTAGE_GROUP", c.Group)
	c.DryRun = getenvBool("DRY_RUN", c.DryRun)
	c.SyncCron = getenv("SYNC_CRON", c.SyncCron)
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = getenv("METRICS_ADDR", c.MetricsAddr)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)

	c.Google.CredentialsPath = getenv("GOOGLE_CREDENTIALS_PATH", c.Google.CredentialsPath)
	c.Google.TokenPath = getenv("GOOGLE_TOKEN_PATH", c.Google.TokenPath)
	c.Google.CalendarID = getenv("DEFAULT_CALENDAR_ID", c.Google.CalendarID)

	c.Fetch.Timeout = getenvDuration("FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.Retries = getenvInt("FETCH_RETRIES", c.Fetch.Retries)

	c.S3.Endpoint = getenv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.PublicEndpoint = getenv("S3_PUBLIC_ENDPOINT", c.S3.PublicEndpoint)
	c.S3.Bucket = getenv("S3_BUCKET", c.S3.Bucket)
	c.S3.AccessKey = getenv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getenv("S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.Region = getenv("S3_REGION", c.S3.Region)
	c.S3.UseSSL = getenvBool("S3_USE_SSL", c.S3.UseSSL)
	c.S3.FeedKey = getenv("S3_FEED_KEY", c.S3.FeedKey)

	c.Notify.BotToken = getenv("TELEGRAM_BOT_TOKEN", c.Notify.BotToken)
	c.Notify.ChatID = getenv("TELEGRAM_NOTIFY_CHAT", c.Notify.ChatID)

	c.Logging.Level = getenv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getenv("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getenv("LOG_FILE", c.Logging.File)
}

// Validate checks field constraints and resolves the timezone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return &ValidationError{Fields: fields, Err: err}
		}
		return err
	}
	loc, err := outage.LoadZone(c.Timezone)
	if err != nil {
		return err
	}
	c.location = loc
	return nil
}

// Location returns the zone loaded by Validate.
func (c *Config) Location() *time.Location {
	return c.location
}

// RequireChannel fails when no channel is configured.
func (c *Config) RequireChannel() error {
	if strings.TrimSpace(c.Telegram.Channel) == "" {
		return fmt.Errorf("TELEGRAM_CHANNEL is required")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}
