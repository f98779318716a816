package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
}

type DKIM struct {
	Domain   string
	Selector string
	KeyFile  string
}

type Email struct {
	Transport    string // resend or smtp
	ResendAPIKey string
	From         string
	ReplyTo      string
	SMTP         SMTP
	DKIM         DKIM
	BatchSize    int
	BatchDelay   time.Duration
}

type Social struct {
	TwitterAccessToken      string
	LinkedInAccessToken     string
	FacebookPageID          string
	FacebookPageAccessToken string
	DevtoAPIKey             string
}

type Config struct {
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	AdminEmails        []string
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	SiteURL            string
	R2                 R2
	Email              Email
	Social             Social
	SecretKey          string
	CookieName         string
	CronSecret         string
	UnsubscribeSecret  string
	SweepInterval      string
	StaleDispatchAfter time.Duration
	LogLevel           string
	LogFormat          string
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		AdminEmails:        getEnvList("ADMIN_EMAILS"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		SiteURL:            strings.TrimRight(getEnv("SITE_URL", "http://localhost:5173"), "/"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		Email: Email{
			Transport:    getEnv("EMAIL_TRANSPORT", "resend"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", ""),
			ReplyTo:      getEnv("EMAIL_REPLY_TO", ""),
			SMTP: SMTP{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnvInt("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
			},
			DKIM: DKIM{
				Domain:   getEnv("DKIM_DOMAIN", ""),
				Selector: getEnv("DKIM_SELECTOR", "default"),
				KeyFile:  getEnv("DKIM_KEY_FILE", ""),
			},
			BatchSize:  getEnvInt("EMAIL_BATCH_SIZE", 10),
			BatchDelay: time.Duration(getEnvInt("EMAIL_BATCH_DELAY_MS", 1000)) * time.Millisecond,
		},
		Social: Social{
			TwitterAccessToken:      getEnv("TWITTER_ACCESS_TOKEN", ""),
			LinkedInAccessToken:     getEnv("LINKEDIN_ACCESS_TOKEN", ""),
			FacebookPageID:          getEnv("FACEBOOK_PAGE_ID", ""),
			FacebookPageAccessToken: getEnv("FACEBOOK_PAGE_ACCESS_TOKEN", ""),
			DevtoAPIKey:             getEnv("DEVTO_API_KEY", ""),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", "campaignflow_session"),
		CronSecret:         getEnv("CRON_SECRET", ""),
		UnsubscribeSecret:  getEnv("UNSUBSCRIBE_SECRET", ""),
		SweepInterval:      getEnv("SWEEP_INTERVAL", ""),
		StaleDispatchAfter: getEnvDuration("STALE_DISPATCH_AFTER", 30*time.Minute),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.UnsubscribeSecret == "" {
		slog.Warn("UNSUBSCRIBE_SECRET is not set, falling back to SECRET_KEY for unsubscribe tokens")
		cfg.UnsubscribeSecret = cfg.SecretKey
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
