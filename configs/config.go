package config

import (
	"os"
	"strconv"
	"time"
)

type Storage struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	Region     string
	PublicURL  string
	UseSSL     bool
}

type Telegram struct {
	BotToken string
	APIURL   string
}

type Linkedin struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIURL       string
	APIVersion   string
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	YoutubeURL   string
}

type Publish struct {
	DefaultDelay      time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	WorkerConcurrency int
}

type Config struct {
	Port        string
	PostgresURI string
	RedisURI    string
	FrontendURL string
	SecretKey   string
	CookieName  string
	LogLevel    string
	HTTPTimeout time.Duration
	Telegram    Telegram
	Linkedin    Linkedin
	Google      Google
	Storage     Storage
	Publish     Publish
}

func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "crosspost_session"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPTimeout: getDuration("HTTP_TIMEOUT", 30*time.Second),
		Telegram: Telegram{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},
		Linkedin: Linkedin{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
			APIURL:       getEnv("LINKEDIN_API_URL", "https://api.linkedin.com"),
			APIVersion:   getEnv("LINKEDIN_API_VERSION", "202405"),
		},
		Google: Google{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
			YoutubeURL:   getEnv("YOUTUBE_API_URL", "https://www.googleapis.com"),
		},
		Storage: Storage{
			Endpoint:   getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:  getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:  getEnv("STORAGE_SECRET_KEY", ""),
			BucketName: getEnv("STORAGE_BUCKET_NAME", ""),
			Region:     getEnv("STORAGE_REGION", "us-east-1"),
			PublicURL:  getEnv("STORAGE_PUBLIC_URL", ""),
			UseSSL:     getBool("STORAGE_USE_SSL", true),
		},
		Publish: Publish{
			DefaultDelay:      getDuration("PUBLISH_DELAY", time.Hour),
			MaxAttempts:       getInt("PUBLISH_MAX_ATTEMPTS", 3),
			RetryDelay:        getDuration("PUBLISH_RETRY_DELAY", time.Second),
			WorkerConcurrency: getInt("WORKER_CONCURRENCY", 10),
		},
	}
}

// StorageEnabled reports whether an object store is configured for attachments.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Endpoint != "" && c.Storage.BucketName != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
