package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the process configuration. Values come from the environment,
// with an optional local .env file loaded first.
type Config struct {
	Addr                 string
	PostgresDSN          string
	AuthSecret           string
	BillingSecretKey     string
	BillingWebhookSecret string
	NotifyAPIKey         string
	ClientURL            string
}

// Load reads the configuration from the environment. A missing .env file is
// not an error.
func Load() Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	return Config{
		Addr:                 getEnv("CLAUSELENS_ADDR", ":8080"),
		PostgresDSN:          getEnv("CLAUSELENS_PG_DSN", ""),
		AuthSecret:           getEnv("CLAUSELENS_AUTH_SECRET", ""),
		BillingSecretKey:     getEnv("CLAUSELENS_BILLING_SECRET_KEY", ""),
		BillingWebhookSecret: getEnv("CLAUSELENS_BILLING_WEBHOOK_SECRET", ""),
		NotifyAPIKey:         getEnv("CLAUSELENS_NOTIFY_API_KEY", ""),
		ClientURL:            getEnv("CLAUSELENS_CLIENT_URL", "http://localhost:3000"),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
