package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI            string
	DBName              string
	JWTSecret           string
	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string
	Port                string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:            getEnvOrDefault("MONGODB_URI", ""),
		DBName:              getEnvOrDefault("DB_NAME", "freshcart"),
		JWTSecret:           getEnvOrDefault("JWT_SECRET", ""),
		StripeSecretKey:     getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_ENDPOINT_WEBHOOK_SECRET_KEY", ""),
		FrontendURL:         getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		Port:                getEnvOrDefault("PORT", "8080"),
	}

	if AppEnv.StripeSecretKey == "" {
		log.Println("⚠️ STRIPE_SECRET_KEY is not configured; checkout will fail")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
