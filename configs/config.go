package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Stripe struct {
	SecretKey     string
	WebhookSecret string
	PriceMonthly  string
	PriceAnnual   string
}

type LemonSqueezy struct {
	APIKey         string
	StoreID        string
	VariantMonthly string
	VariantAnnual  string
	WebhookSecret  string
}

type Config struct {
	PostgresURI   string
	RedisURI      string
	Port          string
	FrontendURL   string
	SecretKey     string
	CookieName    string
	OpenAIKey     string
	OpenAIModel   string
	Stripe        Stripe
	LemonSqueezy  LemonSqueezy
	R2            R2
	MigrationsDir string
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		Port:        getEnv("PORT", "3000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "formai_device"),
		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Stripe: Stripe{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceMonthly:  getEnv("STRIPE_PRICE_MONTHLY", ""),
			PriceAnnual:   getEnv("STRIPE_PRICE_ANNUAL", ""),
		},
		LemonSqueezy: LemonSqueezy{
			APIKey:         getEnv("LEMON_API_KEY", ""),
			StoreID:        getEnv("LEMON_STORE_ID", ""),
			VariantMonthly: getEnv("LEMON_VARIANT_MONTHLY", ""),
			VariantAnnual:  getEnv("LEMON_VARIANT_ANNUAL", ""),
			WebhookSecret:  getEnv("LEMON_WEBHOOK_SECRET", ""),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
