package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Supabase/hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	// AppBaseURL is the public URL of the dashboard frontend; successful
	// OAuth callbacks redirect there. Example: https://app.yourmarketplace.com
	AppBaseURL string

	// LoginURL is where unauthenticated users are sent; the original request
	// URL is appended as ?returnTo= so the flow can resume after login.
	LoginURL string

	DB DBConfig

	Supabase SupabaseConfig

	MercadoPago MercadoPagoConfig

	// APIAllowedOrigins is a comma-separated allowlist of origins allowed to
	// call the payment API from a browser (storefront/mobile web). Example:
	//   https://shop.yourmarketplace.com,http://localhost:5173
	APIAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type SupabaseConfig struct {
	// JWTSecret verifies the HS256 session tokens issued by the hosted
	// identity provider (Supabase "JWT Secret" project setting).
	JWTSecret string
}

type MercadoPagoConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// StateSecret signs OAuth state tokens. Falls back to ClientSecret when
	// unset so a minimal deployment still works.
	StateSecret string

	// StateMaxAge bounds how old a state token may be when the callback
	// arrives. Zero disables the check.
	StateMaxAge time.Duration

	// GlobalAccessToken is the marketplace application's own access token,
	// used as a fallback for webhook payment lookups when the vendor-scoped
	// token cannot resolve the payment.
	GlobalAccessToken string

	// WebhookSecret enables x-signature verification on inbound
	// notifications when set. Leave empty only in dev.
	WebhookSecret string

	// APIBaseURL / AuthBaseURL are overridable for tests and sandboxing.
	APIBaseURL  string
	AuthBaseURL string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	mpStateSecret := os.Getenv("MP_STATE_SECRET")
	if mpStateSecret == "" {
		mpStateSecret = os.Getenv("MP_CLIENT_SECRET")
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		AppBaseURL:     env("APP_BASE_URL", "http://localhost:3000"),
		LoginURL:       env("LOGIN_URL", "/login"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "marketplace"),
			User:     env("DB_USER", "marketplace"),
			Password: env("DB_PASSWORD", "marketplace"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Supabase: SupabaseConfig{
			JWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		},
		MercadoPago: MercadoPagoConfig{
			ClientID:          os.Getenv("MP_CLIENT_ID"),
			ClientSecret:      os.Getenv("MP_CLIENT_SECRET"),
			RedirectURI:       os.Getenv("MP_REDIRECT_URI"),
			StateSecret:       mpStateSecret,
			StateMaxAge:       envDuration("MP_STATE_MAX_AGE", 10*time.Minute),
			GlobalAccessToken: os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
			WebhookSecret:     os.Getenv("MP_WEBHOOK_SECRET"),
			APIBaseURL:        env("MP_API_BASE_URL", "https://api.mercadopago.com"),
			AuthBaseURL:       env("MP_AUTH_BASE_URL", "https://auth.mercadopago.com.ar"),
		},

		APIAllowedOrigins: envList("API_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			s := v[start:i]
			start = i + 1
			// trim spaces
			for len(s) > 0 && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r') {
				s = s[1:]
			}
			for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
				s = s[:len(s)-1]
			}
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
