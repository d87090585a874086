package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SecretKey string // Required: shared HMAC signing secret, at least 32 bytes
	Issuer    string // Optional: issuer claim for tokens (default: airlock-identity)

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 168h)

	DatabaseFile string // Optional: path to SQLite database file (default: ./identity.db)

	OAuthClientID     string // Required: client id registered with the upstream provider
	OAuthClientSecret string // Required for confidential upstream clients
	OAuthAuthorizeURL string // Required: upstream /authorize endpoint
	OAuthTokenURL     string // Required: upstream /token endpoint
	OAuthUserInfoURL  string // Required: upstream /userinfo endpoint
	OAuthRedirectURI  string // Required: this service's callback URL as registered upstream
	OAuthScopes       []string

	FrontendCallbackURL string // Where the login callback sends the browser with tokens

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		SecretKey: os.Getenv("AUTH_SECRET_KEY"),
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "airlock-identity"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "identity.db"),

		OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		OAuthAuthorizeURL: os.Getenv("OAUTH_AUTHORIZE_URL"),
		OAuthTokenURL:     os.Getenv("OAUTH_TOKEN_URL"),
		OAuthUserInfoURL:  os.Getenv("OAUTH_USERINFO_URL"),
		OAuthRedirectURI: getEnvOrDefault(
			"OAUTH_REDIRECT_URI",
			"http://localhost:8080/v1/auth/callback",
		),
		OAuthScopes: strings.Fields(getEnvOrDefault("OAUTH_SCOPES", "openid profile email")),

		FrontendCallbackURL: getEnvOrDefault(
			"FRONTEND_CALLBACK_URL",
			"http://localhost:3000/auth/callback",
		),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
