// Package config loads the process configuration once at startup. Values are
// read from the environment (optionally seeded from a .env file by the
// initializer) into an explicit struct that is injected into the managers, so
// no component reads the environment at call time.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

const (
	defaultAccessTokenTTL  = 5 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour

	defaultKakaoAuthBaseURL = "https://kauth.kakao.com"
	defaultKakaoAPIBaseURL  = "https://kapi.kakao.com"
)

// Config is the full process configuration.
type Config struct {
	Port     string
	LogLevel string
	Database Database
	Session  Session
	Kakao    Kakao
}

// Database holds the connection parameters for the postgres pool.
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN renders the keyword/value connection string for pgxpool.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// MigrateURL renders the URL form of the connection string used by the
// migration tool.
func (d Database) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, url.QueryEscape(d.Password), d.Host, d.Port, d.Name)
}

// Session holds the signing secret and lifetimes for the local token pair.
type Session struct {
	Secret        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SecureCookies bool
}

// Kakao holds the OAuth client credentials and endpoints of the identity
// provider. The base URLs are overridable so tests can point the client at a
// local server.
type Kakao struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthBaseURL  string
	APIBaseURL   string
}

// Load reads the configuration from the environment. Missing required values
// are reported as an error rather than defaulted.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     envOrDefault("PORT", "8080"),
		LogLevel: envOrDefault("LOG_LEVEL", "INFO"),
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     envOrDefault("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			Name:     os.Getenv("DB_NAME"),
		},
		Session: Session{
			Secret:        os.Getenv("JWT_SECRET"),
			SecureCookies: os.Getenv("ENVIRONMENT") != "development",
		},
		Kakao: Kakao{
			ClientID:     os.Getenv("KAKAO_CLIENT_ID"),
			ClientSecret: os.Getenv("KAKAO_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("KAKAO_REDIRECT_URI"),
			AuthBaseURL:  envOrDefault("KAKAO_AUTH_BASE_URL", defaultKakaoAuthBaseURL),
			APIBaseURL:   envOrDefault("KAKAO_API_BASE_URL", defaultKakaoAPIBaseURL),
		},
	}

	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Password == "" || cfg.Database.Name == "" {
		return nil, fmt.Errorf("database environment variables not set")
	}

	if len(cfg.Session.Secret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	if cfg.Kakao.ClientID == "" || cfg.Kakao.RedirectURI == "" {
		return nil, fmt.Errorf("kakao environment variables not set")
	}

	var err error
	if cfg.Session.AccessTTL, err = durationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.Session.RefreshTTL, err = durationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTokenTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration in %s: %w", key, err)
	}
	return parsed, nil
}
