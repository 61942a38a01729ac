package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	// UsersPath is the root of per-user workspace directories; each user's
	// projects live at UsersPath/<user>/<dir>.
	UsersPath string
	// RepoPath is the root of published zip artifacts, laid out as
	// RepoPath/<owner>/<dir>.zip.
	RepoPath string

	// HubDBPath is the hub's spawner database (sqlite, read-only).
	HubDBPath string
	// HubAPIURL and HubAPIToken drive named-server creation.
	HubAPIURL   string
	HubAPIToken string

	JWTSecret string
	BaseURL   string

	// ProtectedTagUsers may assign protected tags. Admins always may.
	ProtectedTagUsers []string

	// NotifyEmail receives a notification when a project is published.
	NotifyEmail string

	SMTP SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		UsersPath: getEnv("USERS_PATH", "/data/users"),
		RepoPath:  getEnv("REPO_PATH", "/data/repository"),

		HubDBPath:   getEnv("HUB_DB_PATH", ""),
		HubAPIURL:   getEnv("HUB_API_URL", ""),
		HubAPIToken: getEnv("HUB_API_TOKEN", ""),

		JWTSecret: getEnvOrPanic("JWT_SECRET"),
		BaseURL:   getEnv("BASE_URL", "http://localhost:8080"),

		ProtectedTagUsers: splitList(getEnv("PROTECTED_TAG_USERS", "")),

		NotifyEmail: getEnv("NOTIFY_EMAIL", ""),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
