package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"chart-signal/api/internal/analysis"
)

type Config struct {
	Port string
	// MaxUploadMB caps HTTP upload bodies; 0 disables the cap.
	MaxUploadMB int

	// Model keys are not stored here: engines read them on every call.
	GeminiModel   string
	OpenAIModel   string
	OpenAIBaseURL string
	DefaultEngine string

	TelegramBotToken string
	WebhookURL       string

	DatabaseDSN    string
	JournalMaxDays int

	LogLevel string
	LogFile  string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Load reads the environment, after an optional .env file in the working
// directory. Nothing here is required: a missing API key surfaces as a
// ConfigurationError on the first analysis, not at startup.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return &Config{
		Port:        getEnv("PORT", "8000"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 0),

		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		DefaultEngine: strings.ToLower(getEnv("DEFAULT_ENGINE", "gemini")),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		DatabaseDSN:    ResolveDSN(),
		JournalMaxDays: getEnvInt("JOURNAL_MAX_DAYS", 30),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// GeminiCredential reads GEMINI_API_KEY, then API_KEY, at call time.
func GeminiCredential() analysis.Credential {
	return analysis.EnvCredential("GEMINI_API_KEY", "API_KEY")
}

func OpenAICredential() analysis.Credential {
	return analysis.EnvCredential("OPENAI_API_KEY")
}

// ResolveDSN prefers DATABASE_URL and otherwise builds a DSN from POSTGRES_*
// and PG* variables. It returns "" when neither DATABASE_URL nor
// POSTGRES_PASSWORD is set; the journal is then disabled.
func ResolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "chartsignal"), pass),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "chartsignal"),
		RawQuery: "sslmode=" + getEnv("PGSSLMODE", "disable"),
	}
	return u.String()
}

// SafeDSNSummary renders a DSN for logs without the password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
