package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	LogLevel string
	LogFile  string

	HTTPAddr           string
	GinMode            string
	CORSAllowedOrigins []string

	DecisionURL          string
	DecisionToken        string
	DecisionRateLimitRPS int
	DecisionTimeoutMs    int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailQuery        string

	IMAPHost          string
	IMAPPort          int
	IMAPSecure        bool
	IMAPUser          string
	IMAPPassword      string
	IMAPMarkSeen      bool
	IMAPSubjectFilter string

	MailDropDir string

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "vouchers.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		GinMode:            getEnv("GIN_MODE", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		DecisionURL:          getEnv("DECISION_URL", ""),
		DecisionToken:        getEnv("DECISION_TOKEN", ""),
		DecisionRateLimitRPS: getEnvInt("DECISION_RATE_LIMIT_RPS", 5),
		DecisionTimeoutMs:    getEnvInt("DECISION_TIMEOUT_MS", 30000),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailQuery:        getEnv("GMAIL_QUERY", "has:attachment (filename:xlsx OR filename:csv)"),

		IMAPHost:          getEnv("IMAP_HOST", ""),
		IMAPPort:          getEnvInt("IMAP_PORT", 993),
		IMAPSecure:        getEnvBool("IMAP_SECURE", true),
		IMAPUser:          getEnv("IMAP_USER", ""),
		IMAPPassword:      getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen:      getEnvBool("IMAP_MARK_SEEN", false),
		IMAPSubjectFilter: getEnv("IMAP_SUBJECT_FILTER", ""),

		MailDropDir: getEnv("MAIL_DROP_DIR", filepath.Join(cwd, "data", "inbox")),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	out := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
