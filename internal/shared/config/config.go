package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	LLMProvider        string
	LLMModel           string
	GoogleAPIKey       string
	OpenAIAPIKey       string
	LLMTimeout         time.Duration
	LLMRetries         int
	DatabaseURL        string
	RedisURL           string
	SessionTTL         time.Duration
	HistoryFile        string
	HistoryLimit       int
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	OAuthStateSecret   string
	GmailTokenDir      string
	ScrapeTimeout      time.Duration
	ScrapeMaxChars     int
	EmailHTMLPart      bool
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"ENV":                    "dev",
	"CORS_ALLOW_ORIGINS":     "http://localhost:5173",
	"OBJECT_STORE":           "local",
	"LOCAL_STORE_DIR":        "./data",
	"LLM_PROVIDER":           "gemini",
	"LLM_MODEL":              "",
	"LLM_TIMEOUT_SECONDS":    120,
	"LLM_RETRIES":            1,
	"SESSION_TTL":            "12h",
	"HISTORY_FILE":           "email_history.json",
	"HISTORY_LIMIT":          10,
	"GMAIL_TOKEN_DIR":        "./data/tokens",
	"SCRAPE_TIMEOUT_SECONDS": 20,
	"SCRAPE_MAX_CHARS":       8000,
	"EMAIL_HTML_PART":        false,
}

// Load reads configuration from .env files, an optional jobapply.yaml, and the environment.
func Load() Config {
	// Missing .env files are fine outside local development.
	_ = godotenv.Load(existing(".env", "cmd/.env")...)

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("jobapply")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("config: ignoring unreadable jobapply.yaml: %v", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Port:               v.GetString("PORT"),
		Env:                env,
		CORSAllowOrigin:    splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		ObjectStoreType:    normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:      v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:          v.GetString("AWS_REGION"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Prefix:           v.GetString("S3_PREFIX"),
		SSEKMSKeyID:        v.GetString("SSE_KMS_KEY_ID"),
		LLMProvider:        normalizeProvider(v.GetString("LLM_PROVIDER")),
		LLMModel:           strings.TrimSpace(v.GetString("LLM_MODEL")),
		GoogleAPIKey:       v.GetString("GOOGLE_API_KEY"),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		LLMTimeout:         seconds(v.GetInt("LLM_TIMEOUT_SECONDS"), 120),
		LLMRetries:         v.GetInt("LLM_RETRIES"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisURL:           v.GetString("REDIS_URL"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		HistoryFile:        v.GetString("HISTORY_FILE"),
		HistoryLimit:       v.GetInt("HISTORY_LIMIT"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		UIRedirectURL:      v.GetString("UI_REDIRECT_URL"),
		OAuthStateSecret:   v.GetString("OAUTH_STATE_SECRET"),
		GmailTokenDir:      v.GetString("GMAIL_TOKEN_DIR"),
		ScrapeTimeout:      seconds(v.GetInt("SCRAPE_TIMEOUT_SECONDS"), 20),
		ScrapeMaxChars:     v.GetInt("SCRAPE_MAX_CHARS"),
		EmailHTMLPart:      v.GetBool("EMAIL_HTML_PART"),
	}
	if cfg.LLMRetries < 0 {
		cfg.LLMRetries = 0
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is empty in production; the API server will refuse to start")
	}
	return cfg
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := godotenv.Read(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "off":
		return "none"
	default:
		return "gemini"
	}
}
