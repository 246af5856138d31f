package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	LogMode string

	// LLM backends. An engine is registered only when its key is set.
	LLMDefault      string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeout      time.Duration
	LLMAttempts     int
	LLMTemperature  float64

	RequestTimeout time.Duration
	MaxUploadBytes int64

	// Retrieval: "pinecone" | "local" | "none".
	RetrievalProvider string
	RetrievalTopK     int
	PineconeAPIKey    string
	PineconeIndex     string
	PineconeNamespace string
	EmbeddingModel    string
	LocalIndexPath    string

	// OCR: "yandex" | "vision" | "none".
	OCRProvider  string
	OCRLangs     []string
	YCOAuthToken string
	YCFolderID   string

	DatabaseURL      string
	JournalRetention time.Duration

	TelegramBotToken string
	WebhookURL       string
}

func mustEnv(k string) (string, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return "", fmt.Errorf("missing required env %s", k)
	}
	return v, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return n, nil
}

func getFloat(k string, def float64) (float64, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return f, nil
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return d, nil
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8000"),
		LogMode: getEnv("LOG_MODE", "dev"),

		LLMDefault:      strings.ToLower(getEnv("LLM_DEFAULT", "gemini")),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		RetrievalProvider: strings.ToLower(getEnv("RETRIEVAL_PROVIDER", "none")),
		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndex:     getEnv("PINECONE_INDEX", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", ""),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		LocalIndexPath:    getEnv("LOCAL_INDEX_PATH", "data/index.json"),

		OCRProvider:  strings.ToLower(getEnv("OCR_PROVIDER", "none")),
		OCRLangs:     splitList(getEnv("OCR_LANGS", "ko,en")),
		YCOAuthToken: getEnv("YC_OAUTH_TOKEN", ""),
		YCFolderID:   getEnv("YC_FOLDER_ID", ""),

		DatabaseURL: resolveDSN(),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}

	var err error
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 180*time.Second); err != nil {
		return nil, err
	}
	if cfg.JournalRetention, err = getDuration("JOURNAL_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LLMAttempts, err = getInt("LLM_ATTEMPTS", 1); err != nil {
		return nil, err
	}
	if cfg.RetrievalTopK, err = getInt("RETRIEVAL_TOP_K", 2); err != nil {
		return nil, err
	}
	if cfg.LLMTemperature, err = getFloat("LLM_TEMPERATURE", 0.4); err != nil {
		return nil, err
	}
	maxUpload, err := getInt("MAX_UPLOAD_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		return fmt.Errorf("no LLM configured: set GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	if c.LLMAttempts < 1 {
		return fmt.Errorf("LLM_ATTEMPTS must be >= 1")
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be >= 1")
	}
	switch c.RetrievalProvider {
	case "none":
	case "pinecone":
		if _, err := mustEnv("PINECONE_API_KEY"); err != nil {
			return err
		}
		if _, err := mustEnv("PINECONE_INDEX"); err != nil {
			return err
		}
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("retrieval %q needs OPENAI_API_KEY for embeddings", c.RetrievalProvider)
		}
	case "local":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("retrieval %q needs OPENAI_API_KEY for embeddings", c.RetrievalProvider)
		}
	default:
		return fmt.Errorf("unknown RETRIEVAL_PROVIDER %q", c.RetrievalProvider)
	}
	switch c.OCRProvider {
	case "none", "vision":
	case "yandex":
		if _, err := mustEnv("YC_OAUTH_TOKEN"); err != nil {
			return err
		}
		if _, err := mustEnv("YC_FOLDER_ID"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown OCR_PROVIDER %q", c.OCRProvider)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveDSN prefers DATABASE_URL and otherwise builds one from POSTGRES_*.
// Empty result means the exchange journal is disabled.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "quizgen"), pass),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "quizgen"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary renders a DSN without credentials for logs.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, u.User.Username())
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, u.User.Username())
}
