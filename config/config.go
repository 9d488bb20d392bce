package config

import (
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration loaded from environment variables.
// Loaded once at process start; nothing reloads it afterwards.
type Config struct {
	AppName string
	Env     string `validate:"oneof=development staging production"`

	// Telegram
	BotToken      string `validate:"required"`
	AdminChatID   int64
	AdminIDs      []int64
	WebhookURL    string `validate:"omitempty,url"`
	WebhookSecret string `validate:"required_with=WebhookURL"`

	// Backend order service
	BackendURL     string `validate:"required,url"`
	BotSecretKey   string
	BackendTimeout time.Duration `validate:"min=1s"`
	ConfirmTimeout time.Duration `validate:"min=1s"`

	// Album debounce
	AlbumQuietPeriod time.Duration `validate:"min=1ms"`
	AlbumMaxWait     time.Duration
	AlbumPolicy      string `validate:"oneof=reset fixed"`

	// Storage selection
	UserStore    string `validate:"oneof=json redis postgres"`
	UsersFile    string `validate:"required_if=UserStore json"`
	ReplaceStore string `validate:"oneof=memory redis"`
	ReplaceTTL   time.Duration

	// Ops HTTP server
	HTTPEnabled bool
	Port        string
	GinMode     string

	// Database
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration

	// Migrations
	MigrationsDir string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Per-user inbound event limit, enforced only when redis is configured
	RateLimitMax    int
	RateLimitWindow time.Duration

	// RabbitMQ
	RabbitMQURL         string
	RabbitMQNotifyQueue string

	// Reviewer e-mail destinations (comma-separated), delivered via the notify queue
	ReviewerEmailsRaw string

	// Mailgun
	MailgunDomain   string
	MailgunAPIKey   string
	MailgunSender   string
	MailSendEnabled bool

	// Elasticsearch
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string

	// Google Cloud Storage photo archive
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getint64(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Printf("invalid int64 for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		AppName: getenv("APP_NAME", "pulse-correction-bot"),
		Env:     getenv("APP_ENV", "development"),

		BotToken:      getenv("BOT_TOKEN", ""),
		AdminChatID:   getint64("ADMIN_CHAT_ID", 0),
		AdminIDs:      ParseIDList(getenv("ADMIN_IDS", "")),
		WebhookURL:    getenv("WEBHOOK_URL", ""),
		WebhookSecret: getenv("WEBHOOK_SECRET", ""),

		BackendURL:     strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8000"), "/"),
		BotSecretKey:   getenv("BOT_SECRET_KEY", ""),
		BackendTimeout: getdur("BACKEND_TIMEOUT", 60*time.Second),
		ConfirmTimeout: getdur("CONFIRM_TIMEOUT", 10*time.Second),

		AlbumQuietPeriod: getdur("ALBUM_QUIET_PERIOD", 700*time.Millisecond),
		AlbumMaxWait:     getdur("ALBUM_MAX_WAIT", 5*time.Second),
		AlbumPolicy:      strings.ToLower(getenv("ALBUM_POLICY", "reset")),

		UserStore:    strings.ToLower(getenv("USER_STORE", "json")),
		UsersFile:    getenv("USERS_FILE", "users.json"),
		ReplaceStore: strings.ToLower(getenv("REPLACE_STORE", "memory")),
		ReplaceTTL:   getdur("REPLACE_TTL", 24*time.Hour),

		HTTPEnabled: getbool("HTTP_ENABLED", true),
		Port:        getenv("PORT", "8080"),
		GinMode:     getenv("GIN_MODE", "release"),

		DBHost:        getenv("DB_HOST", "localhost"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBUser:        getenv("DB_USER", "postgres"),
		DBPassword:    getenv("DB_PASSWORD", "postgres"),
		DBName:        getenv("DB_NAME", "botdb"),
		DBSSLMode:     getenv("DB_SSLMODE", "disable"),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 5)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 1)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),

		MigrationsDir: getenv("MIGRATIONS_DIR", "db/migrations"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		RateLimitMax:    getint("RATE_LIMIT_MAX", 60),
		RateLimitWindow: getdur("RATE_LIMIT_WINDOW", time.Minute),

		RabbitMQURL:         getenv("RABBITMQ_URL", ""),
		RabbitMQNotifyQueue: getenv("RABBITMQ_NOTIFY_QUEUE", "bot-notifications"),

		ReviewerEmailsRaw: getenv("REVIEWER_EMAILS", ""),

		MailgunDomain:   getenv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:   getenv("MAILGUN_API_KEY", ""),
		MailgunSender:   getenv("MAILGUN_SENDER", ""),
		MailSendEnabled: getbool("MAIL_SEND_ENABLED", true),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESUsersIndex:       getenv("ES_USERS_INDEX", "bot-users"),

		GCSBucket:              getenv("GCS_BUCKET", ""),
		GCSCredentialsJSONPath: getenv("GCS_CREDENTIALS_JSON", ""),
	}
}

// Validate checks the loaded values. A failure here is the only error that aborts startup.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// ParseIDList parses a comma-separated list of numeric ids, skipping anything that is not all digits.
func ParseIDList(raw string) []int64 {
	seen := map[int64]struct{}{}
	var out []int64
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" || !isDigits(p) {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PostgresDSN returns a DSN compatible with pgx
func (c *Config) PostgresDSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// ReviewerEmails returns the reviewer e-mail addresses as slice
func (c *Config) ReviewerEmails() []string {
	return splitList(c.ReviewerEmailsRaw)
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string {
	return splitList(c.ElasticsearchAddrs)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
