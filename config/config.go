package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Redis   RedisConfig
	AWS     AWSConfig
	Keys    KeysConfig
	CheckIn CheckInConfig
	Email   EmailConfig
	Export  ExportConfig
	Relay   RelayConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	InProcessWorker    bool   // run the confirmation worker inside the API server when Redis is set
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Driver          string // memory | postgres | firestore
	DatabaseURL     string
	MaxConns        int
	ProjectID       string // Firestore project
	CredentialsFile string // service account JSON; empty = application default credentials
}

// RedisConfig holds Redis connection settings. An empty Addr disables the queue and icon cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds AWS credentials and the bucket for archived exports.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// KeysConfig holds the shared-secret API keys. Values may be plain or bcrypt hashes.
type KeysConfig struct {
	Write string
	Read  string
}

// CheckInConfig holds the eligibility rules of the check-in flow.
type CheckInConfig struct {
	InstitutionSuffix     string // e.g. ".edu"
	AliasTag              string // "+<tag>@" marks a personal email standing in for an institutional one
	StrictEventValidation bool   // reject events missing from extra/icons
	TriggerEvent          string // event whose check-in triggers the confirmation email
	IconCacheTTLSeconds   int
}

// EmailConfig for the outbound HTTP email API.
type EmailConfig struct {
	APIURL      string
	APIKey      string
	FromAddress string
	FromName    string
	Locale      string
	Concurrency int
}

// ExportConfig for CSV export.
type ExportConfig struct {
	Delimiter string
}

// RelayConfig for the CORS relay.
type RelayConfig struct {
	Port      string
	Upstreams map[string]string // NAME_URL -> upstream URL
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 60),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			InProcessWorker:    getEnvBool("INPROCESS_WORKER", true),
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
			DatabaseURL:     getEnv("DATABASE_URL", "postgres://localhost:5432/checkin?sslmode=disable"),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 0),
			ProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("EXPORT_S3_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Keys: KeysConfig{
			Write: getEnv("WRITE_API_KEY", ""),
			Read:  getEnv("READ_API_KEY", ""),
		},
		CheckIn: CheckInConfig{
			InstitutionSuffix:     getEnv("INSTITUTION_SUFFIX", ".edu"),
			AliasTag:              getEnv("EMAIL_PREFIX", ""),
			StrictEventValidation: getEnvBool("STRICT_EVENT_VALIDATION", true),
			TriggerEvent:          strings.ToLower(strings.TrimSpace(getEnv("CHECKIN_EMAIL_TRIGGER_TAG", ""))),
			IconCacheTTLSeconds:   getEnvInt("ICON_CACHE_TTL_SEC", 300),
		},
		Email: EmailConfig{
			APIURL:      getEnv("EMAIL_API_URL", "https://api.sendgrid.com/v3/mail/send"),
			APIKey:      getEnv("EMAIL_API_KEY", ""),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Check-in"),
			Locale:      getEnv("EMAIL_LOCALE", "en"),
			Concurrency: getEnvInt("EMAIL_CONCURRENCY", 4),
		},
		Export: ExportConfig{
			Delimiter: getEnv("CSV_DELIMITER", "~"),
		},
		Relay: RelayConfig{
			Port:      getEnv("RELAY_PORT", "8787"),
			Upstreams: relayUpstreams(splitTrim(getEnv("RELAY_TARGETS", "check_in,change_email"), ",")),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres:
	case DriverFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("config: FIRESTORE_PROJECT_ID is required when STORE_DRIVER=firestore")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if len(c.Export.Delimiter) != 1 {
		return fmt.Errorf("config: CSV_DELIMITER must be a single character, got %q", c.Export.Delimiter)
	}
	return nil
}

// relayUpstreams resolves each allow-listed relay name to its <NAME>_URL variable.
func relayUpstreams(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		key := strings.ToUpper(n) + "_URL"
		if v := os.Getenv(key); v != "" {
			out[key] = v
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
