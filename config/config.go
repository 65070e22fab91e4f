package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Email providers.
const (
	EmailProviderLog    = "log"
	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds application configuration loaded from environment.
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Admin       AdminConfig
	AWS         AWSConfig
	Email       EmailConfig
	Sheets      SheetsConfig
	Conference  ConferenceConfig
	Worker      WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	ShutdownTimeout    int
	CORSAllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // used as-is when set
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. Addr may be a redis:// URL.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds admin token settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AdminConfig is the account created at startup when it does not exist.
type AdminConfig struct {
	Email    string
	Password string
}

// AWSConfig holds AWS credentials and the snapshot/export bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	BackupsBucket        string
	PresignExpireMinutes int
	SnapshotKeep         int
}

// EmailConfig selects and configures the mail provider.
type EmailConfig struct {
	Provider      string
	FromAddress   string
	FromName      string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	ResendAPIKey  string
	ResendBaseURL string
}

// SheetsConfig is the spreadsheet sink. Disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
}

// ConferenceConfig is shown in emails and exports.
type ConferenceConfig struct {
	Name           string
	OrganizerEmail string
	ContactPhone   string
}

// WorkerConfig controls the background job processor.
type WorkerConfig struct {
	Concurrency int
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// From returns the sender header value, "Name <address>" when a name is set.
func (c EmailConfig) From() string {
	if c.FromName == "" {
		return c.FromAddress
	}
	return fmt.Sprintf("%s <%s>", c.FromName, c.FromAddress)
}

// Enabled reports whether the spreadsheet sink is configured.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != "" && c.CredentialsFile != ""
}

// Enabled reports whether snapshots and exports can use S3.
func (c AWSConfig) Enabled() bool {
	return c.BackupsBucket != ""
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			ShutdownTimeout:    getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lectureship"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", defaultJWTSecret),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 12),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BackupsBucket:        getEnv("AWS_S3_BACKUPS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
			SnapshotKeep:         getEnvInt("SNAPSHOT_KEEP", 7),
		},
		Email: EmailConfig{
			Provider:      strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderLog)),
			FromAddress:   getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:      getEnv("EMAIL_FROM_NAME", "National Lectureship"),
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getEnvInt("SMTP_PORT", 587),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
			ResendBaseURL: getEnv("RESEND_BASE_URL", ""),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
			Range:           getEnv("SHEETS_RANGE", "Registrations!A1"),
			CredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),
		},
		Conference: ConferenceConfig{
			Name:           getEnv("CONFERENCE_NAME", "CHURCHES OF CHRIST NATIONAL LECTURESHIP"),
			OrganizerEmail: getEnv("CONFERENCE_ORGANIZER_EMAIL", "cocnl1945@gmail.com"),
			ContactPhone:   getEnv("CONFERENCE_CONTACT_PHONE", "(800) 609-6211"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that would fail at runtime.
func (c *Config) Validate() error {
	var errs []error
	switch c.Email.Provider {
	case EmailProviderLog:
	case EmailProviderSMTP:
		if c.Email.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp email provider"))
		}
	case EmailProviderResend:
		if c.Email.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required for the resend email provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q", c.Email.Provider))
	}
	if c.Environment == "production" && c.JWT.Secret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be at least 1"))
	}
	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsFile == "" {
		errs = append(errs, errors.New("SHEETS_CREDENTIALS_FILE is required when SHEETS_SPREADSHEET_ID is set"))
	}
	return errors.Join(errs...)
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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
