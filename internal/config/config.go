package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Supported ledger drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported messenger platforms.
const (
	PlatformTwilio = "twilio"
	PlatformSlack  = "slack"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Twilio   TwilioConfig
	Slack    SlackConfig
	Admin    AdminConfig
	Report   ReportConfig
	Commands CommandConfig
	API      APIConfig
}

// DatabaseConfig holds ledger storage settings. SQLitePath applies to the
// sqlite driver; the remaining fields apply to postgres.
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	Host       string
	Port       int
	User       string
	Password   string //nolint:gosec // G117: DB connection config
	DBName     string
	SSLMode    string
	MaxConns   int
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis
// and report runs are serialized in-process only.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
	PublicBaseURL string // used for report links and webhook signature checks
}

// TwilioConfig holds Twilio (WhatsApp) integration settings.
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string //nolint:gosec // G117: Twilio credential config
	From              string // sender identity for outbound messages, e.g. "whatsapp:+14155238886"
	ValidateSignature bool
}

// SlackConfig holds Slack integration settings.
type SlackConfig struct {
	BotToken      string
	SigningSecret string
}

// AdminConfig identifies the single administrator.
type AdminConfig struct {
	ID       string // sender identity, e.g. "whatsapp:+5571..."
	Platform string // platform the admin receives reports on
}

// ReportConfig holds report generation settings.
type ReportConfig struct {
	Dir      string
	Schedule string // standard 5-field cron spec
	Timezone string
	Location *time.Location
}

// CommandConfig holds the inbound command vocabulary.
type CommandConfig struct {
	RecordTriggers []string
}

// APIConfig holds JSON API settings. An empty Key leaves the API unmounted.
type APIConfig struct {
	Key string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("PARTICIPA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("PARTICIPA_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("PARTICIPA_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("PARTICIPA_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	// Report runs triggered from a webhook complete before the response is written.
	writeTimeout, err := getEnvDuration("PARTICIPA_SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	validateSignature, err := getEnvBool("PARTICIPA_TWILIO_VALIDATE_SIGNATURE", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("PARTICIPA_DB_DRIVER", DriverSQLite)),
			SQLitePath: getEnv("PARTICIPA_SQLITE_PATH", "participations.db"),
			Host:       getEnv("PARTICIPA_DB_HOST", "localhost"),
			Port:       dbPort,
			User:       getEnv("PARTICIPA_DB_USER", "participa"),
			Password:   getEnv("PARTICIPA_DB_PASSWORD", ""),
			DBName:     getEnv("PARTICIPA_DB_NAME", "participa"),
			SSLMode:    getEnv("PARTICIPA_DB_SSLMODE", "disable"),
			MaxConns:   dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PARTICIPA_REDIS_ADDR", ""),
			Password: getEnv("PARTICIPA_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:          getEnv("PARTICIPA_SERVER_ADDR", ":8080"),
			ReadTimeout:   readTimeout,
			WriteTimeout:  writeTimeout,
			CORSOrigins:   getEnvList("PARTICIPA_CORS_ORIGINS", []string{"*"}),
			PublicBaseURL: strings.TrimRight(getEnv("PARTICIPA_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Twilio: TwilioConfig{
			AccountSID:        getEnv("PARTICIPA_TWILIO_ACCOUNT_SID", ""),
			AuthToken:         getEnv("PARTICIPA_TWILIO_AUTH_TOKEN", ""),
			From:              getEnv("PARTICIPA_TWILIO_FROM", ""),
			ValidateSignature: validateSignature,
		},
		Slack: SlackConfig{
			BotToken:      getEnv("PARTICIPA_SLACK_BOT_TOKEN", ""),
			SigningSecret: getEnv("PARTICIPA_SLACK_SIGNING_SECRET", ""),
		},
		Admin: AdminConfig{
			ID:       getEnv("PARTICIPA_ADMIN_ID", ""),
			Platform: strings.ToLower(getEnv("PARTICIPA_ADMIN_PLATFORM", PlatformTwilio)),
		},
		Report: ReportConfig{
			Dir:      getEnv("PARTICIPA_REPORTS_DIR", "reports"),
			Schedule: getEnv("PARTICIPA_REPORT_SCHEDULE", "0 10 1,15 * *"),
			Timezone: getEnv("PARTICIPA_TIMEZONE", "America/Sao_Paulo"),
		},
		Commands: CommandConfig{
			RecordTriggers: getEnvList("PARTICIPA_RECORD_TRIGGERS", []string{"participei", "gravei", "/participar"}),
		},
		API: APIConfig{
			Key: getEnv("PARTICIPA_API_KEY", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds, and resolves the report
// time zone.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Admin.ID) == "" {
		return errors.New("PARTICIPA_ADMIN_ID is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return errors.New("PARTICIPA_SQLITE_PATH must not be empty")
		}
	case DriverPostgres:
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("PARTICIPA_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
	default:
		return fmt.Errorf("PARTICIPA_DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("PARTICIPA_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("PARTICIPA_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("PARTICIPA_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("PARTICIPA_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	base, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("PARTICIPA_PUBLIC_BASE_URL must be an absolute http(s) URL, got %q", c.Server.PublicBaseURL)
	}

	if strings.TrimSpace(c.Report.Dir) == "" {
		return errors.New("PARTICIPA_REPORTS_DIR must not be empty")
	}
	if _, err := cron.ParseStandard(c.Report.Schedule); err != nil {
		return fmt.Errorf("PARTICIPA_REPORT_SCHEDULE %q: %w", c.Report.Schedule, err)
	}
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return fmt.Errorf("PARTICIPA_TIMEZONE %q: %w", c.Report.Timezone, err)
	}
	c.Report.Location = loc

	if len(c.Commands.RecordTriggers) == 0 {
		return errors.New("PARTICIPA_RECORD_TRIGGERS must list at least one trigger")
	}

	switch c.Admin.Platform {
	case PlatformTwilio:
		if !c.Twilio.Enabled() {
			log.Warn().Msg("admin platform is twilio but Twilio credentials are not set; report notifications will fail")
		}
	case PlatformSlack:
		if !c.Slack.Enabled() {
			log.Warn().Msg("admin platform is slack but PARTICIPA_SLACK_BOT_TOKEN is not set; report notifications will fail")
		}
	default:
		return fmt.Errorf("PARTICIPA_ADMIN_PLATFORM must be %q or %q, got %q", PlatformTwilio, PlatformSlack, c.Admin.Platform)
	}

	if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" {
		return errors.New("PARTICIPA_TWILIO_VALIDATE_SIGNATURE requires PARTICIPA_TWILIO_AUTH_TOKEN")
	}

	return nil
}

// Enabled reports whether outbound Twilio messaging is configured.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

// Enabled reports whether the Slack bot is configured.
func (c SlackConfig) Enabled() bool {
	return c.BotToken != ""
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
