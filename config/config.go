package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds all runtime settings. Values come from the process environment,
// optionally seeded from a .env file.
type Config struct {
	Env      string
	Port     string
	LogLevel zapcore.Level
	Location *time.Location

	DBDriver          string
	DBDSN             string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPass            string
	DBName            string
	DBParams          string
	DBTLS             string
	DBTLSVerify       bool
	DBTLSCAPath       string
	DBTLSClientCert   string
	DBTLSClientKey    string
	DBConnectRetries  int
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingOnConnect   bool

	JWTSecret string
	JWTAud    string
	JWTIss    string

	RedisAddr string
	RedisPass string
	RedisDB   int

	CORSAllowedOrigins  []string
	FrontendURL         string
	PlatformAdminEmails []string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3PublicURL    string
	S3UsePathStyle bool

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	MailFrom     string
	MailFromName string

	MaxBodyBytes      int64
	RequestTimeout    time.Duration
	HousekeepingSpec  string
	TrustedProxies    []string
	NotificationLimit int
}

var (
	mu      sync.RWMutex
	current *Config
)

// Load reads .env (without overriding variables that are already set) and
// builds a Config from the environment.
func Load() (*Config, error) {
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:      strings.ToLower(v.GetString("ENV")),
		Port:     v.GetString("PORT"),
		LogLevel: parseLevel(v.GetString("LOG_LEVEL")),

		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:             strings.TrimSpace(v.GetString("DB_DSN")),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPass:            v.GetString("DB_PASS"),
		DBName:            v.GetString("DB_NAME"),
		DBParams:          v.GetString("DB_PARAMS"),
		DBTLS:             v.GetString("DB_TLS"),
		DBTLSVerify:       v.GetBool("DB_TLS_VERIFY"),
		DBTLSCAPath:       v.GetString("DB_TLS_CA_PATH"),
		DBTLSClientCert:   v.GetString("DB_TLS_CLIENT_CERT"),
		DBTLSClientKey:    v.GetString("DB_TLS_CLIENT_KEY"),
		DBConnectRetries:  v.GetInt("DB_CONNECT_RETRIES"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
		DBPingOnConnect:   v.GetBool("DB_PING_ON_CONNECT"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTAud:    v.GetString("JWT_AUD"),
		JWTIss:    v.GetString("JWT_ISS"),

		RedisAddr: strings.ReplaceAll(strings.TrimSpace(v.GetString("REDIS_ADDR")), " ", ""),
		RedisPass: v.GetString("REDIS_PASS"),
		RedisDB:   v.GetInt("REDIS_DB"),

		CORSAllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		FrontendURL:         strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		PlatformAdminEmails: splitList(strings.ToLower(v.GetString("PLATFORM_ADMIN_EMAILS"))),

		S3Endpoint:     v.GetString("S3_ENDPOINT"),
		S3Region:       v.GetString("S3_REGION"),
		S3AccessKey:    v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:    v.GetString("S3_SECRET_ACCESS_KEY"),
		S3Bucket:       v.GetString("S3_BUCKET"),
		S3PublicURL:    strings.TrimRight(v.GetString("S3_PUBLIC_URL"), "/"),
		S3UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetString("SMTP_PORT"),
		SMTPUser:     v.GetString("SMTP_USER"),
		SMTPPass:     v.GetString("SMTP_PASS"),
		MailFrom:     v.GetString("MAIL_FROM"),
		MailFromName: v.GetString("MAIL_FROM_NAME"),

		MaxBodyBytes:      v.GetInt64("MAX_BODY_BYTES"),
		RequestTimeout:    time.Duration(v.GetInt("REQ_TIMEOUT_SEC")) * time.Second,
		HousekeepingSpec:  v.GetString("HOUSEKEEPING_SPEC"),
		TrustedProxies:    splitList(v.GetString("TRUSTED_PROXIES")),
		NotificationLimit: v.GetInt("NOTIFICATION_LIMIT"),
	}

	loc, err := time.LoadLocation(v.GetString("APP_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	Set(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_TIMEZONE", "Asia/Ho_Chi_Minh")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_NAME", "planex")
	v.SetDefault("DB_PARAMS", "charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("DB_TLS", "false")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DB_PING_ON_CONNECT", true)

	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("MAIL_FROM_NAME", "Planex")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	v.SetDefault("MAX_BODY_BYTES", 10<<20)
	v.SetDefault("REQ_TIMEOUT_SEC", 15)
	v.SetDefault("HOUSEKEEPING_SPEC", "@every 1h")
	v.SetDefault("NOTIFICATION_LIMIT", 50)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("required environment variable JWT_SECRET is not set")
	}
	switch c.DBDriver {
	case "mysql", "postgres":
		if c.DBDSN == "" && (c.DBHost == "" || c.DBUser == "" || c.DBName == "") {
			return fmt.Errorf("DB_DSN or DB_HOST/DB_USER/DB_NAME must be set for %s", c.DBDriver)
		}
	case "sqlite":
		if c.DBDSN == "" {
			c.DBDSN = "planex.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// IsDevelopment reports whether ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// MailEnabled reports whether SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

// StorageEnabled reports whether object storage is configured.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// Set replaces the process-wide configuration.
func Set(c *Config) {
	mu.Lock()
	current = c
	mu.Unlock()
}

// Get returns the process-wide configuration. Before Load has run it returns
// a development default with the timezone set, which is what unit tests use.
func Get() *Config {
	mu.RLock()
	c := current
	mu.RUnlock()
	if c != nil {
		return c
	}
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.FixedZone("ICT", 7*3600)
	}
	return &Config{
		Env:               "development",
		LogLevel:          zapcore.InfoLevel,
		Location:          loc,
		JWTSecret:         os.Getenv("JWT_SECRET"),
		FrontendURL:       "http://localhost:3000",
		MaxBodyBytes:      10 << 20,
		RequestTimeout:    15 * time.Second,
		NotificationLimit: 50,
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
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
