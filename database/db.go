package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lvt17/planex-be/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the configured database with pooling and retry.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if DB != nil {
		return DB, nil
	}

	dialector, safeDSN, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	zap.L().Info("database connecting", zap.String("driver", cfg.DBDriver), zap.String("dsn", safeDSN))

	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.IsDevelopment() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	retries := cfg.DBConnectRetries
	if retries <= 0 {
		retries = 1
	}
	var db *gorm.DB
	backoff := time.Second
	for attempt := 0; attempt < retries; attempt++ {
		db, err = gorm.Open(dialector, gormConfig(gormLogger))
		if err == nil {
			break
		}
		zap.L().Warn("database open failed", zap.Int("attempt", attempt+1), zap.Error(err))
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}

	if cfg.DBPingOnConnect {
		if err := pingWithTimeout(sqlDB, 5*time.Second); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
	}

	DB = db
	return DB, nil
}

// OpenSQLite opens a sqlite database without touching the global handle.
// Tests use it with "file::memory:?cache=shared" style DSNs.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger.Default.LogMode(logger.Silent)))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// all timestamps are written in UTC
func gormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:  l,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, string, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.Open(cfg.DBDSN), cfg.DBDSN, nil
	case "postgres":
		dsn := cfg.DBDSN
		if dsn == "" {
			sslmode := "disable"
			if cfg.DBTLS == "true" {
				sslmode = "require"
			}
			if cfg.DBTLSVerify {
				sslmode = "verify-full"
			}
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName, sslmode)
		}
		return postgres.Open(dsn), maskPassword(dsn, cfg.DBPass), nil
	case "mysql":
		dsn, err := mysqlDSN(cfg)
		if err != nil {
			return nil, "", err
		}
		return gormmysql.Open(dsn), maskPassword(dsn, cfg.DBPass), nil
	}
	return nil, "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

func mysqlDSN(cfg *config.Config) (string, error) {
	dsn := cfg.DBDSN
	if dsn == "" {
		params := cfg.DBParams
		if !strings.Contains(params, "tls=") {
			switch {
			case cfg.DBTLSVerify:
				params += "&tls=custom"
			case cfg.DBTLS == "true" || cfg.DBTLS == "preferred":
				params += "&tls=true"
			}
		}
		for _, p := range []string{"timeout", "readTimeout", "writeTimeout"} {
			if !strings.Contains(params, p+"=") {
				params += "&" + p + "=10s"
			}
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, params)
	}

	if strings.Contains(dsn, "tls=custom") {
		tlsCfg := &tls.Config{}
		if cfg.DBTLSCAPath != "" {
			caCert, err := os.ReadFile(cfg.DBTLSCAPath)
			if err != nil {
				return "", fmt.Errorf("failed reading DB TLS CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return "", errors.New("failed to append CA certs")
			}
			tlsCfg.RootCAs = pool
		}
		if cfg.DBTLSClientCert != "" && cfg.DBTLSClientKey != "" {
			cert, err := tls.LoadX509KeyPair(cfg.DBTLSClientCert, cfg.DBTLSClientKey)
			if err != nil {
				return "", fmt.Errorf("failed to load client cert/key: %w", err)
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}
		if err := mysqldriver.RegisterTLSConfig("custom", tlsCfg); err != nil {
			return "", err
		}
	}
	return dsn, nil
}

func maskPassword(dsn, pass string) string {
	if pass == "" {
		return dsn
	}
	return strings.Replace(dsn, pass, "******", 1)
}

func pingWithTimeout(db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.PingContext(ctx)
}
