package database

import (
	"fmt"
	"strings"
	"time"

	"extfilter/internal/config"
	"extfilter/internal/domain"
	"extfilter/internal/support"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const slowQueryThreshold = 200 * time.Millisecond

type Config struct {
	Dialector   gorm.Dialector
	Logger      logger.Interface
	AutoMigrate bool
}

type Option func(*Config)

// SetupDB opens the connection and, unless disabled, migrates the registry tables.
// The caller owns the returned handle and closes it with CloseDB.
func SetupDB(opts ...Option) (*gorm.DB, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Dialector == nil {
		return nil, fmt.Errorf("database: no dialector provided")
	}

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.Logger != nil {
		gormCfg.Logger = cfg.Logger
	}
	db, err := gorm.Open(cfg.Dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database: open connection: %w", err)
	}
	configureConnectionPool(db)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(registryModels()...); err != nil {
			return nil, fmt.Errorf("database: auto migrate: %w", err)
		}
		log.Info("Database migration completed.")
	}

	return db, nil
}

// CloseDB releases the underlying sql pool.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func defaultConfig() (Config, error) {
	dialector, err := dialectorFromEnv()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Dialector:   dialector,
		Logger:      newGormLogger(log.Default(), config.InProductionMode),
		AutoMigrate: support.GetEnv("DB_AUTO_MIGRATE", "true") != "false",
	}, nil
}

func dialectorFromEnv() (gorm.Dialector, error) {
	driver := strings.ToLower(strings.TrimSpace(support.GetEnv("DB_DRIVER", DriverPostgres)))

	switch driver {
	case DriverPostgres, "postgresql", "pg":
		return postgres.Open(buildDSN()), nil
	case DriverSQLite, "sqlite3":
		return sqlite.Open(support.GetEnv("DB_SQLITE_PATH", "extfilter.db")), nil
	default:
		return nil, fmt.Errorf("database: unsupported DB_DRIVER %q", driver)
	}
}

func buildDSN() string {
	dbHost := support.GetEnv("DB_HOST", "localhost")
	dbPort := support.GetEnv("DB_PORT", "5432")
	dbName := support.GetEnv("DB_NAME", "extfilter")
	dbUser := support.GetEnv("DB_USERNAME", "admin")
	dbPassword := support.GetEnv("DB_PASSWORD", "admin")
	sslMode := support.GetEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost,
		dbPort,
		dbUser,
		dbPassword,
		dbName,
		sslMode,
	)
}

// newGormLogger routes gorm output through w. Development logs every statement,
// production only slow queries and errors.
func newGormLogger(w logger.Writer, production bool) logger.Interface {
	level := logger.Info
	if production {
		level = logger.Warn
	}
	return logger.New(w, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func registryModels() []any {
	return []any{
		domain.FixedExtension{},
		domain.CustomExtension{},
	}
}

func WithDialector(d gorm.Dialector) Option {
	return func(cfg *Config) {
		cfg.Dialector = d
	}
}

func WithLogger(l logger.Interface) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

func WithAutoMigrate(enabled bool) Option {
	return func(cfg *Config) {
		cfg.AutoMigrate = enabled
	}
}

func configureConnectionPool(db *gorm.DB) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("database: get sql.DB", "error", err)
		return
	}

	maxOpen := support.GetEnvInt("DB_MAX_OPEN_CONNS", 16)
	maxIdle := support.GetEnvInt("DB_MAX_IDLE_CONNS", maxOpen)
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	connLifetimeSeconds := support.GetEnvInt("DB_CONN_MAX_LIFETIME", 300)
	connIdleSeconds := support.GetEnvInt("DB_CONN_MAX_IDLE_TIME", 60)

	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if connLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(connLifetimeSeconds) * time.Second)
	}
	if connIdleSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(connIdleSeconds) * time.Second)
	}
}
