package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Open creates and configures the database connection described by cfg.
// A URL starting with "sqlite://" opens a SQLite file instead of PostgreSQL.
func Open(cfg config.DatabaseConfig, development bool) (*gorm.DB, error) {
	gormLog := gormlogger.Default.LogMode(gormlogger.Silent)
	if development {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var dialector gorm.Dialector
	isSQLite := strings.HasPrefix(cfg.URL, sqlitePrefix)
	if isSQLite {
		dialector = sqlite.Open(strings.TrimPrefix(cfg.URL, sqlitePrefix))
	} else {
		dialector = postgres.Open(cfg.URL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if isSQLite {
		// SQLite allows one writer; a single connection also keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	logger.Log.Info("Database connected", zap.String("dialect", db.Dialector.Name()))
	return db, nil
}

// Models lists every table the service owns, parents first.
func Models() []any {
	return []any{
		&models.Program{},
		&models.ProgramEvent{},
		&models.TrafficLog{},
		&models.SearchLog{},
		&models.ProgramReport{},
		&models.CheckoutDraft{},
		&models.WebhookEvent{},
	}
}

// Migrate runs auto-migration for all models and creates the extra indexes
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes creates the ranking and lookup indexes gorm tags cannot express
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_programs_ranking ON programs (trending_score DESC, random_weight DESC)",
		"CREATE INDEX IF NOT EXISTS idx_programs_status_created ON programs (status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_programs_name_lower ON programs (LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_program_reports_status_created ON program_reports (status, created_at DESC)",
	}
	if db.Dialector.Name() == "postgres" {
		statements = append(statements,
			"CREATE INDEX IF NOT EXISTS idx_programs_featured_active ON programs (featured_expires_at) WHERE is_featured = true",
		)
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Ping checks database connectivity
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
