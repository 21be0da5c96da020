package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/database"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/seed"
)

func main() {
	// Parse command
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		run(func(ctx context.Context, s *seed.Seeder) error {
			_, err := s.Seed(ctx, seed.DevOptions())
			return err
		})
	case "test":
		run(func(ctx context.Context, s *seed.Seeder) error {
			_, err := s.Seed(ctx, seed.TestOptions())
			return err
		})
	case "clean":
		run(func(ctx context.Context, s *seed.Seeder) error {
			_, err := s.Clean(ctx)
			return err
		})
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}
}

func run(fn func(ctx context.Context, s *seed.Seeder) error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		fmt.Fprintln(os.Stderr, "Refusing to seed a production database")
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Log.Level, "-"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Close() }()

	db, err := open(cfg)
	if err != nil {
		logger.FatalWithFields("Failed to prepare database", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := fn(context.Background(), seed.NewSeeder(db, 0)); err != nil {
		logger.Log.Error("Seeding failed", zap.Error(err))
		os.Exit(1)
	}
}

func open(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database, false)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}
