package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/pkg/config"
	"github.com/prohmpiriya/sport-slots-booker/pkg/database"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back instead of applying migrations")
	steps := flag.Int("steps", 1, "number of migrations to roll back with -down")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: "slots-migrate",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      2,
		MinConns:      1,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if *down {
		appLog.Info("Rolling back migrations", zap.Int("steps", *steps))
		err = database.RollbackMigrations(db.Pool(), *steps, appLog)
	} else {
		appLog.Info("Applying migrations")
		err = database.RunMigrations(db.Pool(), appLog)
	}
	if err != nil {
		db.Close()
		appLog.Fatal("Migration failed", zap.Error(err))
	}
}
