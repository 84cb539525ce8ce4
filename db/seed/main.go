package main

import (
	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/pkg/database"
	"github.com/Ammly/AdbSms/pkg/logger"
)

func main() {
	cfg := environments.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
	}()

	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if err := database.SeedTestData(db, cfg.Dispatch.DefaultSimID); err != nil {
		logger.Fatalf("Failed to seed test data: %v", err)
	}

	logger.Infof("Seed completed for sim %d", cfg.Dispatch.DefaultSimID)
}
