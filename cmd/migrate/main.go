// Command migrate applies the GORM schema and, optionally, seeds demo data
// for one broker.
//
// Usage:
//
//	go run ./cmd/migrate                         # create or update every table
//	go run ./cmd/migrate -seed-owner <user-id>   # also seed demo leads and properties
package main

import (
	"flag"
	"os"

	"imob-crm/internal/config"
	"imob-crm/internal/db"
	"imob-crm/internal/logging"

	"go.uber.org/zap"
)

func main() {
	seedOwner := flag.String("seed-owner", "", "Supabase user id that receives the demo records")
	flag.Parse()

	config.LoadEnvFiles()
	logging.Init()
	defer logging.Sync()
	log := logging.L()

	cfg := config.Load()
	database, err := db.Connect(cfg.Database, cfg.Environment)
	if err != nil {
		log.Error("database connection failed", zap.Error(err))
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}

	if *seedOwner != "" {
		if err := db.SeedDemo(database.DB, *seedOwner); err != nil {
			log.Error("seeding failed", zap.Error(err))
			os.Exit(1)
		}
		log.Info("demo data ready", zap.String("owner_id", *seedOwner))
	}
}
