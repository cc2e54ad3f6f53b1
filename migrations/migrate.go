package main

import (
	"context"
	"flag"
	"log"
	"os"

	"cryptosim/src/config"
	"cryptosim/src/database"
)

func main() {
	down := flag.Bool("down", false, "roll back the latest migration instead of applying pending ones")
	flag.Parse()

	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("Error loading config for environment: %v", err)
	}

	pool, err := database.SetupDB(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if *down {
		if err := database.Rollback(pool); err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		log.Println("Database rollback completed successfully")
		return
	}

	if err := database.Migrate(pool); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	log.Println("Database migration completed successfully")
}
