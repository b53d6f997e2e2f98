// Command edrsmigrate applies the embedded schema migrations and exits. It needs only the
// DB_* settings, so it can run before the bucket and token secrets are provisioned.
package main

import (
	"log"
	"os"

	"edrs-docstore/internal/config"
	"edrs-docstore/internal/repository/postgres"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	log.SetOutput(os.Stderr)

	cfg := config.LoadDatabase()
	log.Printf("Migrating %s on %s:%d", cfg.Database, cfg.Host, cfg.Port)

	if err := postgres.Migrate(cfg); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database setup completed")
}
