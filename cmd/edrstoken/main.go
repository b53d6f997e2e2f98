// Command edrstoken mints a bearer token for a registered user against the configured
// JWT secret. It is meant for local development and smoke tests.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"edrs-docstore/internal/auth"

	"github.com/joho/godotenv"
)

const (
	envFilePath  = ".env"
	envJWTSecret = "JWT_SECRET"
	envJWTIssuer = "JWT_ISSUER"
	defaultTTL   = time.Hour
)

func main() {
	userID := flag.Int64("user", 0, "user id to embed in the token")
	ttl := flag.Duration("ttl", defaultTTL, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(envFilePath); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.SetOutput(os.Stderr)

	if *userID <= 0 {
		log.Fatal("-user must be a positive id")
	}
	secret := os.Getenv(envJWTSecret)
	if secret == "" {
		log.Fatalf("%s must be set", envJWTSecret)
	}

	token, err := auth.NewJWTService(secret, os.Getenv(envJWTIssuer), *ttl).Generate(*userID)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
