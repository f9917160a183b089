// Command token issues an access token for local development.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/server/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	user := flag.String("user", "", "user id (random when empty)")
	email := flag.String("email", "dev@localhost", "email claim")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	jwtManager, err := app.ProvideJWTManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}

	userID := uuid.New()
	if *user != "" {
		if userID, err = uuid.Parse(*user); err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
	}

	token, expiresAt, err := jwtManager.GenerateAccessToken(userID, *email)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Printf("user:    %s\nexpires: %s\ntoken:   %s\n", userID, expiresAt.Format(time.RFC3339), token)
}
