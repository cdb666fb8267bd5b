// Command token prints a bearer token for the export endpoint, signed with
// JWT_SECRET. TOKEN_SUBJECT names the holder and TOKEN_TTL sets the lifetime.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"junctionflow/config"
	"junctionflow/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	subject := os.Getenv("TOKEN_SUBJECT")
	if subject == "" {
		subject = "analyst"
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if ttl, err = time.ParseDuration(v); err != nil {
			log.Fatalf("invalid TOKEN_TTL: %v", err)
		}
	}

	token, err := services.NewAuthService(cfg.JWT).GenerateToken(subject, "export", ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
