// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Betmate-ap/betmate-api/internal/config"
	"github.com/Betmate-ap/betmate-api/internal/db"
	"github.com/Betmate-ap/betmate-api/internal/security"
	userdomain "github.com/Betmate-ap/betmate-api/internal/user/domain"
	userrepo "github.com/Betmate-ap/betmate-api/internal/user/repository"
)

const (
	devUserEmail    = "dev@example.com"
	devUserUsername = "dev"
	devPassword     = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := userrepo.NewPostgresRepository(conn)
	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed: lookup dev user: %v", err)
	}
	if existing != nil {
		log.Printf("seed: dev user %s already exists, nothing to do", devUserEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:            uuid.New().String(),
		Email:         devUserEmail,
		Username:      devUserUsername,
		FirstName:     "Dev",
		LastName:      "User",
		PasswordHash:  hash,
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("seed: create dev user: %v", err)
	}
	log.Printf("seed: created dev user %s (password %q)", devUserEmail, devPassword)
}
