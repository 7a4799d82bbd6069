package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"todo_webapp/internal/db"
	"todo_webapp/internal/repository"
	"todo_webapp/internal/service"
)

func main() {
	username := flag.String("username", "testuser", "username to create or log in as")
	password := flag.String("password", "testpassword", "password for the user")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	auth := service.NewAuthService(
		repository.NewUserRepository(pool),
		service.NewTokenService(secret, 24*time.Hour),
		nil,
		service.NewAuditService(repository.NewAuditRepository(pool)),
	)
	cred := service.Credentials{Username: *username, Password: *password}

	res, err := auth.Register(ctx, service.RequestInfo{UserAgent: "create_test_user"}, cred)
	if err != nil {
		// already exists: log in instead
		res, err = auth.Login(ctx, service.RequestInfo{UserAgent: "create_test_user"}, cred)
		if err != nil {
			log.Fatalf("register/login failed: %v", err)
		}
		log.Printf("user already exists id=%d\n", res.User.ID)
	} else {
		log.Printf("user created id=%d\n", res.User.ID)
	}

	log.Printf("token=%s\n", res.Token)
}
