package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"k9aliases/backend/internal/auth"
	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-user <email> <password>")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		fmt.Println("K9ALIASES_DATABASE_DSN is required: accounts are only persisted in PostgreSQL")
		os.Exit(1)
	}

	store, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 与 HTTP 注册走同一条路径：校验、查重、默认设置
	sessions := auth.NewSessionManager(store, cfg.Session.Secret, cfg.Session.TTL, nil)
	authService := auth.NewService(store, sessions, nil, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := authService.Signup(ctx, email, password)
	if err != nil {
		fmt.Printf("Failed to create user: %s\n", domain.MessageOf(err))
		os.Exit(1)
	}

	fmt.Printf("✓ User created successfully!\n")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
}
