package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/repository"
	"github.com/jorgejloo/educativo-api/internal/service"
	"github.com/jorgejloo/educativo-api/pkg/config"
	"github.com/jorgejloo/educativo-api/pkg/database"
	"github.com/jorgejloo/educativo-api/pkg/logger"
)

// create-admin seeds or resets an application credential. Running it
// twice with the same username resets the password instead of failing.
func main() {
	username := flag.String("username", envOr("ADMIN_USERNAME", ""), "login username")
	password := flag.String("password", envOr("ADMIN_PASSWORD", ""), "plaintext password, hashed before storage")
	fullName := flag.String("name", envOr("ADMIN_FULL_NAME", "Administrador"), "display name")
	role := flag.String("role", envOr("ADMIN_ROLE", string(models.RoleAdmin)), "ADMIN or STAFF")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -username <user> -password <pass> [-name <name>] [-role ADMIN|STAFF]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	userSvc := service.NewUserService(repository.NewUserRepository(db), nil, logr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := userSvc.EnsureCredential(ctx, service.EnsureCredentialRequest{
		Username: *username,
		Password: *password,
		FullName: *fullName,
		Role:     models.UserRole(*role),
	})
	if err != nil {
		logr.Sugar().Fatalw("failed to ensure credential", "error", err)
	}

	fmt.Printf("credential ready: %s (%s)\n", user.Username, user.Role)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
