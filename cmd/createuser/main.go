package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"pageguard/internal/cache"
	"pageguard/internal/config"
	"pageguard/internal/db"
	"pageguard/internal/models"
	"pageguard/internal/permissions"
	"pageguard/internal/resolver"
	"pageguard/internal/services"
	"pageguard/internal/utils/logger"
)

// createuser provisions an account from the command line, for bootstrapping
// environments where the superadmin env variables are not used.
func main() {
	log := logger.New("createuser")

	email := flag.String("email", "", "email of the new user")
	username := flag.String("username", "", "username, defaults to the local part of the email")
	firstName := flag.String("first-name", "", "first name")
	lastName := flag.String("last-name", "", "last name")
	role := flag.String("role", string(models.UserRoleRegular), "role: superadmin or user")
	password := flag.String("password", "", "password, generated when empty")
	flag.Parse()

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			_ = log.Error("Failed to load environment variables", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		_ = log.Error("Failed to load configuration", err)
		os.Exit(1)
	}

	if err := db.Connect(cfg); err != nil {
		_ = log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	gdb := db.GetDB()
	store := permissions.NewStore(gdb)
	admin, err := services.NewAdminService(
		gdb,
		store,
		resolver.New(gdb, store, cache.NewMemory(cfg.Cache.TTL)),
		services.NewHistoryArchiver(cfg.Audit.SigningKey, nil),
	)
	if err != nil {
		_ = log.Error("Failed to initialize admin service", err)
		os.Exit(1)
	}

	user, plain, err := admin.CreateUser(context.Background(), services.CreateUserInput{
		Email:     *email,
		Username:  *username,
		FirstName: *firstName,
		LastName:  *lastName,
		Role:      models.UserRole(*role),
		Password:  *password,
	})
	if err != nil {
		_ = log.Error("Failed to create user", err)
		os.Exit(1)
	}

	log.Success("Created %s user %s (%s)", user.Role, user.Email, user.ID)
	if *password == "" {
		fmt.Printf("Generated password: %s\n", plain)
	}
}
