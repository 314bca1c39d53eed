package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzidar/numizmat/internal/config"
	"github.com/mzidar/numizmat/internal/db"
	"github.com/mzidar/numizmat/internal/store"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and the administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.DBPath); err == nil {
				return fmt.Errorf("database file %s already exists", cfg.DBPath)
			}

			database, password, err := initDatabase(cfg.DBPath, cfg.AdminName)
			if err != nil {
				return err
			}
			database.Close()

			printInitResult(cfg.DBPath, cfg.AdminName, password)
			return nil
		},
	}
}

// initDatabase creates a new database, runs migrations, and creates the
// administrator account.
func initDatabase(path, adminName string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	ctx := context.Background()
	if _, err := store.CreateAccount(ctx, database, adminName, string(hash), true); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("creating administrator account: %w", err)
	}

	return database, password, nil
}

func printInitResult(dbPath, adminName, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Administrator account created:")
	fmt.Printf("  Name:     %s\n", adminName)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println("The administrator can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
