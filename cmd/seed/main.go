// Seed inserts a small set of known users for local development. Existing
// rows with the same email are left untouched, so it is safe to run twice.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/backend/internal/config"
	"github.com/userhub/backend/internal/models"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     models.Role
}

var seedUsers = []seedUser{
	{name: "Admin", email: "admin@example.com", password: "Admin123!", role: models.RoleAdmin},
	{name: "Alice", email: "alice@example.com", password: "Alice123!", role: models.RoleUser},
	{name: "Bob", email: "bob@example.com", password: "Bob123!", role: models.RoleUser},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v\n", err)
	}
	defer db.Close()

	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v\n", err)
	}

	if err := seed(db); err != nil {
		log.Fatalf("Seed failed: %v\n", err)
	}

	log.Println("Seed completed.")
}

// seed inserts all seed users as one atomic unit
func seed(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT IGNORE INTO users (name, email, password_hash, role)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, user := range seedUsers {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(user.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", user.email, err)
		}

		if _, err := stmt.Exec(user.name, user.email, string(passwordHash), user.role); err != nil {
			return fmt.Errorf("failed to insert %s: %w", user.email, err)
		}
		log.Printf("Inserted user: %s (role: %s)\n", user.email, user.role)
	}

	return tx.Commit()
}
