package main

import (
	"log"
	"os"

	"socratic-tutor-be/internal/model"
	"socratic-tutor-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.Assignment{},
		&model.Conversation{},
		&model.Turn{},
		&model.Submission{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating Views...")
	postMigrationSQL := []string{
		// View: submission_overview
		`CREATE OR REPLACE VIEW submission_overview AS
		 SELECT s.assignment_id, a.title, s.user_id, s.status, s.late, s.submitted_at,
		        c.state AS conversation_state, c.version AS exchanges, c.last_action_at
		 FROM submissions s
		 JOIN assignments a ON a.id = s.assignment_id
		 LEFT JOIN conversations c ON c.id = s.conversation_id;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed successfully via GORM.")
}
