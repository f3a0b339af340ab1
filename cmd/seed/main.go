package main

import (
	"log"
	"os"
	"time"

	"socratic-tutor-be/internal/model"
	"socratic-tutor-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding demo assignments...")

	due := time.Now().AddDate(0, 0, 14)
	assignments := []model.Assignment{
		{Title: "Honesty", Topic: "Lying", Question: "Is it ever morally acceptable to lie?", DueAt: &due, AllowResubmission: true},
		{Title: "Fairness", Topic: "Distributive justice", Question: "Should everyone receive the same reward for the same effort?", AllowLate: true},
		{Title: "Duty", Topic: "Promises", Question: "Must a promise always be kept?"},
	}

	for _, a := range assignments {
		var existing model.Assignment
		if err := db.Where("title = ?", a.Title).First(&existing).Error; err == nil {
			log.Printf("Assignment '%s' already exists (%s), skipping...", a.Title, existing.Id)
			continue
		}

		a.Id = uuid.New()
		if err := db.Create(&a).Error; err != nil {
			log.Printf("Error creating assignment '%s': %v", a.Title, err)
		} else {
			log.Printf("Created assignment: %s (%s)", a.Title, a.Id)
		}
	}

	log.Println("Assignment seeding completed!")
}
