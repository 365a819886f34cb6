package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"brewhaus/backend/internal/auth"
	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/review"
	"brewhaus/backend/internal/session"
	"brewhaus/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	st := storage.NewService(db, nil) // No redis needed for one-shot commands
	sessions := session.NewRepository(st)
	reviews := review.NewRepository(st)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "resolve":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin resolve <session_id>")
			os.Exit(1)
		}
		if err := sessions.MarkResolved(os.Args[2]); err != nil {
			log.Fatalf("Error resolving session: %v", err)
		}
		fmt.Printf("Session %s resolved.\n", os.Args[2])

	case "respond":
		if len(os.Args) < 5 {
			fmt.Println("Usage: admin respond <product_id> <review_id> <response text>")
			os.Exit(1)
		}
		text := strings.Join(os.Args[4:], " ")
		if err := reviews.Respond(os.Args[2], os.Args[3], text); err != nil {
			log.Fatalf("Error responding to review: %v", err)
		}
		fmt.Printf("Review %s/%s responded.\n", os.Args[2], os.Args[3])

	case "list-pending":
		listPending(reviews)

	case "add-admin":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin add-admin <email> <password> [roles...]")
			os.Exit(1)
		}
		secret := os.Getenv("JWT_SECRET")
		authSvc := auth.NewService(db, []byte(secret))
		account, err := authSvc.CreateAdmin(os.Args[2], os.Args[3], os.Args[4:])
		if err != nil {
			log.Fatalf("Error creating admin: %v", err)
		}
		fmt.Printf("Admin %s created (id %s).\n", account.Email, account.ID)

	default:
		usage()
	}
}

func listPending(reviews *review.Repository) {
	done := make(chan struct{})
	unsub := reviews.Reviews(func(list []models.Review) {
		for _, r := range list {
			if r.Pending() {
				fmt.Printf("%s/%s  %d★  %s: %s\n", r.ProductID, r.ID, r.Rating, r.Name, r.Comment)
			}
		}
		close(done)
	})
	<-done
	unsub()
}

func usage() {
	fmt.Println("Usage: admin <resolve|respond|list-pending|add-admin> [args]")
	os.Exit(1)
}
