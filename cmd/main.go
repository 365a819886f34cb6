package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"brewhaus/backend/internal/api/handler"
	"brewhaus/backend/internal/auth"
	"brewhaus/backend/internal/config"
	"brewhaus/backend/internal/mailer"
	"brewhaus/backend/internal/notify"
	"brewhaus/backend/internal/review"
	"brewhaus/backend/internal/sales"
	"brewhaus/backend/internal/session"
	"brewhaus/backend/internal/storage"
	"brewhaus/backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupBackend connects PostgreSQL and Redis and runs migrations. When no
// DSN is configured it returns nils and the server runs degraded: empty
// reads, failing writes, unavailable banners instead of broken pages.
func setupBackend(settings config.Settings) (*gorm.DB, *redis.Client) {
	if !settings.Configured() {
		log.Println("WARNING: DATABASE_DSN not set, running with the store disabled")
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(settings.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	if err := db.AutoMigrate(
		&storage.Node{},
		&auth.AdminUser{},
		&sales.Order{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var rdb *redis.Client
	if settings.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	} else {
		log.Println("WARNING: REDIS_ADDR not set, change fan-out limited to this process")
	}

	log.Println("Database connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Brewhaus support backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	settings := config.FromEnv()
	if settings.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set!")
	}

	db, rdb := setupBackend(settings)

	var st store.Store
	if db != nil {
		st = storage.NewService(db, rdb)
	} else {
		st = store.Disabled{}
	}

	sessions := session.NewRepository(st)
	reviews := review.NewRepository(st)
	authSvc := auth.NewService(db, []byte(settings.JWTSecret))
	mailSvc := mailer.NewService(config.StoreName, logSender{})
	salesReader := sales.NewReader(db)

	if settings.TelegramToken != "" && settings.TelegramChatID != 0 {
		notifier, err := notify.NewNotifier(settings.TelegramToken, settings.TelegramChatID)
		if err != nil {
			log.Printf("ERROR: Telegram notifier disabled: %v", err)
		} else {
			stop := notifier.Watch(sessions)
			defer stop()
		}
	}

	r := gin.Default()
	h := handler.NewHandler(sessions, reviews, authSvc, mailSvc, salesReader, db != nil)

	r.POST("/api/admin/login", h.Login)
	r.POST("/api/products/:productID/reviews", h.SubmitReview)
	r.GET("/ws/widget", h.ServeWidgetSocket)
	r.GET("/ws/console", h.ServeConsoleSocket)

	server := &http.Server{
		Addr:           settings.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}

// logSender stands in for the external mail collaborator: composed
// follow-ups are logged until a provider is wired in deployment.
type logSender struct{}

func (logSender) Send(e mailer.Email) error {
	log.Printf("Follow-up email handed off: to=%s subject=%q", e.To, e.Subject)
	return nil
}
