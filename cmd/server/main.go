package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/evently/evently-backend/internal/config"
	"github.com/evently/evently-backend/internal/database"
	"github.com/evently/evently-backend/internal/email"
	"github.com/evently/evently-backend/internal/handler"
	"github.com/evently/evently-backend/internal/queue"
	"github.com/evently/evently-backend/internal/repository"
	"github.com/evently/evently-backend/internal/router"
	"github.com/evently/evently-backend/internal/storage"
	"github.com/evently/evently-backend/internal/utils"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, caching and rate limiting disabled")
	}

	store, err := storage.NewClient(cfg)
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}

	mailer := email.NewMailer(cfg)

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	sections := repository.NewSectionRepo(db)
	approvals := repository.NewApprovalRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	reviews := repository.NewReviewRepo(db)
	notifications := repository.NewNotificationRepo(db)
	tags := repository.NewTagRepo(db)

	bootstrapAdmin(cfg, users)

	go queue.StartNotificationConsumer(notifications)

	h := router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, mailer),
		User:         handler.NewUserHandler(cfg, users, mailer),
		Upload:       handler.NewUploadHandler(cfg, users, store),
		Event:        handler.NewEventHandler(cfg, events, tags),
		Section:      handler.NewSectionHandler(cfg, events, sections),
		Approval:     handler.NewApprovalHandler(events, approvals),
		Registration: handler.NewRegistrationHandler(events, sections, registrations),
		Review:       handler.NewReviewHandler(cfg, events, reviews),
		Notification: handler.NewNotificationHandler(notifications),
		Tag:          handler.NewTagHandler(events, tags),
		QR:           handler.NewQRHandler(cfg),
	}

	e := router.New(cfg, h, rdb)
	log.Fatal(e.Start(":" + cfg.Port))
}

// bootstrapAdmin makes sure an ADMIN account exists so a fresh deployment
// can log in. Skipped when no admin password is configured or the account
// is already there.
func bootstrapAdmin(cfg config.Config, users *repository.UserRepo) {
	if cfg.AdminPassword == "" {
		log.Println("no ADMIN_PASSWORD set, skipping admin bootstrap")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := users.GetByUsername(ctx, cfg.AdminUsername); err == nil {
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("admin bootstrap: lookup failed: %v", err)
		return
	}

	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		log.Printf("admin bootstrap: hash password failed: %v", err)
		return
	}
	u := &repository.User{
		Username:       cfg.AdminUsername,
		Email:          cfg.AdminEmail,
		HashedPassword: hash,
		Role:           repository.RoleAdmin,
		EmailVerified:  true,
	}
	if err := users.Create(ctx, u); err != nil {
		log.Printf("admin bootstrap: create failed: %v", err)
		return
	}
	log.Printf("admin bootstrap: created %s", cfg.AdminUsername)
}
