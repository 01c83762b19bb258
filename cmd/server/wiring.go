package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

type app struct {
	db       *sql.DB
	client   *http.Client
	ir       repository.IntegrationRepository
	ph       repository.PublishHistoryRepository
	posts    service.PostService
	creds    service.CredentialService
	publish  service.PublishService
	platform service.PlatformService
	storage  service.StorageService
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}
	return db, nil
}

// build wires repositories, credentials and every platform adapter. Storage
// is optional and left nil when no bucket is configured.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		db:     db,
		client: service.NewHTTPClient(cfg.HTTPTimeout),
		ir:     repository.NewIntegrationRepository(db),
		ph:     repository.NewPublishHistoryRepository(db),
	}
	a.posts = service.NewPostService(repository.NewPostRepository(db))

	a.creds = service.NewCredentialService(cfg.SecretKey, a.ir, map[string]service.TokenRefresher{
		models.PlatformLinkedin: service.NewOAuthRefresher(service.LinkedinOAuthConfig(cfg), a.client),
		models.PlatformYoutube:  service.NewOAuthRefresher(service.GoogleOAuthConfig(cfg), a.client),
	})

	a.publish, err = service.NewPublishService(a.ph,
		service.NewTelegramService(cfg.Telegram, a.client, a.creds),
		service.NewLinkedinService(cfg.Linkedin, a.client, a.creds),
		service.NewYoutubeService(cfg.Google, a.client, a.creds),
	)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.platform = service.NewPlatformService(cfg, a.ir, a.creds, a.client)

	if cfg.StorageEnabled() {
		a.storage, err = service.NewStorageService(ctx, cfg.Storage)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("configure storage: %w", err)
		}
	} else {
		slog.Info("object storage not configured, attachments stay inline")
	}

	return a, nil
}

func (a *app) close() {
	slog.Info("closing database connection")
	if err := a.db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
