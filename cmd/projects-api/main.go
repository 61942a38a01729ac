package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"

	"github.com/nbhub/projects-api/internal/config"
	"github.com/nbhub/projects-api/internal/database"
	"github.com/nbhub/projects-api/internal/handlers"
	"github.com/nbhub/projects-api/internal/hub"
	authmw "github.com/nbhub/projects-api/internal/middleware"
	"github.com/nbhub/projects-api/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, 24*time.Hour)
	tagService := services.NewTagService(db, cfg.ProtectedTagUsers)
	projectService := services.NewProjectService(db, tagService, cfg.UsersPath, cfg.RepoPath)
	sharingService := services.NewSharingService(db, cfg.UsersPath)
	emailService := services.NewEmailService(cfg.SMTP, cfg.BaseURL)

	spawnerService, err := services.NewSpawnerService(cfg.HubDBPath)
	if err != nil {
		log.Fatalf("Failed to open hub database: %v", err)
	}
	defer spawnerService.Close()

	hubClient := hub.NewClient(cfg.HubAPIURL, cfg.HubAPIToken)

	libraryHandler := handlers.NewLibraryHandler(projectService, tagService, emailService, hubClient, cfg.NotifyEmail)
	sharingHandler := handlers.NewSharingHandler(sharingService, spawnerService, emailService)
	userHandler := handlers.NewUserHandler(spawnerService, cfg.BaseURL)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	app.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})
	app.Get("/", handlers.Endpoints)

	protected := app.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Get("/user.json", userHandler.Get)

	protected.Get("/library", libraryHandler.List)
	protected.Post("/library", libraryHandler.Publish)
	protected.Get("/library/:id", libraryHandler.Get)
	protected.Put("/library/:id", libraryHandler.Update)
	protected.Delete("/library/:id", libraryHandler.Delete)
	protected.Post("/library/:id/copy", libraryHandler.Copy)
	protected.Get("/library/:id/download", libraryHandler.Download)

	protected.Get("/sharing", sharingHandler.List)
	protected.Post("/sharing", sharingHandler.Create)
	protected.Get("/sharing/:id", sharingHandler.Get)
	protected.Put("/sharing/:id", sharingHandler.Update)
	protected.Delete("/sharing/:id", sharingHandler.Remove)
	protected.Post("/sharing/invite/:id", sharingHandler.Accept)
	protected.Delete("/sharing/invite/:id", sharingHandler.Reject)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Server starting on %s", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}
