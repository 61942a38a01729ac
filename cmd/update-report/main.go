package main

import (
	"context"
	"fmt"
	"log"

	"github.com/nbhub/projects-api/internal/config"
	"github.com/nbhub/projects-api/internal/database"
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

	tagService := services.NewTagService(db, cfg.ProtectedTagUsers)
	projectService := services.NewProjectService(db, tagService, cfg.UsersPath, cfg.RepoPath)

	entries, err := projectService.UpdateHistory(ctx)
	if err != nil {
		log.Fatalf("Failed to load update history: %v", err)
	}

	for _, e := range entries {
		status := ""
		if e.ProjectDeleted {
			status = " [deleted]"
		}
		fmt.Printf("%s  %s%s: %s\n",
			e.Update.Updated.Format("2006-01-02 15:04"), e.ProjectName, status, e.Update.Comment)
	}
}
