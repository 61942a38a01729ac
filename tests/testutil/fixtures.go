package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbhub/projects-api/internal/database"
	"github.com/nbhub/projects-api/internal/models"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateProject inserts a published project row with an initial update record
func (f *Fixtures) CreateProject(t *testing.T, opts ...ProjectOption) *models.Project {
	t.Helper()
	f.counter++

	project := &models.Project{
		Owner:   fmt.Sprintf("user%d", f.counter),
		Dir:     fmt.Sprintf("project%d", f.counter),
		Image:   "python:3.11",
		Name:    fmt.Sprintf("Test Project %d", f.counter),
		Author:  "Test Author",
		Quality: "development",
	}

	for _, opt := range opts {
		opt(project)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO projects (owner, dir, image, name, description, author, quality, citation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created, updated
	`, project.Owner, project.Dir, project.Image, project.Name,
		project.Description, project.Author, project.Quality, project.Citation).Scan(
		&project.ID, &project.Created, &project.Updated,
	)
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	_, err = f.db.Pool.Exec(ctx, `
		INSERT INTO updates (project_id, comment) VALUES ($1, $2)
	`, project.ID, fmt.Sprintf("Initial release of %s", project.Name))
	if err != nil {
		t.Fatalf("failed to create initial update: %v", err)
	}

	if project.Deleted {
		now := time.Now()
		_, err = f.db.Pool.Exec(ctx, `
			UPDATE projects SET deleted = TRUE, deleted_at = $1 WHERE id = $2
		`, now, project.ID)
		if err != nil {
			t.Fatalf("failed to soft-delete project: %v", err)
		}
		project.DeletedAt = &now
	}

	return project
}

// ProjectOption configures a test project
type ProjectOption func(*models.Project)

// WithOwner sets the project's owner and directory
func WithOwner(owner, dir string) ProjectOption {
	return func(p *models.Project) {
		p.Owner = owner
		p.Dir = dir
	}
}

// WithProjectName sets the project's display name
func WithProjectName(name string) ProjectOption {
	return func(p *models.Project) {
		p.Name = name
	}
}

// AsDeleted marks the project soft-deleted
func AsDeleted() ProjectOption {
	return func(p *models.Project) {
		p.Deleted = true
	}
}

// CreateShare inserts a share with pending invites for the given users
func (f *Fixtures) CreateShare(t *testing.T, owner, dir string, invitees ...string) *models.Share {
	t.Helper()
	ctx := context.Background()

	share := &models.Share{Owner: owner, Dir: dir}
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO shares (owner, dir) VALUES ($1, $2)
		RETURNING id, created
	`, owner, dir).Scan(&share.ID, &share.Created)
	if err != nil {
		t.Fatalf("failed to create share: %v", err)
	}

	for _, invitee := range invitees {
		var invite models.Invite
		err := f.db.Pool.QueryRow(ctx, `
			INSERT INTO invites (share_id, invitee) VALUES ($1, $2)
			RETURNING id, share_id, invitee, accepted, created
		`, share.ID, invitee).Scan(&invite.ID, &invite.ShareID, &invite.Invitee, &invite.Accepted, &invite.Created)
		if err != nil {
			t.Fatalf("failed to create invite: %v", err)
		}
		share.Invites = append(share.Invites, invite)
	}

	return share
}

// CreateTag inserts a tag with the given flags
func (f *Fixtures) CreateTag(t *testing.T, label string, protected, pinned bool) *models.Tag {
	t.Helper()

	tag := &models.Tag{Label: label, Protected: protected, Pinned: pinned}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO tags (label, protected, pinned) VALUES ($1, $2, $3)
		RETURNING id
	`, label, protected, pinned).Scan(&tag.ID)
	if err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	return tag
}

// MakeWorkspaceDir creates a user workspace directory with a notebook file
func MakeWorkspaceDir(t *testing.T, usersPath, user, dir string) string {
	t.Helper()
	path := filepath.Join(usersPath, user, dir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create workspace dir: %v", err)
	}
	notebook := filepath.Join(path, "notebook.ipynb")
	if err := os.WriteFile(notebook, []byte(`{"cells":[],"nbformat":4}`), 0o644); err != nil {
		t.Fatalf("failed to write notebook: %v", err)
	}
	return path
}
