package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nbhub/projects-api/internal/archive"
	"github.com/nbhub/projects-api/internal/database"
	"github.com/nbhub/projects-api/internal/models"
)

// ProjectSpec is the allow-listed field set a caller may supply when
// publishing a project. Tags arrive comma-joined, matching the stored
// projection.
type ProjectSpec struct {
	Owner       string
	Dir         string
	Image       string
	Name        string
	Description string
	Author      string
	Quality     string
	Citation    string
	Tags        string
}

// ProjectMerge updates any subset of project fields; nil fields are left
// untouched. A non-empty Comment is required for the merge to be accepted.
type ProjectMerge struct {
	Image       *string
	Name        *string
	Description *string
	Author      *string
	Quality     *string
	Citation    *string
	Tags        *string
	Comment     *string
}

// CopyResult carries what a caller needs to register the copied project as
// a live named server.
type CopyResult struct {
	Project *models.Project
	// Dir is the collision-free directory slug chosen in the copier's
	// workspace.
	Dir string
	// Suffix is the number of collision-avoidance attempts; non-zero means
	// the display name should be annotated "(copy N)".
	Suffix int
}

// ProjectService is the published-project registry: creation, update,
// soft-delete, copying and listing, with the zip artifact kept in step with
// the relational record.
type ProjectService struct {
	db        *database.DB
	tags      *TagService
	usersPath string
	repoPath  string
}

func NewProjectService(db *database.DB, tags *TagService, usersPath, repoPath string) *ProjectService {
	return &ProjectService{db: db, tags: tags, usersPath: usersPath, repoPath: repoPath}
}

// ProjectDir is the on-disk workspace directory for one of a user's
// projects.
func (s *ProjectService) ProjectDir(user, dir string) string {
	return filepath.Join(s.usersPath, user, dir)
}

// ZipPath is the published artifact location for an owner's project.
func (s *ProjectService) ZipPath(owner, dir string) string {
	return filepath.Join(s.repoPath, owner, dir+".zip")
}

func (spec *ProjectSpec) trim() {
	spec.Owner = strings.TrimSpace(spec.Owner)
	spec.Dir = strings.TrimSpace(spec.Dir)
	spec.Image = strings.TrimSpace(spec.Image)
	spec.Name = strings.TrimSpace(spec.Name)
	spec.Description = strings.TrimSpace(spec.Description)
	spec.Author = strings.TrimSpace(spec.Author)
	spec.Quality = strings.TrimSpace(spec.Quality)
	spec.Citation = strings.TrimSpace(spec.Citation)
	spec.Tags = strings.TrimSpace(spec.Tags)
}

func missingMetadata(dir, image, name, author, quality, owner string) []string {
	var missing []string
	if dir == "" {
		missing = append(missing, "dir")
	}
	if image == "" {
		missing = append(missing, "image")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	if author == "" {
		missing = append(missing, "author")
	}
	if quality == "" {
		missing = append(missing, "quality")
	}
	if owner == "" {
		missing = append(missing, "owner")
	}
	return missing
}

// Create publishes a new project: validates the minimum metadata, bundles
// the workspace directory into its zip artifact, then persists the row, its
// tag associations and the initial update record in one transaction. A live
// duplicate of (owner, dir) fails with ErrProjectExists; callers that find a
// soft-deleted duplicate should take the Update (republish) path instead.
func (s *ProjectService) Create(ctx context.Context, spec ProjectSpec, actingUser string, isAdmin bool) (*models.Project, error) {
	spec.trim()
	if missing := missingMetadata(spec.Dir, spec.Image, spec.Name, spec.Author, spec.Quality, spec.Owner); len(missing) > 0 {
		return nil, &SpecError{Missing: missing}
	}

	tags, err := s.resolveTags(ctx, spec.Tags, actingUser, isAdmin)
	if err != nil {
		return nil, err
	}

	if err := archive.Bundle(s.ProjectDir(spec.Owner, spec.Dir), s.ZipPath(spec.Owner, spec.Dir)); err != nil {
		return nil, err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var project models.Project
	err = tx.QueryRow(ctx, `
		INSERT INTO projects (owner, dir, image, name, description, author, quality, citation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, owner, dir, image, name, description, author, quality, citation,
		          copied, deleted, deleted_at, created, updated
	`, spec.Owner, spec.Dir, spec.Image, spec.Name, spec.Description, spec.Author, spec.Quality, spec.Citation).Scan(
		&project.ID, &project.Owner, &project.Dir, &project.Image, &project.Name,
		&project.Description, &project.Author, &project.Quality, &project.Citation,
		&project.Copied, &project.Deleted, &project.DeletedAt, &project.Created, &project.Updated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProjectExists
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if err := replaceTagAssociations(ctx, tx, project.ID, tags); err != nil {
		return nil, err
	}

	comment := fmt.Sprintf("Initial release of %s", project.Name)
	var update models.Update
	err = tx.QueryRow(ctx, `
		INSERT INTO updates (project_id, comment)
		VALUES ($1, $2)
		RETURNING id, project_id, comment, updated
	`, project.ID, comment).Scan(&update.ID, &update.ProjectID, &update.Comment, &update.Updated)
	if err != nil {
		return nil, fmt.Errorf("failed to record initial update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	project.Tags = tags
	project.Updates = []models.Update{update}
	return &project, nil
}

// Update merges the provided fields into the project, revalidates the
// minimum metadata together with the required comment, clears the deleted
// flag (updates always revive), re-bundles the artifact and appends an
// update record.
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, merge ProjectMerge, actingUser string, isAdmin bool) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&project.Image, merge.Image)
	apply(&project.Name, merge.Name)
	apply(&project.Description, merge.Description)
	apply(&project.Author, merge.Author)
	apply(&project.Quality, merge.Quality)
	apply(&project.Citation, merge.Citation)

	comment := ""
	if merge.Comment != nil {
		comment = strings.TrimSpace(*merge.Comment)
	}

	missing := missingMetadata(project.Dir, project.Image, project.Name, project.Author, project.Quality, project.Owner)
	if comment == "" {
		missing = append(missing, "comment")
	}
	if len(missing) > 0 {
		return nil, &SpecError{Missing: missing}
	}

	tags := project.Tags
	if merge.Tags != nil {
		if tags, err = s.resolveTags(ctx, *merge.Tags, actingUser, isAdmin); err != nil {
			return nil, err
		}
	}

	if err := archive.Bundle(s.ProjectDir(project.Owner, project.Dir), s.ZipPath(project.Owner, project.Dir)); err != nil {
		return nil, err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE projects
		SET image = $1, name = $2, description = $3, author = $4, quality = $5,
		    citation = $6, deleted = FALSE, deleted_at = NULL, updated = NOW()
		WHERE id = $7
		RETURNING updated
	`, project.Image, project.Name, project.Description, project.Author,
		project.Quality, project.Citation, project.ID).Scan(&project.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	project.Deleted = false
	project.DeletedAt = nil

	if merge.Tags != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM project_tags WHERE project_id = $1`, project.ID); err != nil {
			return nil, fmt.Errorf("failed to clear tag associations: %w", err)
		}
		if err := replaceTagAssociations(ctx, tx, project.ID, tags); err != nil {
			return nil, err
		}
	}

	var update models.Update
	err = tx.QueryRow(ctx, `
		INSERT INTO updates (project_id, comment)
		VALUES ($1, $2)
		RETURNING id, project_id, comment, updated
	`, project.ID, comment).Scan(&update.ID, &update.ProjectID, &update.Comment, &update.Updated)
	if err != nil {
		return nil, fmt.Errorf("failed to record update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	project.Tags = tags
	project.Updates = append([]models.Update{update}, project.Updates...)
	return project, nil
}

// Delete soft-deletes the project and removes its zip artifact. Tag
// associations and the update history are kept for the audit trail and a
// later republish.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.db.Pool.Exec(ctx, `
		UPDATE projects SET deleted = TRUE, deleted_at = $1, updated = $1 WHERE id = $2
	`, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}

	if err := archive.Remove(s.ZipPath(project.Owner, project.Dir)); err != nil {
		return nil, err
	}

	project.Deleted = true
	project.DeletedAt = &now
	project.Updated = now
	return project, nil
}

// Copy unpacks the project's artifact into a fresh, collision-avoided
// directory in the requesting user's workspace and increments the copy
// counter on the source project. The publisher's row is otherwise
// untouched.
func (s *ProjectService) Copy(ctx context.Context, id uuid.UUID, user string) (*CopyResult, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Deleted {
		return nil, ErrProjectNotFound
	}

	dir, suffix, err := s.UnusedDir(user, project.Dir)
	if err != nil {
		return nil, err
	}

	if err := archive.Unbundle(s.ZipPath(project.Owner, project.Dir), s.ProjectDir(user, dir)); err != nil {
		return nil, err
	}

	err = s.db.Pool.QueryRow(ctx, `
		UPDATE projects SET copied = copied + 1 WHERE id = $1 RETURNING copied
	`, id).Scan(&project.Copied)
	if err != nil {
		return nil, fmt.Errorf("failed to increment copy counter: %w", err)
	}

	return &CopyResult{Project: project, Dir: dir, Suffix: suffix}, nil
}

// UnusedDir resolves a free directory name in the user's workspace: the
// desired name if available, otherwise the first free integer-suffixed
// variant. The returned count is the number of suffix attempts (0 means no
// collision). Resolution races a concurrent copy of the same project by the
// same user; the directory is claimed immediately afterward by Unbundle.
func (s *ProjectService) UnusedDir(user, desired string) (string, int, error) {
	name := desired
	for count := 0; ; count++ {
		if count > 0 {
			name = fmt.Sprintf("%s%d", desired, count)
		}
		_, err := os.Stat(s.ProjectDir(user, name))
		if os.IsNotExist(err) {
			return name, count, nil
		}
		if err != nil {
			return "", 0, fmt.Errorf("probe workspace directory: %w", err)
		}
	}
}

// Get loads a project by id with its tags and update history (newest
// first).
func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.scanProject(ctx, `
		SELECT id, owner, dir, image, name, description, author, quality, citation,
		       copied, deleted, deleted_at, created, updated
		FROM projects WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return s.attachRelations(ctx, project)
}

// GetByOwnerDir loads the current row for (owner, dir), preferring a live
// row over soft-deleted leftovers. Callers use it to pick the republish
// path.
func (s *ProjectService) GetByOwnerDir(ctx context.Context, owner, dir string) (*models.Project, error) {
	project, err := s.scanProject(ctx, `
		SELECT id, owner, dir, image, name, description, author, quality, citation,
		       copied, deleted, deleted_at, created, updated
		FROM projects WHERE owner = $1 AND dir = $2
		ORDER BY deleted ASC, updated DESC
		LIMIT 1
	`, owner, dir)
	if err != nil {
		return nil, err
	}
	return s.attachRelations(ctx, project)
}

// All lists projects, excluding soft-deleted rows unless asked otherwise,
// optionally sorted by copy count (most copied first).
func (s *ProjectService) All(ctx context.Context, includeDeleted, sortByCopied bool) ([]models.Project, error) {
	query := `
		SELECT id, owner, dir, image, name, description, author, quality, citation,
		       copied, deleted, deleted_at, created, updated
		FROM projects`
	if !includeDeleted {
		query += ` WHERE NOT deleted`
	}
	if sortByCopied {
		query += ` ORDER BY copied DESC`
	} else {
		query += ` ORDER BY updated DESC`
	}

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID, &p.Owner, &p.Dir, &p.Image, &p.Name, &p.Description, &p.Author,
			&p.Quality, &p.Citation, &p.Copied, &p.Deleted, &p.DeletedAt, &p.Created, &p.Updated,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		if _, err := s.attachRelations(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// HistoryEntry is one row of the update audit report.
type HistoryEntry struct {
	Update         models.Update
	ProjectName    string
	ProjectDeleted bool
}

// UpdateHistory returns the full update audit trail, newest first.
func (s *ProjectService) UpdateHistory(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT u.id, u.project_id, u.comment, u.updated, p.name, p.deleted
		FROM updates u
		JOIN projects p ON p.id = u.project_id
		ORDER BY u.updated DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Update.ID, &e.Update.ProjectID, &e.Update.Comment,
			&e.Update.Updated, &e.ProjectName, &e.ProjectDeleted); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListFiles reports the entries of the project's published artifact.
func (s *ProjectService) ListFiles(project *models.Project) ([]archive.Entry, error) {
	return archive.ListEntries(s.ZipPath(project.Owner, project.Dir))
}

func (s *ProjectService) resolveTags(ctx context.Context, csv, actingUser string, isAdmin bool) ([]models.Tag, error) {
	tags, err := s.tags.GetOrCreate(ctx, NormalizeLabels(csv))
	if err != nil {
		return nil, err
	}
	return s.tags.FilterAssignable(tags, actingUser, isAdmin), nil
}

func (s *ProjectService) scanProject(ctx context.Context, query string, args ...any) (*models.Project, error) {
	var p models.Project
	err := s.db.Pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.Owner, &p.Dir, &p.Image, &p.Name, &p.Description, &p.Author,
		&p.Quality, &p.Citation, &p.Copied, &p.Deleted, &p.DeletedAt, &p.Created, &p.Updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *ProjectService) attachRelations(ctx context.Context, p *models.Project) (*models.Project, error) {
	tags, err := s.tags.ForProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	p.Tags = tags

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, project_id, comment, updated
		FROM updates WHERE project_id = $1
		ORDER BY updated DESC
	`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load updates: %w", err)
	}
	defer rows.Close()

	var updates []models.Update
	for rows.Next() {
		var u models.Update
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.Comment, &u.Updated); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	p.Updates = updates
	return p, nil
}

func replaceTagAssociations(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, tags []models.Tag) error {
	for _, tag := range tags {
		if _, err := tx.Exec(ctx, `
			INSERT INTO project_tags (project_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT (project_id, tag_id) DO NOTHING
		`, projectID, tag.ID); err != nil {
			return fmt.Errorf("failed to associate tag %q: %w", tag.Label, err)
		}
	}
	return nil
}
