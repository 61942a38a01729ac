package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/nbhub/projects-api/internal/database"
	"github.com/nbhub/projects-api/internal/models"
)

// TagService maintains the catalog of free-text labels attached to
// published projects.
type TagService struct {
	db             *database.DB
	protectedUsers []string
}

func NewTagService(db *database.DB, protectedUsers []string) *TagService {
	return &TagService{db: db, protectedUsers: protectedUsers}
}

// NormalizeLabels splits a comma-joined tag string into trimmed, lowercased,
// deduplicated labels with empties dropped.
func NormalizeLabels(csv string) []string {
	var labels []string
	for _, raw := range strings.Split(csv, ",") {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" || slices.Contains(labels, label) {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}

// GetOrCreate upserts each label, returning the existing tag where one is
// already cataloged. Flags of existing tags are never touched.
func (s *TagService) GetOrCreate(ctx context.Context, labels []string) ([]models.Tag, error) {
	var tags []models.Tag
	for _, label := range labels {
		var tag models.Tag
		err := s.db.Pool.QueryRow(ctx, `
			INSERT INTO tags (label) VALUES ($1)
			ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
			RETURNING id, label, description, protected, pinned
		`, label).Scan(&tag.ID, &tag.Label, &tag.Description, &tag.Protected, &tag.Pinned)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert tag %q: %w", label, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// FilterAssignable drops protected tags unless the requesting user is
// allow-listed or an admin.
func (s *TagService) FilterAssignable(tags []models.Tag, user string, isAdmin bool) []models.Tag {
	if isAdmin || slices.Contains(s.protectedUsers, user) {
		return tags
	}
	var assignable []models.Tag
	for _, tag := range tags {
		if !tag.Protected {
			assignable = append(assignable, tag)
		}
	}
	return assignable
}

func (s *TagService) AllPinned(ctx context.Context) ([]models.Tag, error) {
	return s.scanTags(ctx, `
		SELECT id, label, description, protected, pinned
		FROM tags WHERE pinned ORDER BY label
	`)
}

func (s *TagService) AllProtected(ctx context.Context) ([]models.Tag, error) {
	return s.scanTags(ctx, `
		SELECT id, label, description, protected, pinned
		FROM tags WHERE protected ORDER BY label
	`)
}

// ForProject loads the tags associated with one project.
func (s *TagService) ForProject(ctx context.Context, projectID uuid.UUID) ([]models.Tag, error) {
	return s.scanTags(ctx, `
		SELECT t.id, t.label, t.description, t.protected, t.pinned
		FROM tags t
		JOIN project_tags pt ON pt.tag_id = t.id
		WHERE pt.project_id = $1
		ORDER BY t.label
	`, projectID)
}

func (s *TagService) scanTags(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Label, &tag.Description, &tag.Protected, &tag.Pinned); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
