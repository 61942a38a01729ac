package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/nbhub/projects-api/internal/archive"
	"github.com/nbhub/projects-api/internal/hub"
	"github.com/nbhub/projects-api/internal/models"
	"github.com/nbhub/projects-api/internal/services"
)

// ProjectServiceInterface defines the methods used by handlers from ProjectService
type ProjectServiceInterface interface {
	Create(ctx context.Context, spec services.ProjectSpec, actingUser string, isAdmin bool) (*models.Project, error)
	Update(ctx context.Context, id uuid.UUID, merge services.ProjectMerge, actingUser string, isAdmin bool) (*models.Project, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Copy(ctx context.Context, id uuid.UUID, user string) (*services.CopyResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetByOwnerDir(ctx context.Context, owner, dir string) (*models.Project, error)
	All(ctx context.Context, includeDeleted, sortByCopied bool) ([]models.Project, error)
	ListFiles(project *models.Project) ([]archive.Entry, error)
	ZipPath(owner, dir string) string
}

// TagServiceInterface defines the methods used by handlers from TagService
type TagServiceInterface interface {
	AllPinned(ctx context.Context) ([]models.Tag, error)
	AllProtected(ctx context.Context) ([]models.Tag, error)
}

// SharingServiceInterface defines the methods used by handlers from SharingService
type SharingServiceInterface interface {
	Create(ctx context.Context, spec services.ShareSpec) (*models.Share, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Share, error)
	UpdateInvites(ctx context.Context, shareID uuid.UUID, actingUser string, users []string) (*services.InviteDiff, *models.Share, error)
	Accept(ctx context.Context, inviteID uuid.UUID, actingUser, token string) (*models.Invite, error)
	Reject(ctx context.Context, inviteID uuid.UUID, actingUser, token string) (*models.Invite, bool, error)
	Remove(ctx context.Context, shareID uuid.UUID, actingUser string) (*models.Share, error)
	SharedByMe(ctx context.Context, owner string) ([]models.Share, error)
	SharedWithMe(ctx context.Context, user string) ([]models.Share, error)
}

// SpawnerServiceInterface defines the methods used by handlers from SpawnerService
type SpawnerServiceInterface interface {
	UserSpawners(ctx context.Context, username string) ([]models.Spawner, error)
	Spawner(ctx context.Context, username, dir string) (*models.Spawner, error)
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	IsConfigured() bool
	SendShareInvite(to, owner, projectName string, inviteID uuid.UUID) error
	SendPublished(to string, projectID uuid.UUID, projectName string) error
}

// HubClientInterface defines the methods used by handlers from the hub client
type HubClientInterface interface {
	CreateNamedServer(ctx context.Context, user, slug string, spec hub.ServerSpec) (string, error)
}
