package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nbhub/projects-api/internal/archive"
	"github.com/nbhub/projects-api/internal/hub"
	"github.com/nbhub/projects-api/internal/models"
	"github.com/nbhub/projects-api/internal/services"
)

// MockProjectService mocks the ProjectService
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(ctx context.Context, spec services.ProjectSpec, actingUser string, isAdmin bool) (*models.Project, error) {
	args := m.Called(ctx, spec, actingUser, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Update(ctx context.Context, id uuid.UUID, merge services.ProjectMerge, actingUser string, isAdmin bool) (*models.Project, error) {
	args := m.Called(ctx, id, merge, actingUser, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Delete(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Copy(ctx context.Context, id uuid.UUID, user string) (*services.CopyResult, error) {
	args := m.Called(ctx, id, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CopyResult), args.Error(1)
}

func (m *MockProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) GetByOwnerDir(ctx context.Context, owner, dir string) (*models.Project, error) {
	args := m.Called(ctx, owner, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) All(ctx context.Context, includeDeleted, sortByCopied bool) ([]models.Project, error) {
	args := m.Called(ctx, includeDeleted, sortByCopied)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectService) ListFiles(project *models.Project) ([]archive.Entry, error) {
	args := m.Called(project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]archive.Entry), args.Error(1)
}

func (m *MockProjectService) ZipPath(owner, dir string) string {
	args := m.Called(owner, dir)
	return args.String(0)
}

// MockTagService mocks the TagService
type MockTagService struct {
	mock.Mock
}

func (m *MockTagService) AllPinned(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockTagService) AllProtected(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tag), args.Error(1)
}

// MockSharingService mocks the SharingService
type MockSharingService struct {
	mock.Mock
}

func (m *MockSharingService) Create(ctx context.Context, spec services.ShareSpec) (*models.Share, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Share), args.Error(1)
}

func (m *MockSharingService) Get(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Share), args.Error(1)
}

func (m *MockSharingService) UpdateInvites(ctx context.Context, shareID uuid.UUID, actingUser string, users []string) (*services.InviteDiff, *models.Share, error) {
	args := m.Called(ctx, shareID, actingUser, users)
	var diff *services.InviteDiff
	var share *models.Share
	if args.Get(0) != nil {
		diff = args.Get(0).(*services.InviteDiff)
	}
	if args.Get(1) != nil {
		share = args.Get(1).(*models.Share)
	}
	return diff, share, args.Error(2)
}

func (m *MockSharingService) Accept(ctx context.Context, inviteID uuid.UUID, actingUser, token string) (*models.Invite, error) {
	args := m.Called(ctx, inviteID, actingUser, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invite), args.Error(1)
}

func (m *MockSharingService) Reject(ctx context.Context, inviteID uuid.UUID, actingUser, token string) (*models.Invite, bool, error) {
	args := m.Called(ctx, inviteID, actingUser, token)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Invite), args.Bool(1), args.Error(2)
}

func (m *MockSharingService) Remove(ctx context.Context, shareID uuid.UUID, actingUser string) (*models.Share, error) {
	args := m.Called(ctx, shareID, actingUser)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Share), args.Error(1)
}

func (m *MockSharingService) SharedByMe(ctx context.Context, owner string) ([]models.Share, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Share), args.Error(1)
}

func (m *MockSharingService) SharedWithMe(ctx context.Context, user string) ([]models.Share, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Share), args.Error(1)
}

// MockSpawnerService mocks the SpawnerService
type MockSpawnerService struct {
	mock.Mock
}

func (m *MockSpawnerService) UserSpawners(ctx context.Context, username string) ([]models.Spawner, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Spawner), args.Error(1)
}

func (m *MockSpawnerService) Spawner(ctx context.Context, username, dir string) (*models.Spawner, error) {
	args := m.Called(ctx, username, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Spawner), args.Error(1)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmailService) SendShareInvite(to, owner, projectName string, inviteID uuid.UUID) error {
	args := m.Called(to, owner, projectName, inviteID)
	return args.Error(0)
}

func (m *MockEmailService) SendPublished(to string, projectID uuid.UUID, projectName string) error {
	args := m.Called(to, projectID, projectName)
	return args.Error(0)
}

// MockHubClient mocks the hub client
type MockHubClient struct {
	mock.Mock
}

func (m *MockHubClient) CreateNamedServer(ctx context.Context, user, slug string, spec hub.ServerSpec) (string, error) {
	args := m.Called(ctx, user, slug, spec)
	return args.String(0), args.Error(1)
}
