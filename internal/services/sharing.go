package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nbhub/projects-api/internal/database"
	"github.com/nbhub/projects-api/internal/models"
)

// ShareSpec is the caller-supplied description of a new private share.
type ShareSpec struct {
	Owner   string
	Dir     string
	Invites []string
}

// InviteDiff partitions the result of an invite-list update so callers can
// notify only newly added invitees and clean up only removed rows.
type InviteDiff struct {
	Added    []models.Invite
	Removed  []models.Invite
	Retained []models.Invite
}

// SharingService is the private-share registry: share creation, the invite
// lifecycle (pending/accepted/removed) and collaborator diffing.
type SharingService struct {
	db        *database.DB
	usersPath string
}

func NewSharingService(db *database.DB, usersPath string) *SharingService {
	return &SharingService{db: db, usersPath: usersPath}
}

// Create persists a share and its pending invites. The owner is not added
// as an invite — unlike projects, shares track ownership only in the owner
// column.
func (s *SharingService) Create(ctx context.Context, spec ShareSpec) (*models.Share, error) {
	spec.Owner = strings.TrimSpace(spec.Owner)
	spec.Dir = strings.TrimSpace(spec.Dir)
	invitees := normalizeInvitees(spec.Invites)

	var missing []string
	if spec.Owner == "" {
		missing = append(missing, "owner")
	}
	if spec.Dir == "" {
		missing = append(missing, "dir")
	}
	if len(invitees) == 0 {
		missing = append(missing, "invites")
	}
	if len(missing) > 0 {
		return nil, &SpecError{Missing: missing}
	}

	if slices.Contains(invitees, spec.Owner) {
		return nil, ErrSelfInvite
	}

	if _, err := os.Stat(filepath.Join(s.usersPath, spec.Owner, spec.Dir)); err != nil {
		return nil, ErrInvalidProject
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var share models.Share
	err = tx.QueryRow(ctx, `
		INSERT INTO shares (owner, dir)
		VALUES ($1, $2)
		RETURNING id, owner, dir, created
	`, spec.Owner, spec.Dir).Scan(&share.ID, &share.Owner, &share.Dir, &share.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrShareExists
		}
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	for _, invitee := range invitees {
		var invite models.Invite
		err = tx.QueryRow(ctx, `
			INSERT INTO invites (share_id, invitee)
			VALUES ($1, $2)
			RETURNING id, share_id, invitee, accepted, created
		`, share.ID, invitee).Scan(&invite.ID, &invite.ShareID, &invite.Invitee, &invite.Accepted, &invite.Created)
		if err != nil {
			return nil, fmt.Errorf("failed to create invite for %s: %w", invitee, err)
		}
		share.Invites = append(share.Invites, invite)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &share, nil
}

// Get loads a share with its invites.
func (s *SharingService) Get(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	var share models.Share
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, owner, dir, created FROM shares WHERE id = $1
	`, id).Scan(&share.ID, &share.Owner, &share.Dir, &share.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	if share.Invites, err = s.invitesForShare(ctx, share.ID); err != nil {
		return nil, err
	}
	return &share, nil
}

// UpdateInvites reconciles the share's invite list against the requested
// one. Retained invites keep their identifier and accepted state; handles
// only in the new list become fresh pending invites; handles only in the
// old list are deleted. An update that would leave zero invites deletes the
// share itself.
func (s *SharingService) UpdateInvites(ctx context.Context, shareID uuid.UUID, actingUser string, users []string) (*InviteDiff, *models.Share, error) {
	share, err := s.Get(ctx, shareID)
	if err != nil {
		return nil, nil, err
	}
	if share.Owner != actingUser {
		return nil, nil, ErrPermission
	}

	requested := normalizeInvitees(users)
	if slices.Contains(requested, share.Owner) {
		return nil, nil, ErrSelfInvite
	}

	diff := &InviteDiff{}
	current := make(map[string]models.Invite, len(share.Invites))
	for _, invite := range share.Invites {
		current[invite.Invitee] = invite
		if !slices.Contains(requested, invite.Invitee) {
			diff.Removed = append(diff.Removed, invite)
		}
	}

	if len(requested) == 0 {
		if err := s.deleteShare(ctx, shareID); err != nil {
			return nil, nil, err
		}
		return diff, nil, nil
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, invite := range diff.Removed {
		if _, err := tx.Exec(ctx, `DELETE FROM invites WHERE id = $1`, invite.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to remove invite: %w", err)
		}
	}

	for _, user := range requested {
		if invite, ok := current[user]; ok {
			diff.Retained = append(diff.Retained, invite)
			continue
		}
		var invite models.Invite
		err = tx.QueryRow(ctx, `
			INSERT INTO invites (share_id, invitee)
			VALUES ($1, $2)
			RETURNING id, share_id, invitee, accepted, created
		`, shareID, user).Scan(&invite.ID, &invite.ShareID, &invite.Invitee, &invite.Accepted, &invite.Created)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to add invite for %s: %w", user, err)
		}
		diff.Added = append(diff.Added, invite)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	share.Invites = append(append([]models.Invite{}, diff.Retained...), diff.Added...)
	return diff, share, nil
}

// Accept marks the invite accepted. The acting user must be the invite's
// target; a valid emailed token instead claims the invite, rewriting its
// target to the acting user.
func (s *SharingService) Accept(ctx context.Context, inviteID uuid.UUID, actingUser, token string) (*models.Invite, error) {
	invite, err := s.getInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	if invite.Invitee != actingUser {
		if !ValidateInviteToken(token, invite.ID, invite.Invitee) {
			return nil, ErrPermission
		}
		invite.Invitee = actingUser
	}

	err = s.db.Pool.QueryRow(ctx, `
		UPDATE invites SET invitee = $1, accepted = TRUE
		WHERE id = $2
		RETURNING id, share_id, invitee, accepted, created
	`, invite.Invitee, invite.ID).Scan(&invite.ID, &invite.ShareID, &invite.Invitee, &invite.Accepted, &invite.Created)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}
	return invite, nil
}

// Reject removes the invite, ownership-checked like Accept. Rejecting the
// last invite removes the whole share; the second return reports that.
func (s *SharingService) Reject(ctx context.Context, inviteID uuid.UUID, actingUser, token string) (*models.Invite, bool, error) {
	invite, err := s.getInvite(ctx, inviteID)
	if err != nil {
		return nil, false, err
	}

	if invite.Invitee != actingUser {
		if !ValidateInviteToken(token, invite.ID, invite.Invitee) {
			return nil, false, ErrPermission
		}
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the share row so concurrent rejects serialize and the last
	// invite reliably takes the share with it.
	var shareID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM shares WHERE id = $1 FOR UPDATE
	`, invite.ShareID).Scan(&shareID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrShareNotFound
		}
		return nil, false, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invites WHERE id = $1`, invite.ID); err != nil {
		return nil, false, fmt.Errorf("failed to remove invite: %w", err)
	}

	var remaining int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM invites WHERE share_id = $1
	`, invite.ShareID).Scan(&remaining); err != nil {
		return nil, false, err
	}

	shareDeleted := remaining == 0
	if shareDeleted {
		if _, err := tx.Exec(ctx, `DELETE FROM shares WHERE id = $1`, invite.ShareID); err != nil {
			return nil, false, fmt.Errorf("failed to delete share: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return invite, shareDeleted, nil
}

// Remove unshares the project entirely. Only the share's owner may do
// this; invites cascade.
func (s *SharingService) Remove(ctx context.Context, shareID uuid.UUID, actingUser string) (*models.Share, error) {
	share, err := s.Get(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.Owner != actingUser {
		return nil, ErrPermission
	}
	if err := s.deleteShare(ctx, shareID); err != nil {
		return nil, err
	}
	return share, nil
}

// SharedByMe lists shares owned by the user.
func (s *SharingService) SharedByMe(ctx context.Context, owner string) ([]models.Share, error) {
	return s.scanShares(ctx, `
		SELECT id, owner, dir, created FROM shares WHERE owner = $1 ORDER BY created DESC
	`, owner)
}

// SharedWithMe lists shares the user has been invited to.
func (s *SharingService) SharedWithMe(ctx context.Context, user string) ([]models.Share, error) {
	return s.scanShares(ctx, `
		SELECT DISTINCT sh.id, sh.owner, sh.dir, sh.created
		FROM shares sh
		JOIN invites i ON i.share_id = sh.id
		WHERE i.invitee = $1
		ORDER BY sh.created DESC
	`, user)
}

func (s *SharingService) deleteShare(ctx context.Context, shareID uuid.UUID) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM shares WHERE id = $1`, shareID); err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}

func (s *SharingService) getInvite(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	var invite models.Invite
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, share_id, invitee, accepted, created FROM invites WHERE id = $1
	`, id).Scan(&invite.ID, &invite.ShareID, &invite.Invitee, &invite.Accepted, &invite.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (s *SharingService) invitesForShare(ctx context.Context, shareID uuid.UUID) ([]models.Invite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, share_id, invitee, accepted, created
		FROM invites WHERE share_id = $1
		ORDER BY created
	`, shareID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var invite models.Invite
		if err := rows.Scan(&invite.ID, &invite.ShareID, &invite.Invitee, &invite.Accepted, &invite.Created); err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (s *SharingService) scanShares(ctx context.Context, query string, args ...any) ([]models.Share, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		var share models.Share
		if err := rows.Scan(&share.ID, &share.Owner, &share.Dir, &share.Created); err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range shares {
		if shares[i].Invites, err = s.invitesForShare(ctx, shares[i].ID); err != nil {
			return nil, err
		}
	}
	return shares, nil
}

func normalizeInvitees(users []string) []string {
	var out []string
	for _, u := range users {
		if u = strings.TrimSpace(u); u != "" && !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}
