package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProjectExists   = errors.New("project already exists")
	ErrProjectNotFound = errors.New("project not found")
	ErrShareExists     = errors.New("project already shared")
	ErrShareNotFound   = errors.New("share not found")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrTagNotFound     = errors.New("tag not found")

	// ErrPermission marks ownership/identity mismatches; handlers translate
	// it to 403 where everything else in the taxonomy maps to 400.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidProject means the referenced project directory does not
	// exist on disk.
	ErrInvalidProject = errors.New("project directory not found")

	// ErrSelfInvite rejects invite lists containing the share owner.
	ErrSelfInvite = errors.New("cannot invite yourself to your own project")
)

// SpecError reports a malformed or incomplete caller specification. Missing
// holds every absent field so callers can fix the whole request at once.
type SpecError struct {
	Missing []string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// uniqueViolation is the Postgres error code raised when an insert races a
// concurrent duplicate past the application-level existence check.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
