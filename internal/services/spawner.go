package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/nbhub/projects-api/internal/models"
)

// ErrSpawnerNotFound means the hub has no record for the requested server.
var ErrSpawnerNotFound = errors.New("spawner not found")

// SpawnerService reads live container metadata from the hub's spawner
// database. The database is owned by the hub; this service opens it
// read-only and never writes.
type SpawnerService struct {
	db *sql.DB
}

func NewSpawnerService(hubDBPath string) (*SpawnerService, error) {
	db, err := sql.Open("sqlite3", "file:"+hubDBPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open hub database: %w", err)
	}
	return &SpawnerService{db: db}, nil
}

func (s *SpawnerService) Close() error {
	return s.db.Close()
}

// UserSpawners lists the user's named servers. The unnamed default spawner
// is excluded; it does not correspond to a project.
func (s *SpawnerService) UserSpawners(ctx context.Context, username string) ([]models.Spawner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.state, s.user_options, s.last_activity, s.started
		FROM spawners s
		JOIN users u ON s.user_id = u.id
		WHERE u.name = ? AND s.name != ''
	`, username)
	if err != nil {
		return nil, fmt.Errorf("query spawners: %w", err)
	}
	defer rows.Close()

	var spawners []models.Spawner
	for rows.Next() {
		sp, err := scanSpawner(rows)
		if err != nil {
			return nil, err
		}
		spawners = append(spawners, sp)
	}
	return spawners, rows.Err()
}

// Spawner looks up one named server for (user, dir).
func (s *SpawnerService) Spawner(ctx context.Context, username, dir string) (*models.Spawner, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.name, s.state, s.user_options, s.last_activity, s.started
		FROM spawners s
		JOIN users u ON s.user_id = u.id
		WHERE u.name = ? AND s.name = ?
	`, username, dir)

	sp, err := scanSpawner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpawnerNotFound
		}
		return nil, err
	}
	return &sp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpawner(row rowScanner) (models.Spawner, error) {
	var sp models.Spawner
	var state, options sql.NullString
	var lastActivity, started sql.NullTime

	if err := row.Scan(&sp.Name, &state, &options, &lastActivity, &started); err != nil {
		return models.Spawner{}, err
	}
	sp.State = state.String
	sp.UserOptions = options.String
	if lastActivity.Valid {
		sp.LastActivity = &lastActivity.Time
	}
	if started.Valid {
		sp.Started = &started.Time
	}
	return sp, nil
}
