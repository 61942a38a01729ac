package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner VARCHAR(255) NOT NULL,
		dir VARCHAR(255) NOT NULL,
		image VARCHAR(255) NOT NULL DEFAULT '',
		name VARCHAR(255) NOT NULL DEFAULT '',
		description VARCHAR(511) NOT NULL DEFAULT '',
		author VARCHAR(255) NOT NULL DEFAULT '',
		quality VARCHAR(255) NOT NULL DEFAULT '',
		citation VARCHAR(511) NOT NULL DEFAULT '',
		copied INTEGER NOT NULL DEFAULT 1,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at TIMESTAMP WITH TIME ZONE,
		created TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// (owner, dir) must be unique among live rows only; soft-deleted rows
	// stay behind for the audit trail and the republish path.
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_projects_owner_dir_live
		ON projects(owner, dir) WHERE NOT deleted`,

	`CREATE TABLE IF NOT EXISTS tags (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		label VARCHAR(63) UNIQUE NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		protected BOOLEAN NOT NULL DEFAULT FALSE,
		pinned BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS project_tags (
		project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS updates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		comment VARCHAR(255) NOT NULL DEFAULT '',
		updated TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS shares (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner VARCHAR(255) NOT NULL,
		dir VARCHAR(255) NOT NULL,
		created TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(owner, dir)
	)`,

	`CREATE TABLE IF NOT EXISTS invites (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		share_id UUID NOT NULL REFERENCES shares(id) ON DELETE CASCADE,
		invitee VARCHAR(255) NOT NULL,
		accepted BOOLEAN NOT NULL DEFAULT FALSE,
		created TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(share_id, invitee)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner)`,
	`CREATE INDEX IF NOT EXISTS idx_updates_project_id ON updates(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_updates_updated ON updates(updated DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_shares_owner ON shares(owner)`,
	`CREATE INDEX IF NOT EXISTS idx_invites_share_id ON invites(share_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invites_invitee ON invites(invitee)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
