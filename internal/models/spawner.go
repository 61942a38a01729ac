package models

import "time"

// Spawner is the hub's live container record for one named server. The
// spawner database is owned by the hub; this service only reads it to
// enrich listings with runtime metadata.
type Spawner struct {
	Name         string     `json:"slug"`
	State        string     `json:"state"`
	UserOptions  string     `json:"options"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	Started      *time.Time `json:"started,omitempty"`
}

// Active reports whether the hub currently has a running server for this
// spawner.
func (s *Spawner) Active() bool {
	return s.Started != nil
}
