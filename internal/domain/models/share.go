package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

type Share struct {
	ID             string         `json:"id" db:"id"`
	RecordingID    string         `json:"recording_id" db:"recording_id"`
	SharedByID     string         `json:"shared_by_id" db:"shared_by_id"`
	SharedWithID   sql.NullString `json:"-" db:"shared_with_id"`
	RecipientEmail string         `json:"recipient_email" db:"recipient_email"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	ResolvedAt     sql.NullTime   `json:"-" db:"resolved_at"`
}

// Pending reports whether the recipient has not signed up yet.
func (s Share) Pending() bool {
	return !s.SharedWithID.Valid
}

type ShareResult struct {
	Success    bool  `json:"success"`
	UserExists bool  `json:"userExists"`
	Share      Share `json:"share"`
}

func (s Share) MarshalJSON() ([]byte, error) {
	type shareJSON struct {
		ID             string     `json:"id"`
		RecordingID    string     `json:"recording_id"`
		SharedByID     string     `json:"shared_by_id"`
		SharedWithID   *string    `json:"shared_with_id"`
		RecipientEmail string     `json:"recipient_email"`
		CreatedAt      time.Time  `json:"created_at"`
		ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	}

	out := shareJSON{
		ID:             s.ID,
		RecordingID:    s.RecordingID,
		SharedByID:     s.SharedByID,
		RecipientEmail: s.RecipientEmail,
		CreatedAt:      s.CreatedAt,
	}
	if s.SharedWithID.Valid {
		out.SharedWithID = &s.SharedWithID.String
	}
	if s.ResolvedAt.Valid {
		out.ResolvedAt = &s.ResolvedAt.Time
	}

	return json.Marshal(out)
}

// Invite carries what a share notification or signup invitation needs.
type Invite struct {
	To             string
	RecordingID    string
	RecordingTitle string
	SharedByID     string
	SharedByEmail  string
}
