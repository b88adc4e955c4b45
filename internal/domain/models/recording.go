package models

import (
	"time"

	"github.com/lib/pq"
)

type Source string

const (
	SourceCaptured    Source = "captured"
	SourceSynthesized Source = "synthesized"
)

type Recording struct {
	ID              string         `json:"id" db:"id"`
	UserID          string         `json:"user_id" db:"user_id"`
	AudioURL        string         `json:"audio_url" db:"blob_url"`
	BlobKey         string         `json:"-" db:"blob_key"`
	Title           string         `json:"title" db:"title"`
	Description     string         `json:"description" db:"description"`
	Notes           string         `json:"notes" db:"notes"`
	ImageURL        string         `json:"image_url,omitempty" db:"image_url"`
	Tags            pq.StringArray `json:"tags" db:"tags"`
	Source          Source         `json:"source" db:"source"`
	DurationSeconds int            `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// NewRecording carries the optional fields accepted when a recording row is
// inserted. Nil title or description fall back to the placeholder
// "Recording N", where N is the owner's recording count plus one.
type NewRecording struct {
	Title       *string
	Description *string
	Notes       *string
	ImageURL    *string
	Tags        []string
	Source      Source
	Duration    time.Duration
}

// Field names a recording column the owner may change through UpdateField.
type Field string

const (
	FieldTitle    Field = "title"
	FieldNotes    Field = "notes"
	FieldImageURL Field = "image_url"
	FieldTags     Field = "tags"
)

type SortOption string

const (
	SortRecent       SortOption = "recent"
	SortOldest       SortOption = "oldest"
	SortAlphabetical SortOption = "alphabetical"
)

type ListFilter struct {
	Sort SortOption
	Tag  string
}

type RecordingList struct {
	Own    []Recording `json:"recordings"`
	Shared []Recording `json:"shared_recordings"`
	Tags   []string    `json:"tags"`
}

// Blob is a finished, encoded unit of audio (or an image attachment).
type Blob struct {
	Data     []byte
	MimeType string
	Duration time.Duration
}

type StoredObject struct {
	Key string
	URL string
}
