package models

type Summary struct {
	BulletPoints string `json:"bulletPoints"`
	Detailed     string `json:"detailed"`
	Simple       string `json:"simple"`
}

type TranscriptionOutcome struct {
	RecordingID string `json:"recording_id"`
	Text        string `json:"text,omitempty"`
	Error       string `json:"error,omitempty"`
}
