package errs

import "errors"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrPermissionDenied = errors.New("microphone access denied")
	ErrSessionActive    = errors.New("capture session already active")
	ErrInvalidState     = errors.New("invalid capture session state")

	ErrStorageWrite = errors.New("failed to write to object storage")

	ErrRecordingNotFound = errors.New("recording not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflicting update")

	ErrTranscription = errors.New("transcription failed")
	ErrSummary       = errors.New("summary generation failed")
	ErrSynthesis     = errors.New("speech synthesis failed")
	ErrUsageLimit    = errors.New("monthly usage limit reached")

	ErrShareNotFound  = errors.New("share not found")
	ErrDuplicateShare = errors.New("recording already shared with this user")
	ErrEmailDelivery  = errors.New("failed to deliver email")

	ErrWriteToDB = errors.New("failed to write to database")
)
