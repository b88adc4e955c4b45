package models

// RecordingSource is either a CapturedSource or a SynthesizedSource.
type RecordingSource interface {
	recordingSource()
}

// CapturedSource is audio recorded from a microphone.
type CapturedSource struct {
	Blob  Blob
	Title string
}

// SynthesizedSource is text that is turned into speech before upload.
type SynthesizedSource struct {
	Text string
}

func (CapturedSource) recordingSource()    {}
func (SynthesizedSource) recordingSource() {}
