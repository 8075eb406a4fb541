package model

import "time"

type FileKind string

const (
	FileKindSlides FileKind = "slides"
	FileKindAudio  FileKind = "audio"
	FileKindVideo  FileKind = "video"
)

// MediaFile is a stored source artifact referenced by jobs. Upload and
// storage management live outside this service; jobs only read these rows.
type MediaFile struct {
	ID           string
	OriginalName string
	Path         string
	Kind         FileKind
	SizeBytes    int64
	DurationSec  float64 // zero for slide decks
	ProjectID    string
	CreatedAt    time.Time
}

// Transcribable reports whether the artifact carries an audio track.
func (f *MediaFile) Transcribable() bool {
	return f.Kind == FileKindAudio || f.Kind == FileKindVideo
}
