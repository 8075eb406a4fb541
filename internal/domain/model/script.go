package model

import (
	"strings"
	"time"
)

// Script is the generated output of a completed job: lecture script text
// for slide decks, transcript text plus segment timing for media.
type Script struct {
	ID           string
	JobID        string
	Title        string
	Content      string
	Format       string // "markdown" | "text"
	Language     string
	SegmentsJSON string // structured transcript segments, empty for slide scripts
	WordCount    int
	CreatedAt    time.Time
}

// UpdateWordCount recomputes WordCount from Content.
func (s *Script) UpdateWordCount() {
	s.WordCount = len(strings.Fields(s.Content))
}
