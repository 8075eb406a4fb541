package adapter

import "context"

// Slide is one extracted deck page: text pulled from the deck plus an
// optional rendered image for visual analysis.
type Slide struct {
	Number    int    `json:"number"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
	ImagePath string `json:"image_path,omitempty"`
}

// SlideExtractor is the deck-extraction collaborator. The mechanics of
// reading PPT files live outside this service; this port only returns the
// extracted per-slide content.
type SlideExtractor interface {
	Extract(ctx context.Context, path string) ([]Slide, error)
}
