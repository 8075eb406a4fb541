package slides

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/ports/adapter"
)

var _ adapter.SlideExtractor = (*SidecarExtractor)(nil)

// SidecarExtractor reads slide content from the JSON sidecar the upload
// pipeline writes next to each deck (<deck>.slides.json). Deck parsing
// itself happens at upload time, outside this service.
type SidecarExtractor struct{}

func NewSidecarExtractor() *SidecarExtractor { return &SidecarExtractor{} }

func (e *SidecarExtractor) Extract(ctx context.Context, path string) ([]adapter.Slide, error) {
	sidecar := path + ".slides.json"
	if strings.HasSuffix(path, ".json") {
		sidecar = path
	}

	raw, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("deck %q has no extracted slide content: %w", path, domain.ErrValidation)
		}
		return nil, fmt.Errorf("read slide content %q: %w", sidecar, domain.ErrProcessing)
	}

	var slides []adapter.Slide
	if err := json.Unmarshal(raw, &slides); err != nil {
		return nil, fmt.Errorf("decode slide content %q: %w", sidecar, domain.ErrProcessing)
	}

	for i := range slides {
		if slides[i].Number == 0 {
			slides[i].Number = i + 1
		}
	}
	return slides, nil
}
