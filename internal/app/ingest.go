package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"neuralchat/internal/extract"
)

// Ingest runs the full pipeline over the given sources: extract text,
// accumulate it into one combined document, chunk it, embed the chunks and
// persist a new vector index, unconditionally replacing the previous one.
// Transient on-disk copies of file sources are removed regardless of the
// outcome. The returned manifest has one display entry per source.
func (a *App) Ingest(ctx context.Context, sources []Source) ([]UploadedFile, error) {
	defer removeSourceFiles(sources)

	// Validate YouTube sources up front: an unparseable URL is a
	// validation failure, not an extraction failure, and must never reach
	// the transcript provider.
	videos := 0
	for _, src := range sources {
		if src.Kind != SourceYouTube {
			continue
		}
		videos++
		if videos > 1 {
			return nil, ErrTooManyVideos
		}
		if extract.VideoID(src.URL) == "" {
			return nil, ErrInvalidURL
		}
	}

	var combined strings.Builder
	var manifest []UploadedFile
	for _, src := range sources {
		switch src.Kind {
		case SourcePDF:
			text, err := extract.PDF(src.Path)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", src.Name, err)
			}
			combined.WriteString(text)
			manifest = append(manifest, UploadedFile{Name: src.Name, Type: "pdf"})

		case SourceMarkdown:
			data, err := os.ReadFile(src.Path)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", src.Name, err)
			}
			combined.WriteString(extract.Markdown(data))
			manifest = append(manifest, UploadedFile{Name: src.Name, Type: "markdown"})

		case SourceText:
			data, err := os.ReadFile(src.Path)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", src.Name, err)
			}
			combined.Write(data)
			manifest = append(manifest, UploadedFile{Name: src.Name, Type: "text"})

		case SourceYouTube:
			id := extract.VideoID(src.URL)
			transcript, err := a.transcripts.Transcript(ctx, id)
			if err != nil {
				// A failed fetch degrades to its error text becoming part
				// of the combined document, and ingestion proceeds.
				log.Printf("transcript fetch failed for %s: %v", id, err)
				transcript = err.Error()
			}
			combined.WriteString(transcript)
			title := a.transcripts.VideoTitle(ctx, id)
			manifest = append(manifest, UploadedFile{Name: title, Type: "youtube", URL: src.URL})

		default:
			return nil, fmt.Errorf("unsupported source kind %q", src.Kind)
		}
	}

	if combined.Len() == 0 {
		return nil, ErrNoContent
	}

	chunks := a.chunker.Chunk(combined.String())
	log.Printf("ingesting %d sources: %d chunks", len(sources), len(chunks))
	if err := a.store.Build(ctx, chunks); err != nil {
		return nil, err
	}
	return manifest, nil
}

func removeSourceFiles(sources []Source) {
	for _, src := range sources {
		if src.Path == "" {
			continue
		}
		if err := os.Remove(src.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("cleanup %s: %v", src.Path, err)
		}
	}
}
