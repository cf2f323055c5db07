package app

import (
	"errors"
	"time"

	"github.com/philippgille/chromem-go"

	"neuralchat/internal/chunker"
	"neuralchat/internal/config"
	"neuralchat/internal/extract"
	"neuralchat/internal/index"
	"neuralchat/internal/llm"
)

// App wires the ingestion-to-retrieval pipeline: extractors, chunker,
// vector index and the generative client.
type App struct {
	cfg         *config.Config
	chunker     *chunker.Chunker
	store       *index.Store
	llm         *llm.Client
	transcripts *extract.TranscriptClient
}

func New(cfg *config.Config) (*App, error) {
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	embed := chromem.NewEmbeddingFuncOpenAICompat(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, nil)
	client := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
	transcripts := extract.NewTranscriptClient("", 30*time.Second)
	return NewWith(cfg, ch, index.NewStore(cfg.IndexFile, embed), client, transcripts), nil
}

// NewWith assembles an App from explicit collaborators. New derives them
// from configuration; tests substitute their own.
func NewWith(cfg *config.Config, ch *chunker.Chunker, store *index.Store, client *llm.Client, transcripts *extract.TranscriptClient) *App {
	return &App{
		cfg:         cfg,
		chunker:     ch,
		store:       store,
		llm:         client,
		transcripts: transcripts,
	}
}

// SourceKind identifies how a source's text is extracted.
type SourceKind string

const (
	SourcePDF      SourceKind = "pdf"
	SourceMarkdown SourceKind = "markdown"
	SourceText     SourceKind = "text"
	SourceYouTube  SourceKind = "youtube"
)

// Source is one ingestible unit. File sources carry a transient on-disk
// copy in Path; YouTube sources carry the original URL.
type Source struct {
	Kind SourceKind
	Name string
	Path string
	URL  string
}

// UploadedFile is one manifest entry returned to the client after
// ingestion. It is display-only and carries no retrieval semantics.
type UploadedFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

var (
	// ErrNoContent reports that ingestion produced no text to index.
	ErrNoContent = errors.New("no content to process")
	// ErrInvalidURL reports a YouTube URL no video ID could be parsed from.
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrTooManyVideos reports more than one YouTube source in a single
	// ingestion request.
	ErrTooManyVideos = errors.New("only one YouTube URL per upload")
)
