package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ErrIndexNotFound reports that no index has been persisted at the store's
// location yet.
var ErrIndexNotFound = errors.New("no content has been ingested yet")

const collectionName = "docs"

// Result is one retrieved chunk with its similarity to the query.
type Result struct {
	Content    string
	Position   int
	Similarity float32
}

// Store is a vector index bound to a single on-disk location. Building
// replaces the whole artifact; searching loads it fresh, so ingestion and
// answering can happen in separate processes. Concurrent builds on the same
// Store are serialized, and the artifact is swapped atomically so a reader
// never observes a half-written index.
type Store struct {
	mu    sync.Mutex
	path  string
	embed chromem.EmbeddingFunc
}

func NewStore(path string, embed chromem.EmbeddingFunc) *Store {
	return &Store{path: path, embed: embed}
}

// Build embeds every chunk and persists a new index, unconditionally
// replacing whatever was stored at the location before. It is all-or-nothing:
// if any embedding call fails, the previous artifact stays untouched.
func (s *Store) Build(ctx context.Context, chunks []string) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to index")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db := chromem.NewDB()
	coll, err := db.CreateCollection(collectionName, nil, s.embed)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, text := range chunks {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("chunk-%06d", i),
			Metadata: map[string]string{"position": strconv.Itoa(i)},
			Content:  text,
		}
	}
	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	return s.persist(db)
}

// persist writes the index next to its final location and renames it into
// place, so concurrent loads see either the old or the new artifact.
func (s *Store) persist(db *chromem.DB) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("persist index: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := db.ExportToFile(tmp, true, "", collectionName); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

func (s *Store) load() (*chromem.Collection, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("load index: %w", err)
	}
	db := chromem.NewDB()
	if err := db.ImportFromFile(s.path, "", collectionName); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	coll := db.GetCollection(collectionName, s.embed)
	if coll == nil {
		return nil, ErrIndexNotFound
	}
	return coll, nil
}

// Search embeds the query and returns the k most similar chunks, ordered by
// descending similarity with ingestion order breaking ties. It returns fewer
// than k results if the index holds fewer chunks, and none if it is empty.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Result, error) {
	coll, err := s.load()
	if err != nil {
		return nil, err
	}
	count := coll.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}

	// Rank the full collection so ties at the cutoff still resolve in
	// ingestion order, then keep the top k.
	raw, err := coll.Query(ctx, query, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		pos, err := strconv.Atoi(r.Metadata["position"])
		if err != nil {
			return nil, fmt.Errorf("load index: bad chunk position %q", r.Metadata["position"])
		}
		results = append(results, Result{
			Content:    r.Content,
			Position:   pos,
			Similarity: r.Similarity,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Position < results[j].Position
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
