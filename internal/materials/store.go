// Package materials manages the user's study-material library: imported
// documents are chunked, embedded, and stored in a chromem-go collection so
// the engine can retrieve relevant passages as prompt context.
package materials

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	PersistPath   string  // directory to persist the collection; empty keeps it in memory
	Collection    string  // collection name, default "materials"
	TopK          int     // default result count for Search, default 4
	MinSimilarity float32 // results below this similarity are dropped
}

// Material is one stored chunk of imported reference text.
type Material struct {
	ID        string
	Source    string // file path, URL, or paste tag the chunk came from
	Title     string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Match is a retrieved material with its similarity to the query.
type Match struct {
	Material   Material
	Similarity float32 // 0.0 to 1.0
}

// Library stores materials and answers similarity queries.
type Library interface {
	// Add stores materials, embedding any that carry no vector.
	Add(ctx context.Context, items []Material) error

	// Search returns up to topK materials relevant to the query, best
	// first. topK <= 0 uses the configured default.
	Search(ctx context.Context, query string, topK int) ([]Match, error)

	// DeleteBySource removes every chunk imported from the given source.
	DeleteBySource(ctx context.Context, source string) error

	// Count returns the number of stored chunks.
	Count() int

	// Close releases the store.
	Close() error
}

// chromemLibrary implements Library using chromem-go.
type chromemLibrary struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     StoreConfig
}

// NewLibrary opens (or creates) the materials collection.
func NewLibrary(config StoreConfig, embedder Embedder) (Library, error) {
	if config.Collection == "" {
		config.Collection = "materials"
	}
	if config.TopK <= 0 {
		config.TopK = 4
	}

	var db *chromem.DB
	var err error

	if config.PersistPath != "" {
		db, err = chromem.NewPersistentDB(config.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &chromemLibrary{
		db:         db,
		collection: collection,
		config:     config,
	}, nil
}

func (l *chromemLibrary) Add(ctx context.Context, items []Material) error {
	if len(items) == 0 {
		return nil
	}

	for _, item := range items {
		metadata := map[string]string{
			"source": item.Source,
			"title":  item.Title,
		}
		for key, value := range item.Metadata {
			metadata[key] = value
		}

		err := l.collection.AddDocument(ctx, chromem.Document{
			ID:        item.ID,
			Content:   item.Content,
			Embedding: item.Embedding,
			Metadata:  metadata,
		})
		if err != nil {
			return fmt.Errorf("add material %s: %w", item.ID, err)
		}
	}

	return nil
}

func (l *chromemLibrary) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = l.config.TopK
	}

	// chromem rejects queries asking for more results than the
	// collection holds.
	if count := l.collection.Count(); count == 0 {
		return nil, nil
	} else if topK > count {
		topK = count
	}

	results, err := l.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var matches []Match
	for _, r := range results {
		if r.Similarity < l.config.MinSimilarity {
			continue
		}

		matches = append(matches, Match{
			Material: Material{
				ID:        r.ID,
				Source:    r.Metadata["source"],
				Title:     r.Metadata["title"],
				Content:   r.Content,
				Embedding: r.Embedding,
				Metadata:  r.Metadata,
			},
			Similarity: r.Similarity,
		})
	}

	return matches, nil
}

func (l *chromemLibrary) DeleteBySource(ctx context.Context, source string) error {
	if source == "" {
		return nil
	}
	return l.collection.Delete(ctx, map[string]string{"source": source}, nil)
}

func (l *chromemLibrary) Count() int {
	return l.collection.Count()
}

func (l *chromemLibrary) Close() error {
	// chromem-go persists on every change, nothing to flush.
	return nil
}

// FormatContext renders matches as the reference block injected ahead of
// the user's message. The engine adds its own block label, so this emits
// only the cited entries. Returns "" when there is nothing to cite.
func FormatContext(matches []Match) string {
	if len(matches) == 0 {
		return ""
	}

	var sb strings.Builder

	for i, match := range matches {
		label := match.Material.Title
		if label == "" {
			label = match.Material.Source
		}
		if label == "" {
			label = match.Material.ID
		}

		sb.WriteString(fmt.Sprintf("\n[%d] %s (relevance %.2f)\n", i+1, label, match.Similarity))
		sb.WriteString(strings.TrimSpace(match.Material.Content))
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}
