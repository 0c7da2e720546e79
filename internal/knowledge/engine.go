package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// QueryEngine retrieves the passages of one index relevant to a question.
type QueryEngine struct {
	embedder Embedder
	index    *Index
	topK     int
}

func NewQueryEngine(embedder Embedder, index *Index, topK int) *QueryEngine {
	if topK <= 0 {
		topK = 3
	}
	return &QueryEngine{embedder: embedder, index: index, topK: topK}
}

// Query embeds question and returns the best matching chunks.
func (q *QueryEngine) Query(ctx context.Context, question string) ([]Match, error) {
	vectors, err := q.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 input", len(vectors))
	}
	return q.index.TopK(vectors[0], q.topK)
}

// Context returns the retrieved passages joined for use in a prompt.
func (q *QueryEngine) Context(ctx context.Context, question string) (string, error) {
	matches, err := q.Query(ctx, question)
	if err != nil {
		return "", err
	}
	passages := make([]string, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, m.Chunk.Text)
	}
	return strings.Join(passages, "\n\n"), nil
}

// Tool exposes a query engine to an agent under a name and description.
type Tool struct {
	Name        string
	Description string
	Engine      *QueryEngine
}

// Source is a document an index is built from.
type Source struct {
	Name        string
	Description string
}

var (
	SourceSorge = Source{
		Name:        "sorge_10k",
		Description: "Provides information about Rapamycin from Sorge paper.",
	}
	SourceFischer = Source{
		Name:        "fischer_10k",
		Description: "Provides information about Rapamycin from Fischer paper.",
	}
)

// DefaultSources lists the papers the agent can consult.
func DefaultSources() []Source {
	return []Source{SourceSorge, SourceFischer}
}

// LoadTools loads the persisted index of every source and wraps each in a Tool.
func LoadTools(dir string, sources []Source, embedder Embedder, topK int) ([]Tool, error) {
	tools := make([]Tool, 0, len(sources))
	for _, src := range sources {
		idx, err := Load(dir, src.Name)
		if err != nil {
			return nil, err
		}
		tools = append(tools, Tool{
			Name:        src.Name,
			Description: src.Description,
			Engine:      NewQueryEngine(embedder, idx, topK),
		})
	}
	return tools, nil
}

// BuildOptions controls how a document is chunked and embedded.
type BuildOptions struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{ChunkSize: 200, ChunkOverlap: 20, BatchSize: 64}
}

// Build chunks text, embeds the chunks in batches and returns the index.
func Build(ctx context.Context, name, text string, embedder Embedder, opts BuildOptions) (*Index, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBuildOptions().BatchSize
	}
	passages := Split(text, opts.ChunkSize, opts.ChunkOverlap)
	if len(passages) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyIndex)
	}

	chunks := make([]Chunk, 0, len(passages))
	for start := 0; start < len(passages); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]
		vectors, err := embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s chunks %d-%d: %w", name, start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		for i, text := range batch {
			chunks = append(chunks, Chunk{
				ID:     fmt.Sprintf("%s-%04d", name, start+i),
				Source: name,
				Text:   text,
				Vector: vectors[i],
			})
		}
	}
	return NewIndex(name, chunks)
}
