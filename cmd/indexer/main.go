// Command indexer embeds the two Rapamycin papers and writes the indexes the
// server loads at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	openaiClient "voice-qa-server/internal/clients/openai"
	"voice-qa-server/internal/knowledge"
	"voice-qa-server/internal/observability"

	"github.com/joho/godotenv"
)

func main() {
	sorgePath := flag.String("sorge", "data/sorge.txt", "plain text of the Sorge paper")
	fischerPath := flag.String("fischer", "data/fischer.txt", "plain text of the Fischer paper")
	outDir := flag.String("out", "", "index directory (defaults to ANSWER_INDEX_DIR or ./storage)")
	chunkSize := flag.Int("chunk-size", knowledge.DefaultBuildOptions().ChunkSize, "words per chunk")
	chunkOverlap := flag.Int("chunk-overlap", knowledge.DefaultBuildOptions().ChunkOverlap, "words shared by neighbouring chunks")
	flag.Parse()

	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			log.Printf("env.local not loaded, using process environment: %v", err)
		}
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}
	embeddingModel := os.Getenv("ANSWER_EMBEDDING_MODEL")
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	if *outDir == "" {
		*outDir = os.Getenv("ANSWER_INDEX_DIR")
	}
	if *outDir == "" {
		*outDir = "./storage"
	}

	logger := observability.NewLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder := openaiClient.NewClient(apiKey, embeddingModel, logger)
	opts := knowledge.BuildOptions{
		ChunkSize:    *chunkSize,
		ChunkOverlap: *chunkOverlap,
		BatchSize:    knowledge.DefaultBuildOptions().BatchSize,
	}

	inputs := map[string]string{
		knowledge.SourceSorge.Name:   *sorgePath,
		knowledge.SourceFischer.Name: *fischerPath,
	}
	for _, src := range knowledge.DefaultSources() {
		if err := buildOne(ctx, src.Name, inputs[src.Name], *outDir, embedder, opts, logger); err != nil {
			logger.Fatal(ctx, "failed to build index", err)
		}
	}
}

func buildOne(ctx context.Context, name, path, outDir string, embedder knowledge.Embedder, opts knowledge.BuildOptions, logger *observability.Logger) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	idx, err := knowledge.Build(ctx, name, string(text), embedder, opts)
	if err != nil {
		return err
	}
	if err := idx.Save(outDir); err != nil {
		return err
	}

	logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "index", Value: name},
		observability.Field{Key: "chunks", Value: idx.Len()},
		observability.Field{Key: "dimension", Value: idx.Dimension()},
		observability.Field{Key: "path", Value: knowledge.Path(outDir, name)},
	), "index written")
	return nil
}
