package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"supportbot/internal/chunker"
	"supportbot/internal/ingest"
	"supportbot/internal/vectorstore"
)

var (
	ingestPause time.Duration
	ingestReset bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [content_chunks.json]",
	Short: "Embed documentation chunks and upload them to the vector store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().DurationVar(&ingestPause, "pause", time.Second, "Delay between batches to stay under embedding rate limits")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "Delete every record in the vector store before uploading")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := "content_chunks.json"
	if len(args) == 1 {
		path = args[0]
	}
	chunks, err := ingest.LoadChunks(path)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("chunks", len(chunks)).Msg("loaded content chunks")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := vectorstore.Open(ctx, cfg.VectorStore)
	if err != nil {
		return err
	}
	defer closeStore()

	in := ingest.New(embedder, store, chunker.NewSentenceChunker(cfg.Chunker.MaxChars, cfg.Chunker.OverlapSentences), ingest.Options{
		BatchSize:    cfg.Embedder.BatchSize,
		Pause:        ingestPause,
		Reset:        ingestReset,
		DefaultTitle: cfg.Sources.DefaultTitle,
		DefaultURL:   cfg.Sources.DefaultURL,
	})
	stats, err := in.Run(ctx, chunks)
	if err != nil {
		return err
	}
	fmt.Printf("Upload complete: %d of %d records uploaded to %s (%d failed, %d empty chunks skipped)\n",
		stats.Uploaded, stats.Records, store.Name(), stats.Failed, stats.Skipped)
	return nil
}
