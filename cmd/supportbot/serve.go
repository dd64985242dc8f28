package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"supportbot/internal/config"
	"supportbot/internal/domain"
	embopenai "supportbot/internal/embedding/openai"
	genopenai "supportbot/internal/generation/openai"
	"supportbot/internal/server"
	"supportbot/internal/service"
	"supportbot/internal/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query endpoint",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	apiKey, err := config.APIKey(cfg.OpenAI.APIKeyEnv)
	if err != nil {
		return err
	}
	generator := genopenai.NewGenerator(genopenai.Config{
		BaseURL:      cfg.OpenAI.BaseURL,
		APIKey:       apiKey,
		Model:        cfg.Generator.Model,
		Temperature:  cfg.Generator.Temperature,
		MaxTokens:    cfg.Generator.MaxTokens,
		SystemPrompt: cfg.Generator.SystemPrompt,
		Timeout:      time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
	})

	store, closeStore, err := vectorstore.Open(ctx, cfg.VectorStore)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("closing vector store")
		}
	}()

	svc := service.NewRAGService(embedder, store, generator, service.SourceDefaults{
		Title: cfg.Sources.DefaultTitle,
		URL:   cfg.Sources.DefaultURL,
	})
	opts := server.Options{
		IndexName:      store.Name(),
		RequestTimeout: cfg.Server.RequestTimeout(),
	}
	if counter, ok := store.(domain.Counter); ok {
		opts.Counter = counter
	}
	srv := server.New(svc, opts)
	log.Info().Str("addr", cfg.Server.Addr).Str("vector_store", store.Name()).Msg("starting query server")
	return srv.Start(ctx, cfg.Server.Addr)
}

func newEmbedder(cfg *config.AppConfig) (*embopenai.Client, error) {
	apiKey, err := config.APIKey(cfg.OpenAI.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	return embopenai.NewClient(embopenai.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.Embedder.Model,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
	}), nil
}
