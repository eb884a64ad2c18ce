package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/ai/gemini"
	"github.com/spigell/assessment-recommender/internal/secrets"
	"github.com/spigell/assessment-recommender/internal/vectorstore"
)

func newEmbedder(ctx context.Context, cfg EmbedderConfig, logger *zap.Logger) (ai.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case providerHash:
		return ai.NewHashEmbedder(cfg.HashDimensions), nil
	case providerGemini, "":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedder.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}

		return gemini.NewEmbedder(ctx, apiKey, gemini.Options{
			Model:      cfg.Gemini.Model,
			Dimensions: cfg.Gemini.Dimensions,
			MaxRetries: cfg.Gemini.MaxRetries,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}

func openStore(cfg StoreConfig, logger *zap.Logger) (*vectorstore.SQLiteStore, error) {
	store, err := vectorstore.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store %q: %w", cfg.Path, err)
	}
	logger.Debug("store opened", zap.String("path", cfg.Path))
	return store, nil
}
