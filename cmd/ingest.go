package cmd

import (
	"context"
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ingest"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the scraped catalog, embed every assessment and write the store",
	Run: func(cmd *cobra.Command, _ []string) {
		runIngest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("catalog", "c", "", "scraped catalog JSON file (default from config)")
	ingestCmd.Flags().Bool("dry-run", false, "decode and enrich the catalog without embedding or storing it")

	viper.BindPFlag("catalog", ingestCmd.Flags().Lookup("catalog"))
}

func runIngest(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the ingestion", zap.String("version", version), zap.String("catalog", config.Catalog))

	set, err := ingest.Load(afero.NewOsFs(), config.Catalog)
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("records", set.Len()))

	stages := ingest.DefaultStages(config.Ingest)
	deps := ingest.Deps{Logger: logger, Tables: taxonomy.Default()}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		ingest.DisableByName(stages, "embed", "dry run requested")
		ingest.DisableByName(stages, "store", "dry run requested")
	} else {
		deps.Embedder, err = newEmbedder(ctx, config.Embedder, logger)
		if err != nil {
			logger.Fatal("building the embedder", zap.Error(err))
		}

		store, err := openStore(config.Store, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()
		deps.Store = store
	}

	for _, s := range ingest.Describe(stages) {
		logger.Debug("stage", zap.String("name", s.Name), zap.Bool("enabled", s.Enabled), zap.String("reason", s.Reason))
	}

	set, _, err = ingest.Run(ctx, deps, stages, set)
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	if deps.Store != nil {
		count, err := deps.Store.Count(ctx)
		if err != nil {
			logger.Fatal("counting stored assessments", zap.Error(err))
		}
		logger.Info("ingestion finished", zap.Int("ingested", set.Len()), zap.Int("stored", count))
		return
	}

	logger.Info("ingestion finished", zap.Int("ingested", set.Len()))
}
