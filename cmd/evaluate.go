package cmd

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/evaluation"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommender"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure Recall@K of the recommender against labelled queries",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("cases", "", "YAML file with labelled queries")
	evaluateCmd.Flags().Int("k", evaluation.DefaultK, "number of recommendations considered per query")
	evaluateCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	evaluateCmd.MarkFlagRequired("cases")
}

func evaluate(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path, _ := cmd.Flags().GetString("cases")
	k, _ := cmd.Flags().GetInt("k")
	output, _ := cmd.Flags().GetString("output")

	cases, err := evaluation.LoadCases(afero.NewOsFs(), path)
	if err != nil {
		logger.Fatal("loading evaluation cases", zap.Error(err))
	}

	embedder, err := newEmbedder(ctx, config.Embedder, logger)
	if err != nil {
		logger.Fatal("building the embedder", zap.Error(err))
	}

	store, err := openStore(config.Store, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer store.Close()

	rec := recommender.New(embedder, store,
		recommender.WithLogger(logger),
		recommender.WithOversample(config.Recommend.Oversample),
	)

	logger.Info("evaluating", zap.Int("cases", len(cases)), zap.Int("k", k))
	report := evaluation.Run(ctx, rec, cases, k)

	if output == outputJSON {
		if err := writeJSON(os.Stdout, report); err != nil {
			logger.Fatal("printing report", zap.Error(err))
		}
		return
	}

	if _, err := os.Stdout.WriteString(reportTable(report).String() + "\n"); err != nil {
		logger.Fatal("printing report", zap.Error(err))
	}
}

func reportTable(report evaluation.Report) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "QUERY", "RELEVANT", "FOUND", "RECALL@"+strconv.Itoa(report.K))
	for i, r := range report.Results {
		t.Row(strconv.Itoa(i+1), logger.TruncateForLog(r.Query, 60), strconv.Itoa(r.Relevant), strconv.Itoa(r.Found), num(r.Recall))
	}
	t.Row("", "mean", "", "", strconv.FormatFloat(report.MeanRecall, 'f', 4, 64))
	return t
}
