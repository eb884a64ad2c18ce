package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommender"
	"github.com/spigell/assessment-recommender/internal/scoring"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

const (
	PromptBack = "back"

	outputTable = "table"
	outputJSON  = "json"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend QUERY...",
	Short: "Recommend assessments for a job description or query",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recommend(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().IntP("top-k", "k", recommender.DefaultTopK, "number of assessments to recommend")
	recommendCmd.Flags().BoolP("explain", "e", false, "print the query signals and score breakdown of every candidate")
	recommendCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	recommendCmd.Flags().BoolP("interactive", "i", false, "browse the recommendations interactively")

	viper.BindPFlag("recommend.top-k", recommendCmd.Flags().Lookup("top-k"))
}

func recommend(cmd *cobra.Command, query string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if output != outputTable && output != outputJSON {
		logger.Fatal("unsupported output format", zap.String("output", output))
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

	if n, err := store.Count(ctx); err != nil {
		logger.Fatal("counting stored assessments", zap.Error(err))
	} else if n == 0 {
		logger.Warn("the store is empty, run the ingest command first", zap.String("path", config.Store.Path))
	}

	rec := recommender.New(embedder, store,
		recommender.WithLogger(logger),
		recommender.WithOversample(config.Recommend.Oversample),
	)

	topK := config.Recommend.TopK

	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		exp, err := rec.Explain(ctx, query, topK)
		if err != nil {
			logger.Fatal("explaining recommendations", zap.Error(err))
		}
		if err := printExplanation(os.Stdout, output, exp); err != nil {
			logger.Fatal("printing explanation", zap.Error(err))
		}
		return
	}

	results := rec.Recommend(ctx, query, topK)
	logger.Info("recommendations ready", zap.Int("count", len(results)))

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if err := browse(results); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	if err := printRecommendations(os.Stdout, output, results); err != nil {
		logger.Fatal("printing recommendations", zap.Error(err))
	}
}

type recommendResponse struct {
	RecommendedAssessments []recommender.Recommendation `json:"recommended_assessments"`
}

func printRecommendations(w io.Writer, output string, results []recommender.Recommendation) error {
	if output == outputJSON {
		return writeJSON(w, recommendResponse{RecommendedAssessments: results})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "NAME", "TYPE", "DURATION", "REMOTE", "ADAPTIVE", "URL")
	for i, r := range results {
		t.Row(
			strconv.Itoa(i+1),
			r.Name,
			catalog.JoinCategories(r.Categories),
			strconv.Itoa(r.DurationMinutes)+" min",
			r.RemoteSupport,
			r.AdaptiveSupport,
			r.URL,
		)
	}

	_, err := fmt.Fprintln(w, t)
	return err
}

type explainedCandidate struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Distance  float64           `json:"distance"`
	Score     float64           `json:"score"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

type explainResponse struct {
	Query           string                       `json:"query"`
	Skills          []string                     `json:"skills"`
	ExperienceLevel taxonomy.Level               `json:"experience_level"`
	TargetDuration  *int                         `json:"target_duration,omitempty"`
	CategoryWeights map[taxonomy.Category]int    `json:"category_weights"`
	Retrieved       int                          `json:"retrieved"`
	Candidates      []explainedCandidate         `json:"candidates"`
	Selected        []recommender.Recommendation `json:"selected"`
}

func printExplanation(w io.Writer, output string, exp *recommender.Explanation) error {
	resp := explainResponse{
		Query:           exp.Query,
		Skills:          exp.Signals.Skills,
		ExperienceLevel: exp.Signals.ExperienceLevel,
		TargetDuration:  exp.Signals.TargetDurationMinutes,
		CategoryWeights: exp.Signals.CategoryWeights,
		Retrieved:       exp.Retrieved,
		Candidates:      make([]explainedCandidate, 0, len(exp.Pool)),
		Selected:        exp.Selected,
	}
	for _, sc := range exp.Pool {
		resp.Candidates = append(resp.Candidates, explainedCandidate{
			Name:      sc.Hit.Assessment.Name,
			URL:       sc.Hit.Assessment.URL,
			Distance:  sc.Hit.Distance,
			Score:     sc.Score,
			Breakdown: sc.Breakdown,
		})
	}

	if output == outputJSON {
		return writeJSON(w, resp)
	}

	duration := "-"
	if resp.TargetDuration != nil {
		duration = strconv.Itoa(*resp.TargetDuration) + " min"
	}
	fmt.Fprintf(w, "skills: %s\nlevel: %s\nduration: %s\nweights: %v\nretrieved: %d\n\n",
		strings.Join(resp.Skills, ", "), resp.ExperienceLevel, duration, resp.CategoryWeights, resp.Retrieved)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "SCORE", "SEMANTIC", "SKILL", "EXPERIENCE", "DURATION", "CATEGORY", "LEXICAL")
	for _, c := range resp.Candidates {
		b := c.Breakdown
		t.Row(c.Name, num(c.Score), num(b.Semantic), num(b.Skill), num(b.Experience), num(b.Duration), num(b.Category), num(b.Lexical))
	}
	fmt.Fprintln(w, t)

	return printRecommendations(w, outputTable, resp.Selected)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func writeJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}

// browse lets the user pick a recommendation and shows its details until "back".
func browse(results []recommender.Recommendation) error {
	for {
		items := make([]string, 0, len(results)+1)
		for i, r := range results {
			items = append(items, fmt.Sprintf("%d %s / %s", i+1, r.Name, catalog.JoinCategories(r.Categories)))
		}

		selectPrompt := promptui.Select{
			Label: "Choose an assessment and press ENTER",
			Items: append(items, PromptBack),
			Size:  min(len(items)+1, 12),
		}

		idx, selected, err := selectPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		r := results[idx]
		fmt.Printf("\n%s\n%s\n\n%s\n\nType: %s | Duration: %d min | Remote: %s | Adaptive: %s\n\n",
			r.Name, r.URL, logger.TruncateForLog(r.Description, 400),
			catalog.JoinCategories(r.Categories), r.DurationMinutes, r.RemoteSupport, r.AdaptiveSupport)
	}
}
