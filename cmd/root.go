package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/assessment-recommender/internal/ingest"
	"github.com/spigell/assessment-recommender/internal/recommender"
)

const (
	app = "assessment-recommender"

	providerGemini = "gemini"
	providerHash   = "hash"
)

type Config struct {
	Catalog   string          `mapstructure:"catalog"`
	Store     StoreConfig     `mapstructure:"store"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Ingest    ingest.Config   `mapstructure:"ingest"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type EmbedderConfig struct {
	Provider       string       `mapstructure:"provider" validate:"oneof=gemini hash"`
	HashDimensions int          `mapstructure:"hash-dimensions" validate:"gte=0"`
	Gemini         GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions" validate:"gte=0"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type RecommendConfig struct {
	TopK       int `mapstructure:"top-k" validate:"gte=1,lte=50"`
	Oversample int `mapstructure:"oversample" validate:"gte=1"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "assessment-recommender suggests assessments from a catalog for a free-text job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("store.path", "RECOMMENDER_STORE_PATH"); err != nil {
		log.Fatalf("binding RECOMMENDER_STORE_PATH environment variable: %v", err)
	}
	if err := viper.BindEnv("embedder.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+app+".yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("catalog", "data/shl_data.json")
	viper.SetDefault("store.path", "data/assessments.db")
	viper.SetDefault("embedder.provider", providerGemini)
	viper.SetDefault("embedder.hash-dimensions", 0)
	viper.SetDefault("embedder.gemini.model", "")
	viper.SetDefault("embedder.gemini.dimensions", 0)
	viper.SetDefault("embedder.gemini.max-retries", 0)
	viper.SetDefault("recommend.top-k", recommender.DefaultTopK)
	viper.SetDefault("recommend.oversample", recommender.DefaultOversample)
	viper.SetDefault("ingest.batch-size", ingest.DefaultBatchSize)
	viper.SetDefault("ingest.concurrency", ingest.DefaultConcurrency)
	viper.SetDefault("ingest.requests-per-second", 0)
}

func initConfig() {
	// A .env file is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults are enough to run.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
