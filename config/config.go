package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the textclf tool.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Classifier ClassifierConfig `yaml:"classifier"`
	ZeroShot   ZeroShotConfig   `yaml:"zeroshot"`
	FineTune   FineTuneConfig   `yaml:"finetune"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// TextField is one source column contributing to the combined text.
type TextField struct {
	Column string `yaml:"column"`
	Prefix string `yaml:"prefix"`
}

// DatasetConfig describes the input table and how rows are filtered.
type DatasetConfig struct {
	Input       string            `yaml:"input"`  // path, glob, or s3://bucket/key
	Output      string            `yaml:"output"` // embedded table, same URI forms
	IDColumn    string            `yaml:"id_column"`
	LabelColumn string            `yaml:"label_column"`
	TimeColumn  string            `yaml:"time_column"` // empty = keep file order
	TextFields  []TextField       `yaml:"text_fields"`
	Separator   string            `yaml:"separator"`
	TopN        int               `yaml:"top_n"` // 0 = keep everything
	LabelMap    map[string]string `yaml:"label_map,omitempty"`
	Corrections string            `yaml:"corrections,omitempty"` // CSV of id,label overrides
	// Exclude drops glob matches, relative to the pattern's base directory,
	// e.g. "**/*_with_embeddings.csv*" when input and output share a folder.
	Exclude []string `yaml:"exclude,omitempty"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"` // "openai", "jina", "ollama", "bedrock", "mock"
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	BaseURL           string `yaml:"base_url,omitempty"`
	Region            string `yaml:"region,omitempty"` // bedrock only
	Dimension         int    `yaml:"dimension"`
	BatchSize         int    `yaml:"batch_size"`
	MaxTokens         int    `yaml:"max_tokens"`
	Encoding          string `yaml:"encoding"` // "cl100k_base", "approx", ...
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
}

// CacheConfig configures the on-disk embedding cache.
type CacheConfig struct {
	Path          string `yaml:"path,omitempty"` // default <dir>/.textclf/embeddings.db
	MemoryEntries int    `yaml:"memory_entries"`
}

// ClassifierConfig configures the random forest and the evaluation split.
type ClassifierConfig struct {
	Trees           int     `yaml:"trees"`
	MaxDepth        int     `yaml:"max_depth"` // 0 = unlimited
	MinSamplesSplit int     `yaml:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf"`
	MaxFeatures     string  `yaml:"max_features"` // "sqrt", "log2", "all" or an integer
	TestSize        float64 `yaml:"test_size"`
	Seed            int64   `yaml:"seed"`
	Workers         int     `yaml:"workers"`
	Predictions     string  `yaml:"predictions,omitempty"` // optional CSV of test predictions
}

// ZeroShotConfig maps each label to the description that gets embedded.
type ZeroShotConfig struct {
	Labels map[string]string `yaml:"labels"`
}

// FineTuneConfig configures the hosted fine-tuning workflow.
type FineTuneConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	Model         string  `yaml:"model"`
	Suffix        string  `yaml:"suffix,omitempty"`
	Epochs        int     `yaml:"epochs"`
	Separator     string  `yaml:"separator"`
	ValidFraction float64 `yaml:"valid_fraction"`
	TrainFile     string  `yaml:"train_file"`
	ValidFile     string  `yaml:"valid_file"`
	TimeoutSecs   int     `yaml:"timeout_secs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Input:       "data/reviews.csv",
			Output:      "data/reviews_with_embeddings.csv",
			IDColumn:    "Id",
			LabelColumn: "Score",
			TimeColumn:  "Time",
			TextFields: []TextField{
				{Column: "Summary", Prefix: "Title: "},
				{Column: "Text", Prefix: "Content: "},
			},
			Separator: "; ",
			TopN:      1000,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   1536,
			BatchSize:   100,
			MaxTokens:   8000,
			Encoding:    "cl100k_base",
			TimeoutSecs: 60,
		},
		Cache: CacheConfig{
			MemoryEntries: 4096,
		},
		Classifier: ClassifierConfig{
			Trees:           100,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			MaxFeatures:     "sqrt",
			TestSize:        0.2,
			Seed:            42,
		},
		ZeroShot: ZeroShotConfig{
			Labels: map[string]string{
				"negative": "An Amazon review with a negative sentiment.",
				"positive": "An Amazon review with a positive sentiment.",
			},
		},
		FineTune: FineTuneConfig{
			BaseURL:       "https://api.openai.com/v1",
			APIKeyEnv:     "OPENAI_API_KEY",
			Model:         "babbage-002",
			Epochs:        4,
			Separator:     "\n\n###\n\n",
			ValidFraction: 0.2,
			TrainFile:     "data/finetune_train.jsonl",
			ValidFile:     "data/finetune_valid.jsonl",
			TimeoutSecs:   120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	// yaml.v3 merges into non-nil maps; label sets replace the defaults instead.
	defaultLabels := cfg.ZeroShot.Labels
	cfg.ZeroShot.Labels = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.ZeroShot.Labels == nil {
		cfg.ZeroShot.Labels = defaultLabels
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for textclf.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "textclf.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".textclf", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "jina", "ollama", "bedrock", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider: %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if len(c.Dataset.TextFields) == 0 {
		return fmt.Errorf("dataset.text_fields must name at least one column")
	}
	for _, pattern := range c.Dataset.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("dataset.exclude: bad pattern %q", pattern)
		}
	}
	if c.Classifier.TestSize <= 0 || c.Classifier.TestSize >= 1 {
		return fmt.Errorf("classifier.test_size must be in (0, 1), got %v", c.Classifier.TestSize)
	}
	if c.Classifier.Trees <= 0 {
		return fmt.Errorf("classifier.trees must be positive, got %d", c.Classifier.Trees)
	}
	if c.FineTune.ValidFraction < 0 || c.FineTune.ValidFraction >= 1 {
		return fmt.Errorf("finetune.valid_fraction must be in [0, 1), got %v", c.FineTune.ValidFraction)
	}
	return nil
}

// CacheDBPath returns the path to the embedding cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, ".textclf", "embeddings.db")
}

// EnsureWorkDir ensures the .textclf directory exists.
func EnsureWorkDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".textclf"), 0755)
}

// ResolveCachePath returns the configured cache path, or the default under dir.
func (c *Config) ResolveCachePath(dir string) string {
	if c.Cache.Path == "" {
		return CacheDBPath(dir)
	}
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(dir, c.Cache.Path)
}
