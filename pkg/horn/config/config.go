package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/horn/pkg/horn/internalerr"
)

// Config is the on-disk configuration for the reasoning service.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Engine    EngineConfig    `yaml:"engine"`
	LLM       LLMConfig       `yaml:"llm"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
}

// CorpusConfig locates the statement corpus database.
type CorpusConfig struct {
	DBPath string `yaml:"db_path"`
}

// RetrievalConfig tunes candidate statement retrieval.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	MaxIterations      int     `yaml:"max_iterations"`
	ExpandNeighbors    int     `yaml:"expand_neighbors"`
}

// EngineConfig tunes the proof search.
type EngineConfig struct {
	MaxDepth int  `yaml:"max_depth"`
	Trace    bool `yaml:"trace"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// TokenizerConfig references the stoplist and lexicon files.
type TokenizerConfig struct {
	Stoplist string `yaml:"stoplist"`
	Lexicon  string `yaml:"lexicon"`
}

// Default returns the configuration used when fields are omitted.
func Default() Config {
	return Config{
		Corpus: CorpusConfig{DBPath: "horn.db"},
		Retrieval: RetrievalConfig{
			TopK:               15,
			RelevanceThreshold: 0.7,
			MaxIterations:      3,
			ExpandNeighbors:    3,
		},
		Engine: EngineConfig{MaxDepth: 50},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434/v1/chat/completions",
			Model:   "qwen2.5",
		},
	}
}

// Load reads a YAML config file, fills defaults, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. Errors wrap internalerr.ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", internalerr.ErrInvalidConfig)
	}
	if c.Retrieval.RelevanceThreshold < 0 || c.Retrieval.RelevanceThreshold > 1 {
		return fmt.Errorf("%w: retrieval.relevance_threshold must be between 0 and 1", internalerr.ErrInvalidConfig)
	}
	if c.Retrieval.MaxIterations <= 0 {
		return fmt.Errorf("%w: retrieval.max_iterations must be positive", internalerr.ErrInvalidConfig)
	}
	if c.Retrieval.ExpandNeighbors < 0 {
		return fmt.Errorf("%w: retrieval.expand_neighbors must not be negative", internalerr.ErrInvalidConfig)
	}
	if c.Engine.MaxDepth <= 0 {
		return fmt.Errorf("%w: engine.max_depth must be positive", internalerr.ErrInvalidConfig)
	}
	return nil
}
