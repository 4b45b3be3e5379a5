package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the OpenAI-compatible embedding gateway.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimension   int    `yaml:"dimension"`
}

// ChunkerConfig configures how the regulation text is split into chunks.
type ChunkerConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// IndexerConfig configures batch embedding and its failure handling.
type IndexerConfig struct {
	BatchSize          int `yaml:"batch_size"`
	MaxAttempts        int `yaml:"max_attempts"`
	BackoffMillis      int `yaml:"backoff_ms"`
	InterBatchDelayMs  int `yaml:"inter_batch_delay_ms"`
	PerItemDelayMillis int `yaml:"per_item_delay_ms"`
}

// CorpusConfig locates the regulation text and its on-disk cache.
type CorpusConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
}

// IndexConfig locates the persisted vector index.
type IndexConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
}

// LLMConfig configures the chat completion client used for analysis.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// AnalyzerConfig bounds project summarization.
type AnalyzerConfig struct {
	MaxFiles int `yaml:"max_files"`
}

// RetrieverConfig configures semantic retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// FetcherConfig configures repository downloads.
type FetcherConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	LLM       LLMConfig       `yaml:"llm"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/aicodeguard/config.yaml.
// If neither exists, it writes defaults to ~/.config/aicodeguard/config.yaml
// and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aicodeguard", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Chunker.TargetSize == 0 {
		cfg.Chunker.TargetSize = 2000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Indexer.BatchSize == 0 {
		cfg.Indexer.BatchSize = 20
	}
	if cfg.Indexer.MaxAttempts == 0 {
		cfg.Indexer.MaxAttempts = 2
	}
	if cfg.Indexer.BackoffMillis == 0 {
		cfg.Indexer.BackoffMillis = 2000
	}
	if cfg.Indexer.InterBatchDelayMs == 0 {
		cfg.Indexer.InterBatchDelayMs = 500
	}
	if cfg.Indexer.PerItemDelayMillis == 0 {
		cfg.Indexer.PerItemDelayMillis = 200
	}
	if cfg.Corpus.URL == "" {
		cfg.Corpus.URL = "https://eur-lex.europa.eu/legal-content/EN/TXT/?uri=CELEX:32024R1689"
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = filepath.Join("data", "eu_ai_act.txt")
	}
	if cfg.Index.SnapshotPath == "" {
		cfg.Index.SnapshotPath = filepath.Join("data", "index.json")
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.Analyzer.MaxFiles == 0 {
		cfg.Analyzer.MaxFiles = 20
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 5
	}
	if cfg.Fetcher.BaseDir == "" {
		cfg.Fetcher.BaseDir = filepath.Join("data", "repos")
	}
}
