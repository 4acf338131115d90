// Package config loads and validates service configuration from a YAML file
// with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	LLM          LLMConfig          `yaml:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	VectorDB     VectorDBConfig     `yaml:"vectordb"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Caches       CachesConfig       `yaml:"caches"`
	Conversation ConversationConfig `yaml:"conversation"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LLMConfig struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Timeout     Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url,omitempty"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

type VectorDBConfig struct {
	Address     string `yaml:"address"`
	APIKey      string `yaml:"api_key,omitempty"`
	Collection  string `yaml:"collection"`
	VectorField string `yaml:"vector_field"`
}

// PipelineConfig bounds and toggles the query pipeline stages. The Enable
// toggles are pointers so an absent key defaults on while an explicit
// `false` still turns the stage off.
type PipelineConfig struct {
	RetrievalTopK     int     `yaml:"retrieval_top_k"`
	FinalTopK         int     `yaml:"final_top_k"`
	MMRLambda         float64 `yaml:"mmr_lambda"`
	EnableExpansion   *bool   `yaml:"enable_expansion"`
	MaxQueryVariants  int     `yaml:"max_query_variants"`
	EnableRerank      *bool   `yaml:"enable_rerank"`
	EnableCompression *bool   `yaml:"enable_compression"`
	CompressionMethod string  `yaml:"compression_method"`
}

type CachesConfig struct {
	Embedding CacheConfig `yaml:"embedding"`
	Results   CacheConfig `yaml:"results"`
}

type CacheConfig struct {
	Capacity int      `yaml:"capacity"`
	TTL      Duration `yaml:"ttl"`
}

type ConversationConfig struct {
	MaxExchanges int      `yaml:"max_exchanges"`
	TokenBudget  int      `yaml:"token_budget"`
	RenderLimit  int      `yaml:"render_limit"`
	IdleTTL      Duration `yaml:"idle_ttl"`
	RedisAddr    string   `yaml:"redis_addr,omitempty"`
	RedisDB      int      `yaml:"redis_db,omitempty"`
}

// Load reads the YAML file at path (if any), applies environment overrides
// and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FINSIGHT_OPENAI_API_KEY"); v != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("FINSIGHT_MILVUS_ADDRESS"); v != "" {
		c.VectorDB.Address = v
	}
	if v := os.Getenv("FINSIGHT_MILVUS_API_KEY"); v != "" {
		c.VectorDB.APIKey = v
	}
	if v := os.Getenv("FINSIGHT_REDIS_ADDR"); v != "" {
		c.Conversation.RedisAddr = v
	}
	if v := os.Getenv("FINSIGHT_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.Timeout.Duration <= 0 {
		c.LLM.Timeout = Duration{30 * time.Second}
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Timeout.Duration <= 0 {
		c.Embedding.Timeout = Duration{15 * time.Second}
	}
	if c.VectorDB.Collection == "" {
		c.VectorDB.Collection = "financial_documents"
	}
	if c.VectorDB.VectorField == "" {
		c.VectorDB.VectorField = "embedding"
	}
	if c.Pipeline.RetrievalTopK <= 0 {
		c.Pipeline.RetrievalTopK = 30
	}
	if c.Pipeline.FinalTopK <= 0 {
		c.Pipeline.FinalTopK = 10
	}
	if c.Pipeline.MMRLambda <= 0 || c.Pipeline.MMRLambda > 1 {
		c.Pipeline.MMRLambda = 0.5
	}
	if c.Pipeline.MaxQueryVariants <= 0 {
		c.Pipeline.MaxQueryVariants = 3
	}
	if c.Pipeline.EnableExpansion == nil {
		c.Pipeline.EnableExpansion = boolPtr(true)
	}
	if c.Pipeline.EnableRerank == nil {
		c.Pipeline.EnableRerank = boolPtr(true)
	}
	if c.Pipeline.EnableCompression == nil {
		c.Pipeline.EnableCompression = boolPtr(true)
	}
	if c.Pipeline.CompressionMethod == "" {
		c.Pipeline.CompressionMethod = "selective"
	}
	if c.Caches.Embedding.Capacity <= 0 {
		c.Caches.Embedding.Capacity = 1000
	}
	if c.Caches.Embedding.TTL.Duration <= 0 {
		c.Caches.Embedding.TTL = Duration{24 * time.Hour}
	}
	if c.Caches.Results.Capacity <= 0 {
		c.Caches.Results.Capacity = 100
	}
	if c.Caches.Results.TTL.Duration <= 0 {
		c.Caches.Results.TTL = Duration{time.Hour}
	}
	if c.Conversation.MaxExchanges <= 0 {
		c.Conversation.MaxExchanges = 10
	}
	if c.Conversation.TokenBudget <= 0 {
		c.Conversation.TokenBudget = 4000
	}
	if c.Conversation.RenderLimit <= 0 {
		c.Conversation.RenderLimit = 300
	}
	if c.Conversation.IdleTTL.Duration <= 0 {
		c.Conversation.IdleTTL = Duration{time.Hour}
	}
}

func boolPtr(b bool) *bool { return &b }

// Validate rejects configurations that cannot serve requests.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (or FINSIGHT_OPENAI_API_KEY)")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required (or FINSIGHT_OPENAI_API_KEY)")
	}
	if c.VectorDB.Address == "" {
		return fmt.Errorf("vectordb.address is required (or FINSIGHT_MILVUS_ADDRESS)")
	}
	if c.Pipeline.FinalTopK > c.Pipeline.RetrievalTopK {
		return fmt.Errorf("pipeline.final_top_k (%d) exceeds retrieval_top_k (%d)",
			c.Pipeline.FinalTopK, c.Pipeline.RetrievalTopK)
	}
	return nil
}
