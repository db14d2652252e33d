package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel          = "gpt-4o"
	DefaultTemperature    = 0.7
	DefaultEmbeddingModel = "all-minilm"
	DefaultOllamaURL      = "http://localhost:11434"

	BackendChromem  = "chromem"
	BackendPostgres = "postgres"

	defaultKnowledgeBasePath = "./data/knowledge_base"
	defaultDBPath            = "./data/chroma_db"
	defaultCollectionName    = "classics"
	defaultChunkSize         = 500
	defaultChunkOverlap      = 100
	defaultTopK              = 2
	defaultServerAddr        = ":8501"
)

// ErrNoCredentials is returned when neither the OpenRouter nor the OpenAI key is set.
var ErrNoCredentials = errors.New("找不到 API Key: set OPENROUTER_API_KEY or OPENAI_API_KEY")

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type RAGConfig struct {
	KnowledgeBasePath string `yaml:"knowledge_base_path"`
	DBPath            string `yaml:"db_path"`
	CollectionName    string `yaml:"collection_name"`
	Backend           string `yaml:"backend"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	TopK              int    `yaml:"top_k"`
	EncryptionKey     string `yaml:"encryption_key"`
	Compress          bool   `yaml:"compress"`
	FewShotDir        string `yaml:"few_shot_dir"`
}

type DatabaseConfig struct {
	URL    string `yaml:"url"`
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// environment holds the process environment read once at startup
type environment struct {
	OpenRouterKey    string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterBase   string `envconfig:"OPENROUTER_BASE_URL"`
	OpenRouterModel  string `envconfig:"OPENROUTER_MODEL"`
	OpenAIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingBaseURL string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL"`
	DatabaseURL      string `envconfig:"EXAM_RAG_DATABASE_URL"`
}

// LoadConfig reads the yaml file at path (optional), applies the environment
// and fills defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.apply(env)
	cfg.setDefaults()
	return &cfg, nil
}

// apply resolves credentials: OpenRouter key/base/model first, then the
// OpenAI key with the base URL override cleared.
func (c *Config) apply(env environment) {
	switch {
	case env.OpenRouterKey != "":
		c.LLM.Key = env.OpenRouterKey
		if env.OpenRouterBase != "" {
			c.LLM.BaseURL = env.OpenRouterBase
		}
	case c.LLM.Key == "" && env.OpenAIKey != "":
		c.LLM.Key = env.OpenAIKey
		c.LLM.BaseURL = ""
	}
	if env.OpenRouterModel != "" {
		c.LLM.Model = env.OpenRouterModel
	}

	if env.EmbeddingBaseURL != "" {
		c.EmbedLLM.BaseURL = env.EmbeddingBaseURL
	}
	if env.EmbeddingModel != "" {
		c.EmbedLLM.Model = env.EmbeddingModel
	}
	if env.DatabaseURL != "" {
		c.Database.URL = env.DatabaseURL
	}
	// the openai embedder reuses the chat key when it has none of its own
	if c.EmbedLLM.Provider == "openai" && c.EmbedLLM.Key == "" {
		if env.OpenAIKey != "" {
			c.EmbedLLM.Key = env.OpenAIKey
		} else {
			c.EmbedLLM.Key = c.LLM.Key
		}
	}
}

func (c *Config) setDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = DefaultTemperature
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = DefaultEmbeddingModel
	}
	if c.EmbedLLM.Provider == "ollama" && c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = DefaultOllamaURL
	}
	if c.RAG.KnowledgeBasePath == "" {
		c.RAG.KnowledgeBasePath = defaultKnowledgeBasePath
	}
	if c.RAG.DBPath == "" {
		c.RAG.DBPath = defaultDBPath
	}
	if c.RAG.CollectionName == "" {
		c.RAG.CollectionName = defaultCollectionName
	}
	if c.RAG.Backend == "" {
		c.RAG.Backend = BackendChromem
	}
	if c.RAG.ChunkSize == 0 || c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkSize = defaultChunkSize
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
}

// Validate reports ErrNoCredentials when no key could be resolved.
func (c LLMConfig) Validate() error {
	if c.Key == "" {
		return ErrNoCredentials
	}
	return nil
}
