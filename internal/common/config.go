package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Project    ProjectConfig    `toml:"project" validate:"required"`
	Datasource DatasourceConfig `toml:"datasource"`
	Storage    StorageConfig    `toml:"storage"`
	Ingest     IngestConfig     `toml:"ingest"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Claude     ClaudeConfig     `toml:"claude"`
	Gemini     GeminiConfig     `toml:"gemini"`
	Confluence ConfluenceConfig `toml:"confluence"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ProjectConfig identifies the vector store target for this workspace.
// Immutable once a session starts; changing it requires re-initializing the
// store connection.
type ProjectConfig struct {
	ID string `toml:"id" validate:"required"` // Table/collection key in the vector store
}

// DatasourceConfig locates the documents to ingest
type DatasourceConfig struct {
	Dir                string `toml:"dir"`                  // Directory scanned for document files
	FileURLList        string `toml:"file_url_list"`        // Newline-delimited remote file URLs (file name inside Dir)
	ConfluencePageList string `toml:"confluence_page_list"` // Newline-delimited Confluence page IDs (file name inside Dir)
	URLAuthHeader      string `toml:"url_auth_header"`      // Optional Authorization header for remote file URLs
}

type StorageConfig struct {
	Badger          BadgerConfig `toml:"badger"`
	VectorDimension int          `toml:"vector_dimension" validate:"gt=0"` // Width of stored vectors; must match the embedding dimension
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path string `toml:"path"` // Database directory path
}

// IngestConfig controls chunking and batching during ingestion
type IngestConfig struct {
	ChunkSize     int    `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap  int    `toml:"chunk_overlap" validate:"gte=0"`
	BatchSize     int    `toml:"batch_size" validate:"gt=0"` // Chunks per embedding call / store insert
	ExtractImages bool   `toml:"extract_images"`             // Route detected images through the image describer
	Schedule      string `toml:"schedule"`                   // Cron schedule for automatic sync runs (empty = disabled)
}

// RetrievalConfig controls the similarity search performed at query time
type RetrievalConfig struct {
	MinScore      float64 `toml:"min_score" validate:"gte=0,lt=1"` // Relevance cutoff; only results scoring above it are used
	TopK          int     `toml:"top_k" validate:"gt=0"`
	SystemMessage string  `toml:"system_message"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"` // Operation timeout as duration string
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini embedding API configuration
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	EmbedModel     string `toml:"embed_model"`
	EmbedDimension int    `toml:"embed_dimension" validate:"gt=0"` // Requested output dimensionality
	Timeout        string `toml:"timeout"`
	RateLimit      string `toml:"rate_limit"` // Minimum interval between embedding API calls
}

// ConfluenceConfig holds wiki credentials for the Confluence page loader.
// All three fields are required when a page list is present.
type ConfluenceConfig struct {
	BaseURL string `toml:"base_url"`
	User    string `toml:"user"`
	APIKey  string `toml:"api_key"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultSystemMessage is the assistant persona used when the config does not
// override it.
const DefaultSystemMessage = `You are Friday, a helpful and intelligent assistant designed to assist with user queries. Use the provided context to answer the user's queries accurately and comprehensively. If you don't know the answer, simply state that you don't know, without attempting to fabricate a response. Avoid using terms like "context" or "training data" in your replies. Instead, focus on providing clear and reliable information. Respond in a friendly, confident, and professional tone.`

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in friday.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Datasource: DatasourceConfig{
			Dir:                "./friday.datasource",
			FileURLList:        "friday.file-urls.txt",
			ConfluencePageList: "friday.confluence-pages.txt",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			VectorDimension: 3072,
		},
		Ingest: IngestConfig{
			ChunkSize:    1500,
			ChunkOverlap: 200,
			BatchSize:    500,
		},
		Retrieval: RetrievalConfig{
			MinScore:      0.4,
			TopK:          3,
			SystemMessage: DefaultSystemMessage,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.1,
		},
		Gemini: GeminiConfig{
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 3072,
			Timeout:        "2m",
			RateLimit:      "1s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if projectID := os.Getenv("FRIDAY_PROJECT_ID"); projectID != "" {
		config.Project.ID = projectID
	}
	if dir := os.Getenv("FRIDAY_DATASOURCE_DIR"); dir != "" {
		config.Datasource.Dir = dir
	}
	if badgerPath := os.Getenv("FRIDAY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if batchSize := os.Getenv("FRIDAY_INGEST_BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil {
			config.Ingest.BatchSize = bs
		}
	}
	if chunkSize := os.Getenv("FRIDAY_INGEST_CHUNK_SIZE"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			config.Ingest.ChunkSize = cs
		}
	}
	if chunkOverlap := os.Getenv("FRIDAY_INGEST_CHUNK_OVERLAP"); chunkOverlap != "" {
		if co, err := strconv.Atoi(chunkOverlap); err == nil {
			config.Ingest.ChunkOverlap = co
		}
	}

	// Claude configuration (standard env var first, FRIDAY_ prefix takes priority)
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("FRIDAY_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("FRIDAY_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Gemini configuration
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("FRIDAY_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("FRIDAY_GEMINI_EMBED_MODEL"); model != "" {
		config.Gemini.EmbedModel = model
	}
	if dim := os.Getenv("FRIDAY_GEMINI_EMBED_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.Gemini.EmbedDimension = d
		}
	}

	// Confluence configuration
	if baseURL := os.Getenv("FRIDAY_CONFLUENCE_BASE_URL"); baseURL != "" {
		config.Confluence.BaseURL = baseURL
	}
	if user := os.Getenv("FRIDAY_CONFLUENCE_USER"); user != "" {
		config.Confluence.User = user
	}
	if apiKey := os.Getenv("FRIDAY_CONFLUENCE_API_KEY"); apiKey != "" {
		config.Confluence.APIKey = apiKey
	}

	// Logging configuration
	if level := os.Getenv("FRIDAY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate checks the configuration before any I/O happens. All violations
// are reported as ConfigurationError.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return &ConfigurationError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q validation", fe.Tag()),
			}
		}
		return &ConfigurationError{Field: "config", Reason: err.Error()}
	}

	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return &ConfigurationError{
			Field:  "ingest.chunk_overlap",
			Reason: fmt.Sprintf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize),
		}
	}

	if c.Gemini.EmbedDimension != c.Storage.VectorDimension {
		return &ConfigurationError{
			Field:  "gemini.embed_dimension",
			Reason: fmt.Sprintf("embedding dimension (%d) must match storage vector_dimension (%d)", c.Gemini.EmbedDimension, c.Storage.VectorDimension),
		}
	}

	return nil
}

// HasConfluenceCredentials reports whether the wiki credential set is complete
func (c *Config) HasConfluenceCredentials() bool {
	return c.Confluence.BaseURL != "" && c.Confluence.User != "" && c.Confluence.APIKey != ""
}
