package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docassist/internal/domain"
)

// LogConfig controls the zap logger.
type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LLMConfig selects the text generation backend.
type LLMConfig struct {
	Type         string  `yaml:"type"`
	Model        string  `yaml:"model"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	OllamaHost   string  `yaml:"ollama_host"`
	Temperature  float32 `yaml:"temperature"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	MaxRetries   int     `yaml:"max_retries"`
	RequestsPerS float64 `yaml:"requests_per_second"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Model  string                `yaml:"model"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string   `yaml:"type"`
	ChunkSize         int      `yaml:"chunk_size"`
	ChunkOverlap      int      `yaml:"chunk_overlap"`
	Separators        []string `yaml:"separators,omitempty"`
	SentencesPerChunk int      `yaml:"sentences_per_chunk"`
	OverlapSentences  int      `yaml:"overlap_sentences"`
}

// CleanerConfig toggles LLM-assisted text cleaning.
type CleanerConfig struct {
	SkipLLM      bool `yaml:"skip_llm"`
	MaxPieceSize int  `yaml:"max_piece_size"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type      string          `yaml:"type"`
	Dimension int             `yaml:"dimension"`
	BatchSize int             `yaml:"batch_size"`
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty"`
	Qdrant    *QdrantConfig   `yaml:"qdrant,omitempty"`
}

// PineconeConfig describes the serverless index used for documents.
type PineconeConfig struct {
	APIKeyEnv    string `yaml:"api_key_env"`
	Index        string `yaml:"index"`
	Namespace    string `yaml:"namespace"`
	Cloud        string `yaml:"cloud"`
	Region       string `yaml:"region"`
	Metric       string `yaml:"metric"`
	ReadyTimeout int    `yaml:"ready_timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// RetrievalConfig controls the question answering path.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// BookingConfig holds the slot-filling rules.
type BookingConfig struct {
	AppointmentFields []string `yaml:"appointment_fields"`
	CallbackFields    []string `yaml:"callback_fields"`
	MaxAttempts       int      `yaml:"max_attempts"`
	OpenAt            string   `yaml:"open_at"`
	CloseAt           string   `yaml:"close_at"`
	Timezone          string   `yaml:"timezone"`
	MinPhoneDigits    int      `yaml:"min_phone_digits"`
	MaxPhoneDigits    int      `yaml:"max_phone_digits"`
}

// IntentConfig selects the booking intent classifier.
type IntentConfig struct {
	Type string `yaml:"type"`
}

// SessionsConfig selects where per-user conversation state lives.
type SessionsConfig struct {
	Type     string `yaml:"type"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLMins  int    `yaml:"ttl_minutes"`
}

// RecorderConfig configures where confirmed bookings are persisted.
type RecorderConfig struct {
	PostgresDSN  string   `yaml:"postgres_dsn"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// HTTPConfig configures the JSON chat API.
type HTTPConfig struct {
	Address       string `yaml:"address"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
}

// ChatConfig bounds the history kept per conversation.
type ChatConfig struct {
	HistoryMessages int `yaml:"history_messages"`
	HistoryTokens   int `yaml:"history_tokens"`
}

// LibraryConfig names the directories for uploaded and cleaned files.
type LibraryConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
}

// SummarizerConfig configures the ingest summary.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log         LogConfig         `yaml:"log"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Cleaner     CleanerConfig     `yaml:"cleaner"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Booking     BookingConfig     `yaml:"booking"`
	Intent      IntentConfig      `yaml:"intent"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Recorder    RecorderConfig    `yaml:"recorder"`
	Chat        ChatConfig        `yaml:"chat"`
	HTTP        HTTPConfig        `yaml:"http"`
	Library     LibraryConfig     `yaml:"library"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// Secrets are the API keys read from the environment once at startup.
type Secrets struct {
	LLMKey      string
	PineconeKey string
	QdrantKey   string
	OpenAIKey   string
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
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docassist/config.yaml.
// If neither exists, it writes defaults to ~/.config/docassist/config.yaml and returns them.
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

// LoadSecrets reads the keys required by the selected backends.
// A missing required key is an ErrConfiguration.
func LoadSecrets(cfg *AppConfig, getenv func(string) string) (Secrets, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var s Secrets
	var missing []string
	if cfg.LLM.Type == "gemini" || cfg.Embedder.Type == "gemini" {
		s.LLMKey = getenv(cfg.LLM.APIKeyEnv)
		if s.LLMKey == "" {
			missing = append(missing, cfg.LLM.APIKeyEnv)
		}
	}
	switch cfg.VectorStore.Type {
	case "pinecone":
		s.PineconeKey = getenv(cfg.VectorStore.Pinecone.APIKeyEnv)
		if s.PineconeKey == "" {
			missing = append(missing, cfg.VectorStore.Pinecone.APIKeyEnv)
		}
	case "qdrant":
		if env := cfg.VectorStore.Qdrant.APIKeyEnv; env != "" {
			s.QdrantKey = getenv(env)
		}
	}
	if cfg.Embedder.Type == "openai" {
		s.OpenAIKey = getenv(cfg.Embedder.OpenAI.APIKeyEnv)
		if s.OpenAIKey == "" {
			missing = append(missing, cfg.Embedder.OpenAI.APIKeyEnv)
		}
	}
	if len(missing) > 0 {
		return s, fmt.Errorf("%w: missing environment variables %v", domain.ErrConfiguration, missing)
	}
	return s, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docassist", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{LLM: LLMConfig{Temperature: 0.2}}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Log.Env == "" {
		cfg.Log.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "docassist.log"
	}
	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "gemini"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "gemini"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pinecone"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Type {
		case "ollama":
			cfg.LLM.Model = "llama3.2"
		default:
			cfg.LLM.Model = "gemini-1.5-flash"
		}
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.LLM.RequestsPerS == 0 {
		cfg.LLM.RequestsPerS = 2
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Type {
		case "ollama":
			cfg.Embedder.Model = "nomic-embed-text"
		case "gemini":
			cfg.Embedder.Model = "text-embedding-004"
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 100
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Cleaner.MaxPieceSize == 0 {
		cfg.Cleaner.MaxPieceSize = 30000
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = 768
	}
	if cfg.VectorStore.BatchSize == 0 {
		cfg.VectorStore.BatchSize = 50
	}
	if cfg.VectorStore.Type == "pinecone" {
		if cfg.VectorStore.Pinecone == nil {
			cfg.VectorStore.Pinecone = &PineconeConfig{}
		}
		p := cfg.VectorStore.Pinecone
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "PINECONE_API_KEY"
		}
		if p.Index == "" {
			p.Index = "my-embeddings-index"
		}
		if p.Cloud == "" {
			p.Cloud = "aws"
		}
		if p.Region == "" {
			p.Region = "us-east-1"
		}
		if p.Metric == "" {
			p.Metric = "cosine"
		}
		if p.ReadyTimeout == 0 {
			p.ReadyTimeout = 120
		}
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6334"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "documents"
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if len(cfg.Booking.AppointmentFields) == 0 {
		cfg.Booking.AppointmentFields = []string{"name", "date", "time", "email", "phone"}
	}
	if len(cfg.Booking.CallbackFields) == 0 {
		cfg.Booking.CallbackFields = []string{"name", "phone", "email"}
	}
	if cfg.Booking.MaxAttempts == 0 {
		cfg.Booking.MaxAttempts = 3
	}
	if cfg.Booking.OpenAt == "" {
		cfg.Booking.OpenAt = "09:00"
	}
	if cfg.Booking.CloseAt == "" {
		cfg.Booking.CloseAt = "17:00"
	}
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Local"
	}
	if cfg.Booking.MinPhoneDigits == 0 {
		cfg.Booking.MinPhoneDigits = 7
	}
	if cfg.Booking.MaxPhoneDigits == 0 {
		cfg.Booking.MaxPhoneDigits = 15
	}
	if cfg.Intent.Type == "" {
		cfg.Intent.Type = "keyword"
	}
	if cfg.Sessions.Type == "" {
		cfg.Sessions.Type = "memory"
	}
	if cfg.Sessions.Type == "redis" && cfg.Sessions.Addr == "" {
		cfg.Sessions.Addr = "localhost:6379"
	}
	if cfg.Sessions.TTLMins == 0 {
		cfg.Sessions.TTLMins = 24 * 60
	}
	if len(cfg.Recorder.KafkaBrokers) > 0 && cfg.Recorder.KafkaTopic == "" {
		cfg.Recorder.KafkaTopic = "bookings"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.RatePerMinute == 0 {
		cfg.HTTP.RatePerMinute = 60
	}
	if cfg.HTTP.MaxUploadMB == 0 {
		cfg.HTTP.MaxUploadMB = 20
	}
	if cfg.Chat.HistoryMessages == 0 {
		cfg.Chat.HistoryMessages = 50
	}
	if cfg.Chat.HistoryTokens == 0 {
		cfg.Chat.HistoryTokens = 8000
	}
	if cfg.Library.RawDir == "" {
		cfg.Library.RawDir = filepath.Join("data", "raw")
	}
	if cfg.Library.ProcessedDir == "" {
		cfg.Library.ProcessedDir = filepath.Join("data", "processed")
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
}
