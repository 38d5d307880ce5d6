package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docassist/internal/domain"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Type)
	assert.Equal(t, "pinecone", cfg.VectorStore.Type)
	assert.Equal(t, "my-embeddings-index", cfg.VectorStore.Pinecone.Index)
	assert.Equal(t, 768, cfg.VectorStore.Dimension)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 100, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, []string{"name", "date", "time", "email", "phone"}, cfg.Booking.AppointmentFields)
	assert.Equal(t, []string{"name", "phone", "email"}, cfg.Booking.CallbackFields)
	assert.Equal(t, 3, cfg.Booking.MaxAttempts)
}

func TestLoad_FileOverridesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
llm:
  type: ollama
vector_store:
  type: qdrant
booking:
  open_at: "08:00"
  appointment_fields: [name, date, time, purpose]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "documents", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "08:00", cfg.Booking.OpenAt)
	assert.Equal(t, "17:00", cfg.Booking.CloseAt)
	assert.Equal(t, []string{"name", "date", "time", "purpose"}, cfg.Booking.AppointmentFields)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.HTTP.Address = ":9090"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", loaded.HTTP.Address)
}

func TestLoadSecrets_MissingKeysIsConfigurationError(t *testing.T) {
	cfg := defaultConfig()
	_, err := LoadSecrets(cfg, func(string) string { return "" })
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
	assert.Contains(t, err.Error(), "PINECONE_API_KEY")
}

func TestLoadSecrets_AllPresent(t *testing.T) {
	cfg := defaultConfig()
	env := map[string]string{"GOOGLE_API_KEY": "g", "PINECONE_API_KEY": "p"}
	s, err := LoadSecrets(cfg, func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "g", s.LLMKey)
	assert.Equal(t, "p", s.PineconeKey)
}

func TestLoadSecrets_LocalBackendsNeedNoKeys(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.Type = "ollama"
	cfg.Embedder.Type = "tfidf"
	cfg.VectorStore.Type = "memory"
	_, err := LoadSecrets(cfg, func(string) string { return "" })
	assert.NoError(t, err)
}
