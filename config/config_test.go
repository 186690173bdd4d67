package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/sectionrag/retrieval"
)

func TestLoad_DefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chroma:\n  collection: textbook\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "textbook", cfg.Chroma.Collection)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, retrieval.DefaultNResults, cfg.Retrieval.NResults)
	assert.Equal(t, retrieval.RuleFraction, cfg.Retrieval.Dominance.Rule)
	assert.InDelta(t, 0.4, cfg.Retrieval.Dominance.MinFraction, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	t.Setenv("SECTIONRAG_RETRIEVAL_DOMINANCE_RULE", "plurality")
	t.Setenv("SECTIONRAG_RETRIEVAL_N_RESULTS", "20")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, retrieval.RulePlurality, cfg.Retrieval.Dominance.Rule)
	assert.Equal(t, 20, cfg.Retrieval.NResults)
	assert.Equal(t, "secret", cfg.Gemini.APIKey)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest:\n  chunk_size: 100\n  chunk_overlap: 200\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "ingest.chunk_overlap")
}

func TestCacheConfig_Validate(t *testing.T) {
	assert.NoError(t, CacheConfig{}.Validate())
	assert.Error(t, CacheConfig{Enabled: true, TTL: time.Minute}.Validate())
	assert.NoError(t, CacheConfig{Enabled: true, RedisURL: "redis://x:6379", TTL: time.Minute}.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "component", "sweep")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"sweep"`)
}
