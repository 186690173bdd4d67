package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/sectionrag/models"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req models.OllamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text:v1.5", req.Model)
		assert.Equal(t, "glaucoma", req.Prompt)
		_ = json.NewEncoder(w).Encode(models.OllamaEmbedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.Client(), srv.URL+"/", "nomic-embed-text:v1.5", "")
	got, err := e.Embed(context.Background(), "glaucoma")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, got)
}

func TestOllamaEmbedder_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_ = json.NewEncoder(w).Encode(models.OllamaEmbedResponse{Error: "model not found"})
		}
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.Client(), srv.URL, "missing", "")
	_, err := e.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "model not found")
	assert.Error(t, e.Ping(context.Background()))
}
