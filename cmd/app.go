package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"google.golang.org/genai"

	"github.com/itish2003/sectionrag/config"
	"github.com/itish2003/sectionrag/retrieval"
	"github.com/itish2003/sectionrag/services"
)

// app is the dependency graph shared by every command.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	chroma   chromago.Client
	store    *services.ChromaStore
	embedder *services.OllamaEmbedder
	corpus   retrieval.CorpusStore
	cache    *services.CachedCorpusStore
	redis    *services.RedisSectionCache
	titles   *services.SectionIndex
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.Chroma.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	collection, err := services.GetOrCreateCollection(ctx, chromaClient, cfg.Chroma.Collection)
	if err != nil {
		_ = chromaClient.Close()
		return nil, err
	}
	log.Info("collection ready", "collection", cfg.Chroma.Collection)

	a := &app{
		cfg:      cfg,
		log:      log,
		chroma:   chromaClient,
		store:    services.NewChromaStore(collection, log),
		embedder: services.NewOllamaEmbedder(&http.Client{Timeout: cfg.Ollama.Timeout}, cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.KeepAlive),
	}
	a.corpus = a.store
	a.titles = services.NewSectionIndex(a.store, log)

	if cfg.Cache.Enabled {
		a.redis, err = services.NewRedisSectionCache(cfg.Cache.RedisURL, cfg.Cache.Prefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cache = services.NewCachedCorpusStore(a.store, a.redis, cfg.Cache.TTL, log)
		a.corpus = a.cache
		log.Info("section cache enabled", "ttl", cfg.Cache.TTL)
	}
	return a, nil
}

// newPipeline builds the query pipeline, including the Gemini client.
func (a *app) newPipeline(ctx context.Context) (*retrieval.Pipeline, error) {
	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w. Make sure GEMINI_API_KEY is set", err)
	}

	rc := a.cfg.Retrieval
	return retrieval.NewPipeline(retrieval.Deps{
		Embedder:  a.embedder,
		Searcher:  a.store,
		Store:     a.corpus,
		Generator: services.NewGeminiGenerator(geminiClient, a.cfg.Gemini.Model, a.cfg.Gemini.Temperature, a.log),
		Logger:    a.log.With("component", "pipeline"),
	}, retrieval.Options{
		NResults:         rc.NResults,
		MaxNResults:      rc.MaxNResults,
		SweepConcurrency: rc.SweepConcurrency,
		Dominance:        rc.Dominance,
	})
}

// newIndexer builds the ingestion service and subscribes the caches to it.
func (a *app) newIndexer() *services.FileIndexingService {
	if err := services.SetPDFLicense(a.cfg.Ingest.PDFLicenseKey); err != nil {
		a.log.Warn("UniPDF unavailable, using fallback PDF reader", "error", err)
	}
	idx := services.NewFileIndexingService(a.store, a.embedder, a.cfg.Ingest.ChunkSize, a.cfg.Ingest.ChunkOverlap, a.log)
	idx.NotifyOnChange(a.titles)
	if a.cache != nil {
		idx.NotifyOnChange(a.cache)
	}
	return idx
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis client", "error", err)
		}
	}
	if err := a.chroma.Close(); err != nil {
		a.log.Warn("failed to close chroma client", "error", err)
	}
}
