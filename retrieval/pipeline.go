package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itish2003/sectionrag/metrics"
	"github.com/itish2003/sectionrag/models"
)

// DefaultNResults is the top-K size used when a request does not set one.
const DefaultNResults = 12

// Deps are the collaborators a Pipeline talks to.
type Deps struct {
	Embedder  Embedder
	Searcher  VectorSearcher
	Store     CorpusStore
	Generator Generator
	Logger    *slog.Logger
}

// Options tune retrieval.
type Options struct {
	NResults         int
	MaxNResults      int
	SweepConcurrency int
	Dominance        DominanceConfig
}

// Pipeline answers queries. It holds no per-query state and is safe for
// concurrent use once Initialize has succeeded.
type Pipeline struct {
	deps    Deps
	opts    Options
	sweeper *Sweeper
	log     *slog.Logger
}

// Retrieval is the grounding gathered for one query before generation.
type Retrieval struct {
	QueryID  string
	Query    string
	Mode     Mode
	TopK     []models.Chunk
	Dominant []string
	Sweeps   []SweepResult
	Sections []models.AssembledSection
	Warnings []models.Warning
}

func NewPipeline(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Embedder == nil:
		return nil, errors.New("pipeline: embedder is required")
	case deps.Searcher == nil:
		return nil, errors.New("pipeline: vector searcher is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: corpus store is required")
	case deps.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.NResults <= 0 {
		opts.NResults = DefaultNResults
	}
	opts.Dominance = opts.Dominance.Normalize()
	if err := opts.Dominance.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Pipeline{
		deps:    deps,
		opts:    opts,
		sweeper: NewSweeper(deps.Store, opts.SweepConcurrency, deps.Logger),
		log:     deps.Logger,
	}, nil
}

// Initialize checks every collaborator that can be pinged and fails fast on
// the first unreachable one.
func (p *Pipeline) Initialize(ctx context.Context) error {
	return p.ping(ctx, true)
}

// Ping checks the collaborators that can be pinged except the generator, so
// liveness checks make no generation API calls.
func (p *Pipeline) Ping(ctx context.Context) error {
	return p.ping(ctx, false)
}

func (p *Pipeline) ping(ctx context.Context, withGenerator bool) error {
	checks := []struct {
		name string
		dep  any
	}{
		{"embedder", p.deps.Embedder},
		{"vector searcher", p.deps.Searcher},
		{"corpus store", p.deps.Store},
	}
	if withGenerator {
		checks = append(checks, struct {
			name string
			dep  any
		}{"generator", p.deps.Generator})
	}
	for _, c := range checks {
		pinger, ok := c.dep.(Pinger)
		if !ok {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			return &QueryError{Kind: KindUnreachable, Err: fmt.Errorf("%s: %w", c.name, err)}
		}
		p.log.Debug("collaborator reachable", "name", c.name)
	}
	return nil
}

// resolveN maps 0 to the configured default and caps n at MaxNResults.
func (p *Pipeline) resolveN(n int) int {
	if n == 0 {
		n = p.opts.NResults
	}
	if p.opts.MaxNResults > 0 && n > p.opts.MaxNResults {
		n = p.opts.MaxNResults
	}
	return n
}

// Retrieve runs search, dominance detection and, in comprehensive mode, the
// section sweeps. A sweep failure becomes a warning; a search failure fails
// the whole call.
func (p *Pipeline) Retrieve(ctx context.Context, query string, mode Mode, n int) (*Retrieval, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &QueryError{Kind: KindInvalidRequest, Err: errors.New("query is empty")}
	}
	if n < 0 {
		return nil, &QueryError{Kind: KindInvalidRequest, Query: query, Err: fmt.Errorf("n_results %d is negative", n)}
	}
	if mode != ModeDefault && mode != ModeComprehensive {
		return nil, &QueryError{Kind: KindInvalidRequest, Query: query, Err: fmt.Errorf("%w: %q", ErrInvalidMode, mode)}
	}
	n = p.resolveN(n)

	r := &Retrieval{QueryID: uuid.NewString(), Query: query, Mode: mode}
	log := p.log.With("query_id", r.QueryID, "mode", mode.String())

	emb, err := p.deps.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, &QueryError{Kind: KindRetrievalUnavailable, Query: query, Err: fmt.Errorf("embed: %w", err)}
	}
	topK, err := p.deps.Searcher.Search(ctx, emb, n)
	if err != nil {
		return nil, &QueryError{Kind: KindRetrievalUnavailable, Query: query, Err: fmt.Errorf("search: %w", err)}
	}
	r.TopK = topK
	r.Dominant = DominantSections(MetasOf(topK), p.opts.Dominance)
	metrics.DominantSections.Observe(float64(len(r.Dominant)))
	log.Info("top-k retrieved", "results", len(topK), "dominant", r.Dominant)

	if mode != ModeComprehensive || len(r.Dominant) == 0 {
		return r, nil
	}

	r.Sweeps = p.sweeper.Sweep(ctx, r.Dominant)
	for _, sw := range r.Sweeps {
		if sw.Err != nil {
			r.Warnings = append(r.Warnings, models.Warning{Section: sw.Section, Message: sw.Err.Error()})
			continue
		}
		chunks := append([]models.Chunk{}, sw.Chunks...)
		for _, c := range topK {
			if t, ok := c.Meta.Section(); ok && t == sw.Section {
				chunks = append(chunks, c)
			}
		}
		r.Sections = append(r.Sections, Assemble(sw.Section, chunks))
	}
	log.Info("sections assembled", "sections", len(r.Sections), "warnings", len(r.Warnings))
	return r, nil
}

// SweptChunks flattens the chunks of every successful sweep.
func (r *Retrieval) SweptChunks() []models.Chunk {
	var out []models.Chunk
	for _, sw := range r.Sweeps {
		if sw.Err == nil {
			out = append(out, sw.Chunks...)
		}
	}
	return out
}

// Query answers query in the named mode. When generation fails the response
// still carries the retrieved excerpts and is returned with the error.
func (p *Pipeline) Query(ctx context.Context, query, mode string, n int) (*models.QueryResponse, error) {
	started := time.Now()
	m, err := ParseMode(mode)
	if err != nil {
		metrics.ObserveQuery("invalid", "invalid_request", started)
		return nil, &QueryError{Kind: KindInvalidRequest, Query: query, Err: err}
	}

	r, err := p.Retrieve(ctx, query, m, n)
	if err != nil {
		metrics.ObserveQuery(m.String(), string(KindOf(err)), started)
		return nil, err
	}

	comp := Composition{
		QueryID:  r.QueryID,
		Query:    query,
		Mode:     m,
		TopK:     r.TopK,
		Dominant: r.Dominant,
		Sections: r.Sections,
		Swept:    r.SweptChunks(),
		Warnings: r.Warnings,
	}

	narrative, genErr := p.deps.Generator.Generate(ctx, query, GroundingBlocks(r.Sections, r.TopK))
	if genErr != nil {
		p.log.Error("generation failed", "query_id", r.QueryID, "error", genErr)
		resp := Compose(comp)
		metrics.ObserveQuery(m.String(), string(KindSynthesisFailed), started)
		return &resp, &QueryError{Kind: KindSynthesisFailed, Query: query, Err: genErr}
	}
	comp.Narrative = narrative
	resp := Compose(comp)
	metrics.ObserveQuery(m.String(), "ok", started)
	return &resp, nil
}

// Section fetches and assembles a single section by exact title.
func (p *Pipeline) Section(ctx context.Context, title string) (*models.SectionResponse, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &QueryError{Kind: KindInvalidRequest, Err: errors.New("section title is empty")}
	}
	res := p.sweeper.Sweep(ctx, []string{title})[0]
	if res.Err != nil {
		return nil, res.Err
	}
	sec := Assemble(title, res.Chunks)
	chunks := dedupByID(res.Chunks)
	sortByPage(chunks)
	return &models.SectionResponse{Section: sec, Chunks: chunks}, nil
}
