package retrieval

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/itish2003/sectionrag/metrics"
	"github.com/itish2003/sectionrag/models"
)

// DefaultSweepConcurrency bounds the number of in-flight section fetches.
const DefaultSweepConcurrency = 4

// SweepResult is the outcome of fetching one section. Exactly one of Chunks
// and Err is meaningful.
type SweepResult struct {
	Section string
	Chunks  []models.Chunk
	Err     error
}

// Sweeper fetches every chunk of a set of sections concurrently.
type Sweeper struct {
	store CorpusStore
	limit int
	log   *slog.Logger
}

func NewSweeper(store CorpusStore, limit int, log *slog.Logger) *Sweeper {
	if limit <= 0 {
		limit = DefaultSweepConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{store: store, limit: limit, log: log}
}

// Sweep fetches each section independently; one section failing never
// affects the others. Results are in the order of sections and each result
// holds every chunk id at most once, in store order.
func (s *Sweeper) Sweep(ctx context.Context, sections []string) []SweepResult {
	results := make([]SweepResult, len(sections))

	// Workers record failures in their own slot and always return nil, so
	// the group only bounds concurrency and never cancels siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, title := range sections {
		results[i].Section = title
		g.Go(func() error {
			chunks, err := s.store.FetchBySection(gctx, title)
			if err == nil && len(chunks) == 0 {
				err = ErrSectionNotFound
			}
			if err != nil {
				metrics.SweepFailures.Inc()
				s.log.Warn("section sweep failed", "section", title, "error", err)
				results[i].Err = &QueryError{Kind: KindSectionUnavailable, Section: title, Err: err}
				return nil
			}
			results[i].Chunks = dedupByID(chunks)
			s.log.Debug("section swept", "section", title, "chunks", len(chunks))
			return nil
		})
	}
	g.Wait()
	return results
}
