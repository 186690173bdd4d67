package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
)

// TitleSource lists the section titles present in the corpus.
type TitleSource interface {
	SectionTitles(ctx context.Context) ([]string, error)
}

// TitleMatch is one hit of a section title search.
type TitleMatch struct {
	Title string  `json:"section_title"`
	Score float64 `json:"score"`
}

// SectionIndex is an in-memory full-text index over section titles, used to
// find the exact title a section lookup needs.
type SectionIndex struct {
	source TitleSource
	log    *slog.Logger

	mu    sync.RWMutex
	index bleve.Index
	size  int
}

func NewSectionIndex(source TitleSource, log *slog.Logger) *SectionIndex {
	if log == nil {
		log = slog.Default()
	}
	return &SectionIndex{source: source, log: log.With("component", "section_index")}
}

// Invalidate rebuilds the index from the title source.
func (s *SectionIndex) Invalidate(ctx context.Context) error {
	titles, err := s.source.SectionTitles(ctx)
	if err != nil {
		return fmt.Errorf("list section titles: %w", err)
	}
	return s.Rebuild(titles)
}

// Rebuild replaces the index contents with titles.
func (s *SectionIndex) Rebuild(titles []string) error {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return err
	}
	batch := idx.NewBatch()
	for _, t := range titles {
		if err := batch.Index(t, map[string]any{"title": t}); err != nil {
			idx.Close()
			return err
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = idx
	s.size = len(titles)
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.log.Info("section index rebuilt", "titles", len(titles))
	return nil
}

// Search returns up to limit titles matching text, best first. Matching is
// fuzzy so small misspellings still find the section.
func (s *SectionIndex) Search(text string, limit int) ([]TitleMatch, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []TitleMatch{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return []TitleMatch{}, nil
	}

	q := bleve.NewMatchQuery(text)
	q.SetField("title")
	q.SetFuzziness(1)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}
	out := make([]TitleMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, TitleMatch{Title: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// Len reports how many titles are indexed.
func (s *SectionIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
