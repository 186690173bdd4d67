package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itish2003/sectionrag/models"
)

func chunk(id, section string, page int, text string) models.Chunk {
	return models.Chunk{ID: id, Text: text, Meta: models.NewMeta(section, page)}
}

func metas(sections ...string) []models.ChunkMeta {
	out := make([]models.ChunkMeta, len(sections))
	for i, s := range sections {
		out[i] = models.NewMeta(s, i+1)
	}
	return out
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeSearcher struct {
	results []models.Chunk
	err     error
	lastN   int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, n int) ([]models.Chunk, error) {
	f.lastN = n
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.results) {
		return f.results[:n], nil
	}
	return f.results, nil
}

type fakeStore struct {
	mu       sync.Mutex
	sections map[string][]models.Chunk
	failing  map[string]error
	fetched  []string
}

func (f *fakeStore) FetchBySection(_ context.Context, title string) ([]models.Chunk, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, title)
	f.mu.Unlock()
	if err, ok := f.failing[title]; ok {
		return nil, err
	}
	return f.sections[title], nil
}

type pingingStore struct {
	fakeStore
	pingErr error
}

func (p *pingingStore) Ping(context.Context) error { return p.pingErr }

type fakeGenerator struct {
	err    error
	blocks []ContextBlock
}

func (f *fakeGenerator) Generate(_ context.Context, query string, blocks []ContextBlock) (string, error) {
	f.blocks = blocks
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("Answer to %q from %d blocks.", query, len(blocks)), nil
}

type pingingGenerator struct {
	fakeGenerator
	pingErr error
}

func (p *pingingGenerator) Ping(context.Context) error { return p.pingErr }

var errBoom = errors.New("boom")

// glaucomaCorpus models a query whose top 12 results all come from one
// section spanning pages 234-241, with pages 238-241 returned twice.
func glaucomaCorpus() (topK []models.Chunk, section []models.Chunk) {
	const title = "9.4 Acute Angle Closure Glaucoma"
	for p := 234; p <= 241; p++ {
		section = append(section, chunk(fmt.Sprintf("g-%d", p), title, p, fmt.Sprintf("Glaucoma text of page %d.", p)))
	}
	for p := 234; p <= 241; p++ {
		topK = append(topK, section[p-234])
	}
	for p := 238; p <= 241; p++ {
		dup := section[p-234]
		topK = append(topK, models.Chunk{ID: dup.ID + "-b", Text: dup.Text + " (continued)", Meta: dup.Meta})
	}
	section = append(section, topK[8:]...)
	return topK, section
}
