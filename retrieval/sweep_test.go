package retrieval

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/sectionrag/models"
)

// gatedStore blocks every fetch until its section's gate is closed.
type gatedStore struct {
	started  chan string
	finished chan string
	gates    map[string]chan struct{}
}

func newGatedStore(sections ...string) *gatedStore {
	s := &gatedStore{
		started:  make(chan string, len(sections)),
		finished: make(chan string, len(sections)),
		gates:    make(map[string]chan struct{}, len(sections)),
	}
	for _, title := range sections {
		s.gates[title] = make(chan struct{})
	}
	return s
}

func (s *gatedStore) FetchBySection(ctx context.Context, title string) ([]models.Chunk, error) {
	s.started <- title
	select {
	case <-s.gates[title]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.finished <- title }()
	return []models.Chunk{chunk(title+"-1", title, 1, title)}, nil
}

// countingStore records the highest number of concurrent fetches.
type countingStore struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *countingStore) FetchBySection(_ context.Context, title string) ([]models.Chunk, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return []models.Chunk{chunk(title+"-1", title, 1, title)}, nil
}

func TestSweep_ResultsFollowSectionOrder(t *testing.T) {
	sections := []string{"A", "B", "C"}
	store := newGatedStore(sections...)
	sweeper := NewSweeper(store, len(sections), nil)

	var results []SweepResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results = sweeper.Sweep(context.Background(), sections)
	}()

	for range sections {
		<-store.started
	}
	for i := len(sections) - 1; i >= 0; i-- {
		close(store.gates[sections[i]])
		assert.Equal(t, sections[i], <-store.finished)
	}
	wg.Wait()

	require.Len(t, results, len(sections))
	for i, title := range sections {
		assert.Equal(t, title, results[i].Section)
		require.NoError(t, results[i].Err)
		require.Len(t, results[i].Chunks, 1)
		assert.Equal(t, title+"-1", results[i].Chunks[0].ID)
	}
}

func TestSweep_RespectsConcurrencyLimit(t *testing.T) {
	store := &countingStore{}
	sections := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	results := NewSweeper(store, 2, nil).Sweep(context.Background(), sections)

	require.Len(t, results, len(sections))
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.LessOrEqual(t, store.maxSeen.Load(), int32(2))
	assert.Positive(t, store.maxSeen.Load())
}

func TestNewSweeper_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultSweepConcurrency, NewSweeper(&fakeStore{}, 0, nil).limit)
	assert.Equal(t, DefaultSweepConcurrency, NewSweeper(&fakeStore{}, -3, nil).limit)
	assert.Equal(t, 7, NewSweeper(&fakeStore{}, 7, nil).limit)
}

func TestSweep_DeduplicatesInStoreOrder(t *testing.T) {
	store := &fakeStore{sections: map[string][]models.Chunk{
		"S": {
			chunk("x1", "S", 1, "first"),
			chunk("x1", "S", 1, "first again"),
			chunk("x2", "S", 2, "second"),
		},
	}}

	results := NewSweeper(store, 2, nil).Sweep(context.Background(), []string{"S"})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Chunks, 2)
	assert.Equal(t, "x1", results[0].Chunks[0].ID)
	assert.Equal(t, "first", results[0].Chunks[0].Text)
	assert.Equal(t, "x2", results[0].Chunks[1].ID)
}

func TestSweep_FailureIsPerSection(t *testing.T) {
	store := &fakeStore{
		sections: map[string][]models.Chunk{"A": {chunk("a1", "A", 1, "a")}},
		failing:  map[string]error{"B": errBoom},
	}

	results := NewSweeper(store, 0, nil).Sweep(context.Background(), []string{"A", "B", "C"})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, errBoom)
	assert.ErrorIs(t, results[1].Err, ErrSectionUnavailable)
	assert.ErrorIs(t, results[2].Err, ErrSectionNotFound)
}
