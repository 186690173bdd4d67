package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/sectionrag/models"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mapCache) Purge(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string][]byte{}
	return nil
}

func (m *mapCache) Ping(context.Context) error { return nil }

type countingStore struct {
	calls  int
	chunks map[string][]models.Chunk
	err    error
}

func (s *countingStore) FetchBySection(_ context.Context, title string) ([]models.Chunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks[title], nil
}

func TestCachedCorpusStore_HitAfterMiss(t *testing.T) {
	inner := &countingStore{chunks: map[string][]models.Chunk{
		"S": {{ID: "1", Text: "one", Meta: models.NewMeta("S", 3)}},
	}}
	store := NewCachedCorpusStore(inner, newMapCache(), time.Minute, nil)

	first, err := store.FetchBySection(context.Background(), "S")
	require.NoError(t, err)
	second, err := store.FetchBySection(context.Background(), "S")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	page, ok := second[0].Meta.Page()
	assert.True(t, ok)
	assert.Equal(t, 3, page)
}

func TestCachedCorpusStore_EmptyNotCached(t *testing.T) {
	inner := &countingStore{}
	store := NewCachedCorpusStore(inner, newMapCache(), time.Minute, nil)

	_, _ = store.FetchBySection(context.Background(), "missing")
	_, _ = store.FetchBySection(context.Background(), "missing")
	assert.Equal(t, 2, inner.calls)
}

func TestCachedCorpusStore_CacheErrorFallsThrough(t *testing.T) {
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	inner := &countingStore{chunks: map[string][]models.Chunk{"S": {{ID: "1"}}}}
	store := NewCachedCorpusStore(inner, cache, time.Minute, nil)

	got, err := store.FetchBySection(context.Background(), "S")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCachedCorpusStore_InnerErrorPropagates(t *testing.T) {
	inner := &countingStore{err: errors.New("chroma down")}
	store := NewCachedCorpusStore(inner, newMapCache(), time.Minute, nil)

	_, err := store.FetchBySection(context.Background(), "S")
	assert.ErrorContains(t, err, "chroma down")
}

func TestCachedCorpusStore_Invalidate(t *testing.T) {
	inner := &countingStore{chunks: map[string][]models.Chunk{"S": {{ID: "1"}}}}
	store := NewCachedCorpusStore(inner, newMapCache(), time.Minute, nil)

	_, _ = store.FetchBySection(context.Background(), "S")
	require.NoError(t, store.Invalidate(context.Background()))
	_, _ = store.FetchBySection(context.Background(), "S")
	assert.Equal(t, 2, inner.calls)
}
