package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChunkMeta(t *testing.T) {
	m, err := ParseChunkMeta([]byte(`{"section_title":"9.4 Acute Angle Closure Glaucoma","page_number":234,"chunk_num":"3","source_file":"book.pdf"}`))
	require.NoError(t, err)
	title, ok := m.Section()
	require.True(t, ok)
	assert.Equal(t, "9.4 Acute Angle Closure Glaucoma", title)
	page, _ := m.Page()
	assert.Equal(t, 234, page)
	assert.Equal(t, 3, *m.ChunkNum)
	assert.Equal(t, "book.pdf", m.SourceFile)

	m, err = ParseChunkMeta([]byte(`{"section_title":"X","page_number":"n/a"}`))
	require.NoError(t, err)
	_, ok = m.Section()
	assert.False(t, ok)

	_, err = ParseChunkMeta([]byte(`not json`))
	assert.Error(t, err)
}

func TestBatchChunks(t *testing.T) {
	chunks := make([]IndexedChunk, 2*AddBatchSize+10)
	for i := range chunks {
		chunks[i].ChunkNum = i
	}

	batches := batchChunks(chunks, AddBatchSize)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], AddBatchSize)
	assert.Len(t, batches[1], AddBatchSize)
	assert.Len(t, batches[2], 10)
	assert.Equal(t, AddBatchSize, batches[1][0].ChunkNum)
	assert.Equal(t, len(chunks)-1, batches[2][9].ChunkNum)

	assert.Empty(t, batchChunks(nil, AddBatchSize))
	assert.Len(t, batchChunks(chunks[:3], 0), 1)
}
