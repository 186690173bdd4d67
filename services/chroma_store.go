package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/itish2003/sectionrag/models"
)

// Metadata keys written by ingestion and read back by retrieval.
const (
	MetaSectionTitle = "section_title"
	MetaPageNumber   = "page_number"
	MetaSourceFile   = "source_file"
	MetaFileHash     = "file_hash"
	MetaChunkNum     = "chunk_num"
)

// ChromaStore is the vector index and metadata store backed by a Chroma
// collection. It serves top-K search, exact section lookups and the writes
// made by ingestion.
type ChromaStore struct {
	collection chromago.Collection
	log        *slog.Logger
}

func NewChromaStore(collection chromago.Collection, log *slog.Logger) *ChromaStore {
	if log == nil {
		log = slog.Default()
	}
	return &ChromaStore{collection: collection, log: log.With("component", "chroma")}
}

// GetOrCreateCollection opens the named collection, creating it on first use.
func GetOrCreateCollection(ctx context.Context, client chromago.Client, name string) (chromago.Collection, error) {
	collection, err := client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "section-aware medical reference corpus"),
				chromago.NewStringAttribute("created_by", "sectionrag"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w", name, err)
	}
	return collection, nil
}

// Ping reports whether the collection answers a count request.
func (s *ChromaStore) Ping(ctx context.Context) error {
	_, err := s.collection.Count(ctx)
	return err
}

// Count returns the number of chunks in the collection.
func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	n, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(n), nil
}

// Search returns the n nearest chunks to embedding, nearest first.
func (s *ChromaStore) Search(ctx context.Context, embedding []float32, n int) ([]models.Chunk, error) {
	results, err := s.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(n),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	idGroups := results.GetIDGroups()
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	chunks := make([]models.Chunk, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		c := models.Chunk{Text: doc.ContentString()}
		if len(idGroups) > 0 && i < len(idGroups[0]) {
			c.ID = string(idGroups[0][i])
		}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			c.Meta = s.decodeMeta(c.ID, metadataGroups[0][i])
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			d := float64(distanceGroups[0][i])
			c.Score = &d
		}
		chunks = append(chunks, c)
	}
	s.log.Debug("search complete", "results", len(chunks))
	return chunks, nil
}

// FetchBySection returns every chunk whose section_title equals title
// exactly, in collection order.
func (s *ChromaStore) FetchBySection(ctx context.Context, title string) ([]models.Chunk, error) {
	results, err := s.collection.Get(ctx, chromago.WithWhereGet(chromago.EqString(MetaSectionTitle, title)))
	if err != nil {
		return nil, fmt.Errorf("failed to get section %q from chromadb: %w", title, err)
	}
	ids := results.GetIDs()
	documents := results.GetDocuments()
	metadatas := results.GetMetadatas()

	chunks := make([]models.Chunk, 0, len(documents))
	for i := range documents {
		c := models.Chunk{Text: documents[i].ContentString()}
		if i < len(ids) {
			c.ID = string(ids[i])
		}
		if i < len(metadatas) && metadatas[i] != nil {
			c.Meta = s.decodeMeta(c.ID, metadatas[i])
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// IndexedChunk is one chunk ready to be written by AddChunks.
type IndexedChunk struct {
	ID        string
	Text      string
	Embedding []float32
	Section   string
	Page      int
	Source    string
	FileHash  string
	ChunkNum  int
}

// AddBatchSize caps the number of chunks sent in one Chroma add request.
const AddBatchSize = 256

// AddChunks writes chunks with their embeddings and metadata, in batches of
// AddBatchSize.
func (s *ChromaStore) AddChunks(ctx context.Context, chunks []IndexedChunk) error {
	for i, batch := range batchChunks(chunks, AddBatchSize) {
		if err := s.addBatch(ctx, batch); err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
	}
	return nil
}

func (s *ChromaStore) addBatch(ctx context.Context, chunks []IndexedChunk) error {
	ids := make([]chromago.DocumentID, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	embs := make([]embeddings.Embedding, 0, len(chunks))
	metas := make([]chromago.DocumentMetadata, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, chromago.DocumentID(c.ID))
		texts = append(texts, c.Text)
		embs = append(embs, embeddings.NewEmbeddingFromFloat32(c.Embedding))
		metas = append(metas, chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(MetaSectionTitle, c.Section),
			chromago.NewIntAttribute(MetaPageNumber, int64(c.Page)),
			chromago.NewStringAttribute(MetaSourceFile, c.Source),
			chromago.NewStringAttribute(MetaFileHash, c.FileHash),
			chromago.NewIntAttribute(MetaChunkNum, int64(c.ChunkNum)),
		))
	}
	err := s.collection.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to add %d chunks to chromadb: %w", len(chunks), err)
	}
	s.log.Debug("chunk batch added", "chunks", len(chunks))
	return nil
}

// batchChunks splits chunks into consecutive slices of at most size items.
func batchChunks(chunks []IndexedChunk, size int) [][]IndexedChunk {
	if size <= 0 {
		size = AddBatchSize
	}
	var batches [][]IndexedChunk
	for len(chunks) > 0 {
		n := min(size, len(chunks))
		batches = append(batches, chunks[:n])
		chunks = chunks[n:]
	}
	return batches
}

// DeleteBySource removes every chunk ingested from path.
func (s *ChromaStore) DeleteBySource(ctx context.Context, path string) error {
	return s.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(MetaSourceFile, path)))
}

// SourceHashes maps each ingested source file to the content hash recorded
// when it was indexed.
func (s *ChromaStore) SourceHashes(ctx context.Context) (map[string]string, error) {
	metas, err := s.allMetadata(ctx)
	if err != nil {
		return nil, err
	}
	state := make(map[string]string)
	for _, m := range metas {
		path, _ := m[MetaSourceFile].(string)
		hash, _ := m[MetaFileHash].(string)
		if path == "" || hash == "" {
			continue
		}
		if _, exists := state[path]; !exists {
			state[path] = hash
		}
	}
	return state, nil
}

// SectionTitles lists the distinct section titles in the collection.
func (s *ChromaStore) SectionTitles(ctx context.Context) ([]string, error) {
	metas, err := s.allMetadata(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var titles []string
	for _, m := range metas {
		t, _ := m[MetaSectionTitle].(string)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		titles = append(titles, t)
	}
	return titles, nil
}

func (s *ChromaStore) allMetadata(ctx context.Context) ([]map[string]any, error) {
	results, err := s.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}
	var out []map[string]any
	for _, meta := range results.GetMetadatas() {
		if meta == nil {
			continue
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// decodeMeta goes through JSON since DocumentMetadata exposes no typed
// accessors for arbitrary keys.
func (s *ChromaStore) decodeMeta(id string, meta chromago.DocumentMetadata) models.ChunkMeta {
	raw, err := json.Marshal(meta)
	if err != nil {
		s.log.Warn("could not marshal metadata", "id", id, "error", err)
		return models.ChunkMeta{}
	}
	m, err := ParseChunkMeta(raw)
	if err != nil {
		s.log.Warn("could not decode metadata", "id", id, "error", err)
	}
	return m
}

// ParseChunkMeta decodes a JSON metadata object. Page and chunk numbers may
// arrive as numbers or numeric strings; values of any other shape are left
// unset rather than rejected.
func ParseChunkMeta(raw []byte) (models.ChunkMeta, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.ChunkMeta{}, err
	}
	var meta models.ChunkMeta
	if t, ok := m[MetaSectionTitle].(string); ok {
		meta.SectionTitle = &t
	}
	if p, ok := asInt(m[MetaPageNumber]); ok {
		meta.PageNumber = &p
	}
	if n, ok := asInt(m[MetaChunkNum]); ok {
		meta.ChunkNum = &n
	}
	meta.SourceFile, _ = m[MetaSourceFile].(string)
	return meta, nil
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	}
	return 0, false
}
