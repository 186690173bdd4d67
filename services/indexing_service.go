package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/itish2003/sectionrag/metrics"
	"github.com/itish2003/sectionrag/retrieval"
)

// IndexStore is the write side of the vector store used by ingestion.
type IndexStore interface {
	AddChunks(ctx context.Context, chunks []IndexedChunk) error
	DeleteBySource(ctx context.Context, path string) error
	SourceHashes(ctx context.Context) (map[string]string, error)
}

// Invalidator is notified after the index changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ScanReport summarizes one directory scan.
type ScanReport struct {
	Indexed   []string
	Unchanged int
	Removed   []string
	Failed    map[string]error
	Chunks    int
}

// FileIndexingService handles scanning, chunking, and embedding files.
type FileIndexingService struct {
	store        IndexStore
	embedder     retrieval.Embedder
	splitter     textsplitter.TextSplitter
	invalidators []Invalidator
	log          *slog.Logger
}

// NewFileIndexingService creates a new indexing service.
func NewFileIndexingService(store IndexStore, embedder retrieval.Embedder, chunkSize, chunkOverlap int, log *slog.Logger) *FileIndexingService {
	if log == nil {
		log = slog.Default()
	}
	return &FileIndexingService{
		store:    store,
		embedder: embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		log: log.With("component", "indexer"),
	}
}

// NotifyOnChange registers inv to be invalidated after every index change.
func (s *FileIndexingService) NotifyOnChange(inv ...Invalidator) {
	s.invalidators = append(s.invalidators, inv...)
}

func (s *FileIndexingService) invalidate(ctx context.Context) {
	for _, inv := range s.invalidators {
		if err := inv.Invalidate(ctx); err != nil {
			s.log.Warn("invalidation failed", "error", err)
		}
	}
}

// ScanAndIndexDirectory syncs dirPath with the index: new and changed files
// are (re)indexed, files gone from disk are removed.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) (*ScanReport, error) {
	s.log.Info("starting directory scan", "dir", dirPath)

	indexed, err := s.store.SourceHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get current index state: %w", err)
	}
	s.log.Info("index state loaded", "files", len(indexed))

	report := &ScanReport{Failed: map[string]error{}}
	local := make(map[string]bool)
	err = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSupportedFile(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		local[path] = true

		hash, err := calculateFileHash(path)
		if err != nil {
			s.log.Warn("could not hash file", "path", path, "error", err)
			report.Failed[path] = err
			return nil
		}
		if prev, ok := indexed[path]; ok && prev == hash {
			report.Unchanged++
			return nil
		}

		n, err := s.indexFile(ctx, path, hash)
		if err != nil {
			s.log.Error("failed to process file", "path", path, "error", err)
			report.Failed[path] = err
			return nil
		}
		report.Indexed = append(report.Indexed, path)
		report.Chunks += n
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", dirPath, err)
	}

	for path := range indexed {
		if local[path] {
			continue
		}
		s.log.Info("file deleted, removing from index", "path", path)
		if err := s.store.DeleteBySource(ctx, path); err != nil {
			s.log.Error("failed to delete records", "path", path, "error", err)
			report.Failed[path] = err
			continue
		}
		report.Removed = append(report.Removed, path)
	}

	if len(report.Indexed) > 0 || len(report.Removed) > 0 {
		s.invalidate(ctx)
	}
	s.log.Info("directory scan finished",
		"indexed", len(report.Indexed), "unchanged", report.Unchanged,
		"removed", len(report.Removed), "failed", len(report.Failed), "chunks", report.Chunks)
	return report, nil
}

// IndexFile (re)indexes a single file and returns the number of chunks written.
func (s *FileIndexingService) IndexFile(ctx context.Context, path string) (int, error) {
	hash, err := calculateFileHash(path)
	if err != nil {
		return 0, err
	}
	n, err := s.indexFile(ctx, path, hash)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return n, nil
}

func (s *FileIndexingService) indexFile(ctx context.Context, path, hash string) (int, error) {
	pages, err := ExtractPages(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sections := SplitSections(pages, base)

	var batch []IndexedChunk
	chunkNum := 0
	for _, sec := range sections {
		texts, err := s.splitter.SplitText(sec.Text)
		if err != nil {
			return 0, fmt.Errorf("split %s page %d: %w", path, sec.Page, err)
		}
		for _, text := range texts {
			emb, err := s.embedder.Embed(ctx, text)
			if err != nil {
				return 0, fmt.Errorf("could not embed chunk %d of %s: %w", chunkNum, path, err)
			}
			batch = append(batch, IndexedChunk{
				ID:        fmt.Sprintf("%s-chunk%d", uuid.New().String(), chunkNum),
				Text:      text,
				Embedding: emb,
				Section:   sec.Title,
				Page:      sec.Page,
				Source:    path,
				FileHash:  hash,
				ChunkNum:  chunkNum,
			})
			chunkNum++
		}
	}

	// Old chunks go only once the new ones are ready.
	if err := s.store.DeleteBySource(ctx, path); err != nil {
		return 0, fmt.Errorf("delete old version of %s: %w", path, err)
	}
	if err := s.store.AddChunks(ctx, batch); err != nil {
		return 0, err
	}
	metrics.ChunksIndexed.Add(float64(len(batch)))
	s.log.Info("file indexed", "path", path, "pages", len(pages), "sections", len(sections), "chunks", len(batch))
	return len(batch), nil
}

// WatchDirectory re-indexes files as they change until ctx is cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return fmt.Errorf("failed to add path to watcher: %w", err)
	}
	log := s.log.With("component", "watcher")
	log.Info("watching directory", "dir", dirPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSupportedFile(event.Name) {
				continue
			}
			log.Debug("event", "op", event.Op.String(), "path", event.Name)

			// Editors that save via rename produce Create as well as Write.
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				if _, err := s.IndexFile(ctx, event.Name); err != nil {
					log.Error("failed to re-index file", "path", event.Name, "error", err)
				}
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				if err := s.store.DeleteBySource(ctx, event.Name); err != nil {
					log.Error("failed to delete records", "path", event.Name, "error", err)
					continue
				}
				s.invalidate(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)

		case <-ctx.Done():
			log.Info("context cancelled, shutting down watcher")
			return nil
		}
	}
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
