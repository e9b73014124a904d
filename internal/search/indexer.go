package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/logging"
)

// LocalIndex keeps every result the provider has returned so searches can
// still be answered offline.
type LocalIndex struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
	log        zerolog.Logger
}

// NewLocalIndex creates an in-memory index.
func NewLocalIndex() (*LocalIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &LocalIndex{bleveIndex: index, log: logging.Component("local_index")}, nil
}

// OpenLocalIndex opens or creates a persistent index at indexPath.
func OpenLocalIndex(indexPath string) (*LocalIndex, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		// Already exists: open it.
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}

	return &LocalIndex{bleveIndex: index, indexPath: indexPath, log: logging.Component("local_index")}, nil
}

// buildIndexMapping indexes title and snippet; the link is stored only.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("snippet", bleve.NewTextFieldMapping())

	linkMapping := bleve.NewTextFieldMapping()
	linkMapping.Index = false
	linkMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("link", linkMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Add indexes results keyed by link. Re-adding a link replaces it.
func (i *LocalIndex) Add(results []Result) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		doc := map[string]interface{}{
			"title":   r.Title,
			"snippet": r.Snippet,
			"link":    r.Link,
		}
		if err := batch.Index(r.Link, doc); err != nil {
			i.log.Warn().Err(err).Str("link", r.Link).Msg("failed to index result")
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index results: %w", err)
	}
	return nil
}

// Count returns the number of indexed results.
func (i *LocalIndex) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return n, nil
}

// Close closes the index and releases resources.
func (i *LocalIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}
