// Package search provides full-text lookup over file names and tags, and
// fuzzy tag suggestions.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/Aman-CERP/pea/internal/media"
)

const (
	// FilenameAnalyzerName is the analyzer applied to names and tags.
	FilenameAnalyzerName = "pea_filename_analyzer"

	// DefaultLimit caps results when the caller passes no limit.
	DefaultLimit = 50

	fieldName = "name"
	fieldTags = "tags"
	fieldType = "ty"
)

// Hit is one search result.
type Hit struct {
	ID           uint64   `json:"id"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// nameDocument is what gets indexed per file.
type nameDocument struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	Type string   `json:"ty"`
}

// NameIndex is an in-memory bleve index of file names and tags. It is kept
// in step with the store through OnCommit.
type NameIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	logger *slog.Logger
	closed bool
}

// NewNameIndex creates an empty index. A nil logger uses slog.Default().
func NewNameIndex(logger *slog.Logger) (*NameIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := newMemIndex()
	if err != nil {
		return nil, err
	}
	return &NameIndex{index: idx, logger: logger}, nil
}

func newMemIndex() (bleve.Index, error) {
	m, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}
	return idx, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(FilenameAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     FilenameTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add filename analyzer: %w", err)
	}

	text := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = FilenameAnalyzerName
		fm.Store = false
		fm.IncludeTermVectors = true
		return fm
	}
	ty := bleve.NewKeywordFieldMapping()
	ty.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldName, text())
	doc.AddFieldMappingsAt(fieldTags, text())
	doc.AddFieldMappingsAt(fieldType, ty)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = FilenameAnalyzerName
	return im, nil
}

// Index adds or replaces files.
func (n *NameIndex) Index(files []media.FileMetadata) error {
	if len(files) == 0 {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("name index is closed")
	}

	batch := n.index.NewBatch()
	for _, f := range files {
		doc := nameDocument{Name: f.Name, Tags: f.Tags, Type: f.Type}
		if err := batch.Index(docID(f.ID), doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", f.Path, err)
		}
	}
	if err := n.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Delete removes ids. Unknown ids are ignored.
func (n *NameIndex) Delete(ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("name index is closed")
	}

	batch := n.index.NewBatch()
	for _, id := range ids {
		batch.Delete(docID(id))
	}
	if err := n.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Rebuild replaces the whole index with files.
func (n *NameIndex) Rebuild(files []media.FileMetadata) error {
	fresh, err := newMemIndex()
	if err != nil {
		return err
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		_ = fresh.Close()
		return fmt.Errorf("name index is closed")
	}
	old := n.index
	n.index = fresh
	n.mu.Unlock()
	_ = old.Close()

	return n.Index(files)
}

// OnCommit keeps the index in step with the store. Failures are logged; the
// store stays authoritative.
func (n *NameIndex) OnCommit(added []media.FileMetadata, removed []uint64) {
	if err := n.Delete(removed); err != nil {
		n.logger.Warn("name index delete failed", slog.String("error", err.Error()))
	}
	if err := n.Index(added); err != nil {
		n.logger.Warn("name index update failed", slog.String("error", err.Error()))
	}
}

// Search matches query against names (boosted) and tags, tolerating one edit
// per term. A non-positive limit means DefaultLimit.
func (n *NameIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return nil, fmt.Errorf("name index is closed")
	}

	if strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	nameQuery := bleve.NewMatchQuery(query)
	nameQuery.SetField(fieldName)
	nameQuery.SetFuzziness(1)
	nameQuery.SetBoost(2)

	tagQuery := bleve.NewMatchQuery(query)
	tagQuery.SetField(fieldTags)
	tagQuery.SetFuzziness(1)

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(nameQuery, tagQuery))
	req.Size = limit
	req.IncludeLocations = true

	result, err := n.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: h.Score, MatchedTerms: matchedTerms(h)})
	}
	return hits, nil
}

// Len returns the number of indexed documents.
func (n *NameIndex) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return 0
	}
	count, _ := n.index.DocCount()
	return int(count)
}

// Close releases the index.
func (n *NameIndex) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.index.Close()
}

func docID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func matchedTerms(hit *bsearch.DocumentMatch) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, locations := range hit.Locations {
		for term := range locations {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	return terms
}
