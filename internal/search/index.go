// Package search maintains a full-text index of documents.
package search

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/localnerve/eventsdb/internal/models"
)

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// IndexedDocument is the searchable projection of a document
type IndexedDocument struct {
	ID           string
	Title        string
	Notes        string
	Category     string
	Collection   string
	Filename     string
	DocumentDate time.Time
}

// SearchResult is one document hit
type SearchResult struct {
	DocumentID uint
	Title      string
	Score      float64
}

// Open opens or creates the index at path. An empty path gives an
// in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		return NewMemOnly()
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// NewMemOnly returns an index that lives in memory
func NewMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping analyses titles and notes as French text
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "fr"

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Title", textFieldMapping)
	docMapping.AddFieldMappingsAt("Notes", textFieldMapping)
	docMapping.AddFieldMappingsAt("Filename", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Category", textFieldMapping)
	docMapping.AddFieldMappingsAt("Collection", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("DocumentDate", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = "fr"

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func toIndexed(doc *models.Document) *IndexedDocument {
	indexed := &IndexedDocument{
		ID:       strconv.FormatUint(uint64(doc.ID), 10),
		Title:    doc.Title,
		Notes:    doc.Notes,
		Category: doc.CategoryName(),
		Filename: doc.Filename(),
	}
	if doc.Collection != nil {
		indexed.Collection = doc.Collection.Name
	}
	if d := doc.Date(); d != nil {
		indexed.DocumentDate = *d
	}
	return indexed
}

// IndexDocument adds or updates a document. Category and Collection should
// be preloaded for them to be searchable.
func (i *Index) IndexDocument(doc *models.Document) error {
	indexed := toIndexed(doc)
	return i.index.Index(indexed.ID, indexed)
}

// Delete removes a document from the index
func (i *Index) Delete(id uint) error {
	return i.index.Delete(strconv.FormatUint(uint64(id), 10))
}

// IndexBatch adds or updates the given documents in one batch
func (i *Index) IndexBatch(docs []models.Document) error {
	batch := i.index.NewBatch()
	for k := range docs {
		indexed := toIndexed(&docs[k])
		if err := batch.Index(indexed.ID, indexed); err != nil {
			return fmt.Errorf("batch index %s: %w", indexed.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rebuild makes the index hold exactly docs: they are indexed and every
// other entry is deleted
func (i *Index) Rebuild(docs []models.Document) error {
	if err := i.IndexBatch(docs); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(docs))
	for k := range docs {
		keep[strconv.FormatUint(uint64(docs[k].ID), 10)] = struct{}{}
	}

	ids, err := i.allIDs()
	if err != nil {
		return err
	}
	batch := i.index.NewBatch()
	for _, id := range ids {
		if _, ok := keep[id]; !ok {
			batch.Delete(id)
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit stale deletes: %w", err)
	}
	return nil
}

func (i *Index) allIDs() ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Search runs a query string search, best matches first
func (i *Index) Search(queryStr string, limit int) ([]SearchResult, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Fields = []string{"Title"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		result := SearchResult{DocumentID: uint(id), Score: hit.Score}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		out = append(out, result)
	}

	return out, nil
}

// Count returns the number of documents in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
