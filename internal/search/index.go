package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/knowyournotes/catalog-server/internal/domain"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/normalize"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// CatalogIndex wraps an in-memory Bleve index of catalog names.
//
// Thread safety: All public methods are safe for concurrent use.
// Rebuild swaps in a fresh index under the write lock.
type CatalogIndex struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the catalog index.
type Options struct {
	Logger *slog.Logger // Logger for operations (uses discard if nil)
}

const batchSize = 500

// NewCatalogIndex creates an empty index. Call Rebuild to load the catalog.
func NewCatalogIndex(opts Options) (*CatalogIndex, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &CatalogIndex{
		index:  index,
		logger: log,
	}, nil
}

// Close closes the index and releases resources.
func (s *CatalogIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocuments indexes documents in batches.
func (s *CatalogIndex) IndexDocuments(docs []*Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexInto(s.index, docs)
}

func indexInto(index bleve.Index, docs []*Document) error {
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteDocument removes a record from the index.
func (s *CatalogIndex) DeleteDocument(kind domain.SearchKind, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(docID(kind, id))
}

// DocumentCount returns the total number of indexed documents.
func (s *CatalogIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild loads every note, fragrance and brand from the store into a fresh
// index and swaps it in. Readers keep using the old index until the swap.
func (s *CatalogIndex) Rebuild(ctx context.Context, client store.Client) error {
	docs, err := loadDocuments(ctx, client)
	if err != nil {
		return err
	}

	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := indexInto(fresh, docs); err != nil {
		_ = fresh.Close()
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.WarnContext(ctx, "failed to close previous index", "error", err)
	}

	s.logger.InfoContext(ctx, "rebuilt catalog index",
		"documents", len(docs),
		"mapping_version", mappingVersion,
	)
	return nil
}

func loadDocuments(ctx context.Context, client store.Client) ([]*Document, error) {
	byName := store.All().OrderBy("name", false)

	notes, err := client.Fetch(ctx, store.KindNotes, byName)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	frags, err := client.Fetch(ctx, store.KindFragrances, byName)
	if err != nil {
		return nil, fmt.Errorf("load fragrances: %w", err)
	}
	brands, err := client.Fetch(ctx, store.KindBrands, byName)
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}

	docs := make([]*Document, 0, len(notes)+len(frags)+len(brands))
	for _, r := range notes {
		docs = append(docs, NoteDocument(store.DecodeNote(r)))
	}
	for _, r := range frags {
		docs = append(docs, FragranceDocument(store.DecodeFragrance(r)))
	}
	for _, r := range brands {
		docs = append(docs, BrandDocument(store.DecodeBrand(r)))
	}
	return docs, nil
}

// Match returns the ids of records of kind whose name contains token,
// ignoring case. The token is literal: regexp metacharacters match
// themselves. Results are ordered by folded name.
func (s *CatalogIndex) Match(ctx context.Context, kind domain.SearchKind, token string) ([]string, error) {
	if normalize.IsBlank(token) {
		return nil, nil
	}

	kindQuery := bleve.NewTermQuery(string(kind))
	kindQuery.SetField("kind")

	nameQuery := bleve.NewRegexpQuery(".*" + regexp.QuoteMeta(normalize.Fold(token)) + ".*")
	nameQuery.SetField("folded")

	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(kindQuery, nameQuery), int(count), 0, false)
	req.SortBy([]string{"folded", "_id"})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, recordID(kind, hit.ID))
	}
	return ids, nil
}
