package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// mappingVersion is logged on build so index shape changes show up in logs.
const mappingVersion = "catalog-1"

// buildIndexMapping creates the Bleve mapping for catalog documents.
//
// Names are indexed whole with the keyword analyzer so a regexp query can
// match any substring, including across word boundaries and punctuation.
// Tokenizing analyzers would lose those characters.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()

	kindFieldMapping := bleve.NewKeywordFieldMapping()
	kindFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("kind", kindFieldMapping)

	// Display name; stored for hits, not searched.
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Index = false
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Folded name, the match and sort target.
	foldedFieldMapping := bleve.NewKeywordFieldMapping()
	foldedFieldMapping.Store = false
	foldedFieldMapping.DocValues = true
	docMapping.AddFieldMappingsAt("folded", foldedFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
