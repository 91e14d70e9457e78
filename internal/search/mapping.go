package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for person documents.
//
// Names and places use the simple analyzer: people's names should not be
// stemmed. Notes get English stemming. user_id, tags and the categorical
// fields are keywords so they can be used as exact filters.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	notesFieldMapping := bleve.NewTextFieldMapping()
	notesFieldMapping.Analyzer = en.AnalyzerName
	notesFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("notes", notesFieldMapping)

	cityFieldMapping := bleve.NewTextFieldMapping()
	cityFieldMapping.Analyzer = simple.Name
	cityFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("city", cityFieldMapping)

	partyFieldMapping := bleve.NewTextFieldMapping()
	partyFieldMapping.Analyzer = simple.Name
	partyFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("political_party", partyFieldMapping)

	// Keyword fields

	for _, field := range []string{"id", "user_id", "context", "proximity"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// Tags keep compound names intact ("major donor").
	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	tagsFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	candidateFieldMapping := bleve.NewBooleanFieldMapping()
	candidateFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("is_candidate", candidateFieldMapping)

	importanceFieldMapping := bleve.NewNumericFieldMapping()
	importanceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("importance", importanceFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
