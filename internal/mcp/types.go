// Package mcp exposes the rulebook pipeline over the Model Context Protocol.
package mcp

import "time"

// AskRulesInput defines the input parameters for the ask_rules tool.
type AskRulesInput struct {
	// Question is the natural-language rules question.
	Question string `json:"question" jsonschema:"required,description=The rules question to answer from the indexed rulebooks"`
	// TopK is how many chunks to ground the answer in.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=50,default=15,description=Number of chunks retrieved to ground the answer"`
}

// AskRulesOutput contains the synthesized answer and its sources.
type AskRulesOutput struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources lists the chunks the answer was grounded in, best match first.
	Sources []Source `json:"sources"`
	// Message provides informational context (e.g., nothing matched).
	Message string `json:"message,omitempty"`
}

// SearchRulesInput defines the input parameters for the search_rules tool.
type SearchRulesInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query over rulebook chunks"`
	// TopK is the maximum number of chunks to return.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=50,default=15,description=Maximum number of chunks to return"`
}

// SearchRulesOutput contains raw retrieval results without generation.
type SearchRulesOutput struct {
	// Results is the list of matching chunks, best match first.
	Results []Source `json:"results"`
	// Message provides informational context (e.g., nothing matched).
	Message string `json:"message,omitempty"`
}

// Source is one retrieved chunk with its provenance.
type Source struct {
	// Text is the chunk content.
	Text string `json:"text"`
	// Score is the similarity score.
	Score float64 `json:"score"`
	// SourcePath is the file the chunk came from.
	SourcePath string `json:"source_path"`
	// Title is the book title inferred from the file name.
	Title string `json:"title"`
	// Corpus is the folder the file belongs to.
	Corpus string `json:"corpus"`
	// Edition is the game edition inferred from the folder name.
	Edition string `json:"edition"`
	// Section is the heading path within the document, when known.
	Section string `json:"section,omitempty"`
	// PageNumber is the page the chunk came from.
	PageNumber int `json:"page_number"`
}

// ListSourcesInput defines the input parameters for the list_sources tool.
// This tool takes no parameters.
type ListSourcesInput struct{}

// ListSourcesOutput contains every indexed source file path.
type ListSourcesOutput struct {
	// Paths is all indexed source file paths, sorted.
	Paths []string `json:"paths"`
	// Count is the total number of source files.
	Count int `json:"count"`
}

// IndexStatusInput defines the input parameters for the index_status tool.
// This tool takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput reports the current state of the index.
type IndexStatusOutput struct {
	// TotalChunks is the number of points in the collection.
	TotalChunks uint64 `json:"total_chunks"`
	// TotalSources is the number of distinct source files.
	TotalSources int `json:"total_sources"`
	// LastChecked is when freshness was last evaluated, if ever.
	LastChecked *time.Time `json:"last_checked,omitempty"`
	// Corpora reports the per-folder ingestion watermarks.
	Corpora []CorpusStatus `json:"corpora"`
}

// CorpusStatus is the freshness watermark for one corpus folder.
type CorpusStatus struct {
	// Name is the corpus name from configuration.
	Name string `json:"name"`
	// Watermark is the newest file modification time covered by the index.
	Watermark time.Time `json:"watermark"`
}
