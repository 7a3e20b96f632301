package rag

import "errors"

var (
	// ErrNoRelevantDocuments reports an empty retrieval. This is a normal,
	// expected outcome for an empty or unrelated collection, distinct from a
	// transport or embedding failure; the HTTP layer maps it to 404.
	ErrNoRelevantDocuments = errors.New("no relevant documents found")

	// ErrGeneration marks a failed remote generation call.
	ErrGeneration = errors.New("answer generation failed")
)
