package store

import "errors"

var (
	ErrUnavailable       = errors.New("vector store unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrMetricMismatch    = errors.New("collection distance metric mismatch")
	ErrBadDistance       = errors.New("unknown distance metric")
)
