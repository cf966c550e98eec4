package storage

import "errors"

var (
	ErrQdrantUnreachable   = errors.New("qdrant server unreachable")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrVectorCountMismatch = errors.New("chunk and vector counts differ")
)
