package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIngestion reports an upload that could not be turned into text or segments.
	ErrIngestion = errors.New("ingestion failed")

	// ErrEmbedding reports a failure of the embedding backend.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch reports vectors of different lengths within one index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCompletion reports a failure of the language-model backend.
	ErrCompletion = errors.New("completion failed")

	// ErrEmptyQuestion is returned when asking a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrUnsupportedDocument is returned for uploads of an unknown file type.
	ErrUnsupportedDocument = fmt.Errorf("%w: unsupported document type", ErrIngestion)

	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidBirthDate is returned for malformed birth dates and for birth
	// dates after the reference date.
	ErrInvalidBirthDate = errors.New("invalid birth date")
)
