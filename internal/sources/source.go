// Package sources defines the content source capability and the adapters
// the retriever fans out to.
package sources

import (
	"context"
	"fmt"
)

// RawResult is one unscored hit as returned by a source.
type RawResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// Source is a content backend that can answer a text query.
// Search returns at most limit results ordered by the backend's own ranking,
// with Position set from 1.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]RawResult, error)
}

// SourceError tags a failure with the source that produced it.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
