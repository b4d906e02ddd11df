package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyQuery   = errors.New("query is empty")
	ErrQueryTooLong = errors.New("query is too long")
)

// MaxQueryLength is the longest query, in characters, accepted at the
// request boundary.
const MaxQueryLength = 2000

// Validate checks raw query text before it enters the pipeline.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyQuery
	}
	if n := utf8.RuneCountInString(raw); n > MaxQueryLength {
		return fmt.Errorf("%w: %d characters, limit %d", ErrQueryTooLong, n, MaxQueryLength)
	}
	return nil
}
