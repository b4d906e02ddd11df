package retrieval

import "errors"

// ErrNoSources is returned when a request selects no registered source.
var ErrNoSources = errors.New("no search sources available")
