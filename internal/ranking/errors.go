package ranking

import "errors"

// ErrScoring marks a failure inside the scoring stage.
var ErrScoring = errors.New("scoring failed")
