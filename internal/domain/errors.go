package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every pipeline stage. Fetch, load and split errors are
// recorded in a Batch and never abort a run; configuration, index and
// inference errors are returned to the caller.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrFetch         = errors.New("fetch error")
	ErrLoad          = errors.New("load error")
	ErrSplit         = errors.New("split error")
	ErrIndex         = errors.New("index error")
	ErrInference     = errors.New("inference error")
)

// WrapError preserves the error kind together with the operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
