package docstore

import (
	"context"
	"errors"
)

// DefaultAttempts bounds Mutate when the caller passes a non-positive count.
const DefaultAttempts = 5

// Mutate reads the document at path, hands it to fn, and writes the result
// only if the document has not changed since the read. A lost race re-reads
// and re-applies fn. fn sees exists=false for a missing document; returning
// ErrNoChange skips the write and is not reported as an error.
func Mutate[T any](ctx context.Context, s Store, path string, attempts int, fn func(doc *T, exists bool) error) (T, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var doc T
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return doc, err
		}

		doc = *new(T)
		version, found, err := s.GetVersioned(ctx, path, &doc)
		if err != nil {
			return doc, err
		}

		if err := fn(&doc, found); err != nil {
			if errors.Is(err, ErrNoChange) {
				return doc, nil
			}
			return doc, err
		}

		ok, err := s.SetIfUnchanged(ctx, path, version, doc)
		if err != nil {
			return doc, err
		}
		if ok {
			return doc, nil
		}
	}
	return doc, ErrConflict
}
