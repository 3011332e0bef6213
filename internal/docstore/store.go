// Package docstore is a path-addressed JSON document store with optimistic
// concurrency. Paths look like "clubs/{id}" or "club_invites/{club}/{invite}".
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/config"
	"github.com/bookclurb/clurb-api/internal/firebaseapp"
)

var (
	// ErrConflict is returned when a compare-and-swap loop runs out of attempts.
	ErrConflict = errors.New("docstore: document changed concurrently")
	// ErrNoChange aborts a Mutate callback without writing.
	ErrNoChange = errors.New("docstore: no change")
	// ErrInvalidPath rejects empty segments and characters the realtime database forbids.
	ErrInvalidPath = errors.New("docstore: invalid path")
	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("docstore: store closed")
)

// Store is the document store every repository reads and writes through.
// Versions are opaque; a missing document also has a version so that
// SetIfUnchanged can express "create only if still absent".
type Store interface {
	Get(ctx context.Context, path string, v interface{}) (bool, error)
	GetVersioned(ctx context.Context, path string, v interface{}) (version string, found bool, err error)
	Set(ctx context.Context, path string, v interface{}) error
	SetIfUnchanged(ctx context.Context, path, version string, v interface{}) (bool, error)
	// Update merges top-level fields; a nil value removes the field.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Remove(ctx context.Context, path string) error
	// List returns the direct children of parent keyed by their last path segment.
	List(ctx context.Context, parent string) (map[string]json.RawMessage, error)
	Close() error
}

// Open constructs the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Warn().Msg("using in-memory document store; data is lost on restart")
		return NewMemory(), nil
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case "firebase":
		app, err := firebaseapp.New(ctx, cfg.Firebase, logger)
		if err != nil {
			return nil, err
		}
		return OpenFirebase(ctx, app)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ValidKey reports whether s can be used as a single path segment.
func ValidKey(s string) bool {
	if strings.TrimSpace(s) == "" || s != strings.TrimSpace(s) {
		return false
	}
	return !strings.ContainsAny(s, "/.#$[]")
}

// Join builds a path from segments, validating each one.
func Join(segments ...string) (string, error) {
	for _, seg := range segments {
		if !ValidKey(seg) {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
		}
	}
	return strings.Join(segments, "/"), nil
}

func cleanPath(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(path, "/") {
		if !ValidKey(seg) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return path, nil
}

func isNull(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func decode(raw []byte, v interface{}) error {
	if v == nil {
		return nil
	}
	return json.Unmarshal(raw, v)
}
