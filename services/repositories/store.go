package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
)

// Store is the path-addressed document tree every feature reads and writes through.
// Values are JSON-serialisable; absent paths read as not found.
type Store interface {
	// Create overwrites the value at path.
	Create(ctx context.Context, path string, value interface{}) error
	// Push appends value under path with a generated, chronologically sortable key.
	Push(ctx context.Context, path string, value interface{}) (string, error)
	// Read decodes the value at path into dest. found is false when nothing is stored there.
	Read(ctx context.Context, path string, dest interface{}) (found bool, err error)
	// Update shallow-merges fields into path. Keys may be nested paths and a nil
	// value removes that child.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Delete(ctx context.Context, path string) error
	// Subscribe delivers the current value at path, then a new snapshot after
	// every change at, above or below it, until the subscription is closed.
	Subscribe(ctx context.Context, path string) (*Subscription, error)
}

// Snapshot is one delivered value of a subscription.
type Snapshot struct {
	Path   string
	Exists bool
	Value  json.RawMessage
}

func (s Snapshot) Decode(dest interface{}) error {
	if !s.Exists {
		return ErrNotFound
	}
	return json.Unmarshal(s.Value, dest)
}

// Subscription is a live feed of snapshots. Close must be called when the
// consumer goes away; it is safe to call more than once.
type Subscription struct {
	C <-chan Snapshot

	once    sync.Once
	closeFn func()
}

func newSubscription(c <-chan Snapshot, closeFn func()) *Subscription {
	return &Subscription{C: c, closeFn: closeFn}
}

func (s *Subscription) Close() {
	s.once.Do(s.closeFn)
}

// Join builds a store path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// splitPath normalises a path into its segments. The root is the empty slice.
func splitPath(path string) ([]string, error) {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.ContainsAny(seg, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func normalizePath(path string) (string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", err
	}
	return strings.Join(segments, "/"), nil
}

// related reports whether a change at one path is visible from the other.
func related(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store %s %s: %w", op, path, err)
}
