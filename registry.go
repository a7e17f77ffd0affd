package shellmux

import (
	"context"
	"io"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// closer is the constraint a Registry's item type must satisfy: every
// registered Pipe or TaskRunner must be closeable.
type closer interface {
	io.Closer
}

// Registry is a process-wide, concurrency-safe id -> item map, used for
// both the Pipe registry and the Task Runner registry (spec.md §4.4). It
// replaces the teacher's per-provider ad hoc mutex+map+counter pattern
// (providers/docker/environment.go, providers/local/environment.go) with a
// single generic type shared by both registries.
type Registry[T closer] struct {
	mu    sync.RWMutex
	items map[string]T
	kind  string // used in NotFoundError, e.g. "pipe" or "runner"
}

// NewRegistry creates an empty registry. kind labels NotFoundError messages.
func NewRegistry[T closer](kind string) *Registry[T] {
	return &Registry[T]{items: make(map[string]T), kind: kind}
}

// Insert adds item under id, overwriting any previous entry without
// closing it — callers are expected to generate fresh ids (uuid.NewString)
// so collisions should not occur in practice.
func (r *Registry[T]) Insert(id string, item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[id] = item
}

// Get looks up id, returning a *NotFoundError if absent.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		var zero T

		return zero, &NotFoundError{Kind: r.kind, ID: id}
	}

	return item, nil
}

// Remove detaches id from the registry without closing it. It is intended
// to be called from an item's own Close/onClose hook, not by ordinary
// callers.
func (r *Registry[T]) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
}

// Len reports how many items are currently registered.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

// IDs returns a snapshot of every registered id.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}

	return ids
}

// Shutdown closes every registered item concurrently, aggregating every
// error with multierr rather than stopping at the first failure.
func (r *Registry[T]) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	items := make([]T, 0, len(r.items))

	for id, item := range r.items {
		items = append(items, item)
		delete(r.items, id)
	}

	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)

	var (
		mu   sync.Mutex
		errs error
	)

	for _, item := range items {
		item := item

		g.Go(func() error {
			if err := item.Close(); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	return errs
}
