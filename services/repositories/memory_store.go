package repositories

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps the document tree in process. It backs development runs
// without Firebase and the test suite.
type MemoryStore struct {
	mu       sync.RWMutex
	root     map[string]interface{}
	watchers map[*memoryWatcher]struct{}
}

type memoryWatcher struct {
	path string
	ch   chan Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root:     map[string]interface{}{},
		watchers: map[*memoryWatcher]struct{}{},
	}
}

// toTree converts a value into its generic JSON form.
func toTree(value interface{}) (interface{}, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return dropNulls(out), nil
}

// dropNulls removes null and empty children; the tree never stores them.
func dropNulls(node interface{}) interface{} {
	m, ok := node.(map[string]interface{})
	if !ok {
		return node
	}
	for k, v := range m {
		v = dropNulls(v)
		if child, isMap := v.(map[string]interface{}); v == nil || (isMap && len(child) == 0) {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return m
}

func (s *MemoryStore) Create(ctx context.Context, path string, value interface{}) error {
	segments, err := splitPath(path)
	if err != nil {
		return wrapErr("create", path, err)
	}
	tree, err := toTree(value)
	if err != nil {
		return wrapErr("create", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.set(segments, tree)
	s.notify(Join(segments...))
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", wrapErr("push", path, err)
	}
	tree, err := toTree(value)
	if err != nil {
		return "", wrapErr("push", path, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", wrapErr("push", path, err)
	}
	key := id.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	full := append(segments, key)
	s.set(full, tree)
	s.notify(Join(full...))
	return key, nil
}

func (s *MemoryStore) Read(ctx context.Context, path string, dest interface{}) (bool, error) {
	segments, err := splitPath(path)
	if err != nil {
		return false, wrapErr("read", path, err)
	}

	s.mu.RLock()
	node, ok := s.get(segments)
	var data []byte
	if ok {
		data, err = json.Marshal(node)
	}
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("read", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, wrapErr("read", path, err)
	}
	return true, nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	base, err := splitPath(path)
	if err != nil {
		return wrapErr("update", path, err)
	}

	type change struct {
		segments []string
		value    interface{}
	}
	changes := make([]change, 0, len(fields))
	for key, value := range fields {
		sub, err := splitPath(key)
		if err != nil || len(sub) == 0 {
			return wrapErr("update", path, ErrInvalidPath)
		}
		var tree interface{}
		if value != nil {
			if tree, err = toTree(value); err != nil {
				return wrapErr("update", path, err)
			}
		}
		full := append(append([]string{}, base...), sub...)
		changes = append(changes, change{segments: full, value: tree})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		if c.value == nil {
			s.remove(c.segments)
		} else {
			s.set(c.segments, c.value)
		}
	}
	for _, c := range changes {
		s.notify(Join(c.segments...))
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return wrapErr("delete", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(segments)
	s.notify(Join(segments...))
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, wrapErr("subscribe", path, err)
	}

	w := &memoryWatcher{path: normalized, ch: make(chan Snapshot, 1)}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.deliver(w)
	s.mu.Unlock()

	done := make(chan struct{})
	sub := newSubscription(w.ch, func() {
		close(done)
		s.mu.Lock()
		delete(s.watchers, w)
		close(w.ch)
		s.mu.Unlock()
	})

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
		}
	}()

	return sub, nil
}

// notify must be called with the write lock held.
func (s *MemoryStore) notify(changed string) {
	for w := range s.watchers {
		if related(w.path, changed) {
			s.deliver(w)
		}
	}
}

// deliver replaces any undelivered snapshot with the latest one.
func (s *MemoryStore) deliver(w *memoryWatcher) {
	snap := Snapshot{Path: w.path}
	segments, _ := splitPath(w.path)
	if node, ok := s.get(segments); ok {
		if data, err := json.Marshal(node); err == nil {
			snap.Exists = true
			snap.Value = data
		}
	}

	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- snap:
	default:
	}
}

func (s *MemoryStore) get(segments []string) (interface{}, bool) {
	var node interface{} = s.root
	for _, seg := range segments {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		node, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	if m, ok := node.(map[string]interface{}); ok && len(m) == 0 {
		return nil, false
	}
	return node, true
}

func (s *MemoryStore) set(segments []string, value interface{}) {
	if value == nil {
		s.remove(segments)
		return
	}
	if len(segments) == 0 {
		if m, ok := value.(map[string]interface{}); ok {
			s.root = m
		} else {
			s.root = map[string]interface{}{}
		}
		return
	}

	node := s.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

// remove deletes the node and prunes parents left empty.
func (s *MemoryStore) remove(segments []string) {
	if len(segments) == 0 {
		s.root = map[string]interface{}{}
		return
	}

	parents := make([]map[string]interface{}, 0, len(segments))
	node := s.root
	for _, seg := range segments[:len(segments)-1] {
		parents = append(parents, node)
		child, ok := node[seg].(map[string]interface{})
		if !ok {
			return
		}
		node = child
	}
	delete(node, segments[len(segments)-1])

	for i := len(parents) - 1; i >= 0; i-- {
		if len(node) > 0 {
			return
		}
		delete(parents[i], segments[i])
		node = parents[i]
	}
}
