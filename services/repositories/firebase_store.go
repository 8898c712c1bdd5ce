package repositories

import (
	"bytes"
	"context"
	"encoding/json"

	"firebase.google.com/go/v4/db"
	log "github.com/sirupsen/logrus"
)

// FirebaseStore is the Store over the Firebase Realtime Database. The Admin
// SDK has no listeners, so subscriptions re-read their path whenever the
// change feed reports a related write.
type FirebaseStore struct {
	client *db.Client
	feed   ChangeFeed
}

func NewFirebaseStore(client *db.Client, feed ChangeFeed) *FirebaseStore {
	return &FirebaseStore{client: client, feed: feed}
}

func (s *FirebaseStore) ref(path string) (*db.Ref, string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, "", err
	}
	return s.client.NewRef(normalized), normalized, nil
}

func (s *FirebaseStore) changed(ctx context.Context, path string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, path); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to publish store change")
	}
}

func (s *FirebaseStore) Create(ctx context.Context, path string, value interface{}) error {
	ref, normalized, err := s.ref(path)
	if err != nil {
		return wrapErr("create", path, err)
	}
	if err := ref.Set(ctx, value); err != nil {
		return wrapErr("create", normalized, err)
	}
	s.changed(ctx, normalized)
	return nil
}

func (s *FirebaseStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	ref, normalized, err := s.ref(path)
	if err != nil {
		return "", wrapErr("push", path, err)
	}
	child, err := ref.Push(ctx, value)
	if err != nil {
		return "", wrapErr("push", normalized, err)
	}
	s.changed(ctx, Join(normalized, child.Key))
	return child.Key, nil
}

func (s *FirebaseStore) Read(ctx context.Context, path string, dest interface{}) (bool, error) {
	ref, normalized, err := s.ref(path)
	if err != nil {
		return false, wrapErr("read", path, err)
	}

	var raw json.RawMessage
	if err := ref.Get(ctx, &raw); err != nil {
		return false, wrapErr("read", normalized, err)
	}
	if isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, wrapErr("read", normalized, err)
	}
	return true, nil
}

func (s *FirebaseStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	ref, normalized, err := s.ref(path)
	if err != nil {
		return wrapErr("update", path, err)
	}
	for key := range fields {
		if _, err := splitPath(key); err != nil {
			return wrapErr("update", normalized, err)
		}
	}
	if err := ref.Update(ctx, fields); err != nil {
		return wrapErr("update", normalized, err)
	}
	for key := range fields {
		s.changed(ctx, Join(normalized, key))
	}
	return nil
}

func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	ref, normalized, err := s.ref(path)
	if err != nil {
		return wrapErr("delete", path, err)
	}
	if err := ref.Delete(ctx); err != nil {
		return wrapErr("delete", normalized, err)
	}
	s.changed(ctx, normalized)
	return nil
}

func (s *FirebaseStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, wrapErr("subscribe", path, err)
	}

	var changes <-chan string
	stop := func() {}
	if s.feed != nil {
		changes, stop, err = s.feed.Listen(ctx)
		if err != nil {
			return nil, wrapErr("subscribe", normalized, err)
		}
	}

	out := make(chan Snapshot, 1)
	done := make(chan struct{})
	sub := newSubscription(out, func() {
		close(done)
	})

	go func() {
		defer close(out)
		defer stop()

		if !s.send(ctx, normalized, out, done) {
			return
		}
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case changed, ok := <-changes:
				if !ok {
					return
				}
				if !related(normalized, changed) {
					continue
				}
				if !s.send(ctx, normalized, out, done) {
					return
				}
			}
		}
	}()

	return sub, nil
}

func (s *FirebaseStore) send(ctx context.Context, path string, out chan Snapshot, done chan struct{}) bool {
	snap := Snapshot{Path: path}
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to refresh subscribed path")
		return true
	}
	if !isNull(raw) {
		snap.Exists = true
		snap.Value = raw
	}

	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
		return true
	case <-done:
		return false
	case <-ctx.Done():
		return false
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
