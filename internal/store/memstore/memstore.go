// Package memstore is the in-memory implementation of store.Store. It backs
// every repository and controller test and the dev-mode server, and mirrors
// the production store's semantics: push keys sort by creation order, server
// timestamps are monotonic, and every change fans out the full snapshot to
// each related subscriber.
package memstore

import (
	"fmt"
	"sync"
	"time"

	"brewhaus/backend/internal/store"

	"github.com/google/uuid"
)

type subscriber struct {
	id       int
	path     string
	onChange func(store.Snapshot)
}

// Store is a mutex-guarded path tree with snapshot fan-out.
type Store struct {
	mu      sync.Mutex
	root    map[string]any
	subs    map[int]*subscriber
	nextSub int
	counter uint64
	lastTS  int64
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		root: make(map[string]any),
		subs: make(map[int]*subscriber),
	}
}

// Subscribe delivers the current snapshot at path synchronously, then again
// after every write or update that touches the path or its subtree.
func (s *Store) Subscribe(path string, onChange func(store.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscriber{id: id, path: path, onChange: onChange}
	snap := cloneSnapshot(s.nodeAt(path))
	s.mu.Unlock()

	onChange(snap)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Get reads the snapshot at path. Missing records come back nil.
func (s *Store) Get(path string) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.nodeAt(path)), nil
}

// Write fully replaces the value at path.
func (s *Store) Write(path string, value map[string]any) error {
	s.mu.Lock()
	resolved := store.ResolveTimestamps(value, s.serverNow())
	s.setNode(path, cloneSnapshot(resolved))
	subs := s.affected(path)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

// Update merges the named fields into the record at path, leaving siblings
// and child records untouched.
func (s *Store) Update(path string, fields map[string]any) error {
	s.mu.Lock()
	resolved := store.ResolveTimestamps(fields, s.serverNow())
	node := s.nodeAt(path)
	if node == nil {
		node = make(map[string]any)
		s.setNode(path, node)
	}
	for k, v := range resolved {
		if child, ok := v.(map[string]any); ok {
			node[k] = cloneSnapshot(child)
			continue
		}
		node[k] = v
	}
	subs := s.affected(path)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

// GenerateKey returns a push key: a zero-padded sequence number with a uuid
// fragment, so keys allocated later always sort later.
func (s *Store) GenerateKey(path string) string {
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()
	return fmt.Sprintf("%010d-%s", n, uuid.New().String()[:8])
}

// serverNow returns unix milliseconds, bumped to stay strictly increasing.
// Callers hold s.mu.
func (s *Store) serverNow() int64 {
	now := time.Now().UnixMilli()
	if now <= s.lastTS {
		now = s.lastTS + 1
	}
	s.lastTS = now
	return now
}

type pendingNotify struct {
	onChange func(store.Snapshot)
	snap     store.Snapshot
}

// affected collects the subscribers touched by a change at path together with
// their fresh snapshots. Callers hold s.mu.
func (s *Store) affected(path string) []pendingNotify {
	var out []pendingNotify
	for _, sub := range s.subs {
		if store.Related(path, sub.path) {
			out = append(out, pendingNotify{sub.onChange, cloneSnapshot(s.nodeAt(sub.path))})
		}
	}
	return out
}

func (s *Store) notify(subs []pendingNotify) {
	for _, p := range subs {
		p.onChange(p.snap)
	}
}

// nodeAt walks the tree to path. Returns nil when the path does not exist or
// a segment is a scalar. Callers hold s.mu.
func (s *Store) nodeAt(path string) map[string]any {
	node := s.root
	for _, seg := range store.SplitPath(path) {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// setNode replaces the value at path, creating intermediate branches.
// Callers hold s.mu.
func (s *Store) setNode(path string, value map[string]any) {
	segs := store.SplitPath(path)
	if len(segs) == 0 {
		s.root = value
		return
	}
	node := s.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

func cloneSnapshot(node map[string]any) store.Snapshot {
	if node == nil {
		return nil
	}
	out := make(map[string]any, len(node))
	for k, v := range node {
		if child, ok := v.(map[string]any); ok {
			out[k] = cloneSnapshot(child)
			continue
		}
		out[k] = v
	}
	return out
}
