// Package storage is the production store.Store: record trees persisted as
// one PostgreSQL row per path, with Redis pub/sub fanning change
// notifications out to every server process holding a subscription.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"brewhaus/backend/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Node is one record in the realtime tree: the slash-joined path and the
// record's fields as JSON.
type Node struct {
	Path      string `gorm:"primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// Service implements store.Store over PostgreSQL + Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context

	mu      sync.Mutex
	lastTS  int64
	counter uint64
}

// NewService wires the production store. Redis may be nil, in which case
// subscriptions deliver the initial snapshot only (single-process mode).
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// channelFor maps a path to its fan-out channel, one per top-level
// collection ("store:chats", "store:reviews").
func channelFor(path string) string {
	segs := store.SplitPath(path)
	if len(segs) == 0 {
		return "store:root"
	}
	return "store:" + segs[0]
}

// Subscribe delivers the current snapshot, then re-reads and re-delivers the
// subtree every time a related change is published. The unsubscribe func
// closes the Redis subscription, which ends the pump goroutine.
func (s *Service) Subscribe(path string, onChange func(store.Snapshot)) func() {
	snap, err := s.assemble(path)
	if err != nil {
		log.Printf("ERROR: initial snapshot for %s: %v", path, err)
		snap = nil
	}
	onChange(snap)

	if s.Redis == nil {
		log.Printf("WARNING: no Redis configured, subscription to %s is static", path)
		return func() {}
	}

	pubsub := s.Redis.Subscribe(s.Ctx, channelFor(path))
	go func() {
		for msg := range pubsub.Channel() {
			if !store.Related(msg.Payload, path) {
				continue
			}
			snap, err := s.assemble(path)
			if err != nil {
				log.Printf("ERROR: snapshot for %s: %v", path, err)
				continue
			}
			onChange(snap)
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			log.Printf("ERROR: closing subscription to %s: %v", path, err)
		}
	}
}

// Get reads the snapshot at path. Missing records come back nil.
func (s *Service) Get(path string) (store.Snapshot, error) {
	return s.assemble(path)
}

// Write fully replaces the record at path, dropping descendant rows.
func (s *Service) Write(path string, value map[string]any) error {
	resolved := store.ResolveTimestamps(value, s.serverNow())
	raw, err := json.Marshal(resolved)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", path, err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("path LIKE ?", path+"/%").Delete(&Node{}).Error; err != nil {
			return err
		}
		node := Node{Path: path, Value: string(raw)}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&node).Error
	})
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}

	s.publish(path)
	return nil
}

// Update merges the named fields into the record at path. Sibling fields and
// descendant rows stay untouched.
func (s *Service) Update(path string, fields map[string]any) error {
	resolved := store.ResolveTimestamps(fields, s.serverNow())

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var node Node
		current := make(map[string]any)
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("path = ?", path).First(&node).Error
		switch {
		case err == nil:
			if uerr := json.Unmarshal([]byte(node.Value), &current); uerr != nil {
				log.Printf("WARNING: malformed record at %s replaced on update", path)
				current = make(map[string]any)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Updating a missing record creates it with just these fields.
		default:
			return err
		}

		for k, v := range resolved {
			current[k] = v
		}
		raw, merr := json.Marshal(current)
		if merr != nil {
			return merr
		}
		node.Path = path
		node.Value = string(raw)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&node).Error
	})
	if err != nil {
		return fmt.Errorf("storage: update %s: %w", path, err)
	}

	s.publish(path)
	return nil
}

// GenerateKey returns a push key that sorts by allocation order within this
// process. Cross-process ordering rides on the timestamp fields, not keys.
func (s *Service) GenerateKey(path string) string {
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()
	return fmt.Sprintf("%013d-%010d", time.Now().UnixMilli(), n)
}

func (s *Service) publish(path string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Publish(s.Ctx, channelFor(path), path).Err(); err != nil {
		log.Printf("ERROR: publishing change at %s: %v", path, err)
	}
}

// serverNow returns unix milliseconds, bumped to stay strictly increasing
// within this process.
func (s *Service) serverNow() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.lastTS {
		now = s.lastTS + 1
	}
	s.lastTS = now
	return now
}

// assemble rebuilds the subtree snapshot at prefix from its rows. Rows with
// malformed JSON decode to "no record" rather than failing the snapshot.
func (s *Service) assemble(prefix string) (store.Snapshot, error) {
	var rows []Node
	err := s.DB.Where("path = ? OR path LIKE ?", prefix, prefix+"/%").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", prefix, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Parents before children so field rows land before their subtrees.
	sort.Slice(rows, func(i, j int) bool {
		return strings.Count(rows[i].Path, "/") < strings.Count(rows[j].Path, "/")
	})

	root := make(map[string]any)
	for _, row := range rows {
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(row.Value), &fields); err != nil {
			log.Printf("WARNING: skipping malformed record at %s", row.Path)
			continue
		}
		target := root
		if row.Path != prefix {
			rel := strings.TrimPrefix(row.Path, prefix+"/")
			for _, seg := range store.SplitPath(rel) {
				child, ok := target[seg].(map[string]any)
				if !ok {
					child = make(map[string]any)
					target[seg] = child
				}
				target = child
			}
		}
		for k, v := range fields {
			target[k] = v
		}
	}
	return root, nil
}
