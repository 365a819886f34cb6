package store

import "github.com/google/uuid"

// Disabled is the degraded-mode store used when the backend is not configured
// (missing DSN or credentials). Reads yield empty snapshots, writes fail with
// ErrUnavailable, and subscriptions deliver a single empty snapshot so views
// can render their unavailable state instead of throwing.
type Disabled struct{}

func (Disabled) Subscribe(path string, onChange func(Snapshot)) func() {
	onChange(nil)
	return func() {}
}

func (Disabled) Get(path string) (Snapshot, error) { return nil, nil }

func (Disabled) Write(path string, value map[string]any) error { return ErrUnavailable }

func (Disabled) Update(path string, fields map[string]any) error { return ErrUnavailable }

// GenerateKey still hands out keys so optimistic local state can be keyed;
// the write that would persist the record fails instead.
func (Disabled) GenerateKey(path string) string { return uuid.New().String() }
