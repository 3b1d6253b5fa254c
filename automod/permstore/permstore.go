package permstore

import (
	"context"
	"errors"
)

// ErrEmpty indicates the backing log has no entries yet.
var ErrEmpty = errors.New("permission store is empty")

// Store is the persistence channel for permission snapshots: an append-only
// log where Load returns the most recent entry.
type Store interface {
	Load(ctx context.Context) (*PermissionSet, error)
	Append(ctx context.Context, p *PermissionSet) error
}

// MemStore keeps the log in memory. For tests.
type MemStore struct {
	Log []*PermissionSet
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load(ctx context.Context) (*PermissionSet, error) {
	if len(s.Log) == 0 {
		return nil, ErrEmpty
	}
	return s.Log[len(s.Log)-1].Clone(), nil
}

func (s *MemStore) Append(ctx context.Context, p *PermissionSet) error {
	s.Log = append(s.Log, p.Clone())
	return nil
}
