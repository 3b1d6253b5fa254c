package permstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Service is the single owner of the in-memory permission state. Every
// mutation is persisted to the backing Store before it becomes visible; a
// failed persist leaves the visible state unchanged.
type Service struct {
	Logger *slog.Logger

	mu    sync.RWMutex
	store Store
	cur   *PermissionSet
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Logger: logger, store: store}
}

// Load reads the latest snapshot from the backing store. Must be called once
// before the predicates are used.
func (s *Service) Load(ctx context.Context) error {
	p, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading permissions: %w", err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("loaded permissions unusable: %w", err)
	}
	s.mu.Lock()
	s.cur = p
	s.mu.Unlock()
	s.Logger.Info("permissions loaded", "owners", len(p.Owner), "admins", len(p.Admin), "editors", len(p.Editor), "patrol", len(p.Patrol))
	return nil
}

// Bootstrap seeds an empty store with an initial owner. No-op when the store
// already has a snapshot.
func (s *Service) Bootstrap(ctx context.Context, ownerID string) error {
	_, err := s.store.Load(ctx)
	if err == nil {
		return nil
	}
	if err != ErrEmpty {
		return err
	}
	p := &PermissionSet{Owner: []string{ownerID}}
	if err := s.store.Append(ctx, p); err != nil {
		return fmt.Errorf("seeding permissions: %w", err)
	}
	s.Logger.Info("seeded permission store", "owner", ownerID)
	return nil
}

func (s *Service) IsOwner(id string) bool  { return s.snapshot().IsOwner(id) }
func (s *Service) IsAdmin(id string) bool  { return s.snapshot().IsAdmin(id) }
func (s *Service) IsEditor(id string) bool { return s.snapshot().IsEditor(id) }
func (s *Service) IsPatrol(id string) bool { return s.snapshot().IsPatrol(id) }

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() PermissionSet {
	return *s.snapshot().Clone()
}

func (s *Service) snapshot() *PermissionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		// predicates before Load() deny everything
		return &PermissionSet{}
	}
	return s.cur
}

// Patrol returns the patrol member ids, for alert pings.
func (s *Service) Patrol() []string {
	return s.Snapshot().Patrol
}

// Whitelist returns the classifier-match whitelist.
func (s *Service) Whitelist() []string {
	return s.Snapshot().Whitelist
}

// FalseTriggers returns the pre-submission scrub phrases.
func (s *Service) FalseTriggers() []string {
	return s.Snapshot().FalseTriggers
}

// Grant adds id to role, persisting before the change is visible. Reports
// false when the id already had the role.
func (s *Service) Grant(ctx context.Context, role Role, id string) (bool, error) {
	return s.mutate(ctx, func(p *PermissionSet) (bool, error) {
		return p.Grant(role, id)
	})
}

// Deny removes id from role. The last owner may not be removed.
func (s *Service) Deny(ctx context.Context, role Role, id string) (bool, error) {
	return s.mutate(ctx, func(p *PermissionSet) (bool, error) {
		return p.Deny(role, id)
	})
}

// AddWhitelist records a word the classifier flags but which is acceptable.
func (s *Service) AddWhitelist(ctx context.Context, word string) (bool, error) {
	return s.mutate(ctx, func(p *PermissionSet) (bool, error) {
		for _, w := range p.Whitelist {
			if w == word {
				return false, nil
			}
		}
		p.Whitelist = append(p.Whitelist, word)
		return true, nil
	})
}

// AddFalseTrigger records a phrase that causes false classifier hits.
func (s *Service) AddFalseTrigger(ctx context.Context, phrase string) (bool, error) {
	return s.mutate(ctx, func(p *PermissionSet) (bool, error) {
		for _, w := range p.FalseTriggers {
			if w == phrase {
				return false, nil
			}
		}
		p.FalseTriggers = append(p.FalseTriggers, phrase)
		return true, nil
	})
}

func (s *Service) mutate(ctx context.Context, fn func(*PermissionSet) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return false, fmt.Errorf("permissions not loaded")
	}
	next := s.cur.Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return changed, err
	}
	if err := s.store.Append(ctx, next); err != nil {
		return false, fmt.Errorf("persisting permissions: %w", err)
	}
	s.cur = next
	return true, nil
}
