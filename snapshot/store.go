package snapshot

import (
	"context"
	"fmt"
	"sync"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// Loader reads the full mutable policy state.
type Loader interface {
	Load(ctx context.Context) (model.PolicyState, error)
}

// PolicyStore is the single-writer source of truth for catalog, rules and
// revocations. Consumers read it only through published snapshots.
type PolicyStore interface {
	Loader
	PutService(ctx context.Context, entry model.CatalogEntry) error
	DeleteService(ctx context.Context, name string) error
	PutRule(ctx context.Context, rule model.AccessRule) error
	DeleteRule(ctx context.Context, id string) error
	AddRevocation(ctx context.Context, subject string) error
	RemoveRevocation(ctx context.Context, subject string) error
}

// MemoryStore keeps policy state in process.
type MemoryStore struct {
	mu          sync.RWMutex
	catalog     map[string]model.CatalogEntry
	rules       map[string]model.AccessRule
	revocations map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		catalog:     make(map[string]model.CatalogEntry),
		rules:       make(map[string]model.AccessRule),
		revocations: make(map[string]struct{}),
	}
}

// Seed loads initial state into an empty store.
func Seed(ctx context.Context, store PolicyStore, state model.PolicyState) error {
	for _, entry := range state.Catalog {
		if err := store.PutService(ctx, entry); err != nil {
			return fmt.Errorf("seed service %s: %w", entry.ServiceName, err)
		}
	}
	for _, rule := range state.AccessRules {
		if err := store.PutRule(ctx, rule); err != nil {
			return fmt.Errorf("seed rule %s: %w", rule.ID, err)
		}
	}
	for _, subject := range state.Revocations {
		if err := store.AddRevocation(ctx, subject); err != nil {
			return fmt.Errorf("seed revocation: %w", err)
		}
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (model.PolicyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := model.PolicyState{
		Catalog:     make(map[string]model.CatalogEntry, len(s.catalog)),
		AccessRules: make([]model.AccessRule, 0, len(s.rules)),
		Revocations: make([]string, 0, len(s.revocations)),
	}
	for name, entry := range s.catalog {
		state.Catalog[name] = entry.Clone()
	}
	for _, rule := range s.rules {
		state.AccessRules = append(state.AccessRules, rule.Clone())
	}
	for subject := range s.revocations {
		state.Revocations = append(state.Revocations, subject)
	}
	return state, nil
}

func (s *MemoryStore) PutService(_ context.Context, entry model.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[entry.ServiceName] = entry.Clone()
	return nil
}

func (s *MemoryStore) DeleteService(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalog[name]; !ok {
		return gw_errors.ErrServiceNotFound
	}
	delete(s.catalog, name)
	return nil
}

func (s *MemoryStore) PutRule(_ context.Context, rule model.AccessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule.Clone()
	return nil
}

func (s *MemoryStore) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return gw_errors.ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *MemoryStore) AddRevocation(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revocations[subject] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveRevocation(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.revocations, subject)
	return nil
}
