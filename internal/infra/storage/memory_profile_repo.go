package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/policechief/server/internal/domain/profile"
)

// MemoryProfileRepository is an in-memory ProfileRepository used by tests and
// the offline simulation harness. Stored profiles are cloned on the way in
// and out so callers never share mutable state with the store.
type MemoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile

	// FailNext makes the next N calls fail. Exercises retry paths.
	FailNext int
	// failErr is returned while FailNext is positive.
	FailErr error
}

// NewMemoryProfileRepository creates an empty in-memory repository.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]*profile.Profile)}
}

func (r *MemoryProfileRepository) failing() error {
	if r.FailNext > 0 {
		r.FailNext--
		if r.FailErr != nil {
			return r.FailErr
		}
		return errors.New("storage: unavailable")
	}
	return nil
}

// Load retrieves a profile by id.
func (r *MemoryProfileRepository) Load(ctx context.Context, profileID string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing(); err != nil {
		return nil, err
	}
	p, ok := r.profiles[profileID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// Create inserts a fresh profile with default starting resources.
func (r *MemoryProfileRepository) Create(ctx context.Context, profileID string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing(); err != nil {
		return nil, err
	}
	p := profile.NewProfile(profileID)
	r.profiles[profileID] = p.Clone()
	return p, nil
}

// Save persists the full profile state.
func (r *MemoryProfileRepository) Save(ctx context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing(); err != nil {
		return err
	}
	if _, ok := r.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	r.profiles[p.ID] = p.Clone()
	return nil
}

// ListAutomationEnabled returns ids of profiles with automation switched on.
func (r *MemoryProfileRepository) ListAutomationEnabled(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing(); err != nil {
		return nil, err
	}
	var ids []string
	for id, p := range r.profiles {
		if p.AutomationEnabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Seed stores a profile directly. Test helper.
func (r *MemoryProfileRepository) Seed(p *profile.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p.Clone()
}
