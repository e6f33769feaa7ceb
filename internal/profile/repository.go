package profile

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"orvex/internal/domain"
)

// Repository loads customer profiles from a YAML store. Profiles are
// read-mostly: the parsed store is cached and refreshed on a TTL, so a
// stale read can survive for at most one in-flight request.
type Repository struct {
	path string
	ttl  time.Duration

	mu       sync.RWMutex
	profiles map[string]*domain.CustomerProfile
	loadedAt time.Time
}

// NewRepository creates a YAML-backed profile repository.
func NewRepository(path string, cacheTTL time.Duration) *Repository {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Repository{path: path, ttl: cacheTTL}
}

// Load resolves a profile by id. An empty id or a lookup miss degrades
// to the default profile with a warning; Load only fails when the
// store itself is unreadable on first use.
func (r *Repository) Load(ctx context.Context, profileID string) (*domain.CustomerProfile, error) {
	profiles, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	key := profileID
	if key == "" {
		key = domain.DefaultProfileID
	}
	if _, ok := profiles[key]; !ok {
		if key != domain.DefaultProfileID {
			log.Printf("profile.Repository: profile %q not found, falling back to default", key)
		}
		key = domain.DefaultProfileID
	}
	if p, ok := profiles[key]; ok {
		return p, nil
	}
	// Store has no default entry either; synthesize an empty one so
	// the pipeline can still run.
	return &domain.CustomerProfile{ID: domain.DefaultProfileID}, nil
}

// snapshot returns the cached profile map, reloading when the TTL has
// expired.
func (r *Repository) snapshot() (map[string]*domain.CustomerProfile, error) {
	r.mu.RLock()
	if r.profiles != nil && time.Since(r.loadedAt) < r.ttl {
		profiles := r.profiles
		r.mu.RUnlock()
		return profiles, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profiles != nil && time.Since(r.loadedAt) < r.ttl {
		return r.profiles, nil
	}

	loaded, err := readStore(r.path)
	if err != nil {
		if r.profiles != nil {
			// Keep serving the stale snapshot; the store may be mid-rewrite.
			log.Printf("profile.Repository: reload failed, serving cached profiles: %v", err)
			return r.profiles, nil
		}
		return nil, err
	}
	r.profiles = loaded
	r.loadedAt = time.Now()
	return r.profiles, nil
}

func readStore(path string) (map[string]*domain.CustomerProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("profile.Repository: store %s not found, using empty profile map", path)
			return map[string]*domain.CustomerProfile{}, nil
		}
		return nil, fmt.Errorf("reading profile store: %w", err)
	}

	var store map[string]*domain.CustomerProfile
	if err := yaml.Unmarshal(raw, &store); err != nil {
		return nil, fmt.Errorf("parsing profile store: %w", err)
	}

	for id, p := range store {
		if p == nil {
			p = &domain.CustomerProfile{}
			store[id] = p
		}
		p.ID = id
		for formID, form := range p.Forms {
			form.ID = formID
			p.Forms[formID] = form
		}
	}
	return store, nil
}
