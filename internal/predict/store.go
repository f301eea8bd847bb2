package predict

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"studentscore/internal/data"
	"studentscore/internal/features"
)

// Store holds the active pipeline for a directory of artifacts. If nothing is
// loaded yet, the next prediction tries to load it, so artifacts published
// after startup are picked up without a restart.
type Store struct {
	dir    string
	strict bool

	mu    sync.RWMutex
	cur   *Pipeline
	group singleflight.Group
}

func NewStore(dir string, strict bool) *Store {
	return &Store{dir: dir, strict: strict}
}

// Reload reads the artifacts from disk and swaps them in on success. A failed
// reload keeps the previous pipeline. Concurrent calls share one load.
func (s *Store) Reload() (*Pipeline, error) {
	v, err, _ := s.group.Do("load", func() (any, error) {
		p, err := Load(s.dir)
		if err != nil {
			return nil, err
		}
		p.Strict = s.strict
		s.mu.Lock()
		s.cur = p
		s.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pipeline), nil
}

func (s *Store) Current() (*Pipeline, error) {
	s.mu.RLock()
	p := s.cur
	s.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	return s.Reload()
}

func (s *Store) Predict(ctx context.Context, t *data.Table) ([]float64, error) {
	p, err := s.Current()
	if err != nil {
		return nil, err
	}
	return p.Predict(ctx, t)
}

func (s *Store) loaded() *Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) Ready() bool { return s.loaded().Ready() }

func (s *Store) ModelName() string { return s.loaded().ModelName() }

func (s *Store) Schema() features.Schema { return s.loaded().Schema() }
