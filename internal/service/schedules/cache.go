package schedules

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"medisched/internal/domain"
	"medisched/internal/store"
)

// clinicCache keeps recently resolved clinics in memory. Clinics are
// reference data that every schedule validation touches; the LRU bound
// caps how much of the clinic list is held at once.
type clinicCache struct {
	repo  store.ScheduleRepository
	cache *lru.Cache[string, domain.Clinic]
	mu    sync.Mutex
}

func newClinicCache(repo store.ScheduleRepository, size int) (*clinicCache, error) {
	cache, err := lru.New[string, domain.Clinic](size)
	if err != nil {
		return nil, err
	}
	return &clinicCache{repo: repo, cache: cache}, nil
}

func (c *clinicCache) Get(ctx context.Context, clinicID string) (domain.Clinic, error) {
	c.mu.Lock()
	clinic, ok := c.cache.Get(clinicID)
	c.mu.Unlock()
	if ok {
		return clinic, nil
	}

	clinic, err := c.repo.GetClinicByID(ctx, clinicID)
	if err != nil {
		return domain.Clinic{}, err
	}

	c.mu.Lock()
	c.cache.Add(clinicID, clinic)
	c.mu.Unlock()
	return clinic, nil
}
