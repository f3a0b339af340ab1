package memory

import (
	"time"

	"socratic-tutor-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// AssignmentCache keeps recently read assignments. Assignments change rarely
// and every turn needs the submission window, so a short TTL is enough.
type AssignmentCache struct {
	cache *cache.Cache
}

func NewAssignmentCache(ttl time.Duration) *AssignmentCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AssignmentCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *AssignmentCache) Save(assignment *entity.Assignment) {
	r.cache.Set(assignment.Id.String(), assignment, cache.DefaultExpiration)
}

func (r *AssignmentCache) Get(id uuid.UUID) (*entity.Assignment, bool) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*entity.Assignment), true
	}
	return nil, false
}

func (r *AssignmentCache) Delete(id uuid.UUID) {
	r.cache.Delete(id.String())
}
