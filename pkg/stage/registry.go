package stage

import (
	"fmt"
	"sort"
	"sync"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/pkg/dialogue"
)

// Registry maps each stage to exactly one handler. It is filled once at
// startup and only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[dialogue.Stage]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[dialogue.Stage]Handler)}
}

func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := h.Stage()
	if _, exists := r.handlers[st]; exists {
		return fmt.Errorf("%w: %s", apperror.ErrDuplicateRegistration, st)
	}
	r.handlers[st] = h
	return nil
}

func (r *Registry) Get(st dialogue.Stage) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[st]
	return h, ok
}

func (r *Registry) Has(st dialogue.Stage) bool {
	_, ok := r.Get(st)
	return ok
}

// Stages lists registered stages in forward order.
func (r *Registry) Stages() []dialogue.Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dialogue.Stage, 0, len(r.handlers))
	for st := range r.handlers {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

// DefaultRegistry wires the five dialogue stages.
func DefaultRegistry() (*Registry, error) {
	stance := &StanceHandler{}
	r := NewRegistry()
	for _, h := range []Handler{
		&StartHandler{Stance: stance},
		stance,
		&ChallengeHandler{},
		&PrincipleHandler{},
		&ClosureHandler{},
	} {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}
