package usecase

import (
	"time"

	svccache "FinRisk/internal/service/cache"

	"github.com/google/uuid"
)

// BoardRegistry holds live boards. Boards idle for longer than ttl expire.
type BoardRegistry struct {
	boards *svccache.TTLCache[*Board]
	ttl    time.Duration
	steps  int
	now    func() time.Time
}

func NewBoardRegistry(steps int, ttl time.Duration) *BoardRegistry {
	return &BoardRegistry{boards: svccache.NewTTLCache[*Board](), ttl: ttl, steps: steps, now: time.Now}
}

// Create registers a new empty board.
func (r *BoardRegistry) Create() *Board {
	b := newBoard(uuid.NewString(), r.steps, r.now)
	r.boards.Set(b.ID, b, r.ttl)
	return b
}

func (r *BoardRegistry) Get(id string) (*Board, error) {
	b, ok := r.boards.Get(id)
	if !ok {
		return nil, ErrBoardNotFound
	}
	return b, nil
}

func (r *BoardRegistry) Remove(id string) error {
	b, ok := r.boards.Delete(id)
	if !ok {
		return ErrBoardNotFound
	}
	b.close()
	return nil
}

// Active returns all boards that have not expired.
func (r *BoardRegistry) Active() []*Board { return r.boards.Values() }

// Sweep closes and drops expired boards, returning how many were removed.
func (r *BoardRegistry) Sweep() int {
	expired := r.boards.Sweep()
	for _, b := range expired {
		b.close()
	}
	return len(expired)
}

func (r *BoardRegistry) Len() int { return r.boards.Len() }
