package repositories

import (
	"context"
	"errors"
	"sync"

	"github.com/Dosada05/swiss-tournament/models"
)

var ErrStateNotFound = errors.New("tournament state not found")

// StateRepository хранит одно состояние турнира целиком.
type StateRepository interface {
	// Load возвращает ErrStateNotFound, если турнир ещё не создан.
	Load(ctx context.Context) (*models.TournamentState, error)
	Save(ctx context.Context, state *models.TournamentState) error
}

type memoryStateRepository struct {
	mu    sync.Mutex
	state *models.TournamentState
}

// NewMemoryStateRepository - репозиторий в памяти (тесты, dry-run).
func NewMemoryStateRepository() StateRepository {
	return &memoryStateRepository{}
}

func (r *memoryStateRepository) Load(ctx context.Context) (*models.TournamentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, ErrStateNotFound
	}
	return r.state.Clone(), nil
}

func (r *memoryStateRepository) Save(ctx context.Context, state *models.TournamentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.Clone()
	return nil
}
