package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/storage"
)

type objectStateRepository struct {
	store storage.ObjectStorage
	key   string
}

// StateObjectKey - ключ объекта с состоянием турнира.
func StateObjectKey(slug string) string {
	return fmt.Sprintf("tournaments/%s.json", slug)
}

// NewObjectStateRepository хранит состояние JSON-объектом в R2/S3.
func NewObjectStateRepository(store storage.ObjectStorage, slug string) StateRepository {
	return &objectStateRepository{store: store, key: StateObjectKey(slug)}
}

func (r *objectStateRepository) Load(ctx context.Context) (*models.TournamentState, error) {
	data, err := r.store.Download(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return decodeState(data)
}

func (r *objectStateRepository) Save(ctx context.Context, state *models.TournamentState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if _, err := r.store.Upload(ctx, r.key, "application/json", bytes.NewReader(data)); err != nil {
		return err
	}
	return nil
}
