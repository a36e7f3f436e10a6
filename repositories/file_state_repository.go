package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Dosada05/swiss-tournament/models"
)

type fileStateRepository struct {
	path string
}

// NewFileStateRepository хранит состояние в JSON-файле.
func NewFileStateRepository(path string) StateRepository {
	return &fileStateRepository{path: path}
}

func (r *fileStateRepository) Load(ctx context.Context) (*models.TournamentState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", r.path, err)
	}
	return decodeState(data)
}

// Save пишет во временный файл рядом и переименовывает его, чтобы не оставить полузаписанный JSON.
func (r *fileStateRepository) Save(ctx context.Context, state *models.TournamentState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", r.path, err)
	}
	return nil
}

func encodeState(state *models.TournamentState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tournament state: %w", err)
	}
	return append(data, '\n'), nil
}

func decodeState(data []byte) (*models.TournamentState, error) {
	var state models.TournamentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode tournament state: %w", err)
	}
	for _, p := range state.Participants {
		if p.RoleHistory == nil {
			p.RoleHistory = make(map[int][]models.Role)
		}
	}
	return &state, nil
}
