package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/utils"
	"github.com/google/uuid"
)

const defaultTournamentName = "Swiss Tournament"

// Notifier рассылает события турнира (реализуется brackets.Hub).
type Notifier interface {
	BroadcastEvent(roomID, eventType string, payload interface{})
}

type TournamentServiceConfig struct {
	Room         string              // комната websocket для событий
	Rand         brackets.RandSource // nil - источник от текущего времени
	RandomRounds int                 // < 0 - brackets.DefaultRandomRounds
	Now          func() time.Time
}

type InitInput struct {
	Name                 string   `json:"name"`
	NumParticipants      int      `json:"num_participants"`
	NumPreliminaryRounds int      `json:"num_preliminary_rounds"`
	NumEliminationRounds int      `json:"num_elimination_rounds"`
	Names                []string `json:"names,omitempty"`
	SeedRanks            []int    `json:"seed_ranks,omitempty"`
	UseTieBreak          bool     `json:"use_tie_break"`
	Force                bool     `json:"force"`
}

type PairRoundResult struct {
	Round     int             `json:"round"`
	Generator string          `json:"generator"`
	Repaired  bool            `json:"repaired"`
	Matches   []*models.Match `json:"matches"`
}

type TournamentService interface {
	Init(ctx context.Context, input InitInput) (*models.TournamentState, error)
	PairRound(ctx context.Context, round int) (*PairRoundResult, error)
	ReportResult(ctx context.Context, input ReportInput) (*ReportOutcome, error)
	ReportBatch(ctx context.Context, r io.Reader, override bool) (*BatchReport, error)
	PendingMatches(ctx context.Context, round int) ([]*models.Match, error)
	Standings(ctx context.Context) ([]models.Standing, error)
	State(ctx context.Context) (*models.TournamentState, error)
	Export(ctx context.Context, results io.Writer, pairings io.Writer) error
	Reinit(ctx context.Context, input ReinitInput) (*models.TournamentState, error)
}

type tournamentService struct {
	// mu охраняет цикл загрузка -> изменение -> пересчёт -> сохранение.
	mu sync.Mutex

	repo        repositories.StateRepository
	swiss       brackets.RoundGenerator
	elimination brackets.RoundGenerator
	notifier    Notifier
	room        string
	logger      *slog.Logger
	now         func() time.Time
}

func NewTournamentService(
	repo repositories.StateRepository,
	notifier Notifier,
	logger *slog.Logger,
	cfg TournamentServiceConfig,
) TournamentService {
	rng := cfg.Rand
	if rng == nil {
		rng = brackets.NewTimeSeededRand()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		repo:        repo,
		swiss:       brackets.NewSwissGenerator(rng, cfg.RandomRounds),
		elimination: brackets.NewEliminationGenerator(rng),
		notifier:    notifier,
		room:        cfg.Room,
		logger:      logger,
		now:         cfg.Now,
	}
}

func (s *tournamentService) notify(eventType string, payload interface{}) {
	if s.notifier == nil || s.room == "" {
		return
	}
	s.notifier.BroadcastEvent(s.room, eventType, payload)
}

// load читает состояние и пересчитывает производные поля из журнала матчей.
// Вызывается под s.mu.
func (s *tournamentService) load(ctx context.Context) (*models.TournamentState, error) {
	state, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrStateNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament state: %w", err)
	}
	brackets.Recompute(state.Matches, state.Participants)
	return state, nil
}

// withState выполняет fn в критической секции и сохраняет состояние, если fn не вернула ошибку.
func (s *tournamentService) withState(ctx context.Context, fn func(state *models.TournamentState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	state.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save tournament state: %w", err)
	}
	return nil
}

func (s *tournamentService) readState(ctx context.Context) (*models.TournamentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// replaceState сохраняет новое состояние (init / reinit), не затирая существующее без force.
func (s *tournamentService) replaceState(ctx context.Context, state *models.TournamentState, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		if !force {
			return ErrTournamentExists
		}
	case errors.Is(err, repositories.ErrStateNotFound):
	default:
		if !force {
			return fmt.Errorf("failed to check existing tournament: %w", err)
		}
		s.logger.Warn("overwriting unreadable tournament state", slog.Any("error", err))
	}

	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save tournament state: %w", err)
	}
	return nil
}

func (s *tournamentService) Init(ctx context.Context, input InitInput) (*models.TournamentState, error) {
	state, err := s.newState(input.Name, models.TournamentConfig{
		NumParticipants:      input.NumParticipants,
		NumPreliminaryRounds: input.NumPreliminaryRounds,
		NumEliminationRounds: input.NumEliminationRounds,
		UseTieBreak:          input.UseTieBreak,
	}, input.Names, input.SeedRanks)
	if err != nil {
		return nil, err
	}

	if err := s.replaceState(ctx, state, input.Force); err != nil {
		return nil, err
	}

	s.logger.Info("tournament initialized",
		slog.String("tournament", state.ID),
		slog.Int("participants", state.Config.NumParticipants),
		slog.Int("preliminary_rounds", state.Config.NumPreliminaryRounds),
		slog.Int("elimination_rounds", state.Config.NumEliminationRounds),
	)
	s.notify(brackets.EventTournamentInitialized, state.Config)
	return state.Clone(), nil
}

func (s *tournamentService) newState(name string, cfg models.TournamentConfig, names []string, seedRanks []int) (*models.TournamentState, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(names) > cfg.NumParticipants {
		return nil, fmt.Errorf("%w: %d names given for %d participants", ErrValidationFailed, len(names), cfg.NumParticipants)
	}
	if len(seedRanks) != 0 && len(seedRanks) != cfg.NumParticipants {
		return nil, fmt.Errorf("%w: %d seed ranks given for %d participants", ErrValidationFailed, len(seedRanks), cfg.NumParticipants)
	}

	name = utils.NormalizeName(name)
	if name == "" {
		name = defaultTournamentName
	}

	now := s.now()
	state := &models.TournamentState{
		ID:           uuid.NewString(),
		Name:         name,
		Config:       cfg,
		RoundsPaired: []models.PairedRound{},
		Participants: make([]*models.Participant, 0, cfg.NumParticipants),
		Matches:      []*models.Match{},
		NextMatchID:  1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i := 0; i < cfg.NumParticipants; i++ {
		displayName := ""
		if i < len(names) {
			displayName = utils.NormalizeName(names[i])
		}
		if displayName == "" {
			displayName = fmt.Sprintf("Team %d", i+1)
		}
		seed := 0
		if len(seedRanks) > 0 {
			if seedRanks[i] < 0 {
				return nil, fmt.Errorf("%w: seed rank of participant %d is negative", ErrValidationFailed, i)
			}
			seed = seedRanks[i]
		}
		state.Participants = append(state.Participants, models.NewParticipant(i, displayName, seed))
	}
	return state, nil
}

func validateConfig(cfg models.TournamentConfig) error {
	switch {
	case cfg.NumParticipants < 2:
		return fmt.Errorf("%w: at least 2 participants are required, got %d", ErrValidationFailed, cfg.NumParticipants)
	case cfg.NumPreliminaryRounds < 0 || cfg.NumEliminationRounds < 0:
		return fmt.Errorf("%w: round counts must not be negative", ErrValidationFailed)
	case cfg.TotalRounds() < 1:
		return fmt.Errorf("%w: at least one round is required", ErrValidationFailed)
	case cfg.NumEliminationRounds > 0 && cfg.BracketSize() > cfg.NumParticipants:
		return fmt.Errorf("%w: %d elimination rounds need %d participants, have %d",
			ErrValidationFailed, cfg.NumEliminationRounds, cfg.BracketSize(), cfg.NumParticipants)
	}
	return nil
}

func (s *tournamentService) State(ctx context.Context) (*models.TournamentState, error) {
	return s.readState(ctx)
}

func (s *tournamentService) Standings(ctx context.Context) ([]models.Standing, error) {
	state, err := s.readState(ctx)
	if err != nil {
		return nil, err
	}
	return brackets.BuildStandings(state.Participants), nil
}

// PendingMatches возвращает матчи раунда без результата.
func (s *tournamentService) PendingMatches(ctx context.Context, round int) ([]*models.Match, error) {
	state, err := s.readState(ctx)
	if err != nil {
		return nil, err
	}
	if round < 1 || round > state.PairedRoundCount() {
		return nil, fmt.Errorf("%w: round %d has not been paired", ErrValidationFailed, round)
	}
	var pending []*models.Match
	for _, m := range state.RoundMatches(round) {
		if !m.IsReported() {
			pending = append(pending, m)
		}
	}
	return pending, nil
}
