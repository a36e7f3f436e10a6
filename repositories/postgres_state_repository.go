package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

type postgresStateRepository struct {
	db   *sql.DB
	slug string
}

// NewPostgresStateRepository хранит турнир с ключом slug в таблицах tournaments/participants/matches.
func NewPostgresStateRepository(db *sql.DB, slug string) StateRepository {
	return &postgresStateRepository{db: db, slug: slug}
}

func (r *postgresStateRepository) Load(ctx context.Context) (*models.TournamentState, error) {
	state := &models.TournamentState{}
	var roundsPaired []byte

	query := `
		SELECT id, name, num_participants, num_preliminary_rounds, num_elimination_rounds, use_tie_break,
		       current_round, next_match_id, rounds_paired, created_at, updated_at
		FROM tournaments
		WHERE slug = $1`
	err := r.db.QueryRowContext(ctx, query, r.slug).Scan(
		&state.ID, &state.Name,
		&state.Config.NumParticipants, &state.Config.NumPreliminaryRounds, &state.Config.NumEliminationRounds,
		&state.Config.UseTieBreak, &state.CurrentRound, &state.NextMatchID, &roundsPaired,
		&state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", r.slug, err)
	}
	if err := json.Unmarshal(roundsPaired, &state.RoundsPaired); err != nil {
		return nil, fmt.Errorf("failed to decode rounds_paired: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := r.listParticipants(gCtx, r.db)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		state.Participants = participants
		return nil
	})
	g.Go(func() error {
		matches, err := r.listMatches(gCtx, r.db)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		state.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return state, nil
}

func (r *postgresStateRepository) listParticipants(ctx context.Context, exec SQLExecutor) ([]*models.Participant, error) {
	query := `
		SELECT participant_id, display_name, seed_rank, score, tie_break_score, win_count,
		       role_a_count, role_b_count, last_role, role_history, result_history, opponent_history
		FROM participants
		WHERE tournament_slug = $1
		ORDER BY participant_id`
	rows, err := exec.QueryContext(ctx, query, r.slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		var lastRole string
		var roleHistory, resultHistory, opponentHistory []byte
		if err := rows.Scan(
			&p.ID, &p.DisplayName, &p.SeedRank, &p.Score, &p.TieBreakScore, &p.WinCount,
			&p.RoleACount, &p.RoleBCount, &lastRole, &roleHistory, &resultHistory, &opponentHistory,
		); err != nil {
			return nil, err
		}
		p.LastRole = models.Role(lastRole)
		if err := json.Unmarshal(roleHistory, &p.RoleHistory); err != nil {
			return nil, fmt.Errorf("participant %d role_history: %w", p.ID, err)
		}
		if err := json.Unmarshal(resultHistory, &p.ResultHistory); err != nil {
			return nil, fmt.Errorf("participant %d result_history: %w", p.ID, err)
		}
		if err := json.Unmarshal(opponentHistory, &p.OpponentHistory); err != nil {
			return nil, fmt.Errorf("participant %d opponent_history: %w", p.ID, err)
		}
		if p.RoleHistory == nil {
			p.RoleHistory = make(map[int][]models.Role)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresStateRepository) listMatches(ctx context.Context, exec SQLExecutor) ([]*models.Match, error) {
	query := `
		SELECT match_id, round_number, role_a_id, role_b_id, result, superseded, judge_id, speaker_points
		FROM matches
		WHERE tournament_slug = $1
		ORDER BY round_number, match_id`
	rows, err := exec.QueryContext(ctx, query, r.slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m := &models.Match{}
		var result sql.NullString
		var speakerPoints []byte
		if err := rows.Scan(
			&m.ID, &m.RoundNumber, &m.RoleAParticipantID, &m.RoleBParticipantID, &result, &m.Superseded,
			&m.JudgeID, &speakerPoints,
		); err != nil {
			return nil, err
		}
		if result.Valid {
			m.SetResult(models.Outcome(result.String))
		}
		if speakerPoints != nil {
			if err := json.Unmarshal(speakerPoints, &m.SpeakerPoints); err != nil {
				return nil, fmt.Errorf("match %d speaker_points: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Save перезаписывает турнир целиком в одной транзакции.
func (r *postgresStateRepository) Save(ctx context.Context, state *models.TournamentState) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	roundsPaired, err := json.Marshal(state.RoundsPaired)
	if err != nil {
		return fmt.Errorf("failed to encode rounds_paired: %w", err)
	}

	upsert := `
		INSERT INTO tournaments (
			slug, id, name, num_participants, num_preliminary_rounds, num_elimination_rounds,
			use_tie_break, current_round, next_match_id, rounds_paired, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (slug) DO UPDATE SET
			id = EXCLUDED.id,
			name = EXCLUDED.name,
			num_participants = EXCLUDED.num_participants,
			num_preliminary_rounds = EXCLUDED.num_preliminary_rounds,
			num_elimination_rounds = EXCLUDED.num_elimination_rounds,
			use_tie_break = EXCLUDED.use_tie_break,
			current_round = EXCLUDED.current_round,
			next_match_id = EXCLUDED.next_match_id,
			rounds_paired = EXCLUDED.rounds_paired,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`
	result, err := tx.ExecContext(ctx, upsert,
		r.slug, state.ID, state.Name,
		state.Config.NumParticipants, state.Config.NumPreliminaryRounds, state.Config.NumEliminationRounds,
		state.Config.UseTieBreak, state.CurrentRound, state.NextMatchID, roundsPaired,
		state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament %s: %w", r.slug, err)
	}
	if err = checkAffectedRows(result, fmt.Errorf("tournament %s was not written", r.slug)); err != nil {
		return err
	}

	if err = r.replaceParticipants(ctx, tx, state.Participants); err != nil {
		return err
	}
	if err = r.replaceMatches(ctx, tx, state.Matches); err != nil {
		return err
	}
	return nil
}

func (r *postgresStateRepository) replaceParticipants(ctx context.Context, tx *sql.Tx, participants []*models.Participant) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE tournament_slug = $1`, r.slug); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("participants",
		"tournament_slug", "participant_id", "display_name", "seed_rank", "score", "tie_break_score",
		"win_count", "role_a_count", "role_b_count", "last_role", "role_history", "result_history", "opponent_history",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare participants copy: %w", err)
	}
	defer stmt.Close()

	for _, p := range participants {
		roleHistory, err := json.Marshal(p.RoleHistory)
		if err != nil {
			return err
		}
		resultHistory, err := json.Marshal(p.ResultHistory)
		if err != nil {
			return err
		}
		opponentHistory, err := json.Marshal(p.OpponentHistory)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.slug, p.ID, p.DisplayName, p.SeedRank, p.Score, p.TieBreakScore,
			p.WinCount, p.RoleACount, p.RoleBCount, string(p.LastRole),
			string(roleHistory), string(resultHistory), string(opponentHistory),
		); err != nil {
			return fmt.Errorf("failed to copy participant %d: %w", p.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush participants copy: %w", err)
	}
	return nil
}

func (r *postgresStateRepository) replaceMatches(ctx context.Context, tx *sql.Tx, matches []*models.Match) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE tournament_slug = $1`, r.slug); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("matches",
		"tournament_slug", "match_id", "round_number", "role_a_id", "role_b_id", "result", "superseded",
		"judge_id", "speaker_points",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare matches copy: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		var result sql.NullString
		if m.Result != nil {
			result = sql.NullString{String: string(*m.Result), Valid: true}
		}
		var speakerPoints sql.NullString
		if len(m.SpeakerPoints) > 0 {
			encoded, err := json.Marshal(m.SpeakerPoints)
			if err != nil {
				return err
			}
			speakerPoints = sql.NullString{String: string(encoded), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			r.slug, m.ID, m.RoundNumber, m.RoleAParticipantID, m.RoleBParticipantID, result, m.Superseded,
			m.JudgeID, speakerPoints,
		); err != nil {
			return fmt.Errorf("failed to copy match %d: %w", m.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush matches copy: %w", err)
	}
	return nil
}
