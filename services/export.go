package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
)

// Export пишет файл результатов (формат пакетного ввода, баи и незаполненные матчи пропускаются)
// и файл пар "Round MatchID RoleAID RoleBID" с именами в комментариях. Оба файла можно
// загрузить обратно через Reinit.
func (s *tournamentService) Export(ctx context.Context, results io.Writer, pairings io.Writer) error {
	state, err := s.readState(ctx)
	if err != nil {
		return err
	}
	if results != nil {
		if err := WriteResults(results, state); err != nil {
			return fmt.Errorf("failed to export results: %w", err)
		}
	}
	if pairings != nil {
		if err := WritePairings(pairings, state); err != nil {
			return fmt.Errorf("failed to export pairings: %w", err)
		}
	}
	return nil
}

func WriteResults(w io.Writer, state *models.TournamentState) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Results: %s\n", state.Name)
	fmt.Fprintln(bw, "# Format: Round MatchID RoleAID RoleBID Outcome (A = role A wins, N = role B wins)")
	for _, m := range state.ActiveMatches() {
		if m.IsBye() || !m.IsReported() {
			continue
		}
		fmt.Fprintf(bw, "%d %d %d %d %s\n", m.RoundNumber, m.ID, m.RoleAParticipantID, m.RoleBParticipantID, m.Result.Token())
	}
	return bw.Flush()
}

func WritePairings(w io.Writer, state *models.TournamentState) error {
	name := func(id int) string {
		if p := state.ParticipantByID(id); p != nil {
			return p.DisplayName
		}
		return fmt.Sprintf("#%d", id)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Pairings: %s\n", state.Name)
	fmt.Fprintln(bw, "# Format: Round MatchID RoleAID RoleBID")
	for _, rec := range state.RoundsPaired {
		fmt.Fprintf(bw, "\n# Round %d\n", rec.RoundNumber)
		for _, m := range state.RoundMatches(rec.RoundNumber) {
			if m.IsBye() {
				fmt.Fprintf(bw, "%d %d %d %d # Match %d: %s (BYE)\n",
					m.RoundNumber, m.ID, m.RoleAParticipantID, m.RoleBParticipantID, m.ID, name(m.RoleAParticipantID))
				continue
			}
			fmt.Fprintf(bw, "%d %d %d %d # Match %d: %s (A) vs %s (B)\n",
				m.RoundNumber, m.ID, m.RoleAParticipantID, m.RoleBParticipantID, m.ID,
				name(m.RoleAParticipantID), name(m.RoleBParticipantID))
		}
	}
	return bw.Flush()
}

type ReinitInput struct {
	Name                 string
	Pairings             io.Reader
	Results              io.Reader // может быть nil
	Names                []string
	// 0 - все раунды файла швейцарские; иначе раунды после NumPreliminaryRounds - плей-офф.
	NumPreliminaryRounds int
	NumEliminationRounds int
	UseTieBreak          bool
	Force                bool
}

// ParsePairingLines разбирает файл пар "Round MatchID RoleAID RoleBID". Любая ошибка фатальна.
func ParsePairingLines(r io.Reader) ([]*models.Match, error) {
	var matches []*models.Match
	seen := make(map[int]int)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := stripComment(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: pairings line %d: expected 'round match_id role_a_id role_b_id'", ErrValidationFailed, lineNo)
		}
		nums := make([]int, 4)
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("%w: pairings line %d: invalid number %q", ErrValidationFailed, lineNo, f)
			}
			nums[i] = n
		}
		m := models.NewMatch(nums[1], nums[0], nums[2], nums[3])
		if prev, ok := seen[m.ID]; ok {
			return nil, fmt.Errorf("%w: match %d appears on lines %d and %d", ErrDuplicateMatchID, m.ID, prev, lineNo)
		}
		seen[m.ID] = lineNo
		if err := validatePairing(m); err != nil {
			return nil, fmt.Errorf("%w: pairings line %d: %v", ErrValidationFailed, lineNo, err)
		}
		matches = append(matches, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairings: %w", err)
	}
	return matches, nil
}

func validatePairing(m *models.Match) error {
	switch {
	case m.RoundNumber < 1:
		return fmt.Errorf("round must be at least 1")
	case m.ID < 1:
		return fmt.Errorf("match id must be positive")
	case m.RoleAParticipantID < 0:
		return fmt.Errorf("role A participant id must not be negative")
	case m.RoleBParticipantID < 0 && m.RoleBParticipantID != models.ByeSentinel:
		return fmt.Errorf("role B participant id must be non-negative or %d for a bye", models.ByeSentinel)
	case m.RoleAParticipantID == m.RoleBParticipantID:
		return fmt.Errorf("participant %d cannot play itself", m.RoleAParticipantID)
	}
	return nil
}

// Reinit восстанавливает турнир из файла пар и (опционально) файла результатов.
// В отличие от ReportBatch любая ошибка в результатах отменяет восстановление.
func (s *tournamentService) Reinit(ctx context.Context, input ReinitInput) (*models.TournamentState, error) {
	if input.Pairings == nil {
		return nil, fmt.Errorf("%w: pairings are required", ErrValidationFailed)
	}
	matches, err := ParsePairingLines(input.Pairings)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: pairings contain no matches", ErrValidationFailed)
	}

	maxRound, maxParticipant, maxMatch := 0, 0, 0
	byRound := make(map[int][]int)
	byeRounds := make(map[int]bool)
	inRound := make(map[int]map[int]bool)
	for _, m := range matches {
		maxRound = max(maxRound, m.RoundNumber)
		maxParticipant = max(maxParticipant, m.RoleAParticipantID, m.RoleBParticipantID)
		maxMatch = max(maxMatch, m.ID)
		byRound[m.RoundNumber] = append(byRound[m.RoundNumber], m.ID)
		if m.IsBye() {
			byeRounds[m.RoundNumber] = true
		}

		if inRound[m.RoundNumber] == nil {
			inRound[m.RoundNumber] = make(map[int]bool)
		}
		for _, id := range []int{m.RoleAParticipantID, m.RoleBParticipantID} {
			if id == models.ByeSentinel {
				continue
			}
			if inRound[m.RoundNumber][id] {
				return nil, fmt.Errorf("%w: participant %d appears twice in round %d", ErrValidationFailed, id, m.RoundNumber)
			}
			inRound[m.RoundNumber][id] = true
		}
	}
	for r := 1; r <= maxRound; r++ {
		if len(byRound[r]) == 0 {
			return nil, fmt.Errorf("%w: pairings skip round %d", ErrValidationFailed, r)
		}
	}

	prelim := input.NumPreliminaryRounds
	if prelim == 0 {
		prelim = maxRound
	}
	if err := checkEliminationRounds(byRound, byeRounds, maxRound, prelim, input.NumEliminationRounds); err != nil {
		return nil, err
	}

	state, err := s.newState(input.Name, models.TournamentConfig{
		NumParticipants:      maxParticipant + 1,
		NumPreliminaryRounds: prelim,
		NumEliminationRounds: input.NumEliminationRounds,
		UseTieBreak:          input.UseTieBreak,
	}, input.Names, nil)
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		if m.IsBye() {
			m.SetResult(models.OutcomeRoleAWin)
		}
		state.Matches = append(state.Matches, m)
	}
	models.SortMatches(state.Matches)
	for r := 1; r <= maxRound; r++ {
		ids := byRound[r]
		sort.Ints(ids)
		state.RoundsPaired = append(state.RoundsPaired, models.PairedRound{RoundNumber: r, MatchIDs: ids})
	}
	state.NextMatchID = maxMatch + 1

	brackets.Recompute(state.Matches, state.Participants)
	advanceCurrentRound(state)

	if input.Results != nil {
		if err := applyReinitResults(state, input.Results); err != nil {
			return nil, err
		}
	}

	if err := s.replaceState(ctx, state, input.Force); err != nil {
		return nil, err
	}
	s.logger.Info("tournament reinitialized",
		slog.String("tournament", state.ID),
		slog.Int("participants", state.Config.NumParticipants),
		slog.Int("rounds", maxRound),
		slog.Int("current_round", state.CurrentRound),
	)
	s.notify(brackets.EventTournamentInitialized, state.Config)
	return state.Clone(), nil
}

// checkEliminationRounds: раунды после prelim должны быть раундами сетки на 2^elim участников.
func checkEliminationRounds(byRound map[int][]int, byeRounds map[int]bool, maxRound, prelim, elim int) error {
	if prelim < 0 || elim < 0 {
		return fmt.Errorf("%w: round counts must not be negative", ErrValidationFailed)
	}
	if maxRound > prelim+elim {
		return fmt.Errorf("%w: pairings have %d rounds, more than %d Swiss and %d elimination rounds",
			ErrValidationFailed, maxRound, prelim, elim)
	}
	for r := prelim + 1; r <= maxRound; r++ {
		want := 1 << (elim - (r - prelim))
		if got := len(byRound[r]); got != want {
			return fmt.Errorf("%w: elimination round %d has %d matches, expected %d", ErrValidationFailed, r, got, want)
		}
		if byeRounds[r] {
			return fmt.Errorf("%w: elimination round %d contains a bye", ErrValidationFailed, r)
		}
	}
	return nil
}

func applyReinitResults(state *models.TournamentState, r io.Reader) error {
	lines, diags, err := ParseResultLines(r)
	if err != nil {
		return err
	}
	if len(diags) > 0 {
		return fmt.Errorf("%w: results line %d: %s", ErrValidationFailed, diags[0].Line, diags[0].Message)
	}

	// Применяем по раундам, чтобы порядок строк в файле не влиял на проверку предыдущих раундов.
	roundOf := func(l ResultLine) int {
		if m := state.MatchByID(l.Input.MatchID); m != nil {
			return m.RoundNumber
		}
		return 0
	}
	sort.SliceStable(lines, func(i, j int) bool { return roundOf(lines[i]) < roundOf(lines[j]) })

	for _, line := range lines {
		if _, err := applyResult(state, line.Input); err != nil {
			return fmt.Errorf("results line %d: %w", line.Line, err)
		}
	}
	return nil
}
