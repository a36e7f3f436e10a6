package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Dosada05/swiss-tournament/models"
)

// DiagnosticCategory классифицирует отклонённую строку пакетного ввода.
type DiagnosticCategory string

const (
	DiagParseError              DiagnosticCategory = "parse_error"
	DiagMatchNotFound           DiagnosticCategory = "match_not_found"
	DiagTeamMismatch            DiagnosticCategory = "team_mismatch"
	DiagOutcomeConflict         DiagnosticCategory = "outcome_conflict"
	DiagRoundMismatch           DiagnosticCategory = "round_mismatch"
	DiagPreviousRoundIncomplete DiagnosticCategory = "previous_round_incomplete"
	DiagByeOverride             DiagnosticCategory = "bye_override"
	DiagRejected                DiagnosticCategory = "rejected"
)

type LineDiagnostic struct {
	Line     int                `json:"line"`
	Text     string             `json:"text"`
	Category DiagnosticCategory `json:"category"`
	Message  string             `json:"message"`
}

type BatchReport struct {
	Processed       int              `json:"processed"`
	Applied         int              `json:"applied"`
	Unchanged       int              `json:"unchanged"`
	Diagnostics     []LineDiagnostic `json:"diagnostics,omitempty"`
	CompletedRounds []int            `json:"completed_rounds,omitempty"`
	CurrentRound    int              `json:"current_round"`
}

func (b *BatchReport) HasErrors() bool {
	return len(b.Diagnostics) > 0
}

// ResultLine - разобранная строка файла результатов.
type ResultLine struct {
	Line  int
	Text  string
	Input ReportInput
}

// stripComment убирает комментарий, начинающийся с '#'.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// ParseResultLines разбирает файл результатов. Поддерживаются строки
// "round match_id role_a_id role_b_id outcome" и "match_id outcome"; '#' начинает комментарий.
// Неразобранные строки возвращаются диагностикой; повтор id матча - ошибка всего пакета.
func ParseResultLines(r io.Reader) ([]ResultLine, []LineDiagnostic, error) {
	var (
		lines []ResultLine
		diags []LineDiagnostic
	)
	seen := make(map[int]int)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		text := stripComment(raw)
		if text == "" {
			continue
		}

		in, err := parseResultFields(strings.Fields(text))
		if err != nil {
			diags = append(diags, LineDiagnostic{Line: lineNo, Text: raw, Category: DiagParseError, Message: err.Error()})
			continue
		}
		if prev, ok := seen[in.MatchID]; ok {
			return nil, nil, fmt.Errorf("%w: match %d appears on lines %d and %d", ErrDuplicateMatchID, in.MatchID, prev, lineNo)
		}
		seen[in.MatchID] = lineNo
		lines = append(lines, ResultLine{Line: lineNo, Text: raw, Input: in})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read results: %w", err)
	}
	return lines, diags, nil
}

func parseResultFields(fields []string) (ReportInput, error) {
	var in ReportInput
	switch len(fields) {
	case 2:
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return in, fmt.Errorf("invalid match id %q", fields[0])
		}
		in.MatchID = id
	case 5:
		nums := make([]int, 4)
		for i, f := range fields[:4] {
			n, err := strconv.Atoi(f)
			if err != nil {
				return in, fmt.Errorf("invalid number %q in column %d", f, i+1)
			}
			nums[i] = n
		}
		in.Round, in.MatchID, in.RoleAID, in.RoleBID = &nums[0], nums[1], &nums[2], &nums[3]
	default:
		return in, fmt.Errorf("expected 'round match_id role_a_id role_b_id outcome' or 'match_id outcome', got %d fields", len(fields))
	}

	outcome, err := models.ParseOutcome(fields[len(fields)-1])
	if err != nil {
		return in, err
	}
	in.Outcome = outcome
	return in, nil
}

func categorize(err error) DiagnosticCategory {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return DiagMatchNotFound
	case errors.Is(err, ErrTeamMismatch):
		return DiagTeamMismatch
	case errors.Is(err, ErrOutcomeConflict):
		return DiagOutcomeConflict
	case errors.Is(err, ErrRoundMismatch):
		return DiagRoundMismatch
	case errors.Is(err, ErrPreviousRoundIncomplete):
		return DiagPreviousRoundIncomplete
	case errors.Is(err, ErrByeOverride):
		return DiagByeOverride
	default:
		return DiagRejected
	}
}

// ReportBatch применяет строки по порядку в одной критической секции.
// Ошибочные строки пропускаются с диагностикой, остальные применяются.
func (s *tournamentService) ReportBatch(ctx context.Context, r io.Reader, override bool) (*BatchReport, error) {
	lines, diags, err := ParseResultLines(r)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Diagnostics: diags}
	var outcomes []*ReportOutcome

	err = s.withState(ctx, func(state *models.TournamentState) error {
		for _, line := range lines {
			in := line.Input
			in.Override = override
			out, err := applyResult(state, in)
			if err != nil {
				report.Diagnostics = append(report.Diagnostics, LineDiagnostic{
					Line: line.Line, Text: line.Text, Category: categorize(err), Message: err.Error(),
				})
				continue
			}
			report.Processed++
			if out.Changed {
				report.Applied++
			} else {
				report.Unchanged++
			}
			report.CompletedRounds = append(report.CompletedRounds, out.CompletedRounds...)
			outcomes = append(outcomes, out)
		}
		report.CurrentRound = state.CurrentRound
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortDiagnostics(report.Diagnostics)
	for _, out := range outcomes {
		s.publishOutcome(out)
	}
	s.logger.Info("batch results processed",
		slog.Int("processed", report.Processed),
		slog.Int("applied", report.Applied),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("rejected", len(report.Diagnostics)),
	)
	return report, nil
}

func sortDiagnostics(diags []LineDiagnostic) {
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Line < diags[j].Line })
}
