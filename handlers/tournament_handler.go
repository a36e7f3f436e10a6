package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/swiss-tournament/middleware"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/go-chi/chi/v5"
)

const maxBatchBytes = 1_048_576

type TournamentHandler struct {
	tournamentService services.TournamentService
	logger            *slog.Logger
}

func NewTournamentHandler(tournamentService services.TournamentService, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService, logger: logger}
}

func (h *TournamentHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetData возвращает полное состояние турнира.
func (h *TournamentHandler) GetData(w http.ResponseWriter, r *http.Request) {
	state, err := h.tournamentService.State(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, state, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.tournamentService.Standings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetPendingMatches(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		badRequestResponse(w, r, errors.New("invalid round number in URL"))
		return
	}
	pending, err := h.tournamentService.PendingMatches(r.Context(), round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if pending == nil {
		pending = []*models.Match{}
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round, "matches": pending}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Init(w http.ResponseWriter, r *http.Request) {
	var input services.InitInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	problems := make(map[string]string)
	if input.NumParticipants < 2 {
		problems["num_participants"] = "must be at least 2"
	}
	if input.NumPreliminaryRounds < 0 {
		problems["num_preliminary_rounds"] = "must not be negative"
	}
	if input.NumEliminationRounds < 0 {
		problems["num_elimination_rounds"] = "must not be negative"
	}
	if len(problems) > 0 {
		failedValidationResponse(w, r, problems)
		return
	}

	state, err := h.tournamentService.Init(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.logger.Info("tournament initialized via API", slog.String("tournament", state.ID), slog.String("by", actor(r)))
	if err := writeJSON(w, http.StatusCreated, state, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) PairRound(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Round int `json:"round"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Round < 1 {
		failedValidationResponse(w, r, map[string]string{"round": "must be at least 1"})
		return
	}

	result, err := h.tournamentService.PairRound(r.Context(), input.Round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	var input services.ReportInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	parsed, err := models.ParseOutcome(string(input.Outcome))
	if err != nil {
		failedValidationResponse(w, r, map[string]string{"outcome": err.Error()})
		return
	}
	input.Outcome = parsed

	outcome, err := h.tournamentService.ReportResult(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if outcome.Changed {
		h.logger.Info("result reported via API", slog.Int("match_id", outcome.Match.ID), slog.String("by", actor(r)))
	}
	if err := writeJSON(w, http.StatusOK, outcome, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportBatch принимает тело text/plain в формате файла результатов. ?override=true разрешает замену.
func (h *TournamentHandler) ReportBatch(w http.ResponseWriter, r *http.Request) {
	override := false
	if v := r.URL.Query().Get("override"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid override flag %q", v))
			return
		}
		override = parsed
	}

	body := http.MaxBytesReader(w, r.Body, maxBatchBytes)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	report, err := h.tournamentService.ReportBatch(r.Context(), &buf, override)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if report.HasErrors() {
		status = http.StatusMultiStatus
	}
	if err := writeJSON(w, status, report, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tournamentService.Export(r.Context(), &buf, nil); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *TournamentHandler) ExportPairings(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tournamentService.Export(r.Context(), nil, &buf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func actor(r *http.Request) string {
	sub, err := middleware.GetSubjectFromContext(r.Context())
	if err != nil {
		return "anonymous"
	}
	return sub
}
