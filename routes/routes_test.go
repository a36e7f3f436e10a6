package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/handlers"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/Dosada05/swiss-tournament/utils"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand struct{}

func (fixedRand) Shuffle(n int, swap func(i, j int)) {}
func (fixedRand) Float64() float64                   { return 0.25 }

const (
	testSecret   = "test-secret"
	testPassword = "correct horse"
)

func newTestRouter(t *testing.T, withAuth bool) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := brackets.NewHub(logger)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go hub.Run(done)
	room := brackets.RoomForTournament("test")

	svc := services.NewTournamentService(repositories.NewMemoryStateRepository(), hub, logger, services.TournamentServiceConfig{
		Room:         room,
		Rand:         fixedRand{},
		RandomRounds: 1,
	})

	opts := Options{AllowedOrigins: []string{"*"}}
	hash := ""
	if withAuth {
		opts.JWTSecret = []byte(testSecret)
		var err error
		hash, err = utils.HashPassword(testPassword)
		require.NoError(t, err)
	}

	router := chi.NewRouter()
	SetupRoutes(router, opts,
		handlers.NewTournamentHandler(svc, logger),
		handlers.NewAuthHandler(hash, testSecret),
		handlers.NewWebSocketHandler(hub, room, svc, opts.AllowedOrigins, logger),
	)
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) (int, map[string]interface{}, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" && strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	raw := rec.Body.String()
	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), raw)
	}
	return rec.Code, decoded, raw
}

func TestAPI_TournamentFlow(t *testing.T) {
	router := newTestRouter(t, false)

	code, _, _ := do(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)

	code, body, _ := do(t, router, http.MethodGet, "/api/data", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "tournament not found")

	code, body, _ = do(t, router, http.MethodPost, "/api/init", `{"name":"Spring Open","num_participants":4,"num_preliminary_rounds":2}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Spring Open", body["name"])

	code, body, _ = do(t, router, http.MethodPost, "/api/pair", `{"round":1}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, body["matches"], 2)

	code, body, _ = do(t, router, http.MethodGet, "/api/rounds/1/pending", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["matches"], 2)

	code, body, _ = do(t, router, http.MethodPost, "/api/report", `{"match_id":1,"outcome":"A"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["changed"])

	code, _, _ = do(t, router, http.MethodPost, "/api/report", `{"match_id":1,"outcome":"N"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/report", `{"match_id":1,"role_a_id":3,"outcome":"A"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/report", `{"match_id":42,"outcome":"A"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, body, _ = do(t, router, http.MethodPost, "/api/report/batch", "2 N\n9 A\n")
	require.Equal(t, http.StatusMultiStatus, code)
	assert.Equal(t, float64(1), body["applied"])
	assert.Equal(t, float64(1), body["current_round"])
	assert.Len(t, body["diagnostics"], 1)

	code, body, _ = do(t, router, http.MethodGet, "/api/standings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["standings"], 4)

	code, _, raw := do(t, router, http.MethodGet, "/api/export/results", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, "1 1 0 1 A\n")
	assert.Contains(t, raw, "1 2 2 3 N\n")

	code, _, raw = do(t, router, http.MethodGet, "/api/export/pairings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, "# Round 1\n")
}

func TestAPI_RoundBlocked(t *testing.T) {
	router := newTestRouter(t, false)

	code, _, _ := do(t, router, http.MethodPost, "/api/init", `{"num_participants":4,"num_preliminary_rounds":3}`)
	require.Equal(t, http.StatusCreated, code)
	for round := 1; round <= 2; round++ {
		code, _, _ = do(t, router, http.MethodPost, "/api/pair", `{"round":`+strconv.Itoa(round)+`}`)
		require.Equal(t, http.StatusCreated, code)
	}

	code, body, _ := do(t, router, http.MethodPost, "/api/pair", `{"round":3}`)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, float64(1), body["blocked_round"])
	assert.Equal(t, []interface{}{float64(1), float64(2)}, body["unreported_matches"])
	assert.Contains(t, body["error"], "Round 1 is not fully reported")

	code, _, _ = do(t, router, http.MethodPost, "/api/pair", `{"round":5}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestAPI_Validation(t *testing.T) {
	router := newTestRouter(t, false)

	code, body, _ := do(t, router, http.MethodPost, "/api/init", `{"num_participants":1,"num_preliminary_rounds":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body["error"], "num_participants")

	code, _, _ = do(t, router, http.MethodPost, "/api/init", `{"num_participants":4,"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = do(t, router, http.MethodGet, "/api/rounds/abc/pending", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/pair", `{"round":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/report", `{"match_id":1,"outcome":"draw"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/report/batch?override=maybe", "1 A\n")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_OrganizerAuth(t *testing.T) {
	router := newTestRouter(t, true)
	initBody := `{"num_participants":4,"num_preliminary_rounds":2}`

	code, _, _ := do(t, router, http.MethodPost, "/api/init", initBody)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/init", initBody, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = do(t, router, http.MethodPost, "/api/auth/token", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body, _ := do(t, router, http.MethodPost, "/api/auth/token", `{"name":"judge","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, code)
	token, ok := body["token"].(string)
	require.True(t, ok)

	code, _, _ = do(t, router, http.MethodPost, "/api/init", initBody, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, code)

	// Чтение открыто без токена.
	code, _, _ = do(t, router, http.MethodGet, "/api/standings", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestWebSocket_SnapshotAndEvents(t *testing.T) {
	router := newTestRouter(t, false)
	server := httptest.NewServer(router)
	defer server.Close()

	code, _, _ := do(t, router, http.MethodPost, "/api/init", `{"num_participants":4,"num_preliminary_rounds":2}`)
	require.Equal(t, http.StatusCreated, code)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/tournament", nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent := func() brackets.WebSocketMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg brackets.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	snapshot := readEvent()
	assert.Equal(t, brackets.EventSnapshot, snapshot.Type)
	assert.Equal(t, "tournament_test", snapshot.RoomID)

	code, _, _ = do(t, router, http.MethodPost, "/api/pair", `{"round":1}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, brackets.EventRoundPaired, readEvent().Type)
}

func TestAPI_ReportJudgeDetails(t *testing.T) {
	router := newTestRouter(t, false)

	code, _, _ := do(t, router, http.MethodPost, "/api/init", `{"num_participants":4,"num_preliminary_rounds":2}`)
	require.Equal(t, http.StatusCreated, code)
	code, _, _ = do(t, router, http.MethodPost, "/api/pair", `{"round":1}`)
	require.Equal(t, http.StatusCreated, code)

	code, body, _ := do(t, router, http.MethodPost, "/api/report",
		`{"match_id":1,"outcome":"A","judge_id":5,"speaker_points":{"Ann":28.5,"Bob":27}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["details_updated"])
	match := body["match"].(map[string]interface{})
	assert.Equal(t, float64(5), match["judge_id"])
	assert.Equal(t, map[string]interface{}{"Ann": 28.5, "Bob": float64(27)}, match["speaker_points"])

	code, _, _ = do(t, router, http.MethodPost, "/api/report", `{"match_id":2,"outcome":"A","judge_id":-3}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, _ = do(t, router, http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, code)
	matches := body["matches"].([]interface{})
	assert.Equal(t, float64(-1), matches[1].(map[string]interface{})["judge_id"], "unjudged match")
}
