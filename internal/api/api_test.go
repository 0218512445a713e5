package api

import (
	"alcyxob/exercise-tracker/internal/app"
	"alcyxob/exercise-tracker/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	clock  *quartz.Mock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, time.March, 11, 10, 0, 0, 0, loc))

	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Cutover:  config.CutoverConfig{Hour: 3, Timezone: "Asia/Seoul"},
		Limits:   config.LimitsConfig{MaxSession: 8 * time.Hour, MaxDaily: 12 * time.Hour},
		JWT:      config.JWTConfig{Secret: "test-secret", Expiration: 24 * time.Hour},
	}
	logger := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})
	a, err := app.New(context.Background(), cfg, logger, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	router := gin.New()
	router.Use(RequestLogger(logger))
	SetupRoutes(router, a.Auth, a.Exercises, a.Teams, a.Calc)
	return &testServer{t: t, router: router, clock: clock}
}

func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

// signup registers a member and returns a bearer token.
func (s *testServer) signup(name string) string {
	s.t.Helper()
	req := RegisterRequest{Name: name, Email: name + "@example.com", Password: "password123"}
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/auth/register", "", req, nil))

	var login LoginResponse
	code := s.do(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: req.Email, Password: req.Password}, &login)
	require.Equal(s.t, http.StatusOK, code)
	require.NotEmpty(s.t, login.Token)
	return login.Token
}

func (s *testServer) createExercise(token, name string) ExerciseResponse {
	s.t.Helper()
	var ex ExerciseResponse
	code := s.do(http.MethodPost, "/api/v1/exercises", token, CreateExerciseRequest{Name: name}, &ex)
	require.Equal(s.t, http.StatusCreated, code)
	return ex
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ping", "", nil, nil))
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", "", nil, nil))
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", "garbage", nil, nil))

	token := s.signup("kim")
	var me map[string]string
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/me", token, nil, &me))
	assert.Equal(t, "kim", me["name"])

	dup := RegisterRequest{Name: "kim", Email: "other@example.com", Password: "password123"}
	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/auth/register", "", dup, nil))

	bad := LoginRequest{Email: "kim@example.com", Password: "wrong-password"}
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/auth/login", "", bad, nil))

	short := RegisterRequest{Name: "lee", Email: "lee@example.com", Password: "short"}
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/auth/register", "", short, nil))
}

func TestStartStopAndTotals(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("kim")
	ex := s.createExercise(token, "plank")
	require.Equal(t, "idle", string(ex.Session.State))

	var sess SessionResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/start", token, nil, &sess))
	require.Equal(t, "running", string(sess.State))
	require.NotNil(t, sess.StartedAt)

	s.clock.Advance(25 * time.Minute)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/stop", token, nil, &sess))
	require.Equal(t, "idle", string(sess.State))
	require.EqualValues(t, 25*60, sess.AccumulatedSeconds)

	var list []ExerciseResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/exercises", token, nil, &list))
	require.Len(t, list, 1)
	require.EqualValues(t, 25*60, list[0].Session.AccumulatedSeconds)

	var totals TotalsResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/exercises/totals", token, nil, &totals))
	require.EqualValues(t, 25*60, totals.WeeklySeconds)
	require.EqualValues(t, 25*60, totals.MonthlySeconds)
}

func TestStopOverLimitIsUnprocessable(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("kim")
	ex := s.createExercise(token, "plank")

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/start", token, nil, nil))
	s.clock.Advance(9 * time.Hour)

	var body map[string]string
	require.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/stop", token, nil, &body))
	assert.Equal(t, "session", body["limit"])

	var list []ExerciseResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/exercises", token, nil, &list))
	assert.Equal(t, "running", string(list[0].Session.State))
}

func TestExerciseErrors(t *testing.T) {
	s := newTestServer(t)
	kim := s.signup("kim")
	lee := s.signup("lee")
	ex := s.createExercise(kim, "plank")

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/exercises/not-an-id/start", kim, nil, nil))
	require.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/start", lee, nil, nil))
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/exercises", kim, map[string]string{}, nil))

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/exercises/"+ex.ID, kim, nil, nil))
	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/start", kim, nil, nil))
}

func TestTeamRanking(t *testing.T) {
	s := newTestServer(t)
	kim := s.signup("kim")
	lee := s.signup("lee")
	park := s.signup("park")

	var team TeamResponse
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/teams", kim, CreateTeamRequest{Name: "crew"}, &team))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/teams/"+team.ID+"/join", lee, nil, &team))
	require.Len(t, team.MemberIDs, 2)

	ex := s.createExercise(lee, "run")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/start", lee, nil, nil))
	s.clock.Advance(time.Hour)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/exercises/"+ex.ID+"/stop", lee, nil, nil))

	var ranking RankingResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/teams/"+team.ID+"/ranking?page=0&size=1", kim, nil, &ranking))
	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, "lee", ranking.Entries[0].Name)
	assert.EqualValues(t, 3600, ranking.Entries[0].TotalSeconds)
	assert.True(t, ranking.HasNext)
	assert.Equal(t, 2, ranking.MyRank)
	assert.Equal(t, "kim", ranking.MyName)

	// Nothing archived yesterday.
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/teams/"+team.ID+"/ranking?date=2024-03-10", kim, nil, &ranking))
	require.Len(t, ranking.Entries, 2)
	assert.Zero(t, ranking.Entries[0].TotalSeconds)
	assert.Equal(t, 20, ranking.Size)

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/teams/"+team.ID+"/ranking?date=10-03-2024", kim, nil, nil))
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/teams/"+team.ID+"/ranking?page=-1", kim, nil, nil))
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/teams/000000000000000000000000/ranking", kim, nil, nil))
	require.Equal(t, http.StatusInternalServerError, s.do(http.MethodGet, "/api/v1/teams/"+team.ID+"/ranking", park, nil, nil))
}
