/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Session endpoints and their error statuses
- Issue/return status mapping (401, 404, 409)
- Outstanding list with countdowns, accrual refresh
- Metrics exposition
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/checkout/store"
	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var t0 = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	handler *Handler
	router  *chi.Mux
	store   *store.Memory
	clock   *testClock
}

func setupTestHandler(t *testing.T) *testEnv {
	t.Helper()

	mem := store.NewMemory()
	sessions := session.NewManager(mem)
	clock := &testClock{now: t0}

	engine := checkout.NewEngine(mem, mem)
	engine.Users = sessions
	engine.Clock = clock

	h := NewHandler(engine, sessions, mem, nil)
	h.TickInterval = 20 * time.Millisecond

	return &testEnv{handler: h, router: NewRouter(h), store: mem, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/session/register", DemoUser)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/api/session/login", LoginRequest{
		EnrollmentNumber: DemoUser.EnrollmentNumber,
		Password:         DemoUser.Password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) issue(t *testing.T, id string) IssueResponseDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/equipment/"+id+"/issue", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp IssueResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSession_RegisterLoginLogout(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())

	env.login(t)

	rec = env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess SessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.True(t, sess.LoggedIn)
	require.NotNil(t, sess.User)
	assert.Equal(t, "EN2024001", sess.User.EnrollmentNumber)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodPost, "/api/session/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/session", nil)
	assert.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())
}

func TestSession_Errors(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)

	// duplicate registration
	rec := env.do(t, http.MethodPost, "/api/session/register", DemoUser)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user_exists", decodeError(t, rec).Code)

	// validation
	bad := DemoUser
	bad.EnrollmentNumber = "EN2"
	bad.Password = "123"
	rec = env.do(t, http.MethodPost, "/api/session/register", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "validation", errResp.Code)
	assert.Equal(t, map[string]any{"password": "must be at least 6 characters"}, errResp.Details)

	// bad credentials
	rec = env.do(t, http.MethodPost, "/api/session/login", LoginRequest{EnrollmentNumber: "EN2024001", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, rec).Code)

	// malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/session/login", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// EQUIPMENT TESTS
// =============================================================================

func TestListEquipment_SeedsCatalog(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodGet, "/api/equipment", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog CatalogDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Len(t, catalog.Items, len(equipment.DefaultCatalog()))

	rec = env.do(t, http.MethodGet, "/api/equipment?type=cricket", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Len(t, catalog.Items, 8)

	rec = env.do(t, http.MethodGet, "/api/equipment?type=curling", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummary(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	env.issue(t, "fb-1")

	rec := env.do(t, http.MethodGet, "/api/equipment/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary SummaryDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Len(t, summary.Categories, 6)
	football := summary.Categories[4]
	assert.Equal(t, equipment.SportFootball, football.Sport)
	assert.Equal(t, 2, football.Total)
	assert.Equal(t, 1, football.Available)
}

// =============================================================================
// ISSUE / RETURN TESTS
// =============================================================================

func TestIssue_RequiresLogin(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/api/equipment/fb-1/issue", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no_session", decodeError(t, rec).Code)
}

func TestIssue_Success(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)

	resp := env.issue(t, "tt-ball-1")
	assert.Equal(t, "tt-ball-1", resp.Record.EquipmentID)
	assert.Equal(t, "Table Tennis Ball issued, due back by 2025-03-10T11:00:00.000Z", resp.Message)
	assert.Equal(t, "This is the last table tennis ball available", resp.Advisory)
}

func TestIssue_LimitExceeded(t *testing.T) {
	// GIVEN: Two table tennis bats out
	// WHEN: Requesting a third
	// THEN: 409 with the cap details

	env := setupTestHandler(t)
	env.login(t)
	env.issue(t, "tt-bat-1")
	env.issue(t, "tt-bat-2")

	rec := env.do(t, http.MethodPost, "/api/equipment/tt-bat-3/issue", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	errResp := decodeError(t, rec)
	assert.Equal(t, "limit_exceeded", errResp.Code)
	assert.Equal(t, map[string]any{
		"sport":   "table-tennis",
		"subKind": "bat",
		"held":    float64(2),
		"cap":     float64(2),
	}, errResp.Details)
}

func TestIssue_StatusMapping(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	env.handler.Engine.Limits = checkout.LimitTable{}
	env.issue(t, "fb-1")

	rec := env.do(t, http.MethodPost, "/api/equipment/fb-1/issue", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "unavailable", decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/equipment/zz-9/issue", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestReturn(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	issued := env.issue(t, "bb-1")

	// 3 days past due
	env.clock.Advance(2*time.Hour + 72*time.Hour)
	rec := env.do(t, http.MethodPost, "/api/issues/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/issues/"+issued.Record.ID+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ReturnResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(60), resp.FeeDue)
	assert.Equal(t, "Basketball 1 returned, late fee due: ₹60", resp.Message)
	require.NotNil(t, resp.Record.ReturnedAt)

	// second return
	rec = env.do(t, http.MethodPost, "/api/issues/"+issued.Record.ID+"/return", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_returned", decodeError(t, rec).Code)

	// unknown
	rec = env.do(t, http.MethodPost, "/api/issues/nope/return", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// history
	rec = env.do(t, http.MethodGet, "/api/issues/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []checkout.IssueRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, issued.Record.ID, history[0].ID)
}

func TestReturn_OnTimeMessage(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	issued := env.issue(t, "vb-1")

	rec := env.do(t, http.MethodPost, "/api/issues/"+issued.Record.ID+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReturnResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.FeeDue)
	assert.Equal(t, "Volleyball 1 returned", resp.Message)
}

func TestListOutstanding_WithCountdown(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	env.issue(t, "fb-1")

	env.clock.Advance(30 * time.Minute)

	rec := env.do(t, http.MethodGet, "/api/issues", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []OutstandingIssueDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "fb-1", out[0].EquipmentID)
	assert.Equal(t, checkout.Countdown{Hours: 1, Minutes: 30, PercentRemaining: 75}, out[0].Countdown)
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics_Exposition(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	issued := env.issue(t, "fb-1")
	env.do(t, http.MethodPost, "/api/equipment/fb-2/issue", nil)
	env.do(t, http.MethodPost, "/api/issues/"+issued.Record.ID+"/return", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `checkout_issued_total{sport="football"} 1`)
	assert.Contains(t, body, `checkout_rejected_total{reason="limit_exceeded"} 1`)
	assert.Contains(t, body, `checkout_returned_total{late="false",sport="football"} 1`)
	assert.Contains(t, body, "checkout_outstanding 0")
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestAccrualScheduler_RunOnce(t *testing.T) {
	env := setupTestHandler(t)
	env.login(t)
	env.issue(t, "fb-1")

	s := NewAccrualScheduler(env.handler.Engine, nil)
	s.Metrics = env.handler.Metrics
	assert.Zero(t, s.RunOnce(context.Background()))

	env.clock.Advance(2*time.Hour + 24*time.Hour)
	assert.Equal(t, 1, s.RunOnce(context.Background()))

	records, err := env.store.LoadIssueRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), records[0].LateFee)
}

func TestAccrualScheduler_StopsOnCancel(t *testing.T) {
	env := setupTestHandler(t)
	s := NewAccrualScheduler(env.handler.Engine, nil)
	s.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
