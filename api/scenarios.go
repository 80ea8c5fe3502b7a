/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built portal states for demos and manual testing. Every
	scenario starts from the seeded catalog with the demo student
	registered and logged in.

AVAILABLE SCENARIOS:

	fresh:       Full catalog, nothing issued
	near-limit:  Student at the table tennis bat and cricket bat caps
	overdue:     Items past due with accrued late fees, plus history

HOW SCENARIOS WORK:
 1. Reset the store (clear all collections)
 2. Register and log in the demo student
 3. Issue items through the engine, or write backdated records directly
 4. Run a load pass so catalog seeding and fee accrual apply

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "overdue"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - equipment/catalog.go: Seed catalog ids
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh",
		Name:        "Fresh Start",
		Description: "Full catalog, demo student logged in, nothing issued",
		Category:    "checkout",
	},
	{
		ID:          "near-limit",
		Name:        "Near Limit",
		Description: "Two table tennis bats and a cricket bat out; the next bat of either sport is rejected",
		Category:    "limits",
	},
	{
		ID:          "overdue",
		Name:        "Overdue Items",
		Description: "A table tennis ball three days late and a football one day late, plus returned history",
		Category:    "fees",
	},
}

// DemoUser is the student every scenario logs in.
var DemoUser = session.User{
	Name:             "Demo Student",
	EnrollmentNumber: "EN2024001",
	Department:       "Computer Science",
	Semester:         "5",
	Section:          "A",
	Password:         "password1",
	IDCard:           "data:image/png;base64,iVBORw0KGgo=",
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var loader func(context.Context) error
	switch req.ScenarioID {
	case "fresh":
		loader = h.loadFreshScenario
	case "near-limit":
		loader = h.loadNearLimitScenario
	case "overdue":
		loader = h.loadOverdueScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := loader(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	snap, err := h.load(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario state", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID),
		zap.Int("outstanding", len(snap.Outstanding)))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loginDemoUser(ctx context.Context) error {
	if err := h.Sessions.Register(ctx, DemoUser); err != nil {
		return fmt.Errorf("register demo user: %w", err)
	}
	if _, err := h.Sessions.Login(ctx, DemoUser.EnrollmentNumber, DemoUser.Password); err != nil {
		return fmt.Errorf("login demo user: %w", err)
	}
	return nil
}

func (h *Handler) loadFreshScenario(ctx context.Context) error {
	return h.loginDemoUser(ctx)
}

func (h *Handler) loadNearLimitScenario(ctx context.Context) error {
	if err := h.loginDemoUser(ctx); err != nil {
		return err
	}
	// Issue seeds the catalog through the load pass first.
	if _, err := h.Engine.Load(ctx); err != nil {
		return err
	}
	for _, id := range []string{"tt-bat-1", "tt-bat-2", "cr-bat-1", "bd-racket-1"} {
		if _, err := h.Engine.Issue(ctx, id); err != nil {
			return fmt.Errorf("issue %s: %w", id, err)
		}
	}
	return nil
}

// loadOverdueScenario writes backdated records directly; the engine only
// issues at the current time.
func (h *Handler) loadOverdueScenario(ctx context.Context) error {
	if err := h.loginDemoUser(ctx); err != nil {
		return err
	}

	now := h.Engine.Clock.Now()
	window := h.Engine.Policy.Window
	items := equipment.DefaultCatalog()

	backdate := func(id, itemID string, issuedAgo time.Duration, returnedAgo *time.Duration) checkout.IssueRecord {
		idx := equipment.Find(items, itemID)
		item := items[idx]
		issued := now.Add(-issuedAgo)
		rec := checkout.IssueRecord{
			ID:                id,
			EquipmentID:       item.ID,
			EquipmentName:     item.Name,
			EquipmentType:     item.Sport,
			EquipmentCategory: item.Category,
			EquipmentSubKind:  item.SubKind,
			IssuedAt:          checkout.NewTimestamp(issued),
			DueAt:             checkout.NewTimestamp(issued.Add(window)),
		}
		if returnedAgo != nil {
			ts := checkout.NewTimestamp(now.Add(-*returnedAgo))
			rec.ReturnedAt = &ts
			rec.LateFee = h.Engine.Policy.Fees.Accrue(rec.DueAt.Time, ts.Time)
		} else {
			items[idx].Available = false
		}
		return rec
	}

	returnedYesterday := 24 * time.Hour
	returnedLastWeek := 7 * 24 * time.Hour
	records := []checkout.IssueRecord{
		backdate("demo-issue-1", "vb-1", 10*24*time.Hour, &returnedLastWeek),
		backdate("demo-issue-2", "bb-2", 3*24*time.Hour, &returnedYesterday),
		backdate("demo-issue-3", "tt-ball-1", 3*24*time.Hour+window, nil),
		backdate("demo-issue-4", "fb-1", 26*time.Hour+window, nil),
	}

	if err := h.Engine.Equipment.SaveCatalog(ctx, items); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := h.Engine.Issues.SaveIssueRecords(ctx, records); err != nil {
		return fmt.Errorf("save issue records: %w", err)
	}
	return nil
}
