/*
engine.go - Issue, return and accrual passes over the two stores

REQUEST FLOW (Issue):
  1. Require a logged-in user (when a UserSource is configured)
  2. Load catalog + records
  3. Resolve item; reject unknown or already issued items
  4. Evaluate the cap table against outstanding records of the same sport
  5. Mark unavailable, append record, persist both collections

  Rule checks happen before any mutation, so a rejected request leaves both
  stores untouched.

REQUEST FLOW (Return):
  1. Resolve an outstanding record (NotFound / AlreadyReturned otherwise)
  2. Stamp ReturnedAt, mark the item available again
  3. Persist both collections, report the stored late fee

ACCRUAL:
  Load and Refresh rewrite the late fee of every outstanding record from
  the current time. The pass is idempotent.

CONCURRENCY:
  One mutex serializes every operation. The portal model is a single actor,
  but the HTTP adapter can call in from several goroutines.
*/
package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/sports-checkout/equipment"
)

// Engine applies the checkout rules to an EquipmentStore and an IssueStore.
// Exported fields may be replaced after NewEngine and before first use.
type Engine struct {
	Equipment EquipmentStore
	Issues    IssueStore
	Users     UserSource // nil disables the session check
	Limits    LimitTable
	Policy    LoanPolicy
	Clock     Clock
	Logger    *zap.Logger
	NewID     func() (string, error)

	mu sync.Mutex
}

// NewEngine wires the default rules, clock and id generator.
func NewEngine(equip EquipmentStore, issues IssueStore) *Engine {
	return &Engine{
		Equipment: equip,
		Issues:    issues,
		Limits:    DefaultLimits(),
		Policy:    DefaultLoanPolicy,
		Clock:     SystemClock{},
		Logger:    zap.NewNop(),
		NewID:     newIssueID,
	}
}

// newIssueID returns a UUIDv7, which is ordered by creation time.
func newIssueID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IssueResult is a successful issuance. Advisory is set when the item was
// the last available unit of its kind.
type IssueResult struct {
	Record   IssueRecord
	Advisory string
}

// ReturnResult is a closed record and the fee owed on it.
type ReturnResult struct {
	Record IssueRecord
	FeeDue int64
}

// =============================================================================
// ISSUE
// =============================================================================

func (e *Engine) Issue(ctx context.Context, equipmentID string) (*IssueResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger().With(zap.String("equipment_id", equipmentID))

	if e.Users != nil {
		user, err := e.Users.CurrentUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("current user: %w", err)
		}
		if user == nil {
			return nil, ErrNoSession
		}
		log = log.With(zap.String("enrollment_number", user.EnrollmentNumber))
	}

	items, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.loadRecords(ctx)
	if err != nil {
		return nil, err
	}

	idx := equipment.Find(items, equipmentID)
	if idx < 0 {
		return nil, &NotFoundError{Kind: "equipment", ID: equipmentID}
	}
	item := items[idx]
	if !item.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, item.Name)
	}

	if err := e.Limits.Check(item, records); err != nil {
		log.Info("issue rejected", zap.Error(err))
		return nil, err
	}

	var advisory string
	if equipment.CountAvailable(items, item.Sport, item.SubKind) <= 1 {
		advisory = lastUnitAdvisory(item)
	}

	id, err := e.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate issue id: %w", err)
	}
	rec := newIssueRecord(id, item, e.Clock.Now(), e.Policy.Window)

	items[idx].Available = false
	records = append(records, rec)
	if err := e.persist(ctx, items, records); err != nil {
		return nil, err
	}

	log.Info("equipment issued",
		zap.String("issue_id", rec.ID),
		zap.String("due_at", rec.DueAt.String()))
	if advisory != "" {
		log.Info("last unit issued", zap.String("advisory", advisory))
	}
	return &IssueResult{Record: rec, Advisory: advisory}, nil
}

func lastUnitAdvisory(item equipment.Item) string {
	what := strings.ToLower(item.Category)
	if item.SubKind != equipment.SubKindNone {
		what += " " + item.SubKind.Label()
	}
	return fmt.Sprintf("This is the last %s available", what)
}

// =============================================================================
// RETURN
// =============================================================================

func (e *Engine) Return(ctx context.Context, issueID string) (*ReturnResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.loadRecords(ctx)
	if err != nil {
		return nil, err
	}

	idx := findRecord(records, issueID)
	if idx < 0 {
		return nil, &NotFoundError{Kind: "issue", ID: issueID}
	}
	if !records[idx].Outstanding() {
		return nil, fmt.Errorf("%w: issue %s at %s", ErrAlreadyReturned, issueID, records[idx].ReturnedAt)
	}

	ts := NewTimestamp(e.Clock.Now())
	records[idx].ReturnedAt = &ts
	if j := equipment.Find(items, records[idx].EquipmentID); j >= 0 {
		items[j].Available = true
	} else {
		e.logger().Warn("returned equipment missing from catalog",
			zap.String("equipment_id", records[idx].EquipmentID))
	}

	if err := e.persist(ctx, items, records); err != nil {
		return nil, err
	}

	rec := records[idx]
	e.logger().Info("equipment returned",
		zap.String("issue_id", rec.ID),
		zap.String("equipment_id", rec.EquipmentID),
		zap.Int64("late_fee", rec.LateFee))
	return &ReturnResult{Record: rec, FeeDue: rec.LateFee}, nil
}

// =============================================================================
// LOAD / REFRESH
// =============================================================================

// Load seeds an empty catalog, runs the accrual pass and returns the state.
func (e *Engine) Load(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = equipment.DefaultCatalog()
		if err := e.Equipment.SaveCatalog(ctx, items); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		e.logger().Info("seeded default catalog", zap.Int("items", len(items)))
	}

	now := e.Clock.Now()
	records, _, err := e.accrue(ctx, now)
	if err != nil {
		return nil, err
	}

	for _, p := range VerifyInventory(items, records) {
		e.logger().Warn("inventory mismatch", zap.String("detail", p))
	}

	outstanding, history := SplitRecords(records)
	return &Snapshot{AsOf: now, Catalog: items, Outstanding: outstanding, History: history}, nil
}

// Refresh runs the accrual pass and returns how many records changed.
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, changed, err := e.accrue(ctx, e.Clock.Now())
	return changed, err
}

// Outstanding returns the open records after an accrual pass.
func (e *Engine) Outstanding(ctx context.Context) ([]IssueRecord, error) {
	snap, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Outstanding, nil
}

// History returns closed records, most recently returned first.
func (e *Engine) History(ctx context.Context) ([]IssueRecord, error) {
	snap, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.History, nil
}

// Records returns the stored issue records without an accrual pass.
// Display ticks use it so they never write.
func (e *Engine) Records(ctx context.Context) ([]IssueRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadRecords(ctx)
}

// accrue rewrites outstanding late fees at now and saves the records when
// any fee moved.
func (e *Engine) accrue(ctx context.Context, now time.Time) ([]IssueRecord, int, error) {
	records, err := e.loadRecords(ctx)
	if err != nil {
		return nil, 0, err
	}
	changed := e.Policy.Fees.accrueAll(records, now)
	if changed > 0 {
		if err := e.Issues.SaveIssueRecords(ctx, records); err != nil {
			return nil, 0, fmt.Errorf("save issue records: %w", err)
		}
		e.logger().Info("late fees accrued", zap.Int("records", changed))
	}
	return records, changed, nil
}

// =============================================================================
// STORE ACCESS
// =============================================================================

func (e *Engine) loadCatalog(ctx context.Context) ([]equipment.Item, error) {
	items, err := e.Equipment.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

func (e *Engine) loadRecords(ctx context.Context) ([]IssueRecord, error) {
	records, err := e.Issues.LoadIssueRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load issue records: %w", err)
	}
	return records, nil
}

// persist overwrites both collections, inside one transaction when the
// store supports it.
func (e *Engine) persist(ctx context.Context, items []equipment.Item, records []IssueRecord) error {
	save := func(eq EquipmentStore, is IssueStore) error {
		if err := eq.SaveCatalog(ctx, items); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		if err := is.SaveIssueRecords(ctx, records); err != nil {
			return fmt.Errorf("save issue records: %w", err)
		}
		return nil
	}

	if tx, ok := e.Equipment.(Transactor); ok && e.sharedStore() {
		return tx.WithTx(ctx, func(s Store) error { return save(s, s) })
	}
	return save(e.Equipment, e.Issues)
}

// sharedStore reports whether both collections live in the same store.
func (e *Engine) sharedStore() bool {
	s, ok := e.Issues.(Store)
	return ok && any(s) == any(e.Equipment)
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
