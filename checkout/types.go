/*
Package checkout provides the equipment issuance and return engine.

PURPOSE:
  Decides whether an item may be issued under per-sport borrowing caps,
  keeps the catalog's availability flags in step with outstanding issue
  records, accrues late fees, and closes records on return.

KEY CONCEPTS IN THIS FILE (types.go):
  - IssueRecord: One checkout of one item, denormalized so history survives
    catalog changes
  - Snapshot: Catalog plus records split into outstanding and history

INVARIANTS:
  1. At most one outstanding record references a given equipment id
  2. An item is unavailable iff such a record exists
  3. A record is closed (ReturnedAt set) exactly once, then never changes

SEE ALSO:
  - engine.go: Issue, Return, Refresh, Load
  - limits.go: Declarative cap table
  - fee.go: Late fee accrual and countdowns
*/
package checkout

import (
	"fmt"
	"sort"
	"time"

	"github.com/warp/sports-checkout/equipment"
)

// =============================================================================
// ISSUE RECORD
// =============================================================================

type IssueRecord struct {
	ID                string            `json:"id"`
	EquipmentID       string            `json:"equipmentId"`
	EquipmentName     string            `json:"equipmentName"`
	EquipmentType     equipment.Sport   `json:"equipmentType"`
	EquipmentCategory string            `json:"equipmentCategory"`
	EquipmentSubKind  equipment.SubKind `json:"equipmentSubKind,omitempty"`
	IssuedAt          Timestamp         `json:"issuedAt"`
	DueAt             Timestamp         `json:"dueAt"`
	ReturnedAt        *Timestamp        `json:"returnedAt"`
	LateFee           int64             `json:"lateFee"`
}

// Outstanding reports whether the item is still out.
func (r IssueRecord) Outstanding() bool { return r.ReturnedAt == nil }

// SubKind returns the snapshot sub-kind, falling back to the name for
// records written before the field existed.
func (r IssueRecord) SubKind() equipment.SubKind {
	if r.EquipmentSubKind != equipment.SubKindNone {
		return r.EquipmentSubKind
	}
	return equipment.ClassifyName(r.EquipmentName)
}

// newIssueRecord snapshots the item at issuance.
func newIssueRecord(id string, item equipment.Item, now time.Time, window time.Duration) IssueRecord {
	return IssueRecord{
		ID:                id,
		EquipmentID:       item.ID,
		EquipmentName:     item.Name,
		EquipmentType:     item.Sport,
		EquipmentCategory: item.Category,
		EquipmentSubKind:  item.SubKind,
		IssuedAt:          NewTimestamp(now),
		DueAt:             NewTimestamp(now.Add(window)),
		ReturnedAt:        nil,
		LateFee:           0,
	}
}

func findRecord(records []IssueRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// heldOfSport returns outstanding records for the sport.
func heldOfSport(records []IssueRecord, sport equipment.Sport) []IssueRecord {
	var held []IssueRecord
	for _, r := range records {
		if r.Outstanding() && r.EquipmentType == sport {
			held = append(held, r)
		}
	}
	return held
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the state the dashboard renders after a load pass.
type Snapshot struct {
	AsOf        time.Time
	Catalog     []equipment.Item
	Outstanding []IssueRecord
	History     []IssueRecord
}

// SplitRecords separates outstanding records (issue order) from history
// (most recently returned first).
func SplitRecords(records []IssueRecord) (outstanding, history []IssueRecord) {
	outstanding = []IssueRecord{}
	history = []IssueRecord{}
	for _, r := range records {
		if r.Outstanding() {
			outstanding = append(outstanding, r)
		} else {
			history = append(history, r)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].ReturnedAt.After(history[j].ReturnedAt.Time)
	})
	return outstanding, history
}

// VerifyInventory checks the availability invariant and returns one message
// per violation. An empty result means the two collections agree.
func VerifyInventory(items []equipment.Item, records []IssueRecord) []string {
	out := make(map[string]int)
	for _, r := range records {
		if r.Outstanding() {
			out[r.EquipmentID]++
		}
	}

	var problems []string
	for _, it := range items {
		n := out[it.ID]
		switch {
		case n > 1:
			problems = append(problems, fmt.Sprintf("%s has %d outstanding records", it.ID, n))
		case n == 1 && it.Available:
			problems = append(problems, fmt.Sprintf("%s is issued but marked available", it.ID))
		case n == 0 && !it.Available:
			problems = append(problems, fmt.Sprintf("%s is unavailable with no outstanding record", it.ID))
		}
	}
	return problems
}
