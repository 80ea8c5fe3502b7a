/*
fee.go - Late fee accrual and due-time countdowns

LATE FEE SCHEDULE:
  daysLate = floor((now - dueAt) / 24h), a continuous 24h unit measured
  from the due instant, not calendar days.

    day 1: 10    total 10
    day 2: 20    total 30
    day 3: 30    total 60

  Closed form: Step * d * (d+1) / 2. Nothing accrues until a full day has
  elapsed past dueAt.

COUNTDOWN:
  TimeRemaining is a display projection recomputed every tick. It has no
  state and never writes anywhere.

Both functions take "now" explicitly.
*/
package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FEE SCHEDULE
// =============================================================================

// FeeSchedule is a triangular schedule: day i overdue costs Step*i.
type FeeSchedule struct {
	Step int64
	Day  time.Duration
}

var DefaultFeeSchedule = FeeSchedule{Step: 10, Day: 24 * time.Hour}

// DaysLate returns whole days elapsed past dueAt, or 0 when not overdue.
func (f FeeSchedule) DaysLate(dueAt, now time.Time) int64 {
	day := f.Day
	if day <= 0 {
		day = 24 * time.Hour
	}
	over := now.Sub(dueAt)
	if over <= 0 {
		return 0
	}
	return int64(over / day)
}

// Accrue returns the total late fee owed at now.
func (f FeeSchedule) Accrue(dueAt, now time.Time) int64 {
	d := f.DaysLate(dueAt, now)
	if d <= 0 {
		return 0
	}
	return f.Step * d * (d + 1) / 2
}

// Accrue applies the default schedule.
func Accrue(dueAt, now time.Time) int64 {
	return DefaultFeeSchedule.Accrue(dueAt, now)
}

// accrueAll rewrites LateFee on every outstanding record and reports how
// many changed. Returned records are history and left untouched.
func (f FeeSchedule) accrueAll(records []IssueRecord, now time.Time) int {
	changed := 0
	for i := range records {
		if !records[i].Outstanding() {
			continue
		}
		fee := f.Accrue(records[i].DueAt.Time, now)
		if fee != records[i].LateFee {
			records[i].LateFee = fee
			changed++
		}
	}
	return changed
}

// =============================================================================
// LOAN POLICY
// =============================================================================

// LoanPolicy fixes the checkout window and the fee schedule.
type LoanPolicy struct {
	Window time.Duration
	Fees   FeeSchedule
}

var DefaultLoanPolicy = LoanPolicy{Window: 2 * time.Hour, Fees: DefaultFeeSchedule}

// Countdown is the remaining checkout time broken down for display.
type Countdown struct {
	Hours            int     `json:"hours"`
	Minutes          int     `json:"minutes"`
	Seconds          int     `json:"seconds"`
	IsLate           bool    `json:"isLate"`
	PercentRemaining float64 `json:"percentRemaining"`
}

var hundred = decimal.NewFromInt(100)

// TimeRemaining projects dueAt against now.
func (p LoanPolicy) TimeRemaining(dueAt, now time.Time) Countdown {
	remaining := dueAt.Sub(now)
	if remaining <= 0 {
		return Countdown{IsLate: true}
	}

	pct := hundred
	if p.Window > 0 {
		pct = decimal.NewFromInt(int64(remaining)).
			Div(decimal.NewFromInt(int64(p.Window))).
			Mul(hundred)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		if pct.IsNegative() {
			pct = decimal.Zero
		}
	}

	return Countdown{
		Hours:            int(remaining / time.Hour),
		Minutes:          int(remaining % time.Hour / time.Minute),
		Seconds:          int(remaining % time.Minute / time.Second),
		PercentRemaining: pct.Round(2).InexactFloat64(),
	}
}

// TimeRemaining applies the default two-hour window.
func TimeRemaining(dueAt, now time.Time) Countdown {
	return DefaultLoanPolicy.TimeRemaining(dueAt, now)
}

// IssueCountdown is one outstanding record as the dashboard ticks it.
type IssueCountdown struct {
	IssueID       string    `json:"issueId"`
	EquipmentID   string    `json:"equipmentId"`
	EquipmentName string    `json:"equipmentName"`
	DueAt         Timestamp `json:"dueAt"`
	LateFee       int64     `json:"lateFee"`
	Countdown
}

// Countdowns projects every outstanding record at now. LateFee is the live
// accrual at now, which may be ahead of the stored value.
func (p LoanPolicy) Countdowns(records []IssueRecord, now time.Time) []IssueCountdown {
	out := []IssueCountdown{}
	for _, r := range records {
		if !r.Outstanding() {
			continue
		}
		out = append(out, IssueCountdown{
			IssueID:       r.ID,
			EquipmentID:   r.EquipmentID,
			EquipmentName: r.EquipmentName,
			DueAt:         r.DueAt,
			LateFee:       p.Fees.Accrue(r.DueAt.Time, now),
			Countdown:     p.TimeRemaining(r.DueAt.Time, now),
		})
	}
	return out
}
