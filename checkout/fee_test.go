package checkout_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/sports-checkout/checkout"
)

var t0 = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// =============================================================================
// LATE FEE TESTS
// =============================================================================

func TestAccrue_Schedule(t *testing.T) {
	due := t0
	tests := []struct {
		name  string
		after time.Duration
		want  int64
	}{
		{"before due", -time.Hour, 0},
		{"at due", 0, 0},
		{"one hour late", time.Hour, 0},
		{"just under a day", 24*time.Hour - time.Millisecond, 0},
		{"exactly one day", 24 * time.Hour, 10},
		{"25 hours", 25 * time.Hour, 10},
		{"50 hours", 50 * time.Hour, 30},
		{"three days", 72 * time.Hour, 60},
		{"ten days", 240 * time.Hour, 550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkout.Accrue(due, due.Add(tt.after)))
		})
	}
}

func TestAccrue_MonotonicAndTriangular(t *testing.T) {
	var prev int64
	for d := int64(0); d <= 30; d++ {
		now := t0.Add(time.Duration(d) * 24 * time.Hour)
		fee := checkout.Accrue(t0, now)
		assert.Equal(t, 10*d*(d+1)/2, fee, "day %d", d)
		assert.GreaterOrEqual(t, fee, prev)
		prev = fee
	}
}

func TestFeeSchedule_Custom(t *testing.T) {
	fees := checkout.FeeSchedule{Step: 5, Day: time.Hour}
	assert.Equal(t, int64(2), fees.DaysLate(t0, t0.Add(150*time.Minute)))
	assert.Equal(t, int64(15), fees.Accrue(t0, t0.Add(150*time.Minute)))
}

// =============================================================================
// COUNTDOWN TESTS
// =============================================================================

func TestTimeRemaining_FreshIssue(t *testing.T) {
	due := t0.Add(2 * time.Hour)

	c := checkout.TimeRemaining(due, t0)
	assert.Equal(t, checkout.Countdown{Hours: 2, PercentRemaining: 100}, c)
}

func TestTimeRemaining_Partial(t *testing.T) {
	due := t0.Add(2 * time.Hour)
	now := t0.Add(30*time.Minute + 15*time.Second)

	c := checkout.TimeRemaining(due, now)
	assert.False(t, c.IsLate)
	assert.Equal(t, 1, c.Hours)
	assert.Equal(t, 29, c.Minutes)
	assert.Equal(t, 45, c.Seconds)
	// 5385s / 7200s
	assert.Equal(t, 74.79, c.PercentRemaining)
}

func TestTimeRemaining_Late(t *testing.T) {
	due := t0
	for _, now := range []time.Time{t0, t0.Add(time.Second), t0.Add(48 * time.Hour)} {
		assert.Equal(t, checkout.Countdown{IsLate: true}, checkout.TimeRemaining(due, now))
	}
}

func TestTimeRemaining_ClampsLongWindow(t *testing.T) {
	// dueAt further away than the window (window shortened after issue)
	policy := checkout.LoanPolicy{Window: time.Hour, Fees: checkout.DefaultFeeSchedule}
	c := policy.TimeRemaining(t0.Add(3*time.Hour), t0)
	assert.Equal(t, float64(100), c.PercentRemaining)
	assert.Equal(t, 3, c.Hours)
}

func TestCountdowns_LiveFeeOnlyOutstanding(t *testing.T) {
	returned := checkout.NewTimestamp(t0.Add(time.Hour))
	records := []checkout.IssueRecord{
		{ID: "a", EquipmentID: "fb-1", EquipmentName: "Football 1", DueAt: checkout.NewTimestamp(t0)},
		{ID: "b", EquipmentID: "fb-2", EquipmentName: "Football 2", DueAt: checkout.NewTimestamp(t0), ReturnedAt: &returned},
		{ID: "c", EquipmentID: "vb-1", EquipmentName: "Volleyball 1", DueAt: checkout.NewTimestamp(t0.Add(72 * time.Hour))},
	}

	now := t0.Add(49 * time.Hour)
	out := checkout.DefaultLoanPolicy.Countdowns(records, now)

	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].IssueID)
	assert.True(t, out[0].IsLate)
	assert.Equal(t, int64(30), out[0].LateFee)
	assert.Equal(t, "c", out[1].IssueID)
	assert.False(t, out[1].IsLate)
	assert.Equal(t, 23, out[1].Hours)

	// stored records are untouched
	assert.Zero(t, records[0].LateFee)
}
