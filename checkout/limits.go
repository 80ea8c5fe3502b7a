/*
limits.go - Declarative per-sport borrowing caps

PURPOSE:
  Caps are data, not branches. Each sport maps to an optional sport-wide
  total and optional per-sub-kind caps; one function evaluates any table.

DEFAULT TABLE:
  table-tennis  bat <= 2, ball <= 1
  volleyball    total <= 1
  basketball    total <= 1
  cricket       total <= 2, bat <= 1, ball <= 1
  football      total <= 1
  badminton     total <= 3, racket <= 2, shuttle <= 1

EVALUATION:
  Counting uses only outstanding records of the same sport. The sub-kind cap
  is checked before the total so the rejection names the specific item class.
  A zero cap or a missing entry means "no cap".

SEE ALSO:
  - factory/limits.go: Tables from JSON or YAML
*/
package checkout

import "github.com/warp/sports-checkout/equipment"

// Limit is the cap rule for one sport.
type Limit struct {
	Total    int
	SubKinds map[equipment.SubKind]int
}

// LimitTable maps sports to their caps. Sports absent from the table are
// uncapped.
type LimitTable map[equipment.Sport]Limit

// DefaultLimits returns the sports-room borrowing rules.
func DefaultLimits() LimitTable {
	return LimitTable{
		equipment.SportTableTennis: {
			SubKinds: map[equipment.SubKind]int{
				equipment.SubKindBat:  2,
				equipment.SubKindBall: 1,
			},
		},
		equipment.SportVolleyball: {Total: 1},
		equipment.SportBasketball: {Total: 1},
		equipment.SportCricket: {
			Total: 2,
			SubKinds: map[equipment.SubKind]int{
				equipment.SubKindBat:  1,
				equipment.SubKindBall: 1,
			},
		},
		equipment.SportFootball: {Total: 1},
		equipment.SportBadminton: {
			Total: 3,
			SubKinds: map[equipment.SubKind]int{
				equipment.SubKindRacket:  2,
				equipment.SubKindShuttle: 1,
			},
		},
	}
}

// Check returns a *LimitExceededError if admitting item would break a cap,
// given all issue records (returned ones are ignored).
func (t LimitTable) Check(item equipment.Item, records []IssueRecord) error {
	lim, ok := t[item.Sport]
	if !ok {
		return nil
	}
	held := heldOfSport(records, item.Sport)

	if item.SubKind != equipment.SubKindNone {
		if limit := lim.SubKinds[item.SubKind]; limit > 0 {
			n := 0
			for _, r := range held {
				if r.SubKind() == item.SubKind {
					n++
				}
			}
			if n >= limit {
				return &LimitExceededError{Sport: item.Sport, SubKind: item.SubKind, Held: n, Cap: limit}
			}
		}
	}

	if lim.Total > 0 && len(held) >= lim.Total {
		return &LimitExceededError{Sport: item.Sport, Held: len(held), Cap: lim.Total}
	}
	return nil
}
