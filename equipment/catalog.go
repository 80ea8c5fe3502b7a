/*
catalog.go - Seed catalog and availability summaries

DEFAULT INVENTORY:
  Table Tennis: 6 bats, 1 ball
  Volleyball:   2 balls
  Basketball:   4 balls
  Cricket:      4 bats, 4 balls
  Football:     2 balls
  Badminton:    8 rackets, 1 shuttle

  Item ids are stable ("tt-bat-1", "cr-ball-3", ...) because issue records
  reference them.
*/
package equipment

import "fmt"

// DefaultCatalog returns a fresh copy of the seed inventory, all available.
func DefaultCatalog() []Item {
	var items []Item
	add := func(sport Sport, kind SubKind, id, name string) {
		items = append(items, Item{
			ID:        id,
			Sport:     sport,
			Name:      name,
			Available: true,
			Category:  sport.Category(),
			SubKind:   kind,
		})
	}
	numbered := func(sport Sport, kind SubKind, prefix, label string, n int) {
		for i := 1; i <= n; i++ {
			add(sport, kind, fmt.Sprintf("%s-%d", prefix, i), fmt.Sprintf("%s %d", label, i))
		}
	}

	numbered(SportTableTennis, SubKindBat, "tt-bat", "Table Tennis Bat", 6)
	add(SportTableTennis, SubKindBall, "tt-ball-1", "Table Tennis Ball")

	numbered(SportVolleyball, SubKindNone, "vb", "Volleyball", 2)
	numbered(SportBasketball, SubKindNone, "bb", "Basketball", 4)

	numbered(SportCricket, SubKindBat, "cr-bat", "Cricket Bat", 4)
	numbered(SportCricket, SubKindBall, "cr-ball", "Cricket Ball", 4)

	numbered(SportFootball, SubKindNone, "fb", "Football", 2)

	numbered(SportBadminton, SubKindRacket, "bd-racket", "Badminton Racket", 8)
	add(SportBadminton, SubKindShuttle, "bd-shuttle-1", "Badminton Shuttle")

	return items
}

// CategorySummary is the per-category availability shown on the dashboard.
type CategorySummary struct {
	Sport     Sport  `json:"type"`
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
}

// Summarize counts items per sport, in Sports order. Sports with no items
// in the catalog are omitted.
func Summarize(items []Item) []CategorySummary {
	counts := make(map[Sport]*CategorySummary)
	for _, it := range items {
		s, ok := counts[it.Sport]
		if !ok {
			s = &CategorySummary{Sport: it.Sport, Category: it.Category}
			counts[it.Sport] = s
		}
		s.Total++
		if it.Available {
			s.Available++
		}
	}

	out := make([]CategorySummary, 0, len(counts))
	for _, sp := range Sports {
		if s, ok := counts[sp]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// CountAvailable returns how many items of the sport and sub-kind are available.
func CountAvailable(items []Item, sport Sport, kind SubKind) int {
	n := 0
	for _, it := range items {
		if it.Sport == sport && it.SubKind == kind && it.Available {
			n++
		}
	}
	return n
}
