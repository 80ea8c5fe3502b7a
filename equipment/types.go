/*
Package equipment defines the issuable sports items.

PURPOSE:
  The catalog is the static description of every item the sports room lends
  out: identity, sport, display category, sub-kind and availability. Business
  rules never parse item names; they dispatch on Sport and SubKind.

KEY CONCEPTS:
  - Sport: enumerated sport type ("table-tennis", "cricket", ...)
  - SubKind: finer item class within a sport (bat, ball, racket, shuttle)
  - Item: one physical unit, JSON-compatible with the portal's stored catalog

JSON SHAPE:
  {"id":"tt-bat-1","type":"table-tennis","name":"Table Tennis Bat 1",
   "available":true,"category":"Table Tennis","subKind":"bat"}

SEE ALSO:
  - catalog.go: Default catalog and availability summaries
  - checkout/limits.go: Per-sport caps keyed by Sport and SubKind
*/
package equipment

import (
	"fmt"
	"strings"
)

// =============================================================================
// SPORT
// =============================================================================

type Sport string

const (
	SportTableTennis Sport = "table-tennis"
	SportVolleyball  Sport = "volleyball"
	SportBasketball  Sport = "basketball"
	SportCricket     Sport = "cricket"
	SportFootball    Sport = "football"
	SportBadminton   Sport = "badminton"
)

// Sports lists every sport in display order.
var Sports = []Sport{
	SportTableTennis,
	SportVolleyball,
	SportBasketball,
	SportCricket,
	SportFootball,
	SportBadminton,
}

var categories = map[Sport]string{
	SportTableTennis: "Table Tennis",
	SportVolleyball:  "Volleyball",
	SportBasketball:  "Basketball",
	SportCricket:     "Cricket",
	SportFootball:    "Football",
	SportBadminton:   "Badminton",
}

// Category returns the display grouping for the sport.
func (s Sport) Category() string { return categories[s] }

// Valid reports whether s is a known sport.
func (s Sport) Valid() bool {
	_, ok := categories[s]
	return ok
}

func (s Sport) String() string { return string(s) }

// ParseSport validates a sport identifier.
func ParseSport(s string) (Sport, error) {
	sp := Sport(strings.TrimSpace(s))
	if !sp.Valid() {
		return "", fmt.Errorf("unknown sport %q", s)
	}
	return sp, nil
}

// =============================================================================
// SUB-KIND
// =============================================================================

// SubKind is the item class inside a sport. The zero value means the sport
// does not distinguish item classes (a volleyball is just a volleyball).
type SubKind string

const (
	SubKindNone    SubKind = ""
	SubKindBat     SubKind = "bat"
	SubKindBall    SubKind = "ball"
	SubKindRacket  SubKind = "racket"
	SubKindShuttle SubKind = "shuttle"
)

// ParseSubKind validates a sub-kind identifier. The empty string is valid.
func ParseSubKind(s string) (SubKind, error) {
	switch k := SubKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SubKindNone, SubKindBat, SubKindBall, SubKindRacket, SubKindShuttle:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sub-kind %q", s)
	}
}

// nameMarkers is checked in order; "Bat" must win over "Ball" for names
// such as "Cricket Bat 1".
var nameMarkers = []struct {
	marker string
	kind   SubKind
}{
	{"Bat", SubKindBat},
	{"Ball", SubKindBall},
	{"Racket", SubKindRacket},
	{"Shuttle", SubKindShuttle},
}

// ClassifyName infers a sub-kind from a display name.
// Only used for catalogs and issue records stored before SubKind existed.
func ClassifyName(name string) SubKind {
	for _, m := range nameMarkers {
		if strings.Contains(name, m.marker) {
			return m.kind
		}
	}
	return SubKindNone
}

// Label is the human word for the sub-kind, used in advisories.
func (k SubKind) Label() string {
	if k == SubKindNone {
		return "item"
	}
	return string(k)
}

// =============================================================================
// ITEM
// =============================================================================

// Item is one issuable unit.
type Item struct {
	ID        string  `json:"id"`
	Sport     Sport   `json:"type"`
	Name      string  `json:"name"`
	Available bool    `json:"available"`
	Category  string  `json:"category"`
	SubKind   SubKind `json:"subKind,omitempty"`
}

// Normalize fills fields a legacy stored item may lack.
func (it *Item) Normalize() {
	if it.SubKind == SubKindNone {
		it.SubKind = ClassifyName(it.Name)
	}
	if it.Category == "" {
		it.Category = it.Sport.Category()
	}
}

// Find returns the index of the item with the given id, or -1.
func Find(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
