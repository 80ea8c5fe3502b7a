/*
Package factory converts JSON or YAML cap tables into checkout.LimitTable.

PURPOSE:
  Lets the sports room change borrowing caps without a code change. The
  default table lives in checkout.DefaultLimits; a file replaces it whole.

JSON SCHEMA:
  {
    "limits": [
      {"sport": "table-tennis", "sub_kinds": {"bat": 2, "ball": 1}},
      {"sport": "volleyball", "total": 1},
      {"sport": "cricket", "total": 2, "sub_kinds": {"bat": 1, "ball": 1}}
    ]
  }

  The YAML form uses the same keys.

VALIDATION:
  - sport must be a known sport, listed once
  - sub-kind keys must be known sub-kinds (not empty)
  - caps must be >= 0; 0 means "no cap"

USAGE:
  table, err := factory.LoadLimitsFile("limits.yaml")
  engine.Limits = table
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/equipment"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LimitsJSON is the file representation of a cap table.
type LimitsJSON struct {
	Limits []LimitJSON `json:"limits" yaml:"limits"`
}

// LimitJSON is one sport's caps.
type LimitJSON struct {
	Sport    string         `json:"sport" yaml:"sport"`
	Total    int            `json:"total,omitempty" yaml:"total,omitempty"`
	SubKinds map[string]int `json:"sub_kinds,omitempty" yaml:"sub_kinds,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

func ParseLimitsJSON(data []byte) (checkout.LimitTable, error) {
	var doc LimitsJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid limits JSON: %w", err)
	}
	return BuildLimits(doc)
}

func ParseLimitsYAML(data []byte) (checkout.LimitTable, error) {
	var doc LimitsJSON
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid limits YAML: %w", err)
	}
	return BuildLimits(doc)
}

// LoadLimitsFile picks the parser from the file extension (.json, .yaml, .yml).
func LoadLimitsFile(path string) (checkout.LimitTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limits file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseLimitsJSON(data)
	case ".yaml", ".yml":
		return ParseLimitsYAML(data)
	default:
		return nil, fmt.Errorf("unsupported limits file extension %q", filepath.Ext(path))
	}
}

// BuildLimits validates a decoded document.
func BuildLimits(doc LimitsJSON) (checkout.LimitTable, error) {
	table := make(checkout.LimitTable, len(doc.Limits))
	for i, l := range doc.Limits {
		sport, err := equipment.ParseSport(l.Sport)
		if err != nil {
			return nil, fmt.Errorf("limits[%d]: %w", i, err)
		}
		if _, dup := table[sport]; dup {
			return nil, fmt.Errorf("limits[%d]: sport %s listed twice", i, sport)
		}
		if l.Total < 0 {
			return nil, fmt.Errorf("limits[%d]: negative total %d", i, l.Total)
		}

		lim := checkout.Limit{Total: l.Total}
		if len(l.SubKinds) > 0 {
			lim.SubKinds = make(map[equipment.SubKind]int, len(l.SubKinds))
			for name, n := range l.SubKinds {
				kind, err := equipment.ParseSubKind(name)
				if err != nil || kind == equipment.SubKindNone {
					return nil, fmt.Errorf("limits[%d]: unknown sub-kind %q", i, name)
				}
				if n < 0 {
					return nil, fmt.Errorf("limits[%d]: negative cap %d for %s", i, n, kind)
				}
				lim.SubKinds[kind] = n
			}
		}
		table[sport] = lim
	}
	return table, nil
}

// ToJSON renders a table back into the file schema, sports in display order.
func ToJSON(table checkout.LimitTable) LimitsJSON {
	doc := LimitsJSON{Limits: []LimitJSON{}}
	for _, sport := range equipment.Sports {
		lim, ok := table[sport]
		if !ok {
			continue
		}
		l := LimitJSON{Sport: string(sport), Total: lim.Total}
		if len(lim.SubKinds) > 0 {
			l.SubKinds = make(map[string]int, len(lim.SubKinds))
			for k, n := range lim.SubKinds {
				l.SubKinds[string(k)] = n
			}
		}
		doc.Limits = append(doc.Limits, l)
	}
	return doc
}
