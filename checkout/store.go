/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  The engine owns no storage. It reads and overwrites two independent
  collections, the equipment catalog and the issue records, through these
  interfaces. Writes are whole-collection overwrites.

KEY INTERFACES:
  EquipmentStore: load/save the catalog
  IssueStore:     load/save issue records
  Transactor:     optional; both collections written atomically
  UserSource:     who is logged in

IMPLEMENTATIONS:
  - checkout/store/memory.go: In-memory, for tests and demos
  - store/sqlite/sqlite.go:   SQLite key/value store

ROUND-TRIP CONTRACT:
  SaveCatalog(LoadCatalog()) and SaveIssueRecords(LoadIssueRecords()) must
  leave the stored JSON unchanged.
*/
package checkout

import (
	"context"

	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
)

type EquipmentStore interface {
	LoadCatalog(ctx context.Context) ([]equipment.Item, error)
	SaveCatalog(ctx context.Context, items []equipment.Item) error
}

type IssueStore interface {
	LoadIssueRecords(ctx context.Context) ([]IssueRecord, error)
	SaveIssueRecords(ctx context.Context, records []IssueRecord) error
}

// Store is both collections behind one handle.
type Store interface {
	EquipmentStore
	IssueStore
}

// Transactor is implemented by stores that can write both collections
// atomically. If fn returns an error nothing fn wrote is kept.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UserSource reports the logged-in user, or nil when nobody is.
type UserSource interface {
	CurrentUser(ctx context.Context) (*session.User, error)
}
