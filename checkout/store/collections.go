/*
Package store provides checkout and session stores over a key/value backend.

STORAGE MODEL:
  Every collection is one JSON document under a fixed key, overwritten as a
  whole on each save:

    equipment        []equipment.Item
    issuedEquipment  []checkout.IssueRecord
    users            []session.User
    currentUser      session.User (absent when logged out)

  A missing key loads as an empty collection. Values are stored exactly as
  encoded, so Save(Load()) leaves them unchanged.

IMPLEMENTATIONS:
  - memory.go: map backend with snapshot rollback
  - store/sqlite: SQLite table backend
*/
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
)

const (
	KeyEquipment   = "equipment"
	KeyIssues      = "issuedEquipment"
	KeyUsers       = "users"
	KeyCurrentUser = "currentUser"
)

// Backend is raw key/value storage. Get returns nil, nil for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Collections implements checkout.Store and session.Store over a Backend.
type Collections struct {
	Backend Backend
}

var (
	_ checkout.Store = Collections{}
	_ session.Store  = Collections{}
)

func (c Collections) LoadCatalog(ctx context.Context) ([]equipment.Item, error) {
	items := []equipment.Item{}
	if err := c.load(ctx, KeyEquipment, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c Collections) SaveCatalog(ctx context.Context, items []equipment.Item) error {
	if items == nil {
		items = []equipment.Item{}
	}
	return c.save(ctx, KeyEquipment, items)
}

func (c Collections) LoadIssueRecords(ctx context.Context) ([]checkout.IssueRecord, error) {
	records := []checkout.IssueRecord{}
	if err := c.load(ctx, KeyIssues, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c Collections) SaveIssueRecords(ctx context.Context, records []checkout.IssueRecord) error {
	if records == nil {
		records = []checkout.IssueRecord{}
	}
	return c.save(ctx, KeyIssues, records)
}

func (c Collections) LoadUsers(ctx context.Context) ([]session.User, error) {
	users := []session.User{}
	if err := c.load(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c Collections) SaveUsers(ctx context.Context, users []session.User) error {
	if users == nil {
		users = []session.User{}
	}
	return c.save(ctx, KeyUsers, users)
}

func (c Collections) LoadCurrentUser(ctx context.Context) (*session.User, error) {
	raw, err := c.Backend.Get(ctx, KeyCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", KeyCurrentUser, err)
	}
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var u session.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyCurrentUser, err)
	}
	return &u, nil
}

func (c Collections) SaveCurrentUser(ctx context.Context, user *session.User) error {
	if user == nil {
		return c.ClearCurrentUser(ctx)
	}
	return c.save(ctx, KeyCurrentUser, user)
}

func (c Collections) ClearCurrentUser(ctx context.Context) error {
	return c.Backend.Delete(ctx, KeyCurrentUser)
}

func (c Collections) load(ctx context.Context, key string, dst any) error {
	raw, err := c.Backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c Collections) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.Backend.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
