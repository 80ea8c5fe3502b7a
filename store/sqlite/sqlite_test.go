package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
	"github.com/warp/sports-checkout/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(id, equipmentID string) checkout.IssueRecord {
	issued := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	return checkout.IssueRecord{
		ID:                id,
		EquipmentID:       equipmentID,
		EquipmentName:     "Football 1",
		EquipmentType:     equipment.SportFootball,
		EquipmentCategory: "Football",
		IssuedAt:          checkout.NewTimestamp(issued),
		DueAt:             checkout.NewTimestamp(issued.Add(2 * time.Hour)),
	}
}

// =============================================================================
// COLLECTION TESTS
// =============================================================================

func TestStore_EmptyDatabase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	u, err := store.LoadCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := equipment.DefaultCatalog()
	items[0].Available = false
	require.NoError(t, store.SaveCatalog(ctx, items))

	returned := checkout.NewTimestamp(time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC))
	closed := sampleRecord("b", "fb-2")
	closed.ReturnedAt = &returned
	closed.LateFee = 10
	records := []checkout.IssueRecord{sampleRecord("a", "fb-1"), closed}
	require.NoError(t, store.SaveIssueRecords(ctx, records))

	gotItems, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, gotItems)

	gotRecords, err := store.LoadIssueRecords(ctx)
	require.NoError(t, err)
	require.Len(t, gotRecords, 2)
	assert.Equal(t, "a", gotRecords[0].ID)
	assert.Nil(t, gotRecords[0].ReturnedAt)
	require.NotNil(t, gotRecords[1].ReturnedAt)
	assert.True(t, gotRecords[1].ReturnedAt.Equal(returned.Time))
	assert.Equal(t, int64(10), gotRecords[1].LateFee)
}

func TestStore_Overwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveIssueRecords(ctx, []checkout.IssueRecord{sampleRecord("a", "fb-1")}))
	require.NoError(t, store.SaveIssueRecords(ctx, []checkout.IssueRecord{}))

	got, err := store.LoadIssueRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	users := []session.User{{Name: "Asha", EnrollmentNumber: "EN1", Password: "secret1"}}
	require.NoError(t, store.SaveUsers(ctx, users))
	require.NoError(t, store.SaveCurrentUser(ctx, &users[0]))

	got, err := store.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, got)

	current, err := store.LoadCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "EN1", current.EnrollmentNumber)

	require.NoError(t, store.ClearCurrentUser(ctx))
	current, err = store.LoadCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithTxCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s checkout.Store) error {
		if err := s.SaveCatalog(ctx, equipment.DefaultCatalog()); err != nil {
			return err
		}
		return s.SaveIssueRecords(ctx, []checkout.IssueRecord{sampleRecord("a", "fb-1")})
	})
	require.NoError(t, err)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment", "issuedEquipment"}, keys)
}

func TestStore_WithTxRollback(t *testing.T) {
	// GIVEN: A stored catalog
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCatalog(ctx, equipment.DefaultCatalog()))

	// WHEN: A transaction writes both collections, then fails
	err := store.WithTx(ctx, func(s checkout.Store) error {
		items := equipment.DefaultCatalog()
		items[0].Available = false
		if err := s.SaveCatalog(ctx, items); err != nil {
			return err
		}
		if err := s.SaveIssueRecords(ctx, []checkout.IssueRecord{sampleRecord("a", "tt-bat-1")}); err != nil {
			return err
		}
		return errors.New("boom")
	})

	// THEN: Neither write is visible
	require.Error(t, err)

	items, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.True(t, items[0].Available)

	records, err := store.LoadIssueRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_EngineIssueAndReturn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	engine := checkout.NewEngine(store, store)
	_, err := engine.Load(ctx)
	require.NoError(t, err)

	res, err := engine.Issue(ctx, "cr-bat-1")
	require.NoError(t, err)

	_, err = engine.Return(ctx, res.Record.ID)
	require.NoError(t, err)

	snap, err := engine.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Outstanding)
	assert.Len(t, snap.History, 1)
	assert.Empty(t, checkout.VerifyInventory(snap.Catalog, append(snap.Outstanding, snap.History...)))
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCatalog(ctx, equipment.DefaultCatalog()))
	require.NoError(t, store.SaveUsers(ctx, []session.User{{EnrollmentNumber: "EN1"}}))

	require.NoError(t, store.Reset(ctx))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveCatalog(ctx, equipment.DefaultCatalog()))
	require.NoError(t, store.Close())

	store, err = sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	items, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(equipment.DefaultCatalog()))
}
