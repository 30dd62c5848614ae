// internal/store/memory_test.go
package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstscanit/fsi-backend/internal/models"
)

func testBrand(name, email string) *models.Brand {
	return &models.Brand{
		Name:   name,
		Email:  email,
		Status: models.BrandStatusActive,
	}
}

func testUnit(unitID, batchID, identifier string, brandID uuid.UUID) *models.UnitRecord {
	return &models.UnitRecord{
		UnitID:     unitID,
		BatchID:    batchID,
		BrandID:    brandID,
		Identifier: identifier,
	}
}

func TestBrandCRUD(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	brand := testBrand("Acme Pharma", "ops@acme.example")
	require.NoError(t, m.CreateBrand(ctx, brand))
	require.NotEqual(t, uuid.Nil, brand.ID)

	got, err := m.GetBrand(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Pharma", got.Name)

	byName, err := m.GetBrandByName(ctx, "Acme Pharma")
	require.NoError(t, err)
	assert.Equal(t, brand.ID, byName.ID)

	byEmail, err := m.GetBrandByEmail(ctx, "ops@acme.example")
	require.NoError(t, err)
	assert.Equal(t, brand.ID, byEmail.ID)

	_, err = m.GetBrand(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBrandRejectsDuplicates(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.CreateBrand(ctx, testBrand("Acme Pharma", "ops@acme.example")))

	err := m.CreateBrand(ctx, testBrand("Acme Pharma", "other@acme.example"))
	assert.ErrorIs(t, err, ErrDuplicate)

	err = m.CreateBrand(ctx, testBrand("Other Labs", "ops@acme.example"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUnitLookup(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	brandID := uuid.New()

	unit := testUnit("batch-1-UNIT-0001", "batch-1", "ident-1", brandID)
	require.NoError(t, m.CreateUnit(ctx, unit))

	got, err := m.GetUnit(ctx, "batch-1-UNIT-0001")
	require.NoError(t, err)
	assert.Equal(t, "ident-1", got.Identifier)

	byIdent, err := m.GetUnitByIdentifier(ctx, "ident-1")
	require.NoError(t, err)
	assert.Equal(t, "batch-1-UNIT-0001", byIdent.UnitID)

	// Exact match only: a prefix must not resolve
	_, err = m.GetUnitByIdentifier(ctx, "ident")
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.CreateUnit(ctx, testUnit("batch-1-UNIT-0001", "batch-1", "ident-x", brandID))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestListUnitsSorted(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	brandID := uuid.New()

	for _, i := range []int{3, 1, 2} {
		unitID := fmt.Sprintf("batch-1-UNIT-%04d", i)
		require.NoError(t, m.CreateUnit(ctx, testUnit(unitID, "batch-1", "ident-"+unitID, brandID)))
	}
	require.NoError(t, m.CreateUnit(ctx, testUnit("batch-2-UNIT-0001", "batch-2", "ident-other", brandID)))

	units, err := m.ListUnits(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "batch-1-UNIT-0001", units[0].UnitID)
	assert.Equal(t, "batch-1-UNIT-0003", units[2].UnitID)

	byBrand, err := m.ListUnitsByBrand(ctx, brandID)
	require.NoError(t, err)
	assert.Len(t, byBrand, 4)
}

func TestScanHistoryNewestFirst(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		require.NoError(t, m.AppendScan(ctx, &models.ScanEvent{
			UnitID:    "unit-1",
			Verdict:   models.VerdictGenuine,
			Reason:    models.ScanReasonVerified,
			IsValid:   true,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	scans, err := m.ListScansForUnit(ctx, "unit-1", 5)
	require.NoError(t, err)
	require.Len(t, scans, 5)
	for i := 1; i < len(scans); i++ {
		assert.True(t, scans[i-1].Timestamp.After(scans[i].Timestamp))
	}

	all, err := m.ListScansForUnit(ctx, "unit-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestStats(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.CreateBrand(ctx, testBrand("Acme Pharma", "ops@acme.example")))
	require.NoError(t, m.CreateUnit(ctx, testUnit("u1", "b1", "i1", uuid.New())))

	require.NoError(t, m.AppendScan(ctx, &models.ScanEvent{UnitID: "u1", IsValid: true}))
	require.NoError(t, m.AppendScan(ctx, &models.ScanEvent{UnitID: "u1", IsValid: true, Suspicious: true}))
	require.NoError(t, m.AppendScan(ctx, &models.ScanEvent{UnitID: "bogus", IsValid: false, Suspicious: true}))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalBrands)
	assert.Equal(t, int64(1), stats.TotalUnits)
	assert.Equal(t, int64(3), stats.TotalScans)
	assert.Equal(t, int64(1), stats.GenuineScans)
	assert.Equal(t, int64(2), stats.CounterfeitScans)
}

func TestWithUnitScanLockSerializes(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithUnitScanLock(ctx, "unit-1", func(s Store) error {
				// Unsynchronized increment: only safe if the lock serializes
				v := counter
				counter = v + 1
				return s.AppendScan(ctx, &models.ScanEvent{UnitID: "unit-1"})
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	scans, err := m.ListScansForUnit(ctx, "unit-1", 0)
	require.NoError(t, err)
	assert.Len(t, scans, 50)
}
