// internal/services/issuance_service_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstscanit/fsi-backend/internal/models"
	"github.com/firstscanit/fsi-backend/internal/store"
)

func newTestIssuance(t *testing.T) (*IssuanceService, *store.MemoryStore, *models.Brand) {
	t.Helper()

	st := store.NewMemoryStore()
	cfg := testConfig()
	signing := NewSigningService()
	puf := NewPUFService()
	qr, err := NewQRService(cfg)
	require.NoError(t, err)

	pair, err := signing.GenerateKeyPair()
	require.NoError(t, err)

	brand := &models.Brand{
		Name:          "Acme Pharma",
		Email:         "ops@acmepharma.example",
		PublicKeyPEM:  pair.PublicKeyPEM,
		PrivateKeyPEM: pair.PrivateKeyPEM,
		Status:        models.BrandStatusActive,
	}
	require.NoError(t, brand.SetPassword("Str0ngPass!word"))
	require.NoError(t, st.CreateBrand(context.Background(), brand))

	svc := NewIssuanceService(st, cfg, signing, puf, qr, nil, nil)
	return svc, st, brand
}

func TestGenerateBatchID(t *testing.T) {
	id, err := GenerateBatchID()
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "BATCH", parts[0])
	assert.Len(t, parts[2], 6)
}

func TestIssueBatch(t *testing.T) {
	svc, st, brand := newTestIssuance(t)
	ctx := context.Background()

	batch, err := svc.IssueBatch(ctx, brand, &IssueBatchRequest{
		ProductName: "Amoxicillin 500mg",
		Quantity:    3,
		Facility:    "Plant 7",
	})
	require.NoError(t, err)

	assert.False(t, batch.Clamped)
	assert.Equal(t, 3, batch.Quantity)
	require.Len(t, batch.Units, 3)

	for i, unit := range batch.Units {
		assert.Equal(t, fmt.Sprintf("%s-UNIT-%04d", batch.BatchID, i+1), unit.UnitID)
		assert.Len(t, unit.Identifier, 64)
		assert.Contains(t, unit.QRContent, unit.Identifier)

		// Each unit resolves by identifier and carries a valid signature
		record, err := st.GetUnitByIdentifier(ctx, unit.Identifier)
		require.NoError(t, err)
		assert.Equal(t, unit.UnitID, record.UnitID)
		assert.Equal(t, "Amoxicillin 500mg", record.ProductName)
		assert.NotEmpty(t, record.PUFMasterSignature)
		assert.True(t, NewSigningService().VerifyUnit(record, record.Signature, brand.PublicKeyPEM))
	}
}

func TestIssueBatchClampsQuantity(t *testing.T) {
	svc, _, brand := newTestIssuance(t)

	batch, err := svc.IssueBatch(context.Background(), brand, &IssueBatchRequest{
		ProductName: "Amoxicillin 500mg",
		Quantity:    5000,
		Facility:    "Plant 7",
	})
	require.NoError(t, err)

	assert.True(t, batch.Clamped)
	assert.Len(t, batch.Units, testConfig().Issuance.MaxUnitsPerBatch)
}

func TestIssueBatchValidation(t *testing.T) {
	svc, _, brand := newTestIssuance(t)
	ctx := context.Background()

	_, err := svc.IssueBatch(ctx, brand, &IssueBatchRequest{
		ProductName: "",
		Quantity:    1,
		Facility:    "Plant 7",
	})
	assert.Error(t, err)

	_, err = svc.IssueBatch(ctx, brand, &IssueBatchRequest{
		ProductName: "Amoxicillin 500mg",
		Quantity:    0,
		Facility:    "Plant 7",
	})
	assert.Error(t, err)
}

func TestIssueBatchIdentifiersAreUnique(t *testing.T) {
	svc, _, brand := newTestIssuance(t)

	batch, err := svc.IssueBatch(context.Background(), brand, &IssueBatchRequest{
		ProductName: "Amoxicillin 500mg",
		Quantity:    20,
		Facility:    "Plant 7",
	})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, unit := range batch.Units {
		assert.False(t, seen[unit.Identifier], "identifier reused: %s", unit.Identifier)
		seen[unit.Identifier] = true
	}
}

func TestUnitChallengesOwnership(t *testing.T) {
	svc, st, brand := newTestIssuance(t)
	ctx := context.Background()

	batch, err := svc.IssueBatch(ctx, brand, &IssueBatchRequest{
		ProductName: "Amoxicillin 500mg",
		Quantity:    1,
		Facility:    "Plant 7",
	})
	require.NoError(t, err)
	unitID := batch.Units[0].UnitID

	responses, err := svc.UnitChallenges(ctx, brand, unitID)
	require.NoError(t, err)
	assert.Len(t, responses, 4)

	// Another brand must not see the challenge table
	other := &models.Brand{Name: "Other Labs", Email: "ops@otherlabs.example", Status: models.BrandStatusActive}
	require.NoError(t, other.SetPassword("Str0ngPass!word"))
	require.NoError(t, st.CreateBrand(ctx, other))

	_, err = svc.UnitChallenges(ctx, other, unitID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListBrandUnits(t *testing.T) {
	svc, _, brand := newTestIssuance(t)
	ctx := context.Background()

	_, err := svc.IssueBatch(ctx, brand, &IssueBatchRequest{
		ProductName: "Amoxicillin 500mg",
		Quantity:    2,
		Facility:    "Plant 7",
	})
	require.NoError(t, err)

	units, err := svc.ListBrandUnits(ctx, brand)
	require.NoError(t, err)
	assert.Len(t, units, 2)
}
