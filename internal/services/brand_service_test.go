// internal/services/brand_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstscanit/fsi-backend/internal/store"
)

func newTestBrandService() *BrandService {
	return NewBrandService(store.NewMemoryStore(), testConfig(), NewSigningService())
}

func TestRegisterBrand(t *testing.T) {
	svc := newTestBrandService()

	resp, err := svc.Register(context.Background(), &RegisterBrandRequest{
		Name:     "Acme Pharma",
		Email:    "ops@acmepharma.example",
		Password: "Str0ngPass!word",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Contains(t, resp.Brand.PublicKeyPEM, "PUBLIC KEY")
	assert.Contains(t, resp.Brand.PrivateKeyPEM, "PRIVATE KEY")
}

func TestRegisterBrandDuplicateName(t *testing.T) {
	svc := newTestBrandService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterBrandRequest{
		Name:     "Acme Pharma",
		Email:    "ops@acmepharma.example",
		Password: "Str0ngPass!word",
	})
	require.NoError(t, err)

	// Same name under a different email is still taken
	_, err = svc.Register(ctx, &RegisterBrandRequest{
		Name:     "Acme Pharma",
		Email:    "other@acmepharma.example",
		Password: "Str0ngPass!word",
	})
	assert.ErrorIs(t, err, ErrBrandExists)
}

func TestRegisterBrandDuplicateEmail(t *testing.T) {
	svc := newTestBrandService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterBrandRequest{
		Name:     "Acme Pharma",
		Email:    "ops@acmepharma.example",
		Password: "Str0ngPass!word",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterBrandRequest{
		Name:     "Beacon Labs",
		Email:    "ops@acmepharma.example",
		Password: "Str0ngPass!word",
	})
	assert.ErrorIs(t, err, ErrBrandExists)
}
