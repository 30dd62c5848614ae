// internal/services/qr_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstscanit/fsi-backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Issuance: config.IssuanceConfig{
			MaxUnitsPerBatch: 100,
			ExpiryYears:      3,
		},
		Verification: config.VerificationConfig{
			CloneWindowHours: 0.1,
			CloneDistance:    1.0,
			HistoryLimit:     5,
		},
		QR: config.QRConfig{
			EncryptionKeyHex: strings.Repeat("ab", 32),
			IVHex:            strings.Repeat("cd", 16),
			VerifyBaseURL:    "https://verify.example.com/verify",
		},
	}
}

func newTestQRService(t *testing.T) *QRService {
	t.Helper()
	qr, err := NewQRService(testConfig())
	require.NoError(t, err)
	return qr
}

func TestSealAndOpen(t *testing.T) {
	qr := newTestQRService(t)

	sealed, err := qr.Seal("unit-1", "batch-1", "Amoxicillin 500mg", "Acme Pharma")
	require.NoError(t, err)

	assert.Equal(t, "unit-1", sealed.UnitID)
	assert.Len(t, sealed.Identifier, 64)
	assert.Contains(t, sealed.SealedPayload, "::")
	assert.Equal(t, "https://verify.example.com/verify?h="+sealed.Identifier, sealed.QRContent)

	payload, err := qr.Open(sealed.SealedPayload)
	require.NoError(t, err)
	assert.Equal(t, "unit-1", payload.UnitID)
	assert.Equal(t, "batch-1", payload.BatchID)
	assert.Equal(t, "Amoxicillin 500mg", payload.ProductName)
	assert.Equal(t, "Acme Pharma", payload.BrandName)
	assert.NotEmpty(t, payload.Nonce)
}

func TestSealedPayloadsAreUniquePerUnit(t *testing.T) {
	qr := newTestQRService(t)

	first, err := qr.Seal("unit-1", "batch-1", "Amoxicillin 500mg", "Acme Pharma")
	require.NoError(t, err)
	second, err := qr.Seal("unit-1", "batch-1", "Amoxicillin 500mg", "Acme Pharma")
	require.NoError(t, err)

	// The nonce makes identical inputs seal differently
	assert.NotEqual(t, first.SealedPayload, second.SealedPayload)
	assert.NotEqual(t, first.Identifier, second.Identifier)
}

func TestOpenRejectsTampering(t *testing.T) {
	qr := newTestQRService(t)

	sealed, err := qr.Seal("unit-1", "batch-1", "Amoxicillin 500mg", "Acme Pharma")
	require.NoError(t, err)

	flipped := "0"
	if sealed.SealedPayload[0] == '0' {
		flipped = "1"
	}

	tests := []struct {
		name    string
		payload string
	}{
		{"flipped ciphertext byte", flipped + sealed.SealedPayload[1:]},
		{"truncated tag", sealed.SealedPayload[:len(sealed.SealedPayload)-2]},
		{"missing separator", strings.ReplaceAll(sealed.SealedPayload, "::", "--")},
		{"empty", ""},
		{"garbage", "not a sealed payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := qr.Open(tt.payload)
			assert.ErrorIs(t, err, ErrSealedPayloadTampered)
		})
	}
}

func TestNewQRServiceRejectsBadKeyMaterial(t *testing.T) {
	cfg := testConfig()
	cfg.QR.EncryptionKeyHex = "abcd" // 2 bytes, not 32
	_, err := NewQRService(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.QR.IVHex = "zzzz"
	_, err = NewQRService(cfg)
	assert.Error(t, err)
}

func TestNewQRServiceGeneratesKeyWhenUnconfigured(t *testing.T) {
	cfg := testConfig()
	cfg.QR.EncryptionKeyHex = ""
	cfg.QR.IVHex = ""

	qr, err := NewQRService(cfg)
	require.NoError(t, err)

	sealed, err := qr.Seal("unit-1", "batch-1", "Amoxicillin 500mg", "Acme Pharma")
	require.NoError(t, err)

	payload, err := qr.Open(sealed.SealedPayload)
	require.NoError(t, err)
	assert.Equal(t, "unit-1", payload.UnitID)
}
