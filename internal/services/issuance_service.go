// internal/services/issuance_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/firstscanit/fsi-backend/internal/config"
	"github.com/firstscanit/fsi-backend/internal/models"
	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

// IssuanceService builds, signs and persists per-unit records for a batch of
// manufactured goods. One store write per unit; a failure partway through
// leaves a prefix of the batch persisted, which is safe to retry per missing
// unit because unit ids are deterministic within a batch.
type IssuanceService struct {
	store     store.Store
	cfg       *config.Config
	signing   *SigningService
	puf       *PUFService
	qr        *QRService
	artifacts *ArtifactService
	billing   *BillingService
}

type IssueBatchRequest struct {
	ProductName string `json:"product_name" validate:"required,min=2,max=255"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	Facility    string `json:"facility" validate:"required,min=2,max=255"`
}

type IssuedUnit struct {
	UnitID      string `json:"unit_id"`
	Identifier  string `json:"identifier"`
	QRContent   string `json:"qr_content"`
	ArtifactURL string `json:"artifact_url,omitempty"`
}

type IssuedBatch struct {
	BatchID     string          `json:"batch_id"`
	ProductName string          `json:"product_name"`
	BrandName   string          `json:"brand_name"`
	Facility    string          `json:"facility"`
	Quantity    int             `json:"quantity"`
	Clamped     bool            `json:"clamped"`
	Units       []IssuedUnit    `json:"units"`
	Charge      *IssuanceCharge `json:"charge,omitempty"`
}

func NewIssuanceService(
	st store.Store,
	cfg *config.Config,
	signing *SigningService,
	puf *PUFService,
	qr *QRService,
	artifacts *ArtifactService,
	billing *BillingService,
) *IssuanceService {
	return &IssuanceService{
		store:     st,
		cfg:       cfg,
		signing:   signing,
		puf:       puf,
		qr:        qr,
		artifacts: artifacts,
		billing:   billing,
	}
}

// GenerateBatchID builds "BATCH-<unix ms>-<token>". Collisions across
// concurrent calls in the same millisecond are possible and accepted as
// negligible.
func GenerateBatchID() (string, error) {
	token, err := utils.GenerateBatchToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate batch token: %w", err)
	}
	return fmt.Sprintf("BATCH-%d-%s", time.Now().UnixMilli(), token), nil
}

func (s *IssuanceService) IssueBatch(ctx context.Context, brand *models.Brand, req *IssueBatchRequest) (*IssuedBatch, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Clamp, don't reject: a runaway quantity bounds request cost instead
	// of failing the whole batch.
	quantity := req.Quantity
	clamped := false
	if quantity > s.cfg.Issuance.MaxUnitsPerBatch {
		quantity = s.cfg.Issuance.MaxUnitsPerBatch
		clamped = true
	}

	batchID, err := GenerateBatchID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	manufacturingDate := now.Format("2006-01-02")
	expiryDate := now.AddDate(s.cfg.Issuance.ExpiryYears, 0, 0).Format("2006-01-02")

	batch := &IssuedBatch{
		BatchID:     batchID,
		ProductName: req.ProductName,
		BrandName:   brand.Name,
		Facility:    req.Facility,
		Quantity:    quantity,
		Clamped:     clamped,
		Units:       make([]IssuedUnit, 0, quantity),
	}

	for i := 1; i <= quantity; i++ {
		unitID := fmt.Sprintf("%s-UNIT-%04d", batchID, i)

		pufSignature := s.puf.ChallengeSignature(unitID, batchID)

		sealed, err := s.qr.Seal(unitID, batchID, req.ProductName, brand.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to seal QR payload for %s: %w", unitID, err)
		}

		record := &models.UnitRecord{
			UnitID:             unitID,
			BatchID:            batchID,
			BrandID:            brand.ID,
			ProductName:        req.ProductName,
			BrandName:          brand.Name,
			Facility:           req.Facility,
			ManufacturingDate:  manufacturingDate,
			ExpiryDate:         expiryDate,
			PUFMasterSignature: pufSignature.MasterSignature,
			Identifier:         sealed.Identifier,
			SealedPayload:      sealed.SealedPayload,
		}

		signature, err := s.signing.SignUnit(record, brand.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to sign %s: %w", unitID, err)
		}
		record.Signature = signature

		if err := s.store.CreateUnit(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to persist %s (batch %s has %d units persisted): %w",
				unitID, batchID, i-1, err)
		}

		issued := IssuedUnit{
			UnitID:     unitID,
			Identifier: sealed.Identifier,
			QRContent:  sealed.QRContent,
		}

		if s.artifacts != nil && s.artifacts.Enabled() {
			url, err := s.artifacts.Archive(&ProofArtifact{
				UnitID:     unitID,
				BatchID:    batchID,
				Identifier: sealed.Identifier,
				QRContent:  sealed.QRContent,
				IssuedAt:   now,
			})
			if err != nil {
				// Archiving is best effort; the unit is already persisted.
				logrus.WithError(err).WithField("unit_id", unitID).Warn("Failed to archive proof artifact")
			} else {
				issued.ArtifactURL = url
			}
		}

		batch.Units = append(batch.Units, issued)
	}

	if s.billing != nil && s.billing.Enabled() {
		charge, err := s.billing.ChargeIssuance(brand.ID, batchID, len(batch.Units))
		if err != nil {
			// Units are issued; surface the billing failure without undoing them.
			return nil, fmt.Errorf("batch %s issued but billing failed: %w", batchID, err)
		}
		batch.Charge = charge
	}

	logrus.WithFields(logrus.Fields{
		"batch_id": batchID,
		"brand_id": brand.ID,
		"product":  req.ProductName,
		"quantity": len(batch.Units),
		"clamped":  clamped,
	}).Info("Batch issued")

	return batch, nil
}

func (s *IssuanceService) ListBatchUnits(ctx context.Context, batchID string) ([]models.UnitRecord, error) {
	return s.store.ListUnits(ctx, batchID)
}

func (s *IssuanceService) ListBrandUnits(ctx context.Context, brand *models.Brand) ([]models.UnitRecord, error) {
	return s.store.ListUnitsByBrand(ctx, brand.ID)
}

// UnitChallenges returns the challenge/response table used to provision a
// reader app for one unit. The caller must own the unit: responses are the
// second factor and never leave the brand's boundary otherwise.
func (s *IssuanceService) UnitChallenges(ctx context.Context, brand *models.Brand, unitID string) ([]models.ChallengeResponse, error) {
	unit, err := s.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.BrandID != brand.ID {
		return nil, store.ErrNotFound
	}
	return s.puf.ChallengeTable(unit.UnitID, unit.BatchID), nil
}
