// internal/services/verification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/firstscanit/fsi-backend/internal/config"
	"github.com/firstscanit/fsi-backend/internal/models"
	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

// VerificationService judges scanned identifiers. Every call, whatever the
// outcome, appends exactly one scan event: the attempt itself is forensic
// signal, failed and unknown attempts included.
type VerificationService struct {
	store   store.Store
	cfg     *config.Config
	signing *SigningService
	puf     *PUFService
	qr      *QRService
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type VerifyRequest struct {
	Identifier   string                     `json:"identifier" validate:"required"`
	PUFResponses []models.ChallengeResponse `json:"puf_responses,omitempty"`
	Location     *Location                  `json:"location,omitempty"`
	DeviceID     string                     `json:"device_id,omitempty"`

	// Set by the handler when the caller presented a valid brand token,
	// never taken from the request body.
	ScannerBrandID string `json:"-"`
}

type ProductSummary struct {
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	UnitSuffix string `json:"unit_suffix"`
}

// VerifyResult is the verdict payload. Negative verdicts are successful
// responses, not errors; only store or internal failures surface as errors.
type VerifyResult struct {
	Verdict    models.Verdict    `json:"verdict"`
	Confidence int               `json:"confidence"`
	Reason     models.ScanReason `json:"reason"`
	Product    *ProductSummary   `json:"product,omitempty"`
}

// Confidence is a heuristic score, not a probability. Genuine never reaches
// 100: the system does not claim certainty.
const (
	confidenceNone       = 0
	confidenceSuspicious = 25
	confidenceGenuine    = 90
	confidenceGenuinePUF = 98
)

func NewVerificationService(
	st store.Store,
	cfg *config.Config,
	signing *SigningService,
	puf *PUFService,
	qr *QRService,
) *VerificationService {
	return &VerificationService{
		store:   st,
		cfg:     cfg,
		signing: signing,
		puf:     puf,
		qr:      qr,
	}
}

// Verify resolves the identifier and walks the check chain: signature,
// anti-cloning heuristic, then the PUF second factor when supplied.
func (s *VerificationService) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	unit, err := s.lookup(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.recordUnknown(ctx, req)
		}
		return nil, fmt.Errorf("failed to resolve identifier: %w", err)
	}

	brand, err := s.store.GetBrand(ctx, unit.BrandID)
	if err != nil {
		// A unit without its issuing brand is corrupted state, not a verdict.
		return nil, fmt.Errorf("failed to fetch issuing brand for %s: %w", unit.UnitID, err)
	}

	var result *VerifyResult
	err = s.store.WithUnitScanLock(ctx, unit.UnitID, func(locked store.Store) error {
		var lockErr error
		result, lockErr = s.judge(ctx, locked, unit, brand, req)
		return lockErr
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"unit_id":    unit.UnitID,
		"verdict":    result.Verdict,
		"reason":     result.Reason,
		"confidence": result.Confidence,
		"device_id":  req.DeviceID,
	}).Info("Verification completed")

	return result, nil
}

// lookup accepts either the identifier hash from a QR code or a decoded
// unit id. Exact match only.
func (s *VerificationService) lookup(ctx context.Context, identifier string) (*models.UnitRecord, error) {
	unit, err := s.store.GetUnitByIdentifier(ctx, identifier)
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.store.GetUnit(ctx, identifier)
}

// judge runs under the unit's scan lock: the history read and the event
// append are a single linearizable step per unit.
func (s *VerificationService) judge(
	ctx context.Context,
	locked store.Store,
	unit *models.UnitRecord,
	brand *models.Brand,
	req *VerifyRequest,
) (*VerifyResult, error) {
	// Sealed payload integrity first: an edited stored payload means the
	// record was tampered with at rest.
	if unit.SealedPayload != "" {
		if _, err := s.qr.Open(unit.SealedPayload); err != nil {
			return s.conclude(ctx, locked, unit, req, &VerifyResult{
				Verdict:    models.VerdictTampered,
				Confidence: confidenceNone,
				Reason:     models.ScanReasonDecryptionFailed,
			}, nil)
		}
	}

	if !s.signing.VerifyUnit(unit, unit.Signature, brand.PublicKeyPEM) {
		return s.conclude(ctx, locked, unit, req, &VerifyResult{
			Verdict:    models.VerdictTampered,
			Confidence: confidenceNone,
			Reason:     models.ScanReasonInvalidSignature,
		}, nil)
	}

	evidence, err := s.cloneSuspected(ctx, locked, unit, req)
	if err != nil {
		return nil, err
	}

	// The PUF second factor outranks the heuristic: a failed response pair
	// is cryptographic evidence, not a guess.
	for _, pair := range req.PUFResponses {
		if !s.puf.VerifyResponse(unit.UnitID, unit.BatchID, pair.ChallengeID, pair.Response) {
			return s.conclude(ctx, locked, unit, req, &VerifyResult{
				Verdict:    models.VerdictTampered,
				Confidence: confidenceNone,
				Reason:     models.ScanReasonPUFMismatch,
			}, nil)
		}
	}

	if evidence != nil {
		return s.conclude(ctx, locked, unit, req, &VerifyResult{
			Verdict:    models.VerdictSuspicious,
			Confidence: confidenceSuspicious,
			Reason:     models.ScanReasonCloneSuspected,
			Product:    productSummary(unit),
		}, models.JSONB{
			"distance_degrees": evidence.Distance,
			"prior_scan_at":    evidence.PriorScanAt,
		})
	}

	confidence := confidenceGenuine
	if len(req.PUFResponses) > 0 {
		confidence = confidenceGenuinePUF
	}

	return s.conclude(ctx, locked, unit, req, &VerifyResult{
		Verdict:    models.VerdictGenuine,
		Confidence: confidence,
		Reason:     models.ScanReasonVerified,
		Product:    productSummary(unit),
	}, nil)
}

// cloneEvidence is the prior scan that made the heuristic fire; it is
// persisted with the suspicious event for later investigation.
type cloneEvidence struct {
	Distance    float64
	PriorScanAt time.Time
}

// cloneSuspected checks recent history for a scan whose recorded location
// is implausibly far from this one given the elapsed time. Heuristic, not
// cryptographic: GPS noise and fast legitimate re-scans can false-positive.
// Prior events without a recorded location carry no position and are skipped.
func (s *VerificationService) cloneSuspected(
	ctx context.Context,
	locked store.Store,
	unit *models.UnitRecord,
	req *VerifyRequest,
) (*cloneEvidence, error) {
	if req.Location == nil {
		return nil, nil
	}

	history, err := locked.ListScansForUnit(ctx, unit.UnitID, s.cfg.Verification.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scan history: %w", err)
	}

	window := time.Duration(s.cfg.Verification.CloneWindowHours * float64(time.Hour))
	now := time.Now()

	for _, prior := range history {
		if prior.Latitude == nil || prior.Longitude == nil {
			continue
		}
		if now.Sub(prior.Timestamp) > window {
			continue
		}
		distance := math.Hypot(req.Location.Lat-*prior.Latitude, req.Location.Lon-*prior.Longitude)
		if distance > s.cfg.Verification.CloneDistance {
			return &cloneEvidence{Distance: distance, PriorScanAt: prior.Timestamp}, nil
		}
	}
	return nil, nil
}

// conclude appends the scan event for this attempt and returns the result.
func (s *VerificationService) conclude(
	ctx context.Context,
	locked store.Store,
	unit *models.UnitRecord,
	req *VerifyRequest,
	result *VerifyResult,
	meta models.JSONB,
) (*VerifyResult, error) {
	event := &models.ScanEvent{
		UnitID:     unit.UnitID,
		BatchID:    unit.BatchID,
		IsValid:    result.Verdict == models.VerdictGenuine || result.Verdict == models.VerdictSuspicious,
		Suspicious: result.Verdict == models.VerdictSuspicious,
		Verdict:    result.Verdict,
		Reason:     result.Reason,
		Metadata:   withScannerBrand(meta, req),
		DeviceID:   req.DeviceID,
		Timestamp:  time.Now(),
	}
	if req.Location != nil {
		event.Latitude = &req.Location.Lat
		event.Longitude = &req.Location.Lon
	}

	if err := locked.AppendScan(ctx, event); err != nil {
		// A store failure must not masquerade as a counterfeit verdict.
		return nil, fmt.Errorf("failed to append scan event: %w", err)
	}
	return result, nil
}

// recordUnknown handles identifiers that resolve to nothing. The event
// stores the unknown identifier in place of a unit id: referencing an id
// that was never issued is itself a signal.
func (s *VerificationService) recordUnknown(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	event := &models.ScanEvent{
		UnitID:     truncateIdentifier(req.Identifier),
		IsValid:    false,
		Suspicious: true,
		Verdict:    models.VerdictNotFound,
		Reason:     models.ScanReasonUnknownIdentifier,
		Metadata:   withScannerBrand(nil, req),
		DeviceID:   req.DeviceID,
		Timestamp:  time.Now(),
	}
	if req.Location != nil {
		event.Latitude = &req.Location.Lat
		event.Longitude = &req.Location.Lon
	}

	if err := s.store.AppendScan(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append scan event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"identifier": truncateIdentifier(req.Identifier),
		"device_id":  req.DeviceID,
	}).Warn("Unknown identifier scanned")

	return &VerifyResult{
		Verdict:    models.VerdictNotFound,
		Confidence: confidenceNone,
		Reason:     models.ScanReasonUnknownIdentifier,
	}, nil
}

// ScanHistory returns the most recent events for a unit owned by brand.
func (s *VerificationService) ScanHistory(ctx context.Context, brand *models.Brand, unitID string, limit int) ([]models.ScanEvent, error) {
	unit, err := s.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.BrandID != brand.ID {
		return nil, store.ErrNotFound
	}
	return s.store.ListScansForUnit(ctx, unitID, limit)
}

func productSummary(unit *models.UnitRecord) *ProductSummary {
	return &ProductSummary{
		Name:       unit.ProductName,
		Brand:      unit.BrandName,
		UnitSuffix: unitSuffix(unit.UnitID),
	}
}

// unitSuffix extracts "UNIT-0001" from a full unit id; clients compare it
// against the serial printed on the physical package.
func unitSuffix(unitID string) string {
	if idx := strings.Index(unitID, "UNIT-"); idx >= 0 {
		return unitID[idx:]
	}
	return unitID
}

// withScannerBrand stamps the authenticated scanner's brand id onto the
// event metadata when one was presented.
func withScannerBrand(meta models.JSONB, req *VerifyRequest) models.JSONB {
	if req.ScannerBrandID == "" {
		return meta
	}
	if meta == nil {
		meta = models.JSONB{}
	}
	meta["scanner_brand_id"] = req.ScannerBrandID
	return meta
}

func truncateIdentifier(identifier string) string {
	if len(identifier) > 64 {
		return identifier[:64]
	}
	return identifier
}
