// internal/handlers/verification.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/firstscanit/fsi-backend/internal/i18n"
	"github.com/firstscanit/fsi-backend/internal/models"
	"github.com/firstscanit/fsi-backend/internal/services"
	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

type VerificationHandler struct {
	verificationService *services.VerificationService
	pufService          *services.PUFService
	brandService        *services.BrandService
}

func NewVerificationHandler(
	verificationService *services.VerificationService,
	pufService *services.PUFService,
	brandService *services.BrandService,
) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
		pufService:          pufService,
		brandService:        brandService,
	}
}

// POST /verify
// Public: consumers scanning at a shelf have no account.
func (h *VerificationHandler) Verify(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	// Auth is optional here; a brand scanning its own stock gets its id
	// recorded with the event.
	if brandID, ok := utils.GetBrandIDFromContext(c); ok {
		req.ScannerBrandID = brandID
	}

	result, err := h.verificationService.Verify(c.Request.Context(), &req)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	// Verdicts, counterfeit ones included, are 200s: the verification
	// itself succeeded.
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, reasonMessageKey(result.Reason)),
		"result":  result,
	})
}

// GET /verify/challenges
// The public challenge set: wavelengths and angles only, never responses.
func (h *VerificationHandler) Challenges(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"challenges": h.pufService.Challenges(),
	})
}

// GET /units/:unitId/scans
func (h *VerificationHandler) ScanHistory(c *gin.Context) {
	brand, ok := currentBrand(c, h.brandService)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	unitID := c.Param("unitId")

	scans, err := h.verificationService.ScanHistory(c.Request.Context(), brand, unitID, params.Limit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFoundResponse(c, "issuance.unit")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"unit_id": unitID,
		"scans":   scans,
	})
}

func reasonMessageKey(reason models.ScanReason) string {
	switch reason {
	case models.ScanReasonVerified:
		return i18n.KeyVerifyGenuine
	case models.ScanReasonUnknownIdentifier:
		return i18n.KeyVerifyNotFound
	case models.ScanReasonInvalidSignature:
		return i18n.KeyVerifyInvalidSignature
	case models.ScanReasonDecryptionFailed:
		return i18n.KeyVerifyDecryptionFailed
	case models.ScanReasonCloneSuspected:
		return i18n.KeyVerifyCloneSuspected
	case models.ScanReasonPUFMismatch:
		return i18n.KeyVerifyPUFMismatch
	default:
		return i18n.KeyVerifyTampered
	}
}
