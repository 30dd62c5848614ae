// internal/handlers/issuance.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/firstscanit/fsi-backend/internal/i18n"
	"github.com/firstscanit/fsi-backend/internal/services"
	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

type IssuanceHandler struct {
	issuanceService *services.IssuanceService
	brandService    *services.BrandService
}

func NewIssuanceHandler(issuanceService *services.IssuanceService, brandService *services.BrandService) *IssuanceHandler {
	return &IssuanceHandler{
		issuanceService: issuanceService,
		brandService:    brandService,
	}
}

// POST /batches
func (h *IssuanceHandler) IssueBatch(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	brand, ok := currentBrand(c, h.brandService)
	if !ok {
		return
	}

	var req services.IssueBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	batch, err := h.issuanceService.IssueBatch(c.Request.Context(), brand, &req)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	message := i18n.T(lang, i18n.KeyIssuanceCreated)
	if batch.Clamped {
		message = i18n.T(lang, i18n.KeyIssuanceQuantityClamped, len(batch.Units))
	}

	utils.CreatedResponse(c, gin.H{
		"message": message,
		"batch":   batch,
	})
}

// GET /batches/:batchId/units
func (h *IssuanceHandler) ListBatchUnits(c *gin.Context) {
	brand, ok := currentBrand(c, h.brandService)
	if !ok {
		return
	}

	batchID := c.Param("batchId")
	units, err := h.issuanceService.ListBatchUnits(c.Request.Context(), batchID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	if len(units) == 0 || units[0].BrandID != brand.ID {
		utils.NotFoundResponse(c, "issuance.batch")
		return
	}

	params := utils.GetPaginationParams(c)
	lo, hi := utils.PageBounds(len(units), params)
	result := utils.CreatePaginationResult(units[lo:hi], int64(len(units)), params)
	utils.PaginatedResponse(c, result)
}

// GET /units
func (h *IssuanceHandler) ListBrandUnits(c *gin.Context) {
	brand, ok := currentBrand(c, h.brandService)
	if !ok {
		return
	}

	units, err := h.issuanceService.ListBrandUnits(c.Request.Context(), brand)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	lo, hi := utils.PageBounds(len(units), params)
	result := utils.CreatePaginationResult(units[lo:hi], int64(len(units)), params)
	utils.PaginatedResponse(c, result)
}

// GET /units/:unitId/challenges
func (h *IssuanceHandler) UnitChallenges(c *gin.Context) {
	brand, ok := currentBrand(c, h.brandService)
	if !ok {
		return
	}

	unitID := c.Param("unitId")
	responses, err := h.issuanceService.UnitChallenges(c.Request.Context(), brand, unitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFoundResponse(c, "issuance.unit")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"unit_id":   unitID,
		"responses": responses,
	})
}
