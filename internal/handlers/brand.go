// internal/handlers/brand.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/firstscanit/fsi-backend/internal/i18n"
	"github.com/firstscanit/fsi-backend/internal/models"
	"github.com/firstscanit/fsi-backend/internal/services"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

type BrandHandler struct {
	brandService *services.BrandService
}

func NewBrandHandler(brandService *services.BrandService) *BrandHandler {
	return &BrandHandler{
		brandService: brandService,
	}
}

// POST /auth/register
func (h *BrandHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	authResponse, err := h.brandService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrBrandExists) {
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyBrandExists))
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyAuthRegisterSuccess),
		"brand":         authResponse.Brand,
		"token":         authResponse.AccessToken,
		"refresh_token": authResponse.RefreshToken,
		"token_type":    authResponse.TokenType,
		"expires_in":    authResponse.ExpiresIn,
	})
}

// POST /auth/login
func (h *BrandHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	authResponse, err := h.brandService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrBrandSuspended) {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyBrandSuspended))
			return
		}
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"brand":         authResponse.Brand,
		"token":         authResponse.AccessToken,
		"refresh_token": authResponse.RefreshToken,
		"token_type":    authResponse.TokenType,
		"expires_in":    authResponse.ExpiresIn,
	})
}

// POST /auth/refresh
func (h *BrandHandler) RefreshToken(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	authResponse, err := h.brandService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token":         authResponse.AccessToken,
		"refresh_token": authResponse.RefreshToken,
		"token_type":    authResponse.TokenType,
		"expires_in":    authResponse.ExpiresIn,
	})
}

// GET /auth/me
func (h *BrandHandler) GetProfile(c *gin.Context) {
	brand, ok := h.currentBrand(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, gin.H{
		"brand": brand,
	})
}

func (h *BrandHandler) currentBrand(c *gin.Context) (*models.Brand, bool) {
	return currentBrand(c, h.brandService)
}

// currentBrand resolves the authenticated brand from the JWT claims set by
// the auth middleware. Writes the error response itself on failure.
func currentBrand(c *gin.Context, brandService *services.BrandService) (*models.Brand, bool) {
	brandIDStr, exists := utils.GetBrandIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return nil, false
	}

	brandID, err := uuid.Parse(brandIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return nil, false
	}

	brand, err := brandService.GetBrand(c.Request.Context(), brandID)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return nil, false
	}
	return brand, true
}
