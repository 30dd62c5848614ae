// internal/services/brand_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/firstscanit/fsi-backend/internal/config"
	"github.com/firstscanit/fsi-backend/internal/models"
	"github.com/firstscanit/fsi-backend/internal/store"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

// BrandService registers issuing authorities and authenticates them. Each
// brand gets its signing key pair exactly once, at registration.
type BrandService struct {
	store   store.Store
	cfg     *config.Config
	signing *SigningService
}

type RegisterBrandRequest struct {
	Name       string   `json:"name" validate:"required,brand_name"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,strong_password"`
	Facilities []string `json:"facilities,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Brand        *models.Brand `json:"brand"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"` // in seconds
}

var (
	ErrBrandExists        = errors.New("brand already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBrandSuspended     = errors.New("brand account is suspended")
)

func NewBrandService(st store.Store, cfg *config.Config, signing *SigningService) *BrandService {
	return &BrandService{
		store:   st,
		cfg:     cfg,
		signing: signing,
	}
}

func (s *BrandService) Register(ctx context.Context, req *RegisterBrandRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Name check runs before key generation; the store's uniqueness
	// constraint still backstops races.
	if _, err := s.store.GetBrandByName(ctx, req.Name); err == nil {
		return nil, ErrBrandExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check brand name: %w", err)
	}

	keyPair, err := s.signing.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing keys: %w", err)
	}

	brand := &models.Brand{
		Name:          req.Name,
		Email:         req.Email,
		Facilities:    req.Facilities,
		PublicKeyPEM:  keyPair.PublicKeyPEM,
		PrivateKeyPEM: keyPair.PrivateKeyPEM,
		Status:        models.BrandStatusActive,
	}
	if err := brand.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.CreateBrand(ctx, brand); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrBrandExists
		}
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}

	return s.buildAuthResponse(brand)
}

func (s *BrandService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	brand, err := s.store.GetBrandByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch brand: %w", err)
	}

	if !brand.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	if brand.Status != models.BrandStatusActive {
		return nil, ErrBrandSuspended
	}

	return s.buildAuthResponse(brand)
}

func (s *BrandService) GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	return s.store.GetBrand(ctx, id)
}

func (s *BrandService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	brandID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	brand, err := s.store.GetBrand(ctx, brandID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch brand: %w", err)
	}

	if brand.Status != models.BrandStatusActive {
		return nil, ErrBrandSuspended
	}

	return s.buildAuthResponse(brand)
}

func (s *BrandService) buildAuthResponse(brand *models.Brand) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(brand.ID, brand.Name, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(brand.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		Brand:        brand,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}
