// internal/domain/company/service.go
package company

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/wholesale-backend/internal/config"
	"github.com/your-org/wholesale-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Service errors
var (
	ErrCompanyNotFound    = errors.New("company not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// Service handles company account business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	jwt       *auth.JWTManager
	passwords *auth.PasswordManager
}

// NewService creates a new company service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		jwt:       auth.NewJWTManager(cfg),
		passwords: auth.NewPasswordManager(cfg),
	}
}

// RegisterRequest represents company registration data
type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token pair and the account.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Company      *Company `json:"company"`
}

// Register creates a new buyer account.
func (s *Service) Register(req *RegisterRequest) (*Company, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing Company
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("company with email %s already exists", email)
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	comp := Company{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleBuyer,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     true,
	}

	if err := s.db.Create(&comp).Error; err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	comp.Code = comp.GenerateCode()
	if err := s.db.Model(&comp).Update("code", comp.Code).Error; err != nil {
		return nil, fmt.Errorf("failed to assign company code: %w", err)
	}

	return &comp, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(req *LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var comp Company
	if err := s.db.Where("email = ?", email).First(&comp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}

	if err := s.passwords.VerifyPassword(req.Password, comp.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !comp.IsActive {
		return nil, ErrAccountDisabled
	}

	accessToken, err := s.jwt.GenerateAccessToken(comp.ID, comp.Email, comp.IsAdmin())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwt.GenerateRefreshToken(comp.ID, comp.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	s.db.Model(&comp).Update("last_login_at", now)
	comp.LastLoginAt = &now

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Company:      &comp,
	}, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair.
func (s *Service) RefreshTokens(refreshToken string) (*LoginResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	comp, err := s.GetCompany(claims.CompanyID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !comp.IsActive {
		return nil, ErrAccountDisabled
	}

	accessToken, err := s.jwt.GenerateAccessToken(comp.ID, comp.Email, comp.IsAdmin())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefresh, err := s.jwt.GenerateRefreshToken(comp.ID, comp.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		Company:      comp,
	}, nil
}

// GetCompany retrieves a company by ID.
func (s *Service) GetCompany(id uint) (*Company, error) {
	var comp Company
	if err := s.db.First(&comp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCompanyNotFound, id)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &comp, nil
}
