package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	DefaultAccessTokenExpiration  = 15 * time.Minute
	DefaultRefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// ProfileService defines the interface for sign-up, sign-in and profile logic
type ProfileService interface {
	Register(ctx context.Context, email, password, fullName, phone string) (*domain.Profile, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, profile *domain.Profile, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetProfile(ctx context.Context, identity *domain.Identity) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, identity *domain.Identity, update domain.ProfileUpdate) (*domain.Profile, error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin"`
	jwt.RegisteredClaims
}

// Identity is the actor the token was issued to
func (c *Claims) Identity() *domain.Identity {
	return &domain.Identity{ID: c.UserID, Email: c.Email, IsAdmin: c.IsAdmin}
}

// TokenConfig sets the signing secret and token lifetimes
type TokenConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type profileService struct {
	store  repository.Store
	tokens TokenConfig
	logger *zap.Logger
	clock  Clock
}

// NewProfileService creates a new instance of ProfileService
func NewProfileService(store repository.Store, tokens TokenConfig, logger *zap.Logger) ProfileService {
	if tokens.AccessExpiry <= 0 {
		tokens.AccessExpiry = DefaultAccessTokenExpiration
	}
	if tokens.RefreshExpiry <= 0 {
		tokens.RefreshExpiry = DefaultRefreshTokenExpiration
	}
	return &profileService{
		store:  store,
		tokens: tokens,
		logger: logger,
		clock:  systemClock,
	}
}

// Register creates a customer profile with a hashed password
func (s *profileService) Register(ctx context.Context, email, password, fullName, phone string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}
	if len(password) < 8 {
		return nil, domain.NewValidationError("password", "password must be at least 8 characters")
	}

	// Check if profile already exists
	existing, err := s.store.Profiles().FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, storeErr("check existing profile", err)
	}
	if existing != nil {
		return nil, repository.ErrProfileAlreadyExists
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock()
	profile := &domain.Profile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		FullName:     fullName,
		Phone:        phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Profiles().Create(ctx, profile); err != nil {
		return nil, storeErr("create profile", err)
	}

	s.logger.Info("Profile registered", zap.String("user_id", profile.ID.String()))
	return profile, nil
}

// Login authenticates a profile and returns JWT tokens
func (s *profileService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, profile *domain.Profile, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	profile, err = s.store.Profiles().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, storeErr("find profile", err)
	}

	if err := s.verifyPassword(profile.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err = s.generateAccessToken(profile)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, profile)
	if err != nil {
		return "", "", nil, storeErr("create refresh token", err)
	}

	return accessToken, refreshToken, profile, nil
}

// Logout invalidates the refresh token
func (s *profileService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.RefreshTokens().Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return storeErr("revoke refresh token", err)
	}
	return nil
}

// RefreshToken mints a new access token from a valid refresh token. The
// profile is re-read so a changed admin flag takes effect.
func (s *profileService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.store.RefreshTokens().FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", storeErr("find refresh token", err)
	}

	if s.clock().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	profile, err := s.store.Profiles().FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", storeErr("find profile", err)
	}

	newAccessToken, err := s.generateAccessToken(profile)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *profileService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := ParseToken(tokenString, s.tokens.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ParseToken verifies an HS256 access token signed with secret
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *profileService) GetProfile(ctx context.Context, identity *domain.Identity) (*domain.Profile, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	profile, err := s.store.Profiles().FindByID(ctx, identity.ID)
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	return profile, nil
}

// UpdateProfile changes only the fields set in update
func (s *profileService) UpdateProfile(ctx context.Context, identity *domain.Identity, update domain.ProfileUpdate) (*domain.Profile, error) {
	if err := domain.RequireIdentity(identity); err != nil {
		return nil, err
	}

	var profile *domain.Profile
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Profiles().FindByID(ctx, identity.ID)
		if err != nil {
			return err
		}
		if update.FullName != nil {
			existing.FullName = strings.TrimSpace(*update.FullName)
		}
		if update.Phone != nil {
			existing.Phone = strings.TrimSpace(*update.Phone)
		}
		existing.UpdatedAt = s.clock()
		if err := tx.Profiles().Update(ctx, existing); err != nil {
			return err
		}
		profile = existing
		return nil
	})
	if err != nil {
		return nil, storeErr("update profile", err)
	}

	return profile, nil
}

func (s *profileService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *profileService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (s *profileService) generateAccessToken(profile *domain.Profile) (string, error) {
	now := s.clock()
	claims := &Claims{
		UserID:  profile.ID,
		Email:   profile.Email,
		IsAdmin: profile.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokens.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokens.Secret))
}

// generateRefreshToken creates a refresh token and stores it
func (s *profileService) generateRefreshToken(ctx context.Context, profile *domain.Profile) (string, error) {
	now := s.clock()
	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    profile.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.tokens.RefreshExpiry),
		CreatedAt: now,
	}

	if err := s.store.RefreshTokens().Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return refreshToken.Token, nil
}
