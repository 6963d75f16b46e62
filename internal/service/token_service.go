package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
)

const refreshTokenBytes = 32

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenService owns access token signing and the single refresh token row of each user.
type TokenService struct {
	jwt           *security.JWTManager
	refreshTokens repository.RefreshTokenRepository
	pepper        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(jwt *security.JWTManager, refreshTokens repository.RefreshTokenRepository, pepper string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		jwt:           jwt,
		refreshTokens: refreshTokens,
		pepper:        pepper,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *TokenService) IssueAccessToken(user *domain.User) (IssuedToken, error) {
	signed, exp, err := s.jwt.SignAccessToken(security.AccessTokenSubject{
		UserID: user.ID,
		Name:   user.FullName(),
		Email:  user.Email,
		Roles:  user.RoleNames(),
	}, s.accessTTL)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Value: signed, ExpiresAt: exp}, nil
}

// RotateRefreshToken replaces the user's refresh token with a fresh one.
func (s *TokenService) RotateRefreshToken(ctx context.Context, userID uuid.UUID) (IssuedToken, error) {
	raw, err := security.NewRandomString(refreshTokenBytes)
	if err != nil {
		return IssuedToken{}, err
	}
	exp := s.now().UTC().Add(s.refreshTTL)
	if err := s.refreshTokens.Rotate(ctx, userID, security.HashToken(raw, s.pepper), exp); err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Value: raw, ExpiresAt: exp}, nil
}

// ResolveRefreshToken returns the live token row for raw, with its user and roles loaded.
func (s *TokenService) ResolveRefreshToken(ctx context.Context, raw string) (*domain.RefreshToken, error) {
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	rt, err := s.refreshTokens.FindActiveByHash(ctx, security.HashToken(raw, s.pepper), s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if rt.User == nil || rt.User.IsArchived() {
		return nil, ErrInvalidRefreshToken
	}
	return rt, nil
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, userID uuid.UUID) error {
	err := s.refreshTokens.Revoke(ctx, userID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *TokenService) ParseAccessToken(ctx context.Context, raw string) (*security.Claims, error) {
	claims, err := s.jwt.ParseAccessToken(raw)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "invalid")
		return nil, err
	}
	observability.RecordAccessTokenValidation(ctx, "ok")
	return claims, nil
}
