package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type RefreshTokenRepository interface {
	// Rotate creates the user's refresh token row or replaces its content in place.
	Rotate(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type GormRefreshTokenRepository struct{ db *gorm.DB }

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

func (r *GormRefreshTokenRepository) Rotate(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	row := domain.RefreshToken{
		Model:     domain.Model{CreatedAt: now, UpdatedAt: &now},
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	err := conn(ctx, r.db).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "expires_at", "updated_at", "archived_at"}),
	}).Create(&row).Error
	err = translate(err, ErrRefreshTokenNotFound)
	recordOp(ctx, "refresh_token", "rotate", err)
	return err
}

func (r *GormRefreshTokenRepository) FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := notArchived(conn(ctx, r.db)).Preload("User").Preload("User.Roles", notArchived).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		First(&token).Error
	err = translate(err, ErrRefreshTokenNotFound)
	recordOp(ctx, "refresh_token", "find_active_by_hash", err)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *GormRefreshTokenRepository) Revoke(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := notArchived(conn(ctx, r.db).Model(&domain.RefreshToken{})).Where("user_id = ?", userID).
		Updates(map[string]any{"archived_at": at, "updated_at": at}).Error
	recordOp(ctx, "refresh_token", "revoke", err)
	return err
}
