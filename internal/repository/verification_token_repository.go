package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type VerificationTokenRepository interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	InvalidateActiveByUserPurpose(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) error
	FindActive(ctx context.Context, userID uuid.UUID, hash, purpose string, now time.Time) (*domain.VerificationToken, error)
	Consume(ctx context.Context, tokenID, userID uuid.UUID, now time.Time) error
}

type GormVerificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &GormVerificationTokenRepository{db: db}
}

func (r *GormVerificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	err := conn(ctx, r.db).Create(token).Error
	recordOp(ctx, "verification_token", "create", err)
	return err
}

func (r *GormVerificationTokenRepository) InvalidateActiveByUserPurpose(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) error {
	err := conn(ctx, r.db).Model(&domain.VerificationToken{}).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", userID, purpose, now).
		Updates(map[string]any{"used_at": now, "updated_at": now}).Error
	recordOp(ctx, "verification_token", "invalidate", err)
	return err
}

// FindActive returns the unused, unexpired token of the given purpose issued to userID.
func (r *GormVerificationTokenRepository) FindActive(ctx context.Context, userID uuid.UUID, hash, purpose string, now time.Time) (*domain.VerificationToken, error) {
	var token domain.VerificationToken
	err := conn(ctx, r.db).
		Where("user_id = ? AND token_hash = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", userID, hash, purpose, now).
		First(&token).Error
	err = translate(err, ErrVerificationTokenNotFound)
	recordOp(ctx, "verification_token", "find_active", err)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *GormVerificationTokenRepository) Consume(ctx context.Context, tokenID, userID uuid.UUID, now time.Time) error {
	res := conn(ctx, r.db).Model(&domain.VerificationToken{}).
		Where("id = ? AND user_id = ? AND used_at IS NULL", tokenID, userID).
		Updates(map[string]any{"used_at": now, "updated_at": now})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrVerificationTokenNotFound
	}
	recordOp(ctx, "verification_token", "consume", err)
	return err
}
