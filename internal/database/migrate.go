package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&domain.Role{},
		&domain.Gender{},
		&domain.StatusAccount{},
		&domain.TypeSlot{},
		&domain.User{},
		&domain.Address{},
		&domain.Experience{},
		&domain.Slot{},
		&domain.Order{},
		&domain.Booking{},
		&domain.RefreshToken{},
		&domain.VerificationToken{},
	}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	}()
	if err := db.AutoMigrate(Models()...); err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}
