package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Role{}, &domain.Gender{}, &domain.StatusAccount{}, &domain.TypeSlot{},
		&domain.User{}, &domain.Address{}, &domain.Experience{},
		&domain.Slot{}, &domain.Order{}, &domain.Booking{},
		&domain.RefreshToken{}, &domain.VerificationToken{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type fixture struct {
	gender   domain.Gender
	status   domain.StatusAccount
	typeSlot domain.TypeSlot
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		gender:   domain.Gender{Lookup: domain.Lookup{Name: "Other", Color: "#ab69b4"}},
		status:   domain.StatusAccount{Lookup: domain.Lookup{Name: "Pending", Color: "#ff69b4"}},
		typeSlot: domain.TypeSlot{Lookup: domain.Lookup{Name: "Lesson", Color: "#00aaff"}},
	}
	for _, v := range []any{&f.gender, &f.status, &f.typeSlot} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed lookup: %v", err)
		}
	}
	return f
}

func createUserForTest(t *testing.T, db *gorm.DB, f fixture, email, first, last string) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    first,
		LastName:     last,
		GenderID:     f.gender.ID,
		StatusID:     f.status.ID,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func createSlotForTest(t *testing.T, db *gorm.DB, f fixture, teacherID uuid.UUID, from time.Time, d time.Duration, price float64) *domain.Slot {
	t.Helper()
	s := &domain.Slot{DateFrom: from, DateTo: from.Add(d), Price: price, TeacherID: teacherID, TypeID: f.typeSlot.ID}
	if err := db.Omit("Teacher", "Type", "Booking").Create(s).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return s
}
