package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedConfig() *config.Config {
	return &config.Config{
		SuperAdminEmail:    "root@booking.local",
		SuperAdminPassword: "SuperPassword123!",
		RoleSuperAdminID:   uuid.MustParse(config.DefaultRoleSuperAdminID),
		RoleAdminID:        uuid.MustParse(config.DefaultRoleAdminID),
		RoleTeacherID:      uuid.MustParse(config.DefaultRoleTeacherID),
		RoleStudentID:      uuid.MustParse(config.DefaultRoleStudentID),
		GenderMaleID:       uuid.New(),
		GenderFemaleID:     uuid.New(),
		GenderOtherID:      uuid.New(),
		StatusPendingID:    uuid.New(),
		StatusConfirmedID:  uuid.New(),
		StatusBannedID:     uuid.New(),
	}
}

func TestSeedSyncIsIdempotent(t *testing.T) {
	db := newSeedDB(t)
	cfg := seedConfig()

	first, err := SeedSync(context.Background(), db, cfg, plainHasher{})
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if first.CreatedRoles != 4 || first.CreatedGenders != 3 || first.CreatedStatuses != 3 || !first.CreatedAdmin {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := SeedSync(context.Background(), db, cfg, plainHasher{})
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !second.Noop {
		t.Fatalf("expected noop on second run, got %+v", second)
	}

	var roles int64
	db.Model(&domain.Role{}).Count(&roles)
	if roles != 4 {
		t.Fatalf("expected 4 roles, got %d", roles)
	}
}

func TestSeedSyncCreatesConfirmedSuperAdmin(t *testing.T) {
	db := newSeedDB(t)
	cfg := seedConfig()
	if err := Seed(context.Background(), db, cfg, plainHasher{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var admin domain.User
	if err := db.Preload("Roles").Where("email = ?", cfg.SuperAdminEmail).First(&admin).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if !admin.EmailConfirmed || admin.StatusID != cfg.StatusConfirmedID {
		t.Fatalf("expected confirmed admin, got confirmed=%v status=%s", admin.EmailConfirmed, admin.StatusID)
	}
	if admin.PasswordHash != "hashed:SuperPassword123!" {
		t.Fatalf("unexpected password hash %q", admin.PasswordHash)
	}
	if !admin.HasRole(domain.RoleSuperAdmin) {
		t.Fatalf("expected SuperAdmin role, got %v", admin.RoleNames())
	}
}

func TestConfirmEmail(t *testing.T) {
	db := newSeedDB(t)
	cfg := seedConfig()
	if err := Seed(context.Background(), db, cfg, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	u := domain.User{Email: "pending@example.com", PasswordHash: "x", FirstName: "P", LastName: "U", GenderID: cfg.GenderOtherID, StatusID: cfg.StatusPendingID}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := ConfirmEmail(context.Background(), db, cfg, " Pending@Example.com "); err != nil {
		t.Fatalf("confirm email: %v", err)
	}
	var got domain.User
	db.First(&got, "id = ?", u.ID)
	if !got.EmailConfirmed || got.StatusID != cfg.StatusConfirmedID {
		t.Fatalf("expected confirmed user, got %+v", got)
	}

	if err := ConfirmEmail(context.Background(), db, cfg, "missing@example.com"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected record not found, got %v", err)
	}
}
