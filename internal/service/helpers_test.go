package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/database"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
)

const testPassword = "Passw0rd!"

func testConfig() *config.Config {
	return &config.Config{
		Env:                   "test",
		JWTSecret:             "0123456789abcdef0123456789abcdef",
		APIBackURL:            "http://api.booking.test",
		APIFrontURL:           "http://app.booking.test",
		AccessTokenTTL:        30 * time.Minute,
		RefreshTokenTTL:       7 * 24 * time.Hour,
		RefreshTokenPepper:    "pepper-for-tests",
		AuthConfirmTokenTTL:   48 * time.Hour,
		AuthResetTokenTTL:     time.Hour,
		AuthPasswordMinLength: 8,
		AuthExposeResetToken:  true,
		MailFailurePolicy:     config.MailFailurePolicyLog,
		LookupCacheEnabled:    true,
		LookupCacheTTL:        time.Minute,
		RoleSuperAdminID:      uuid.MustParse(config.DefaultRoleSuperAdminID),
		RoleAdminID:           uuid.MustParse(config.DefaultRoleAdminID),
		RoleTeacherID:         uuid.MustParse(config.DefaultRoleTeacherID),
		RoleStudentID:         uuid.MustParse(config.DefaultRoleStudentID),
		GenderMaleID:          uuid.MustParse("11111111-0000-0000-0000-000000000001"),
		GenderFemaleID:        uuid.MustParse("11111111-0000-0000-0000-000000000002"),
		GenderOtherID:         uuid.MustParse("11111111-0000-0000-0000-000000000003"),
		StatusPendingID:       uuid.MustParse("22222222-0000-0000-0000-000000000001"),
		StatusConfirmedID:     uuid.MustParse("22222222-0000-0000-0000-000000000002"),
		StatusBannedID:        uuid.MustParse("22222222-0000-0000-0000-000000000003"),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
}

// serviceFixture is a seeded sqlite database with every repository wired to it.
type serviceFixture struct {
	cfg           *config.Config
	db            *gorm.DB
	tx            repository.Transactor
	users         repository.UserRepository
	roles         repository.RoleRepository
	genders       repository.LookupRepository[domain.Gender]
	statuses      repository.LookupRepository[domain.StatusAccount]
	typeSlots     repository.LookupRepository[domain.TypeSlot]
	addresses     repository.OwnedRepository[domain.Address]
	experiences   repository.OwnedRepository[domain.Experience]
	slots         repository.SlotRepository
	bookings      repository.BookingRepository
	orders        repository.OrderRepository
	refreshTokens repository.RefreshTokenRepository
	verifications repository.VerificationTokenRepository
	hasher        *security.PasswordHasher
	tokens        *TokenService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := testConfig()
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(context.Background(), db, cfg, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	refreshTokens := repository.NewRefreshTokenRepository(db)
	return &serviceFixture{
		cfg:           cfg,
		db:            db,
		tx:            repository.NewTransactor(db),
		users:         repository.NewUserRepository(db),
		roles:         repository.NewRoleRepository(db),
		genders:       repository.NewGenderRepository(db),
		statuses:      repository.NewStatusAccountRepository(db),
		typeSlots:     repository.NewTypeSlotRepository(db),
		addresses:     repository.NewAddressRepository(db),
		experiences:   repository.NewExperienceRepository(db),
		slots:         repository.NewSlotRepository(db),
		bookings:      repository.NewBookingRepository(db),
		orders:        repository.NewOrderRepository(db),
		refreshTokens: refreshTokens,
		verifications: repository.NewVerificationTokenRepository(db),
		hasher:        fastHasher(),
		tokens: NewTokenService(
			security.NewJWTManager(cfg.APIBackURL, cfg.APIBackURL, cfg.JWTSecret),
			refreshTokens, cfg.RefreshTokenPepper, cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		),
	}
}

// createUser stores a confirmed account holding the given roles.
func (fx *serviceFixture) createUser(t *testing.T, email string, roleIDs ...uuid.UUID) *domain.User {
	t.Helper()
	hash, err := fx.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      strings.Split(email, "@")[0],
		LastName:       "Tester",
		EmailConfirmed: true,
		GenderID:       fx.cfg.GenderOtherID,
		StatusID:       fx.cfg.StatusConfirmedID,
	}
	if err := fx.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if len(roleIDs) > 0 {
		if err := fx.users.SetRoles(context.Background(), u.ID, roleIDs); err != nil {
			t.Fatalf("set roles: %v", err)
		}
	}
	loaded, err := fx.users.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return loaded
}

func (fx *serviceFixture) createTypeSlot(t *testing.T, name string) *domain.TypeSlot {
	t.Helper()
	ts := &domain.TypeSlot{Lookup: domain.Lookup{Name: name, Color: "#00aaff"}}
	if err := fx.typeSlots.Create(context.Background(), ts); err != nil {
		t.Fatalf("create type slot: %v", err)
	}
	return ts
}

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []AccountNotification
	resets        []AccountNotification
	confirmErr    error
	resetErr      error
}

func (n *recordingNotifier) SendEmailConfirmation(_ context.Context, note AccountNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, note)
	return n.confirmErr
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, note AccountNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, note)
	return n.resetErr
}

func (n *recordingNotifier) lastConfirmation(t *testing.T) AccountNotification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.confirmations) == 0 {
		t.Fatal("expected a confirmation mail")
	}
	return n.confirmations[len(n.confirmations)-1]
}

func linkParam(t *testing.T, link, name string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	v := u.Query().Get(name)
	if v == "" {
		t.Fatalf("link %q has no %s", link, name)
	}
	return v
}
