package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
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
	"github.com/sandeepkv93/booking-scheduler-backend/internal/health"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/handler"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/router"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

const defaultPassword = "Valid1Password"

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int64          `json:"count"`
}

type captureNotifier struct {
	mu            sync.Mutex
	confirmations []service.AccountNotification
	resets        []service.AccountNotification
}

func (n *captureNotifier) SendEmailConfirmation(_ context.Context, note service.AccountNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, note)
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, note service.AccountNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, note)
	return nil
}

func (n *captureNotifier) lastConfirmationLink(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.confirmations) == 0 {
		t.Fatal("no confirmation mail captured")
	}
	return n.confirmations[len(n.confirmations)-1].Link
}

type serverOptions struct {
	cfgOverride func(cfg *config.Config)
	storage     service.AvatarStorage
}

type testEnv struct {
	cfg      *config.Config
	db       *gorm.DB
	hasher   *security.PasswordHasher
	notifier *captureNotifier
	baseURL  string
	client   *http.Client
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                   "test",
		JWTSecret:             "0123456789abcdef0123456789abcdef",
		APIBackURL:            "http://api.booking.test",
		APIFrontURL:           "http://app.booking.test",
		AccessTokenTTL:        15 * time.Minute,
		RefreshTokenTTL:       7 * 24 * time.Hour,
		RefreshTokenPepper:    "integration-pepper",
		AuthConfirmTokenTTL:   48 * time.Hour,
		AuthResetTokenTTL:     time.Hour,
		AuthPasswordMinLength: 8,
		AuthExposeResetToken:  true,
		AuthAbuseFreeAttempts: 3,
		MailFailurePolicy:     config.MailFailurePolicyLog,
		AvatarMaxBytes:        1 << 20,
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

// newTestServer wires the real router over a seeded in-memory sqlite database.
func newTestServer(t *testing.T, opts serverOptions) *testEnv {
	t.Helper()
	cfg := testConfig()
	if opts.cfgOverride != nil {
		opts.cfgOverride(cfg)
	}

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
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(context.Background(), db, cfg, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
	notifier := &captureNotifier{}

	tx := repository.NewTransactor(db)
	users := repository.NewUserRepository(db)
	roles := repository.NewRoleRepository(db)
	genders := repository.NewGenderRepository(db)
	statuses := repository.NewStatusAccountRepository(db)
	typeSlots := repository.NewTypeSlotRepository(db)
	slots := repository.NewSlotRepository(db)
	bookings := repository.NewBookingRepository(db)
	orders := repository.NewOrderRepository(db)

	jwtMgr := security.NewJWTManager(cfg.APIBackURL, cfg.APIBackURL, cfg.JWTSecret)
	tokens := service.NewTokenService(jwtMgr, repository.NewRefreshTokenRepository(db), cfg.RefreshTokenPepper, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	guard := service.NewInMemoryAuthAbuseGuard(service.AuthAbusePolicyFromConfig(cfg))
	cache := service.NewInMemoryLookupCacheStore()

	storage := opts.storage
	if storage == nil {
		storage = service.DisabledAvatarStorage{}
	}

	errs := handler.ErrorWriter{}
	authSvc := service.NewAuthService(cfg, tx, users, roles, genders, repository.NewVerificationTokenRepository(db), tokens, hasher, notifier, guard, log)
	userSvc := service.NewUserService(cfg, tx, users, genders, statuses, tokens, storage, log)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc, security.NewCookieManager("", false), cfg.RefreshTokenTTL, cfg.APIFrontURL, errs),
		UserHandler:      handler.NewUserHandler(userSvc, cfg.AvatarMaxBytes, errs),
		ProfileHandler:   handler.NewProfileHandler(service.NewProfileService(repository.NewAddressRepository(db), repository.NewExperienceRepository(db)), errs),
		RoleHandler:      handler.NewRoleHandler(service.NewRoleService(cfg, roles, users), errs),
		GenderHandler:    handler.NewLookupHandler(service.NewGenderService(genders, cache, time.Minute, log), "gender", errs),
		StatusHandler:    handler.NewLookupHandler(service.NewStatusAccountService(statuses, cache, time.Minute, log), "status", errs),
		TypeSlotHandler:  handler.NewLookupHandler(service.NewTypeSlotService(typeSlots, cache, time.Minute, log), "type slot", errs),
		SlotHandler:      handler.NewSlotHandler(service.NewSlotService(tx, slots, users, typeSlots, log), errs),
		BookingHandler:   handler.NewBookingHandler(service.NewBookingService(tx, bookings, slots, orders, log), errs),
		OrderHandler:     handler.NewOrderHandler(service.NewOrderService(tx, orders, bookings, log), errs),
		Tokens:           tokens,
		CORSOrigins:      []string{cfg.APIFrontURL},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
		Readiness:        health.NewProbeRunner(time.Second, 0, health.NewDBChecker(db)),
		AvatarMaxBytes:   cfg.AvatarMaxBytes,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := srv.Client()
	client.Jar = jar

	return &testEnv{cfg: cfg, db: db, hasher: hasher, notifier: notifier, baseURL: srv.URL, client: client}
}

// createAccount stores a confirmed account with the given roles and returns its id.
func (e *testEnv) createAccount(t *testing.T, email string, roleIDs ...uuid.UUID) uuid.UUID {
	t.Helper()
	hash, err := e.hasher.Hash(defaultPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := repository.NewUserRepository(e.db)
	u := &domain.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      strings.Split(email, "@")[0],
		LastName:       "Integration",
		EmailConfirmed: true,
		GenderID:       e.cfg.GenderOtherID,
		StatusID:       e.cfg.StatusConfirmedID,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if len(roleIDs) > 0 {
		if err := users.SetRoles(context.Background(), u.ID, roleIDs); err != nil {
			t.Fatalf("set roles: %v", err)
		}
	}
	return u.ID
}

// login signs in with the default password and returns the bearer token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": defaultPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status=%d message=%q", email, resp.StatusCode, env.Message)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, env, &out)
	if out.AccessToken == "" {
		t.Fatal("login returned no access token")
	}
	return out.AccessToken
}

func (e *testEnv) createTypeSlot(t *testing.T, name string) uuid.UUID {
	t.Helper()
	ts := &domain.TypeSlot{Lookup: domain.Lookup{Name: name, Color: "#00aaff"}}
	if err := repository.NewTypeSlotRepository(e.db).Create(context.Background(), ts); err != nil {
		t.Fatalf("create type slot: %v", err)
	}
	return ts.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, apiEnvelope) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.baseURL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, apiEnvelope) {
	t.Helper()
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope %q: %v", raw, err)
		}
	}
	return resp, env
}

func (e *testEnv) refreshCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.baseURL + "/auth/refresh")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == security.RefreshCookieName {
			return c.Value
		}
	}
	return ""
}

func decodeData(t *testing.T, env apiEnvelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
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
