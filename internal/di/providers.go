package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/app"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/database"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/health"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/handler"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/middleware"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/router"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/mail"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideMinIOAvatarStorage,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewTransactor,
	repository.NewUserRepository,
	repository.NewRoleRepository,
	repository.NewRefreshTokenRepository,
	repository.NewVerificationTokenRepository,
	repository.NewGenderRepository,
	repository.NewStatusAccountRepository,
	repository.NewTypeSlotRepository,
	repository.NewAddressRepository,
	repository.NewExperienceRepository,
	repository.NewSlotRepository,
	repository.NewBookingRepository,
	repository.NewOrderRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
	providePasswordHasher,
)

var ServiceSet = wire.NewSet(
	provideTokenService,
	provideMailer,
	mail.ParseTemplates,
	service.NewMailAccountNotifier,
	wire.Bind(new(service.AccountNotifier), new(*service.MailAccountNotifier)),
	provideAuthAbuseGuard,
	provideLookupCacheStore,
	provideAvatarStorage,
	service.NewAuthService,
	service.NewUserService,
	service.NewProfileService,
	service.NewRoleService,
	provideGenderService,
	provideStatusAccountService,
	provideTypeSlotService,
	service.NewSlotService,
	service.NewBookingService,
	service.NewOrderService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(service.ProfileServiceInterface), new(*service.ProfileService)),
	wire.Bind(new(service.RoleServiceInterface), new(*service.RoleService)),
	wire.Bind(new(service.SlotServiceInterface), new(*service.SlotService)),
	wire.Bind(new(service.BookingServiceInterface), new(*service.BookingService)),
	wire.Bind(new(service.OrderServiceInterface), new(*service.OrderService)),
	wire.Bind(new(middleware.AccessTokenParser), new(*service.TokenService)),
)

var HTTPSet = wire.NewSet(
	provideErrorWriter,
	provideAuthHandler,
	provideUserHandler,
	handler.NewProfileHandler,
	handler.NewRoleHandler,
	provideGenderHandler,
	provideStatusHandler,
	provideTypeSlotHandler,
	handler.NewSlotHandler,
	handler.NewBookingHandler,
	handler.NewOrderHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// MigrationRunner applies the schema and the reference data without starting the API.
type MigrationRunner struct {
	cfg    *config.Config
	db     *gorm.DB
	hasher *security.PasswordHasher
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB, hasher *security.PasswordHasher) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db, hasher: hasher}
}

func (m *MigrationRunner) Run(ctx context.Context) error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	if err := database.Seed(ctx, m.db, m.cfg, m.hasher); err != nil {
		return err
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config, hasher *security.PasswordHasher) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(context.Background(), db, cfg, hasher); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideMinIOAvatarStorage(cfg *config.Config) (*service.MinIOAvatarStorage, error) {
	if !cfg.StorageEnabled {
		return nil, nil
	}
	return service.NewMinIOAvatarStorage(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, cfg.AvatarMaxBytes)
}

func provideAvatarStorage(store *service.MinIOAvatarStorage) service.AvatarStorage {
	if store == nil {
		return service.DisabledAvatarStorage{}
	}
	return store
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, store *service.MinIOAvatarStorage) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if cfg.RedisEnabled {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	if store != nil {
		checkers = append(checkers, health.NewObjectStoreChecker(store.Client(), store.Bucket()))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.APIBackURL, cfg.APIBackURL, cfg.JWTSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure)
}

func providePasswordHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(security.DefaultArgon2Params)
}

func provideTokenService(cfg *config.Config, jwt *security.JWTManager, refreshTokens repository.RefreshTokenRepository) *service.TokenService {
	return service.NewTokenService(jwt, refreshTokens, cfg.RefreshTokenPepper, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func provideMailer(cfg *config.Config, logger *slog.Logger) mail.Mailer {
	return mail.NewMailer(cfg, logger)
}

func provideAuthAbuseGuard(cfg *config.Config, redisClient redis.UniversalClient) service.AuthAbuseGuard {
	policy := service.AuthAbusePolicyFromConfig(cfg)
	if cfg.RedisEnabled && redisClient != nil {
		return service.NewRedisAuthAbuseGuard(redisClient, cfg.RedisPrefix+":abuse", policy)
	}
	return service.NewInMemoryAuthAbuseGuard(policy)
}

func provideLookupCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.LookupCacheStore {
	switch {
	case !cfg.LookupCacheEnabled:
		return service.NoopLookupCacheStore{}
	case cfg.RedisEnabled && redisClient != nil:
		return service.NewRedisLookupCacheStore(redisClient, cfg.RedisPrefix+":lookup")
	default:
		return service.NewInMemoryLookupCacheStore()
	}
}

func provideGenderService(cfg *config.Config, repo repository.LookupRepository[domain.Gender], cache service.LookupCacheStore, logger *slog.Logger) service.LookupServiceInterface[domain.Gender] {
	return service.NewGenderService(repo, cache, cfg.LookupCacheTTL, logger)
}

func provideStatusAccountService(cfg *config.Config, repo repository.LookupRepository[domain.StatusAccount], cache service.LookupCacheStore, logger *slog.Logger) service.LookupServiceInterface[domain.StatusAccount] {
	return service.NewStatusAccountService(repo, cache, cfg.LookupCacheTTL, logger)
}

func provideTypeSlotService(cfg *config.Config, repo repository.LookupRepository[domain.TypeSlot], cache service.LookupCacheStore, logger *slog.Logger) service.LookupServiceInterface[domain.TypeSlot] {
	return service.NewTypeSlotService(repo, cache, cfg.LookupCacheTTL, logger)
}

func provideErrorWriter(cfg *config.Config) handler.ErrorWriter {
	return handler.ErrorWriter{ExposeInternal: cfg.HTTPExposeInternalErrors}
}

func provideAuthHandler(cfg *config.Config, authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, errs handler.ErrorWriter) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, cookieMgr, cfg.RefreshTokenTTL, cfg.APIFrontURL, errs)
}

func provideUserHandler(cfg *config.Config, userSvc service.UserServiceInterface, errs handler.ErrorWriter) *handler.UserHandler {
	return handler.NewUserHandler(userSvc, cfg.AvatarMaxBytes, errs)
}

func provideGenderHandler(svc service.LookupServiceInterface[domain.Gender], errs handler.ErrorWriter) *handler.LookupHandler[domain.Gender] {
	return handler.NewLookupHandler(svc, "gender", errs)
}

func provideStatusHandler(svc service.LookupServiceInterface[domain.StatusAccount], errs handler.ErrorWriter) *handler.LookupHandler[domain.StatusAccount] {
	return handler.NewLookupHandler(svc, "status", errs)
}

func provideTypeSlotHandler(svc service.LookupServiceInterface[domain.TypeSlot], errs handler.ErrorWriter) *handler.LookupHandler[domain.TypeSlot] {
	return handler.NewLookupHandler(svc, "type slot", errs)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RedisEnabled && redisClient != nil {
		mode := middleware.FailClosed
		if cfg.RateLimitRedisFailOpen {
			mode = middleware.FailOpen
		}
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix+":rl")
		return middleware.NewDistributedRateLimiter(redisLimiter, cfg.APIRateLimitPerMin, time.Minute, mode, "api").Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api").Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	if cfg.RedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix+":rl")
		return middleware.NewDistributedRateLimiter(redisLimiter, cfg.AuthRateLimitPerMin, time.Minute, middleware.FailClosed, "auth").Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute, "auth").Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	profileHandler *handler.ProfileHandler,
	roleHandler *handler.RoleHandler,
	genderHandler *handler.LookupHandler[domain.Gender],
	statusHandler *handler.LookupHandler[domain.StatusAccount],
	typeSlotHandler *handler.LookupHandler[domain.TypeSlot],
	slotHandler *handler.SlotHandler,
	bookingHandler *handler.BookingHandler,
	orderHandler *handler.OrderHandler,
	tokens middleware.AccessTokenParser,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		ProfileHandler:    profileHandler,
		RoleHandler:       roleHandler,
		GenderHandler:     genderHandler,
		StatusHandler:     statusHandler,
		TypeSlotHandler:   typeSlotHandler,
		SlotHandler:       slotHandler,
		BookingHandler:    bookingHandler,
		OrderHandler:      orderHandler,
		Tokens:            tokens,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		RequestTimeout:    cfg.HTTPRequestTimeout,
		AvatarMaxBytes:    cfg.AvatarMaxBytes,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.HTTPRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}
