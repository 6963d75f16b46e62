package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/health"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/handler"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/middleware"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
)

const (
	defaultBodyLimit = 1 << 20
	multipartSlack   = 64 << 10
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	ProfileHandler    *handler.ProfileHandler
	RoleHandler       *handler.RoleHandler
	GenderHandler     LookupRoutes
	StatusHandler     LookupRoutes
	TypeSlotHandler   LookupRoutes
	SlotHandler       *handler.SlotHandler
	BookingHandler    *handler.BookingHandler
	OrderHandler      *handler.OrderHandler
	Tokens            middleware.AccessTokenParser
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	RequestTimeout    time.Duration
	AvatarMaxBytes    int64
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

// LookupRoutes is the handler surface shared by every reference table.
type LookupRoutes interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	if dep.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(dep.RequestTimeout))
	}
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	authenticate := middleware.Authenticate(dep.Tokens)
	admins := middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin)
	teachers := middleware.RequireRoles(domain.RoleTeacher, domain.RoleSuperAdmin, domain.RoleAdmin)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := dep.Readiness.Ready(r.Context())
		if results == nil {
			results = []health.CheckResult{}
		}
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "dependencies are not ready", map[string]any{"checks": results})
	})

	// The avatar upload is the only route allowed past the default body limit.
	avatarLimit := dep.AvatarMaxBytes + multipartSlack
	if avatarLimit < defaultBodyLimit {
		avatarLimit = defaultBodyLimit
	}
	r.With(middleware.BodyLimit(avatarLimit), authenticate).Post("/users/me/avatar", dep.UserHandler.UploadAvatar)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimit(defaultBodyLimit))

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			r.With(authLimiter).Get("/email-confirmation", dep.AuthHandler.ConfirmEmail)
			r.With(authLimiter).Post("/email-confirmation/resend", dep.AuthHandler.ResendConfirmation)
			r.With(authLimiter).Post("/forgot-password", dep.AuthHandler.ForgotPassword)
			r.With(authLimiter).Post("/reset-password", dep.AuthHandler.ResetPassword)
			r.With(authenticate).Post("/logout", dep.AuthHandler.Logout)
			r.With(authenticate, authLimiter).Post("/change-password", dep.AuthHandler.ChangePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/users/me", dep.UserHandler.Me)
			r.Put("/users/me", dep.UserHandler.UpdateMe)
			r.Delete("/users/me/avatar", dep.UserHandler.DeleteAvatar)
			r.Get("/users/me/addresses", dep.ProfileHandler.ListAddresses)
			r.Post("/users/me/addresses", dep.ProfileHandler.AddAddress)
			r.Put("/users/me/addresses/{id}", dep.ProfileHandler.UpdateAddress)
			r.Delete("/users/me/addresses/{id}", dep.ProfileHandler.RemoveAddress)
			r.Get("/users/me/experiences", dep.ProfileHandler.ListExperiences)
			r.Post("/users/me/experiences", dep.ProfileHandler.AddExperience)
			r.Put("/users/me/experiences/{id}", dep.ProfileHandler.UpdateExperience)
			r.Delete("/users/me/experiences/{id}", dep.ProfileHandler.RemoveExperience)

			r.Get("/roles", dep.RoleHandler.List)
			r.Get("/roles/{id}", dep.RoleHandler.Get)
			r.Get("/roles/name/{name}", dep.RoleHandler.GetByName)
			mountLookupReads(r, "/genders", dep.GenderHandler)
			mountLookupReads(r, "/statuses", dep.StatusHandler)
			mountLookupReads(r, "/type-slots", dep.TypeSlotHandler)

			r.Get("/slots/all", dep.SlotHandler.All)
			r.Post("/slots/search", dep.SlotHandler.Search)
			r.Get("/slots/available", dep.SlotHandler.Available)
			r.Get("/slots/teacher/{teacherId}", dep.SlotHandler.ByTeacher)
			r.Get("/slots/{id}", dep.SlotHandler.Get)
			r.With(teachers).Post("/slots", dep.SlotHandler.Create)
			r.With(teachers).Put("/slots/{id}", dep.SlotHandler.Update)
			r.With(teachers).Delete("/slots/{id}", dep.SlotHandler.Delete)

			r.Post("/bookings", dep.BookingHandler.Create)
			r.Get("/bookings/me", dep.BookingHandler.Mine)
			r.Get("/bookings/{id}", dep.BookingHandler.Get)
			r.Delete("/bookings/{id}", dep.BookingHandler.Cancel)

			r.Get("/orders/me", dep.OrderHandler.Mine)
			r.Get("/orders/{id}", dep.OrderHandler.Get)
			r.Delete("/orders/{id}", dep.OrderHandler.Delete)

			r.Group(func(r chi.Router) {
				r.Use(admins)

				r.Post("/users/search", dep.UserHandler.Search)
				r.Get("/users/{id}", dep.UserHandler.Get)
				r.Put("/users/{id}/roles", dep.UserHandler.SetRoles)
				r.Put("/users/{id}/status", dep.UserHandler.SetStatus)
				r.Delete("/users/{id}", dep.UserHandler.Delete)

				r.Get("/roles/{id}/users/count", dep.RoleHandler.CountUsers)
				r.Post("/roles", dep.RoleHandler.Create)
				r.Put("/roles/{id}", dep.RoleHandler.Update)
				r.Delete("/roles/{id}", dep.RoleHandler.Delete)
				mountLookupWrites(r, "/genders", dep.GenderHandler)
				mountLookupWrites(r, "/statuses", dep.StatusHandler)
				mountLookupWrites(r, "/type-slots", dep.TypeSlotHandler)

				r.Post("/bookings/search", dep.BookingHandler.Search)
				r.Post("/orders/search", dep.OrderHandler.Search)
				r.Put("/orders/{id}/reduction", dep.OrderHandler.ApplyReduction)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func mountLookupReads(r chi.Router, prefix string, h LookupRoutes) {
	r.Get(prefix, h.List)
	r.Get(prefix+"/{id}", h.Get)
}

func mountLookupWrites(r chi.Router, prefix string, h LookupRoutes) {
	r.Post(prefix, h.Create)
	r.Put(prefix+"/{id}", h.Update)
	r.Delete(prefix+"/{id}", h.Delete)
}
