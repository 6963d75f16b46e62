package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
)

const verificationTokenBytes = 32

type AuthService struct {
	cfg           *config.Config
	tx            repository.Transactor
	users         repository.UserRepository
	roles         repository.RoleRepository
	genders       repository.LookupRepository[domain.Gender]
	verifications repository.VerificationTokenRepository
	tokens        *TokenService
	hasher        *security.PasswordHasher
	notifier      AccountNotifier
	guard         AuthAbuseGuard
	logger        *slog.Logger
	now           func() time.Time
}

type RegisterInput struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	DateOfBirth     *time.Time
	Title           string
	Description     string
	GenderID        uuid.UUID
	AcceptTerms     bool
	AcceptMarketing bool
}

type RegisterResult struct {
	User                   *domain.User `json:"user"`
	ConfirmationMailFailed bool         `json:"confirmation_mail_failed"`
}

type LoginResult struct {
	User                  *domain.User `json:"user"`
	AccessToken           string       `json:"access_token"`
	AccessTokenExpiresAt  time.Time    `json:"access_token_expires_at"`
	RefreshToken          string       `json:"-"`
	RefreshTokenExpiresAt time.Time    `json:"-"`
}

// PasswordResetTicket is what forgot-password hands back. The raw token is only
// shown to callers when the deployment allows it.
type PasswordResetTicket struct {
	UserID     uuid.UUID `json:"user_id"`
	ResetToken string    `json:"reset_token,omitempty"`
	ResetURL   string    `json:"reset_url,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func NewAuthService(
	cfg *config.Config,
	tx repository.Transactor,
	users repository.UserRepository,
	roles repository.RoleRepository,
	genders repository.LookupRepository[domain.Gender],
	verifications repository.VerificationTokenRepository,
	tokens *TokenService,
	hasher *security.PasswordHasher,
	notifier AccountNotifier,
	guard AuthAbuseGuard,
	logger *slog.Logger,
) *AuthService {
	if guard == nil {
		guard = NoopAuthAbuseGuard{}
	}
	return &AuthService{
		cfg:           cfg,
		tx:            tx,
		users:         users,
		roles:         roles,
		genders:       genders,
		verifications: verifications,
		tokens:        tokens,
		hasher:        hasher,
		notifier:      notifier,
		guard:         guard,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (result *RegisterResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "register", start, err) }()

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := s.validatePassword(in.Password); err != nil {
		return nil, err
	}
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	genderID := in.GenderID
	if genderID == uuid.Nil {
		genderID = s.cfg.GenderOtherID
	}
	if _, err := s.genders.FindByID(ctx, genderID); err != nil {
		return nil, fromRepo(err, ErrGenderNotFound)
	}
	student, err := s.studentRole(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		DateOfBirth:     in.DateOfBirth,
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		AcceptTerms:     in.AcceptTerms,
		AcceptMarketing: in.AcceptMarketing,
		GenderID:        genderID,
		StatusID:        s.cfg.StatusPendingID,
		Roles:           []domain.Role{*student},
	}

	var note AccountNotification
	persist := func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateEmail
			}
			return err
		}
		var issueErr error
		note, issueErr = s.issueConfirmation(ctx, user)
		return issueErr
	}

	result = &RegisterResult{User: user}
	if s.cfg.MailFailurePolicy == config.MailFailurePolicyRollback {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := persist(ctx); err != nil {
				return err
			}
			return s.notifier.SendEmailConfirmation(ctx, note)
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := s.tx.WithinTransaction(ctx, persist); err != nil {
		return nil, err
	}
	if mailErr := s.notifier.SendEmailConfirmation(ctx, note); mailErr != nil {
		s.logger.ErrorContext(ctx, "confirmation mail failed after registration",
			"user_id", user.ID, "policy", s.cfg.MailFailurePolicy, "error", mailErr)
		if s.cfg.MailFailurePolicy == config.MailFailurePolicyFlag {
			if err := s.users.Update(ctx, user.ID, map[string]any{"confirmation_mail_failed": true}); err != nil {
				return nil, err
			}
			user.ConfirmationMailFailed = true
			result.ConfirmationMailFailed = true
		}
	}
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, email, password, ip string) (result *LoginResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "login", start, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkGuard(ctx, AuthAbuseScopeLogin, email, ip); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.registerFailure(ctx, AuthAbuseScopeLogin, email, ip)
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil && !errors.Is(err, security.ErrInvalidPasswordHash) {
		return nil, err
	}
	if !ok {
		s.registerFailure(ctx, AuthAbuseScopeLogin, email, ip)
		return nil, ErrInvalidCredentials
	}
	if err := s.checkAccountUsable(user); err != nil {
		return nil, err
	}
	if err := s.guard.Reset(ctx, AuthAbuseScopeLogin, email, ip); err != nil {
		s.logger.WarnContext(ctx, "auth abuse guard reset failed", "scope", AuthAbuseScopeLogin, "error", err)
	}

	now := s.now().UTC()
	updates := map[string]any{"last_login_at": now}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if rehashed, err := s.hasher.Hash(password); err == nil {
			updates["password_hash"] = rehashed
		}
	}

	var refresh IssuedToken
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user.ID, updates); err != nil {
			return err
		}
		refresh, err = s.tokens.RotateRefreshToken(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return s.loginResult(user, refresh)
}

// Refresh issues a new access token for a live refresh token. The refresh token
// itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (result *LoginResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "refresh", start, err) }()

	rt, err := s.tokens.ResolveRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if rt.User.StatusID == s.cfg.StatusBannedID {
		return nil, ErrAccountBanned
	}
	return s.loginResult(rt.User, IssuedToken{Value: refreshToken, ExpiresAt: rt.ExpiresAt})
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "logout", start, err) }()
	return s.tokens.RevokeRefreshToken(ctx, userID)
}

func (s *AuthService) ConfirmEmail(ctx context.Context, userID uuid.UUID, token string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "confirm_email", start, err) }()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fromRepo(err, ErrUserNotFound)
	}
	record, err := s.findVerification(ctx, userID, token, domain.VerificationPurposeEmailConfirm)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	updates := map[string]any{
		"email_confirmed":          true,
		"email_confirmed_at":       now,
		"confirmation_mail_failed": false,
	}
	if user.StatusID == s.cfg.StatusPendingID {
		updates["status_id"] = s.cfg.StatusConfirmedID
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.verifications.Consume(ctx, record.ID, userID, now); err != nil {
			return fromRepo(err, ErrInvalidVerifyToken)
		}
		return s.users.Update(ctx, userID, updates)
	})
}

// ResendConfirmation reissues the confirmation mail. Unknown and already confirmed
// addresses are accepted silently.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "resend_confirmation", start, err) }()

	email, err = normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailConfirmed {
		return nil
	}
	note, err := s.issueConfirmation(ctx, user)
	if err != nil {
		return err
	}
	if err := s.notifier.SendEmailConfirmation(ctx, note); err != nil {
		s.logger.ErrorContext(ctx, "confirmation mail resend failed", "user_id", user.ID, "error", err)
		return nil
	}
	if user.ConfirmationMailFailed {
		return s.users.Update(ctx, user.ID, map[string]any{"confirmation_mail_failed": false})
	}
	return nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email, ip string) (ticket *PasswordResetTicket, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "forgot_password", start, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkGuard(ctx, AuthAbuseScopeForgot, email, ip); err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.registerFailure(ctx, AuthAbuseScopeForgot, email, ip)
			return nil, ErrPasswordResetRequest
		}
		return nil, err
	}

	raw, expiresAt, err := s.issueVerification(ctx, user.ID, domain.VerificationPurposePasswordReset, s.cfg.AuthResetTokenTTL)
	if err != nil {
		return nil, err
	}
	link := s.cfg.APIFrontURL + "/auth/reset-password?" + url.Values{
		"userId":     {user.ID.String()},
		"resetToken": {raw},
	}.Encode()

	if err := s.notifier.SendPasswordReset(ctx, AccountNotification{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		Link:      link,
		ExpiresAt: expiresAt,
	}); err != nil {
		s.logger.ErrorContext(ctx, "password reset mail failed", "user_id", user.ID, "error", err)
	}

	ticket = &PasswordResetTicket{UserID: user.ID, ExpiresAt: expiresAt}
	if s.cfg.AuthExposeResetToken {
		ticket.ResetToken = raw
		ticket.ResetURL = link
	}
	return ticket, nil
}

// ResetPassword sets a new password and rotates the refresh token so existing
// sessions can no longer refresh.
func (s *AuthService) ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "reset_password", start, err) }()

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return fromRepo(err, ErrUserNotFound)
	}
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}
	record, err := s.findVerification(ctx, userID, token, domain.VerificationPurposePasswordReset)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.verifications.Consume(ctx, record.ID, userID, now); err != nil {
			return fromRepo(err, ErrInvalidVerifyToken)
		}
		if err := s.users.Update(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
			return err
		}
		_, err := s.tokens.RotateRefreshToken(ctx, userID)
		return err
	})
}

// ChangePassword replaces the password of a signed-in user and starts a fresh session.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (result *LoginResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "change_password", start, err) }()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, ErrUserNotFound)
	}
	ok, err := s.hasher.Verify(user.PasswordHash, currentPassword)
	if err != nil && !errors.Is(err, security.ErrInvalidPasswordHash) {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if currentPassword == newPassword {
		return nil, ErrPasswordUnchanged
	}
	if err := s.validatePassword(newPassword); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	var refresh IssuedToken
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
			return err
		}
		refresh, err = s.tokens.RotateRefreshToken(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.loginResult(user, refresh)
}

func (s *AuthService) loginResult(user *domain.User, refresh IssuedToken) (*LoginResult, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:                  user,
		AccessToken:           access.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *AuthService) checkAccountUsable(user *domain.User) error {
	if user.StatusID == s.cfg.StatusBannedID {
		return ErrAccountBanned
	}
	if s.cfg.AuthRequireConfirmedEmail && !user.EmailConfirmed {
		return ErrEmailNotConfirmed
	}
	return nil
}

func (s *AuthService) studentRole(ctx context.Context) (*domain.Role, error) {
	role, err := s.roles.FindByID(ctx, s.cfg.RoleStudentID)
	if errors.Is(err, repository.ErrNotFound) {
		role, err = s.roles.FindByName(ctx, domain.RoleStudent)
	}
	if err != nil {
		return nil, fromRepo(err, ErrRoleNotFound)
	}
	return role, nil
}

func (s *AuthService) issueConfirmation(ctx context.Context, user *domain.User) (AccountNotification, error) {
	raw, expiresAt, err := s.issueVerification(ctx, user.ID, domain.VerificationPurposeEmailConfirm, s.cfg.AuthConfirmTokenTTL)
	if err != nil {
		return AccountNotification{}, err
	}
	link := s.cfg.APIBackURL + "/auth/email-confirmation?" + url.Values{
		"userId":            {user.ID.String()},
		"confirmationToken": {raw},
	}.Encode()
	return AccountNotification{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		Link:      link,
		ExpiresAt: expiresAt,
	}, nil
}

// issueVerification invalidates the user's live tokens of purpose and stores a new one.
func (s *AuthService) issueVerification(ctx context.Context, userID uuid.UUID, purpose string, ttl time.Duration) (string, time.Time, error) {
	raw, err := security.NewRandomString(verificationTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.verifications.InvalidateActiveByUserPurpose(ctx, userID, purpose, now); err != nil {
			return err
		}
		return s.verifications.Create(ctx, &domain.VerificationToken{
			UserID:    userID,
			Purpose:   purpose,
			TokenHash: security.HashToken(raw, s.cfg.RefreshTokenPepper),
			ExpiresAt: expiresAt,
		})
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return raw, expiresAt, nil
}

func (s *AuthService) findVerification(ctx context.Context, userID uuid.UUID, token, purpose string) (*domain.VerificationToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidVerifyToken
	}
	record, err := s.verifications.FindActive(ctx, userID, security.HashToken(token, s.cfg.RefreshTokenPepper), purpose, s.now().UTC())
	if err != nil {
		return nil, fromRepo(err, ErrInvalidVerifyToken)
	}
	return record, nil
}

func (s *AuthService) checkGuard(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	wait, err := s.guard.Check(ctx, scope, identity, ip)
	if err != nil {
		// Guard store failures fail open.
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "check", "error")
		s.logger.WarnContext(ctx, "auth abuse guard check failed", "scope", scope, "error", err)
		return nil
	}
	if wait > 0 {
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "check", "blocked")
		observability.RecordAuthAbuseCooldown(ctx, string(scope), wait)
		return &RetryAfterError{RetryAfter: wait}
	}
	observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "check", "allowed")
	return nil
}

func (s *AuthService) registerFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) {
	wait, err := s.guard.RegisterFailure(ctx, scope, identity, ip)
	if err != nil {
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "register_failure", "error")
		s.logger.WarnContext(ctx, "auth abuse guard update failed", "scope", scope, "error", err)
		return
	}
	observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "register_failure", "ok")
	observability.RecordAuthAbuseCooldown(ctx, string(scope), wait)
}

func (s *AuthService) observe(ctx context.Context, flow string, start time.Time, err error) {
	outcome := outcomeOf(err)
	observability.RecordAuthFlowEvent(ctx, flow, outcome)
	observability.RecordAuthRequestDuration(ctx, flow, outcome, time.Since(start))
}

// validatePassword requires the configured minimum length plus an upper-case
// letter, a lower-case letter and a digit.
func (s *AuthService) validatePassword(password string) error {
	if len(password) < s.cfg.AuthPasswordMinLength {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// outcomeOf labels err by kind for metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrTooManyRequests):
		return "throttled"
	default:
		return "error"
	}
}
