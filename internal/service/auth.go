package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/mail"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	ResetTokenTTL     = time.Hour
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

// Messages the login form shows verbatim.
const (
	msgBadCredentials = "Incorrect email or password"
	msgUnverified     = "Please verify your email before logging in"
	msgNotAuth        = "Not authenticated"
	msgBadToken       = "Invalid or expired token"
)

// AuthService handles registration, login sessions, email verification and
// password resets.
//
//	AuthHandler (HTTP) → AuthService → UserRepository / SessionRepository (DB)
//	                               ↘ TokenService (signed cookie), mail.Sender
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      → read/write user records
//   - accounts   → create user + organization atomically at registration
//   - sessions   → server-side session rows
//   - tokens     → sign/verify the session cookie
//   - passwords  → bcrypt hashing
//   - mailer     → verification and reset emails
type AuthService struct {
	users     repository.UserRepository
	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mailer    mail.Sender
	emails    *mail.Composer
	logger    *slog.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// AuthStores groups the repositories AuthService needs. The sqlstore DB
// satisfies all three.
type AuthStores struct {
	Users    repository.UserRepository
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
}

func NewAuthService(
	stores AuthStores,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer mail.Sender,
	emails *mail.Composer,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		users:      stores.Users,
		accounts:   stores.Accounts,
		sessions:   stores.Sessions,
		tokens:     tokens,
		passwords:  passwords,
		mailer:     mailer,
		emails:     emails,
		logger:     logger,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SessionTTL is how long a login lasts; the handler uses it for the cookie.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// RegisterInput is everything the sign-up form sends. Organization fields
// are only read when Role is ngo.
type RegisterInput struct {
	Email        string
	Password     string
	Role         model.Role
	FirstName    string
	LastName     string
	Phone        string
	Address      *string
	City         *string
	State        *string
	ZipCode      *string
	Country      *string
	Availability *string

	OrganizationName string
	Description      string
	Website          string
}

// Register creates an unverified account and emails the verification link.
//
// RULES:
//   - only volunteer and ngo accounts can sign up; admins come from the CLI
//   - emails are unique regardless of letter case
//   - an ngo account gets its (unapproved) organization in the same transaction
//   - if the verification email cannot be sent the request fails, although
//     the account row already exists; the user can ask for a new link via
//     the password-reset flow or an admin can verify them
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}
	if in.Role != model.RoleVolunteer && in.Role != model.RoleNGO {
		return nil, apperror.ValidationFailed("role", "Role must be volunteer or ngo")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	orgName := strings.TrimSpace(in.OrganizationName)
	if in.Role == model.RoleNGO && orgName == "" {
		return nil, apperror.ValidationFailed("organizationName", "Organization name is required")
	}

	// Checking first gives the friendly message in the common case; the
	// unique index still catches two sign-ups racing for one address.
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.ConflictMessage("Email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}
	token, err := auth.RandomToken()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:             email,
		PasswordHash:      hash,
		Role:              in.Role,
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Phone:             strings.TrimSpace(in.Phone),
		Address:           in.Address,
		City:              in.City,
		State:             in.State,
		ZipCode:           in.ZipCode,
		Country:           in.Country,
		Availability:      in.Availability,
		VerificationToken: &token,
	}

	var org *model.Organization
	if in.Role == model.RoleNGO {
		org = &model.Organization{
			OrganizationName: orgName,
			Description:      strings.TrimSpace(in.Description),
			Website:          strings.TrimSpace(in.Website),
		}
	}

	if err := s.accounts.CreateAccount(ctx, user, org); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("Email already registered")
		}
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("role", string(user.Role)),
	)

	msg, err := s.emails.Verification(user, token)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("service/auth: sending verification email: %w", err)
	}

	return user, nil
}

// LoginResult bundles the user and the signed session token so the
// handler can set the cookie and respond in one step.
type LoginResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Login checks credentials and opens a new session.
//
// Unknown email and wrong password produce the same message. An unverified
// account is refused even with the right password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	if !user.IsVerified {
		return nil, apperror.Unauthorized(msgUnverified)
	}

	now := s.now()
	if n, err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		s.logger.Warn("pruning expired sessions failed", slog.String("error", err.Error()))
	} else if n > 0 {
		s.logger.Debug("pruned expired sessions", slog.Int64("count", n))
	}

	session := &model.Session{
		ID:        xid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	token, err := s.tokens.Generate(session.ID, user.ID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return &LoginResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout deletes the session named by token. Tokens that no longer verify
// have nothing left to delete, so they are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	return nil
}

// Authenticate resolves a session cookie to the current user record.
//
// The user is re-read on every request, never cached, so a verification
// or password change is visible on the very next call.
// Every rejection is apperror.ErrUnauthorized; store failures are returned
// as-is.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized(msgNotAuth)
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgNotAuth)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	if session.UserID != claims.UserID || session.Expired(s.now()) {
		return nil, apperror.Unauthorized(msgNotAuth)
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgNotAuth)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return user, nil
}

// VerifyEmail marks the token's owner verified. The token is single-use.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.InvalidToken("Invalid token")
	}

	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidToken(msgBadToken)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	verified := true
	var cleared *string
	user, err = s.users.UpdateUser(ctx, user.ID, model.UserUpdate{
		IsVerified:        &verified,
		VerificationToken: &cleared,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: verifying user: %w", err)
	}

	s.logger.Info("email verified", slog.Int64("userID", user.ID))
	return user, nil
}

// RequestPasswordReset emails a one-hour reset link when the address
// belongs to an account. The caller answers the same way either way, so
// unknown addresses return nil.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: looking up user: %w", err)
	}

	token, err := auth.RandomToken()
	if err != nil {
		return err
	}
	expiry := s.now().Add(ResetTokenTTL)
	tokenPtr, expiryPtr := &token, &expiry

	if _, err := s.users.UpdateUser(ctx, user.ID, model.UserUpdate{
		ResetToken:       &tokenPtr,
		ResetTokenExpiry: &expiryPtr,
	}); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	msg, err := s.emails.PasswordReset(user, token)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("service/auth: sending reset email: %w", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired reset
// token and consumes the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return apperror.ValidationFailed("token", "Token and password are required")
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	user, err := s.users.GetUserByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.InvalidToken(msgBadToken)
		}
		return fmt.Errorf("service/auth: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	var clearedToken *string
	var clearedExpiry *time.Time
	if _, err := s.users.UpdateUser(ctx, user.ID, model.UserUpdate{
		PasswordHash:     &hash,
		ResetToken:       &clearedToken,
		ResetTokenExpiry: &clearedExpiry,
	}); err != nil {
		return fmt.Errorf("service/auth: updating password: %w", err)
	}

	s.logger.Info("password reset", slog.Int64("userID", user.ID))
	return nil
}

// AdminInput is what `admin create` asks for.
type AdminInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// CreateAdmin creates an already-verified admin account. It is only
// reachable from the command line.
func (s *AuthService) CreateAdmin(ctx context.Context, in AdminInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		IsVerified:   true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("Email already registered")
		}
		return nil, fmt.Errorf("service/auth: creating admin: %w", err)
	}

	s.logger.Info("admin created", slog.Int64("userID", user.ID))
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d bytes", MaxPasswordLength))
	}
	return nil
}
