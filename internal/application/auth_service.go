package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/lab-scheduler/internal/access"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService issues and validates HS256 bearer tokens.
type AuthService struct {
	credentials    CredentialStore
	verifyPassword PasswordVerifier
	secret         []byte
	tokenTTL       time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, secret string, tokenTTL time.Duration, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(credentials, nil, secret, tokenTTL, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a password verifier and logger.
func NewAuthServiceWithLogger(credentials CredentialStore, verify PasswordVerifier, secret string, tokenTTL time.Duration, now func() time.Time, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		verifyPassword: verify,
		secret:         []byte(secret),
		tokenTTL:       tokenTTL,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a signed token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}
	if len(s.secret) == 0 {
		err = fmt.Errorf("token secret not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID, "role", result.User.Role).InfoContext(ctx, "authentication succeeded")
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByUsername(ctx, username)
	if err != nil {
		if isNotFoundError(err) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verr := s.verifyPassword(creds.PasswordHash, params.Password); verr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   creds.User.ID,
		"role":  string(creds.User.Role),
		"class": creds.User.AssignedClass,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	var signed string
	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return
	}

	result = AuthenticateResult{User: creds.User, Token: signed, ExpiresAt: expiresAt}
	return
}

// ValidateToken verifies the signature and expiry of a bearer token and returns
// the principal of the user it was issued to. The user is re-read so that role
// changes apply to tokens issued earlier.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (principal access.Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	token = strings.TrimSpace(token)
	if token == "" {
		err = ErrUnauthorized
		return
	}

	parsed, perr := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if perr != nil {
		if errors.Is(perr, jwt.ErrTokenExpired) {
			err = ErrTokenExpired
			return
		}
		err = ErrUnauthorized
		return
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		err = ErrUnauthorized
		return
	}
	subject, serr := claims.GetSubject()
	if serr != nil || subject == "" {
		err = ErrUnauthorized
		return
	}

	if s.credentials == nil {
		role, _ := claims["role"].(string)
		class, _ := claims["class"].(string)
		parsedRole, ok := access.ParseRole(role)
		if !ok {
			err = ErrUnauthorized
			return
		}
		principal = access.Principal{UserID: subject, Role: parsedRole, AssignedClass: class}
		return
	}

	user, uerr := s.credentials.GetUser(ctx, subject)
	if uerr != nil {
		if isNotFoundError(uerr) {
			err = ErrUnauthorized
			return
		}
		err = uerr
		s.loggerWith(ctx, "ValidateToken", "user_id", subject).ErrorContext(ctx, "user lookup failed", "error", err, "error_kind", ErrorKind(err))
		return
	}

	principal = user.Principal()
	return
}
