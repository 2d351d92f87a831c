package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/internal/utils/jwt"
)

// RegisterInput carries registration fields.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Role     access.Role
}

// Result is returned by every sign-in flow.
type Result struct {
	User         user.User `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

// GoogleVerifier validates Google ID tokens.
type GoogleVerifier interface {
	Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

type googleVerifierFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

func (f googleVerifierFunc) Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	return f(ctx, token, audience)
}

// Service implements registration and sign-in.
type Service struct {
	db             *gorm.DB
	issuer         *jwt.Issuer
	google         GoogleVerifier
	googleClientID string
}

// NewService creates a Service. Google sign-in is enabled when googleClientID is set.
func NewService(db *gorm.DB, issuer *jwt.Issuer, googleClientID string) *Service {
	return &Service{
		db:             db,
		issuer:         issuer,
		google:         googleVerifierFunc(idtoken.Validate),
		googleClientID: googleClientID,
	}
}

// Register creates a student or tutor account and signs it in.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Result, error) {
	email := user.NormalizeEmail(input.Email)
	if !user.ValidEmail(email) {
		return Result{}, ErrInvalidEmail
	}

	usr, err := user.Create(ctx, s.db, user.CreateInput{
		FullName: input.FullName,
		Email:    email,
		Password: input.Password,
		Role:     input.Role,
	})
	if err != nil {
		return Result{}, err
	}
	return s.issue(usr)
}

// Login verifies email and password.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	usr, err := user.GetByEmail(ctx, s.db, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, err
	}
	if !usr.ComparePassword(password) {
		return Result{}, ErrInvalidCredentials
	}
	if !usr.Active {
		return Result{}, ErrInactiveAccount
	}
	return s.issue(usr)
}

// Google signs in with a Google ID token. Unknown accounts are created with
// role, existing accounts with the same email are linked.
func (s *Service) Google(ctx context.Context, idToken string, role access.Role) (Result, error) {
	if s.googleClientID == "" {
		return Result{}, ErrGoogleDisabled
	}

	payload, err := s.google.Validate(ctx, idToken, s.googleClientID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return Result{}, ErrGoogleEmail
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return Result{}, ErrGoogleEmail
	}
	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = email
	}

	usr, err := user.GetByGoogleID(ctx, s.db, payload.Subject)
	if err == nil {
		if !usr.Active {
			return Result{}, ErrInactiveAccount
		}
		return s.issue(usr)
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return Result{}, err
	}

	usr, err = user.GetByEmail(ctx, s.db, email)
	switch {
	case err == nil:
		if err := user.LinkGoogle(ctx, s.db, usr.ID, payload.Subject); err != nil {
			return Result{}, err
		}
	case errors.Is(err, user.ErrUserNotFound):
		subject := payload.Subject
		usr, err = user.Create(ctx, s.db, user.CreateInput{
			FullName: name,
			Email:    email,
			Role:     role,
			GoogleID: &subject,
		})
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, err
	}

	if !usr.Active {
		return Result{}, ErrInactiveAccount
	}
	return s.issue(usr)
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return jwt.TokenPair{}, ErrInvalidToken
	}

	usr, err := user.Get(ctx, s.db, claims.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		return jwt.TokenPair{}, ErrInvalidToken
	}
	if err != nil {
		return jwt.TokenPair{}, err
	}
	if !usr.Active {
		return jwt.TokenPair{}, ErrInactiveAccount
	}
	return s.issuer.Pair(usr.Identity())
}

func (s *Service) issue(usr user.User) (Result, error) {
	pair, err := s.issuer.Pair(usr.Identity())
	if err != nil {
		return Result{}, err
	}
	return Result{User: usr, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
