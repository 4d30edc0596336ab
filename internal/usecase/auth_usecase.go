package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/golang-jwt/jwt/v4"
)

const (
	otpTTL    = 10 * time.Minute
	otpDigits = 6
)

// AuthUsecase is the passwordless login flow.
type AuthUsecase struct {
	users   repository.UserRepository
	otps    repository.OTPStore
	sender  OTPSender
	issuer  TokenIssuer
	clock   Clock
	ids     IDGenerator
	isAdmin func(email string) bool
}

func NewAuthUsecase(
	users repository.UserRepository,
	otps repository.OTPStore,
	sender OTPSender,
	issuer TokenIssuer,
	clock Clock,
	ids IDGenerator,
	isAdmin func(email string) bool,
) *AuthUsecase {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthUsecase{
		users:   users,
		otps:    otps,
		sender:  sender,
		issuer:  issuer,
		clock:   clock,
		ids:     ids,
		isAdmin: isAdmin,
	}
}

type AuthToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthOutput struct {
	User  model.User `json:"user"`
	Token AuthToken  `json:"token"`
}

// RequestOTP stores a fresh code for email and sends it.
func (u *AuthUsecase) RequestOTP(ctx context.Context, email string) error {
	email, err := validator.NormalizeEmail(email)
	if err != nil {
		return ValidationError("%s", err.Error())
	}
	code, err := newOTP()
	if err != nil {
		return InternalError(err)
	}
	if err := u.otps.Save(ctx, email, code, otpTTL); err != nil {
		return InternalError(err)
	}
	if err := u.sender.SendOTP(ctx, email, code); err != nil {
		return UpstreamError("mail", err)
	}
	return nil
}

// VerifyOTP exchanges a code for an access token, creating the user on first login.
func (u *AuthUsecase) VerifyOTP(ctx context.Context, email, code string) (AuthOutput, error) {
	email, err := validator.NormalizeEmail(email)
	if err != nil {
		return AuthOutput{}, ValidationError("%s", err.Error())
	}
	if err := validator.ValidateOTP(code); err != nil {
		return AuthOutput{}, ValidationError("%s", err.Error())
	}

// code check
	if err := u.otps.Verify(ctx, email, strings.TrimSpace(code)); err != nil {
		switch {
		case errors.Is(err, repository.ErrOTPTooManyAttempts):
			return AuthOutput{}, &HTTPError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "too many attempts, request a new code", Err: err}
		case errors.Is(err, repository.ErrOTPNotFound), errors.Is(err, repository.ErrOTPMismatch):
			return AuthOutput{}, &HTTPError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "invalid or expired code", Err: err}
		}
		return AuthOutput{}, InternalError(err)
	}

// first login creates the account
	now := u.clock.Now()
	user, err := u.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user = &model.User{
			ID:        u.ids.NewID(),
			Email:     email,
			Name:      strings.SplitN(email, "@", 2)[0],
			Role:      model.RoleUser,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if u.isAdmin(email) {
			user.Role = model.RoleAdmin
		}
		if err := u.users.Create(ctx, user); err != nil {
			return AuthOutput{}, InternalError(err)
		}
	case err != nil:
		return AuthOutput{}, InternalError(err)
	}

	if !user.IsActive {
		return AuthOutput{}, ForbiddenError("user is inactive")
	}
// promote addresses added to ADMIN_EMAILS later
	if user.Role != model.RoleAdmin && u.isAdmin(email) {
		user.Role = model.RoleAdmin
	}
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := u.users.Update(ctx, user); err != nil {
		return AuthOutput{}, InternalError(err)
	}

// issue
	token, expiresIn, err := u.issuer.Issue(*user)
	if err != nil {
		return AuthOutput{}, InternalError(err)
	}
	return AuthOutput{
		User: *user,
		Token: AuthToken{
			AccessToken:  token,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

// newOTP returns a zero padded six digit code.
func newOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// JWTIssuer signs HS256 access tokens carrying sub, role and tv.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewJWTIssuer(secret string, ttl time.Duration, clock Clock) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (i *JWTIssuer) Issue(user model.User) (string, int, error) {
	now := i.clock.Now()
	exp := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(i.ttl.Seconds()), nil
}
