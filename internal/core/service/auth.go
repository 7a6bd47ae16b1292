package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/dto"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

var errInvalidCredentials = serviceerrors.NewUnauthorizedError("invalid email or password")

type AuthOptions struct {
	Secret       string
	Issuer       string
	Audience     string
	TokenTTL     time.Duration
	PasswordCost int
}

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	userRepository port.UserPort
	options        AuthOptions
	now            func() time.Time
}

func NewAuthService(userRepository port.UserPort, options AuthOptions) *AuthService {
	if options.PasswordCost == 0 {
		options.PasswordCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepository: userRepository,
		options:        options,
		now:            time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, request *dto.RegisterRequest) (*domain.User, error) {
	email := domain.NormalizeEmail(request.Email)
	if email == "" {
		return nil, serviceerrors.NewInvalidRequestError("email is required")
	}
	if len(request.Password) < minPasswordLength || len(request.Password) > maxPasswordLength {
		return nil, serviceerrors.NewInvalidRequestError(
			fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength),
		)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), s.options.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.NewUser(email, string(hash))
	if err := s.userRepository.Create(ctx, user); err != nil {
		if serviceerrors.IsOfKind(err, serviceerrors.KindConflict) {
			return nil, serviceerrors.NewConflictError("email already registered")
		}
		logger.Error(ctx, "user: create failed", err, map[string]any{"email": email})
		return nil, err
	}

	logger.Info(ctx, "User registered", map[string]any{"user_id": user.ID})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, request *dto.LoginRequest) (*AccessToken, error) {
	user, err := s.userRepository.GetByEmail(ctx, domain.NormalizeEmail(request.Email))
	if err != nil {
		if serviceerrors.IsOfKind(err, serviceerrors.KindNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.issueToken(user.ID)
}

func (s *AuthService) issueToken(userID domain.ID) (*AccessToken, error) {
	now := s.now()
	expiresAt := now.Add(s.options.TokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   string(userID),
		Issuer:    s.options.Issuer,
		Audience:  jwt.ClaimStrings{s.options.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.options.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// ParseToken returns the user id carried by a valid access token.
func (s *AuthService) ParseToken(token string) (domain.ID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.options.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.options.Issuer),
		jwt.WithAudience(s.options.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", serviceerrors.NewUnauthorizedError("token expired")
		}
		return "", serviceerrors.NewUnauthorizedError("invalid token")
	}
	if claims.Subject == "" {
		return "", serviceerrors.NewUnauthorizedError("invalid token")
	}
	return domain.ID(claims.Subject), nil
}
