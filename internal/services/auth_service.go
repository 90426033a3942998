package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campuskit/classroom-service/internal/cache"
	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/repositories"
	"github.com/campuskit/classroom-service/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator

	// sessions holds blacklisted token IDs after logout; degrades to a
	// no-op without redis
	sessions *cache.CacheHelper

	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, sessions *cache.CacheHelper, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// SignUp creates an account. Password mismatch and duplicate username are
// reported as distinct errors.
func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*AuthResult, error) {
	if errs := s.validator.GetBusinessValidator().ValidateSignUp(req); len(errs) > 0 {
		return nil, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	}

	if err := s.repo.User().Create(ctx, s.db, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User signed up", "user_id", user.ID, "username", user.Username)

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates by username and password. Unknown user and wrong
// password get the same generic error.
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.repo.User().GetByUsername(ctx, s.db, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return &AuthResult{User: user, Token: token}, nil
}

// Logout blacklists the token until its natural expiry.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseClaims(token)
	if err != nil {
		return ErrInvalidToken
	}

	ttl := s.tokenTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}

	if err := s.sessions.SetString(ctx, claims.ID, "revoked", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.logger.Info("User logged out", "jti", claims.ID)
	return nil
}

// VerifyToken validates the token signature, expiry and blacklist, returning
// the account ID.
func (s *authService) VerifyToken(ctx context.Context, token string) (uint, error) {
	claims, err := s.parseClaims(token)
	if err != nil {
		return 0, ErrInvalidToken
	}

	if revoked, err := s.sessions.Exists(ctx, claims.ID); err == nil && revoked {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return uint(userID), nil
}

func (s *authService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) parseClaims(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
