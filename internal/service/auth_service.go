package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/finloop/loan-management/internal/config"
	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/mailer"
	"github.com/finloop/loan-management/internal/repository"
	apperrors "github.com/finloop/loan-management/pkg/errors"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	uniqueViolation = "23505"
)

// Claims are the JWT claims carried by both access and refresh tokens.
type Claims struct {
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthService covers registration, email-OTP verification and JWT login.
type AuthService struct {
	users  repository.UserRepository
	otp    repository.OTPStore
	mail   mailer.Mailer
	config *config.Config
	logger *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	otp repository.OTPStore,
	mail mailer.Mailer,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		otp:    otp,
		mail:   mail,
		config: cfg,
		logger: logger,
	}
}

// Register creates an unverified user and issues a one-time verification
// code to their email address. The mail dispatch is fire-and-forget: a mail
// failure is logged but never fails registration.
func (s *AuthService) Register(ctx context.Context, request *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	role, ok := domain.ParseRole(request.Role)
	if !ok {
		return nil, apperrors.WrapValidation(fmt.Sprintf("Unknown role %q", request.Role))
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     request.Username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsVerified:   false,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperrors.WrapEmailTaken(email)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	if err := s.otp.Put(ctx, email, code, s.config.OTP.TTL); err != nil {
		return nil, err
	}

	go s.sendOTPMail(email, code)

	return &domain.RegisterResponse{
		UserID:  user.ID,
		Message: "User registered. OTP sent to email.",
	}, nil
}

// ResendOTP issues a fresh verification code to an unverified account, for
// users whose original code expired or never arrived.
func (s *AuthService) ResendOTP(ctx context.Context, request *domain.ResendOTPRequest) error {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.WrapUserNotFound(email)
		}
		return apperrors.WrapDatabaseError(err)
	}
	if user.IsVerified {
		return apperrors.WrapValidation("Account is already verified")
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.otp.Put(ctx, email, code, s.config.OTP.TTL); err != nil {
		return err
	}

	go s.sendOTPMail(email, code)

	s.logger.Info("otp reissued", zap.String("user_id", user.ID.String()))
	return nil
}

// VerifyOTP consumes the one-time code for an email address and marks the
// user verified on a match. The code is gone after one attempt, matching or
// not.
func (s *AuthService) VerifyOTP(ctx context.Context, request *domain.VerifyOTPRequest) error {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.WrapUserNotFound(email)
		}
		return apperrors.WrapDatabaseError(err)
	}

	code, err := s.otp.Consume(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidOTP) {
			return apperrors.WrapInvalidOTP()
		}
		return err
	}
	if code != request.OTP {
		return apperrors.WrapInvalidOTP()
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	s.logger.Info("user verified", zap.String("user_id", user.ID.String()))
	return nil
}

// Login checks credentials of a verified account and issues an access and a
// refresh token.
func (s *AuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapUserNotFound(email)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	if !user.IsVerified {
		return nil, apperrors.WrapAccountNotVerified(email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		return nil, apperrors.WrapInvalidCredentials()
	}

	access, err := s.issueToken(user, TokenTypeAccess, s.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueToken(user, TokenTypeRefresh, s.config.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         user.Role,
	}, nil
}

// Refresh exchanges a live refresh token for a fresh access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenResponse, error) {
	claims, err := s.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, apperrors.WrapInvalidToken(errors.New("not a refresh token"))
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.WrapInvalidToken(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapInvalidToken(errors.New("user no longer exists"))
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	access, err := s.issueToken(user, TokenTypeAccess, s.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{AccessToken: access, Role: user.Role}, nil
}

// ParseToken verifies a token's signature and expiry and returns its claims.
func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.WrapInvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, apperrors.WrapInvalidToken(errors.New("unexpected claims type"))
	}
	return claims, nil
}

func (s *AuthService) issueToken(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    user.ID.String(),
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.JWT.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *AuthService) sendOTPMail(email, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body := fmt.Sprintf("Your OTP is: %s", code)
	if err := s.mail.Send(ctx, email, "Your OTP Code", body); err != nil {
		s.logger.Warn("otp mail dispatch failed", zap.String("email", email), zap.Error(err))
	}
}

// generateOTP draws a uniform 6-digit code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
