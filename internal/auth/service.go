package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ansard/weddingbook/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxPasswordLength = 72 // bcrypt limit

	// BootstrapAdminUsername is created on first startup if absent.
	BootstrapAdminUsername = "User1"
)

// userStore abstracts the persistence layer.
type userStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// Service encapsulates authentication use cases.
type Service struct {
	store   userStore
	cfg     config.AuthConfig
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewService creates a Service with dependencies.
func NewService(store userStore, cfg config.AuthConfig) *Service {
	return &Service{
		store:   store,
		cfg:     cfg,
		nowFunc: time.Now,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

// Login authenticates credentials and issues a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.signToken(user)
}

// ResetPassword replaces a user's password when the shared reset key matches.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword, secretKey string) error {
	if secretKey != s.cfg.ResetSecretKey {
		return ErrBadResetKey
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	hash, err := hashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.UpdatePassword(ctx, user.ID, hash)
}

// CreateUser registers a new admin credential.
func (s *Service) CreateUser(ctx context.Context, username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	hash, err := hashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateUser(ctx, username, hash)
}

// EnsureAdmin creates the bootstrap admin credential if it does not exist.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	_, err := s.store.FindUserByUsername(ctx, BootstrapAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	hash, err := hashPassword(s.cfg.AdminInitPassword, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	if _, err := s.store.CreateUser(ctx, BootstrapAdminUsername, hash); err != nil {
		// a concurrent instance may have won the insert
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	return nil
}

// ValidateToken verifies the token signature and expiry and extracts claims.
func (s *Service) ValidateToken(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrUnauthorized
	}

	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrUnauthorized
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrUnauthorized
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok {
		return Claims{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, ErrUnauthorized
	}

	expFloat, ok := mapClaims["exp"].(float64)
	if !ok {
		return Claims{}, ErrUnauthorized
	}
	exp := time.Unix(int64(expFloat), 0)
	if exp.Before(s.nowFunc()) {
		return Claims{}, ErrUnauthorized
	}

	username, _ := mapClaims["username"].(string)

	iat := time.Time{}
	if iatFloat, ok := mapClaims["iat"].(float64); ok {
		iat = time.Unix(int64(iatFloat), 0)
	}

	return Claims{
		UserID:    userID,
		Username:  username,
		ExpiresAt: exp,
		IssuedAt:  iat,
	}, nil
}

func (s *Service) signToken(user User) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func hashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("password exceeds maximum length of %d characters", maxPasswordLength)
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
