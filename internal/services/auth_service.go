package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService struct {
	Store    repository.Store
	Log      *zap.Logger
	Secret   []byte
	TokenTTL time.Duration
	now      func() time.Time
}

// NewAuthService создаёт новый экземпляр AuthService.
func NewAuthService(store repository.Store, log *zap.Logger, secret []byte, tokenTTL time.Duration) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{Store: store, Log: log, Secret: secret, TokenTTL: tokenTTL, now: defaultNow}
}

// Register создает пользователя с хешированным паролем.
func (s *AuthService) Register(ctx context.Context, input models.RegisterRequest) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if input.Email == "" || input.Name == "" || input.Password == "" {
		return nil, models.Invalid("missing required fields")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, models.Invalid("invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, models.Invalid("password must be at least 8 characters long")
	}
	if !models.ValidRole(input.Role) {
		return nil, models.Invalid("role must be client or provider")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		Role:         input.Role,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.Log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login проверяет пароль и выдает токен доступа.
func (s *AuthService) Login(ctx context.Context, input models.LoginRequest) (*models.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, models.Invalid("missing required fields")
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, models.Unauthorized("invalid email or password")
	}

	token, expiresAt, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// GenerateToken подписывает HS256-токен с идентификатором и ролью пользователя.
func (s *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.TokenTTL)
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken проверяет подпись и срок токена и возвращает пользователя запроса.
func (s *AuthService) ParseToken(tokenString string) (models.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	})
	if err != nil {
		return models.Principal{}, models.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Principal{}, models.Unauthorized("invalid token")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || !models.ValidRole(models.Role(role)) {
		return models.Principal{}, models.Unauthorized("token does not contain a valid subject")
	}
	return models.Principal{UserID: sub, Role: models.Role(role)}, nil
}

// Me возвращает профиль пользователя.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.Store.Users().GetUser(ctx, userID)
}
