package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teamchat-backend/internal/chaterr"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"
	"teamchat-backend/internal/utils"
)

var ErrUserExists = errors.New("user already exists")

type UserService struct {
	store store.Store
}

func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name and password required", chaterr.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: string(hash),
		Role:         models.RoleMember,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.store.UserByName(ctx, req.Name)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := GenerateSessionToken(user.ID, user.Name)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token:  token,
		UserID: user.ID,
		Name:   user.Name,
	}, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", chaterr.ErrNotFound, id)
	}
	return user, err
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// GenerateSessionToken issues the HS256 session token the HTTP layer sets as a
// cookie at login. The socket handshake validates the same token.
func GenerateSessionToken(userID uuid.UUID, name string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"name": name,
		"exp":  time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(utils.GetEnv("JWT_SECRET", "secret")))
}

// ValidateSessionToken resolves a session token to the user id it was issued
// for. The name claim is informational; callers needing display data re-fetch
// the user.
func ValidateSessionToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(utils.GetEnv("JWT_SECRET", "secret")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("invalid token claims")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, errors.New("invalid token claims")
	}
	return userID, nil
}
