package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"cryptosim/src/models"
	"cryptosim/src/repositories"
	"cryptosim/src/utils"

	"golang.org/x/crypto/bcrypt"
)

type AuthServiceI interface {
	Register(ctx context.Context, name, email, password string) (int64, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Authenticate(token string) (int64, error)
}

// LoginResult carries the public user fields and the session token issued
// for them.
type LoginResult struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	users      repositories.UserRepository
	tokens     *TokenService
	bcryptCost int
}

func NewAuthService(users repositories.UserRepository, tokens *TokenService, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register stores a new user with a bcrypt hash of the password and returns
// its id.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (int64, error) {
	logger := utils.LoggerFromContext(ctx)

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || strings.TrimSpace(password) == "" {
		return 0, validationError("Todos los campos son requeridos")
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return 0, ErrDuplicateEmail
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		logger.Errorf("error while looking up email on register: %v", err)
		return 0, transactionError("Error al registrar usuario", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return 0, validationError("La contraseña es demasiado larga")
		}
		return 0, transactionError("Error al registrar usuario", err)
	}

	user := &models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return 0, ErrDuplicateEmail
		}
		logger.Errorf("error while creating user: %v", err)
		return 0, transactionError("Error al registrar usuario", err)
	}

	logger.WithField("user_id", user.ID).Info("user registered")
	return user.ID, nil
}

// Login checks the credentials and issues a session token. Unknown emails
// and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	logger := utils.LoggerFromContext(ctx)

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		logger.Errorf("error while looking up user on login: %v", err)
		return nil, transactionError("Error al iniciar sesión", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.WithField("user_id", user.ID).Info("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, transactionError("Error al iniciar sesión", err)
	}

	return &LoginResult{
		User:      models.User{ID: user.ID, Name: user.Name, Email: user.Email},
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) Authenticate(token string) (int64, error) {
	return s.tokens.Authenticate(token)
}
