package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/RubachokBoss/edugrader/internal/auth"
	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	Refresh(ctx context.Context, req *models.RefreshRequest) (*models.TokenResponse, error)
	// Authenticate проверяет access-токен и возвращает вызывающего с ролью из БД.
	Authenticate(ctx context.Context, accessToken string) (models.Principal, error)
	Me(ctx context.Context, p models.Principal) (*models.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	hasher   *auth.PasswordHasher
	logger   zerolog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.TokenManager,
	hasher *auth.PasswordHasher,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, validationError("invalid email address")
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, validationError("password must be at least %d characters", auth.MinPasswordLength)
	}
	if len(req.Password) > auth.MaxPasswordLength {
		return nil, validationError("password must be at most %d bytes", auth.MaxPasswordLength)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, validationError("full_name is required")
	}
	group := strings.TrimSpace(req.Group)
	faculty := strings.TrimSpace(req.Faculty)
	for _, err := range []error{
		checkLength("email", email, models.MaxEmailLength),
		checkLength("full_name", fullName, models.MaxNameLength),
		checkLength("group", group, models.MaxGroupLength),
		checkLength("faculty", faculty, models.MaxNameLength),
	} {
		if err != nil {
			return nil, err
		}
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, validationError("unknown role %q", role)
	}

	// Первый зарегистрированный пользователь становится администратором
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, repoError(err, "user", "count")
	}
	if count == 0 {
		role = models.RoleAdmin
	} else if role == models.RoleAdmin {
		return nil, forbidden("administrator accounts cannot be self-registered")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	ts := now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		GroupName:    group,
		Faculty:      faculty,
		IsActive:     true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("user with email %s already exists", email)
		}
		return nil, repoError(err, "user", "create")
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role.String()).
		Msg("User registered")

	return user, nil
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthenticated("invalid email or password")
		}
		return nil, repoError(err, "user", "get")
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, unauthenticated("invalid email or password")
	}
	if !user.IsActive {
		return nil, unauthenticated("account is deactivated")
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("User logged in")

	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, req *models.RefreshRequest) (*models.TokenResponse, error) {
	claims, err := s.tokens.Parse(req.RefreshToken, auth.RefreshToken)
	if err != nil {
		return nil, unauthenticated("invalid or expired refresh token")
	}

	// Роль перечитывается из БД, а не берётся из токена
	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	claims, err := s.tokens.Parse(accessToken, auth.AccessToken)
	if err != nil {
		return models.Principal{}, unauthenticated("invalid or expired token")
	}

	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return models.Principal{}, err
	}

	return user.Principal(), nil
}

func (s *authService) Me(ctx context.Context, p models.Principal) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, repoError(err, "user", "get")
	}
	return user, nil
}

func (s *authService) activeUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthenticated("user no longer exists")
		}
		return nil, repoError(err, "user", "get")
	}
	if !user.IsActive {
		return nil, unauthenticated("account is deactivated")
	}
	return user, nil
}

func (s *authService) issue(user *models.User) (*models.TokenResponse, error) {
	pair, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	}, nil
}
