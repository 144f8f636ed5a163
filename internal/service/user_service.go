package service

import (
	"context"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/policy"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/rs/zerolog"
)

type UserService interface {
	List(ctx context.Context, p models.Principal, filter models.UserFilter) (*models.UsersResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *userService) List(ctx context.Context, p models.Principal, filter models.UserFilter) (*models.UsersResponse, error) {
	if !policy.CanListUsers(p) {
		return nil, forbidden("only administrators can list users")
	}
	if filter.Role != "" {
		if _, err := models.ParseRole(string(filter.Role)); err != nil {
			return nil, validationError("invalid role filter: %s", filter.Role)
		}
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "user", "list")
	}
	if users == nil {
		users = make([]models.User, 0)
	}

	return &models.UsersResponse{
		Users: users,
		Total: total,
		Skip:  filter.Skip,
		Limit: filter.Limit,
	}, nil
}
