package user

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
)

var ErrNotFound = stdErrors.New("user not found")

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*Profile, error)
	GetPermissions(ctx context.Context, userID int64) ([]string, error)
	GetCompanies(ctx context.Context, userID int64) ([]string, error)
}

type Service struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		timeout: errors.DefaultStoreTimeout,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, ErrNotFound) {
			return nil, errors.ErrInvalidToken.WithMessage("user not found")
		}
		s.logger.Error("failed to load user", "error", err, "user_id", userID)
		return nil, errors.NewStoreError("failed to load user", fmt.Errorf("get user by id: %w", err))
	}

	perms, err := s.repo.GetPermissions(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user permissions", "error", err, "user_id", userID)
		return nil, errors.NewStoreError("failed to load user", fmt.Errorf("get user permissions: %w", err))
	}
	p.Permissions = perms

	companies, err := s.repo.GetCompanies(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user companies", "error", err, "user_id", userID)
		return nil, errors.NewStoreError("failed to load user", fmt.Errorf("get user companies: %w", err))
	}
	p.Companies = companies

	return p, nil
}
