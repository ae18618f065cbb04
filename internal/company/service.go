package company

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
)

type RepositoryAPI interface {
	// ListActive returns every active company. A non-zero userID keeps only the ones granted to that user.
	ListActive(ctx context.Context, userID int64) ([]*Company, error)
}

type Service struct {
	repo    RepositoryAPI
	logger  *slog.Logger
	timeout time.Duration
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		timeout: errors.DefaultStoreTimeout,
	}
}

// ListForUser returns the companies a user may select. Admins see all of them.
func (s *Service) ListForUser(ctx context.Context, userID int64, isAdmin bool) ([]*Company, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	scope := userID
	if isAdmin {
		scope = 0
	}

	companies, err := s.repo.ListActive(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list companies", "error", err, "user_id", userID)
		return nil, errors.NewStoreError("failed to list companies", err)
	}

	s.logger.Debug("retrieved companies", "user_id", userID, "count", len(companies))
	return companies, nil
}
