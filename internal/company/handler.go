package company

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	"github.com/frahmantamala/expense-reimbursement/internal/transport"
	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
)

type ServiceAPI interface {
	ListForUser(ctx context.Context, userID int64, isAdmin bool) ([]*Company, error)
}

type CompaniesResponse struct {
	Companies []*Company `json:"companies"`
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     service,
	}
}

func (h *Handler) GetCompanies(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	companies, err := h.Service.ListForUser(r.Context(), u.ID, u.IsAdmin())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if companies == nil {
		companies = []*Company{}
	}

	h.WriteJSON(w, http.StatusOK, CompaniesResponse{Companies: companies})
}
