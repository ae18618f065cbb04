package dashboard

import (
	"context"
	"net/http"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	"github.com/frahmantamala/expense-reimbursement/internal/transport"
	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
)

type ServiceAPI interface {
	Personal(ctx context.Context, ownerID int64, companyID string, q Query) (*Summary, error)
	Admin(ctx context.Context, companyID string, q Query) (*Summary, error)
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

func (h *Handler) query(r *http.Request) Query {
	return Query{
		Year:       h.QueryInt(r, "year", 0),
		Month:      time.Month(h.QueryInt(r, "month", 0)),
		CostCenter: strings.TrimSpace(r.URL.Query().Get("cost_center")),
		OwnerID:    h.QueryInt64(r, "owner_id"),
	}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	summary, err := h.Service.Personal(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), h.query(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

// GetAdminDashboard spans every owner; ?owner_id narrows it to one.
func (h *Handler) GetAdminDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Admin(r.Context(), errors.CompanyIDFromContext(r.Context()), h.query(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
