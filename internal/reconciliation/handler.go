package reconciliation

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/transport"
	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
	"github.com/go-chi/chi"
)

const maxStatementSize = 10 << 20

type ServiceAPI interface {
	Import(ctx context.Context, ownerID int64, format string, r io.Reader) (ImportSummary, error)
	Statement(ctx context.Context, ownerID int64, viewerCompany string, period Period, filter StatementFilter) (*Statement, error)
	Candidates(ctx context.Context, ownerID int64, viewerCompany, query string) ([]*expense.Expense, error)
	Link(ctx context.Context, ownerID int64, viewerCompany, transactionID string, dto LinkDTO) (*Transaction, error)
	Unlink(ctx context.Context, ownerID int64, viewerCompany, transactionID string) (*Transaction, error)
	Annotate(ctx context.Context, ownerID int64, viewerCompany, transactionID string, dto AnnotateDTO) (*Transaction, error)
	BatchDelete(ctx context.Context, ownerID int64, dto BatchDeleteDTO) (int, error)
	Sweep(ctx context.Context, ownerID int64) (SweepResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	now     func() time.Time
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     service,
		now:         time.Now,
	}
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return nil, false
	}
	return u, true
}

// ImportStatement accepts a multipart upload in the "file" field. ?format defaults to ofx.
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStatementSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.Logger.Warn("ImportStatement: missing file", "error", err, "user_id", u.ID)
		h.WriteAppError(w, errors.NewValidationFieldError("file", "statement file is required", errors.ErrCodeInvalidStatement))
		return
	}
	defer file.Close()

	format := strings.TrimSpace(r.URL.Query().Get("format"))
	if format == "" {
		format = "ofx"
	}

	summary, err := h.Service.Import(r.Context(), u.ID, format, file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ImportStatement: done", "user_id", u.ID, "file", header.Filename, "inserted", summary.Inserted)
	h.WriteJSON(w, http.StatusOK, summary)
}

// GetStatement serves ?month=1..12&year=YYYY, defaulting to the current month.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	now := h.now()
	period := Period{
		Year:  h.QueryInt(r, "year", now.Year()),
		Month: time.Month(h.QueryInt(r, "month", int(now.Month()))),
	}
	filter := StatementFilter{
		Search: r.URL.Query().Get("q"),
		Amount: r.URL.Query().Get("amount"),
	}

	st, err := h.Service.Statement(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), period, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	list, err := h.Service.Candidates(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"expenses": list})
}

func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto LinkDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	t, err := h.Service.Link(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	t, err := h.Service.Unlink(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Annotate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto AnnotateDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	t, err := h.Service.Annotate(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto BatchDeleteDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	n, err := h.Service.BatchDelete(r.Context(), u.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Sweep runs a repair pass over every owner. ?owner_id narrows it to one.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.user(w, r); !ok {
		return
	}

	result, err := h.Service.Sweep(r.Context(), h.QueryInt64(r, "owner_id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}
