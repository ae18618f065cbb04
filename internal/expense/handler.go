package expense

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	"github.com/frahmantamala/expense-reimbursement/internal/transport"
	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
	"github.com/go-chi/chi"
)

const maxReceiptSize = 10 << 20

type ServiceAPI interface {
	CreateExpense(ctx context.Context, ownerID int64, companyID string, dto CreateExpenseDTO) (*Expense, error)
	UpdateExpense(ctx context.Context, ownerID int64, id string, dto CreateExpenseDTO) (*Expense, error)
	GetExpense(ctx context.Context, ownerID int64, id string, isAdmin bool) (*Expense, error)
	ListExpenses(ctx context.Context, ownerID int64, companyID string) ([]*Expense, error)
	ListReports(ctx context.Context, ownerID int64, companyID string, isAdmin bool, filter ReportFilter) ([]Report, error)
	CloseReport(ctx context.Context, ownerID int64, companyID string, ids []string) (string, error)
	SubmitReport(ctx context.Context, companyID string, ownerID int64, reportID string) (int, error)
	MarkReportPaid(ctx context.Context, companyID string, ownerID int64, reportID string) (int, error)
	AuditReport(ctx context.Context, companyID string, ownerID int64, reportID string, dto AuditDTO) (int, error)
	ReopenReport(ctx context.Context, companyID string, ownerID int64, reportID string, isAdmin bool) (int, error)
	RenameReport(ctx context.Context, companyID string, ownerID int64, oldID string, dto RenameReportDTO) (int, error)
	DeleteReport(ctx context.Context, companyID string, ownerID int64, reportID string) (int, error)
	DeleteExpense(ctx context.Context, ownerID int64, id string) error
	BatchDeleteExpenses(ctx context.Context, ownerID int64, ids []string) (int, error)
	AttachReceipt(ctx context.Context, ownerID int64, id, filename, contentType string, r io.Reader) (*Expense, error)
	RemoveReceipt(ctx context.Context, ownerID int64, id string) (*Expense, error)
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

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.Logger.Error("expense handler: user not found in context", "path", r.URL.Path)
		h.WriteAppError(w, errors.ErrInvalidToken)
		return nil, false
	}
	return u, true
}

// reportID reads the {reportId} path segment. Substitute ids carry an escaped space.
func reportID(r *http.Request) string {
	raw := chi.URLParam(r, "reportId")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// scopeOwner is the caller for regular users. Admins act on ?owner_id, or every owner when absent.
func (h *Handler) scopeOwner(r *http.Request, u *auth.User) int64 {
	if u.IsAdmin() {
		return h.QueryInt64(r, "owner_id")
	}
	return u.ID
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	e, err := h.Service.CreateExpense(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	e, err := h.Service.UpdateExpense(r.Context(), u.ID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	e, err := h.Service.GetExpense(r.Context(), u.ID, chi.URLParam(r, "id"), u.IsAdmin())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	list, err := h.Service.ListExpenses(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"expenses": list})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteExpense(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BatchDeleteExpenses(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto BatchDeleteDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	n, err := h.Service.BatchDeleteExpenses(r.Context(), u.ID, dto.IDs)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// AttachReceipt takes a multipart upload in the "file" field.
func (h *Handler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.Logger.Warn("AttachReceipt: missing file", "error", err, "user_id", u.ID)
		h.WriteAppError(w, errors.NewValidationFieldError("file", "receipt file is required", errors.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	e, err := h.Service.AttachReceipt(r.Context(), u.ID, chi.URLParam(r, "id"), header.Filename, contentType, file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) RemoveReceipt(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	e, err := h.Service.RemoveReceipt(r.Context(), u.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) CloseReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto CloseReportDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	id, err := h.Service.CloseReport(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), dto.ExpenseIDs)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]string{"report_id": id})
}

// ListReports accepts cost_center, q, month, year and, for admins, owner_id.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := ReportFilter{
		CostCenter: strings.TrimSpace(q.Get("cost_center")),
		Query:      strings.TrimSpace(q.Get("q")),
		Month:      h.QueryInt(r, "month", 0),
		Year:       h.QueryInt(r, "year", 0),
	}
	if u.IsAdmin() {
		filter.OwnerID = h.QueryInt64(r, "owner_id")
	}

	reports, err := h.Service.ListReports(r.Context(), u.ID, errors.CompanyIDFromContext(r.Context()), u.IsAdmin(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}
	n, err := h.Service.SubmitReport(r.Context(), errors.CompanyIDFromContext(r.Context()), u.ID, reportID(r))
	h.writeCount(w, n, err)
}

func (h *Handler) ReopenReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}
	n, err := h.Service.ReopenReport(r.Context(), errors.CompanyIDFromContext(r.Context()), h.scopeOwner(r, u), reportID(r), u.IsAdmin())
	h.writeCount(w, n, err)
}

func (h *Handler) MarkReportPaid(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.user(w, r); !ok {
		return
	}
	n, err := h.Service.MarkReportPaid(r.Context(), errors.CompanyIDFromContext(r.Context()), h.QueryInt64(r, "owner_id"), reportID(r))
	h.writeCount(w, n, err)
}

func (h *Handler) AuditReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.user(w, r); !ok {
		return
	}

	var dto AuditDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	n, err := h.Service.AuditReport(r.Context(), errors.CompanyIDFromContext(r.Context()), h.QueryInt64(r, "owner_id"), reportID(r), dto)
	h.writeCount(w, n, err)
}

func (h *Handler) RenameReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var dto RenameReportDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	n, err := h.Service.RenameReport(r.Context(), errors.CompanyIDFromContext(r.Context()), h.scopeOwner(r, u), reportID(r), dto)
	h.writeCount(w, n, err)
}

func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}
	n, err := h.Service.DeleteReport(r.Context(), errors.CompanyIDFromContext(r.Context()), u.ID, reportID(r))
	h.writeCount(w, n, err)
}

func (h *Handler) writeCount(w http.ResponseWriter, n int, err error) {
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}
