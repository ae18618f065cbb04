package auth

import (
	"net/http"
	"strings"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
)

const CompanyHeader = "X-Company-ID"

var ErrCompanyForbidden = errors.NewForbiddenError("no access to the selected company", errors.ErrCodeCompanyMismatch)

// CompanyPolicy decides which company a request operates in.
type CompanyPolicy struct{}

// Resolve returns the company the user asked for, or their only company when they asked for none.
// An empty result means no company is selected.
func (p *CompanyPolicy) Resolve(u *User, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if len(u.Companies) == 1 {
			return u.Companies[0], nil
		}
		return "", nil
	}
	if !u.CanAccessCompany(requested) {
		return "", ErrCompanyForbidden
	}
	return requested, nil
}

func requestedCompany(r *http.Request) string {
	if c := r.Header.Get(CompanyHeader); c != "" {
		return c
	}
	return r.URL.Query().Get("company_id")
}
