package user

import (
	"time"
)

// Profile is what a signed-in user sees about themselves.
type Profile struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	Companies   []string  `json:"companies"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Profile) IsAdmin() bool {
	for _, perm := range p.Permissions {
		if perm == "admin" {
			return true
		}
	}
	return false
}
