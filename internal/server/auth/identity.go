// Package auth covers who the caller is: password hashing, the signed
// identity cookie and identity resolution from session or token.
package auth

import (
	"slices"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

// Identity is the authenticated principal.
type Identity struct {
	Subject string        `json:"sub"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Roles   []models.Role `json:"roles"`
}

// NewIdentity builds the identity for an account.
func NewIdentity(a *models.Account) *Identity {
	return &Identity{
		Subject: a.ID,
		Name:    a.Username,
		Email:   a.Email,
		Roles:   []models.Role{a.Role},
	}
}

// HasRole reports whether the identity holds any of roles.
func (i *Identity) HasRole(roles ...models.Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(i.Roles, r) {
			return true
		}
	}
	return false
}
