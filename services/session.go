package services

import (
	"strings"
)

// Session identifies whose records an operation may touch. It is built from
// the authenticated request and passed explicitly to every service call.
type Session struct {
	UserID string
	Roles  []string
}

// NewSession validates the user id and returns a Session for it.
func NewSession(userID string, roles ...string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, ErrNoSession
	}
	return Session{UserID: userID, Roles: roles}, nil
}

// HasRole reports whether the session carries role.
func (s Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
