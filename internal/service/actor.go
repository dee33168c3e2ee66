package service

import (
	"strconv"
	"strings"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/pkg/jwt"
)

// Actor is the authenticated caller on whose behalf a service acts.
type Actor struct {
	UserID uint
	Admin  bool
}

// ActorFromClaims builds an Actor from validated token claims.
func ActorFromClaims(c *jwt.JWTClaims) Actor {
	return Actor{UserID: c.UserID, Admin: c.Role == jwt.RoleAdmin}
}

// canModify: owners may change their rows, admins may change global rows.
func (a Actor) canModify(o models.Owned) bool {
	if o.Global() {
		return a.Admin
	}
	return o.OwnedBy(a.UserID) || a.Admin
}

func (a Actor) ownerPtr() *uint {
	id := a.UserID
	return &id
}

// parseEditableStatus accepts ACTIVE or INACTIVE. REMOVED is only reachable through delete.
func parseEditableStatus(s string) (models.Status, error) {
	switch st := models.Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case models.StatusActive, models.StatusInactive:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func ownerKey(id *uint) string {
	if id == nil {
		return "global"
	}
	return "user:" + strconv.FormatUint(uint64(*id), 10)
}
