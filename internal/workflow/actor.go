package workflow

import "github.com/javajoker/licensing-portal/internal/models"

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	Identity string      `json:"identity"`
	Role     models.Role `json:"role"`
}
