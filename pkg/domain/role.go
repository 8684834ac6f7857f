package domain

import dErrors "givebridge/pkg/domain-errors"

// Role is the caller's part in the donation exchange. It comes from the
// identity layer and is never inferred inside core services.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleDonor, RoleRecipient:
		return Role(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+raw)
	}
}
