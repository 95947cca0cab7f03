package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	// RoleBus is the operator of a single vehicle.
	RoleBus = "bus"
)

// Identity carries the authenticated caller as asserted by the auth token.
type Identity struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	VehicleID string `json:"busId,omitempty"`
}
