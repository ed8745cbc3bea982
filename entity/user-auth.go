package entity

// UserAuth is the authenticated identity attached to a connection or request
// after the bearer token has been verified. Downstream handlers trust these
// fields unconditionally.
type UserAuth struct {
	UserID   string `json:"userId" validate:"required"`
	TenantID string `json:"tenantId" validate:"required"`
	Role     string `json:"role" validate:"required"`
}
