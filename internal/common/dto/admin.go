package dto

// ApproveUserRequest is the body for POST /api/admin/users/:id/approve
type ApproveUserRequest struct {
	DepotAccess    []string `json:"depot_access"`
	PermissionCode string   `json:"permission_code"`
}

// RejectUserRequest is the body for POST /api/admin/users/:id/reject
type RejectUserRequest struct {
	Reason string `json:"reason"`
}

// AssignRoleRequest is the body for PUT /api/admin/users/:id/role
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// UpdatePermissionsRequest is the body for PUT /api/admin/users/:id/permissions
type UpdatePermissionsRequest struct {
	CustomPermissions map[string]bool `json:"custom_permissions"`
	DepotAccess       []string        `json:"depot_access"`
}

// CustomerStatusRequest is the body for PUT /api/admin/customers/:id/status
type CustomerStatusRequest struct {
	Status string `json:"status"`
}

// AdminUserPayload is the admin view of a customer user, with its customer
// summary attached.
type AdminUserPayload struct {
	UserPayload
	Customer    *AdminCustomerSummary `json:"customer,omitempty"`
	DepotAccess []string              `json:"depot_access"`
	Permissions map[string]bool       `json:"custom_permissions,omitempty"`
	DaysPending int                   `json:"days_pending,omitempty"`
}

// AdminCustomerSummary is the customer block embedded in admin responses.
type AdminCustomerSummary struct {
	ID     uint   `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
