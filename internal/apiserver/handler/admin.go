package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/common/dto"
	"github.com/quarrydirect/portal/internal/common/errorx"
	"github.com/quarrydirect/portal/internal/database"
)

// ListUsers handles GET /api/admin/users with optional status, customer_id,
// role and search filters.
func (h *Handler) ListUsers(c *gin.Context) {
	filter := database.CustomerUserFilter{
		Status: database.CustomerUserStatus(c.Query("status")),
		Role:   database.CustomerUserRole(c.Query("role")),
		Search: c.Query("search"),
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			errorx.Respond(c, errorx.ErrMissingFields.WithMessage("Invalid customer_id"))
			return
		}
		filter.CustomerID = uint(id)
	}

	users, err := h.db.ListCustomerUsers(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	payloads := make([]*dto.AdminUserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, adminUserPayload(user))
	}

	c.JSON(http.StatusOK, gin.H{"users": payloads, "total": len(payloads)})
}

// ApproveUser handles POST /api/admin/users/:id/approve
func (h *Handler) ApproveUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req dto.ApproveUserRequest
	_ = c.ShouldBindJSON(&req)

	user, err := h.workflow.ApproveUser(c.Request.Context(), id, req.DepotAccess, req.PermissionCode)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User approved",
		"user":    adminUserPayload(user),
	})
}

// RejectUser handles POST /api/admin/users/:id/reject
func (h *Handler) RejectUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req dto.RejectUserRequest
	_ = c.ShouldBindJSON(&req)

	user, err := h.workflow.RejectUser(c.Request.Context(), id, req.Reason)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User rejected",
		"user":    adminUserPayload(user),
	})
}

// SetUserStatus handles PUT /api/admin/users/:id/status for the
// post-approval transitions between approved, suspended and inactive.
func (h *Handler) SetUserStatus(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req dto.CustomerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		errorx.Respond(c, errorx.ErrMissingFields.WithMessage("Status is required"))
		return
	}

	user, err := h.workflow.SetUserStatus(c.Request.Context(), id, database.CustomerUserStatus(req.Status))
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User status updated",
		"user":    adminUserPayload(user),
	})
}

// AssignRole handles PUT /api/admin/users/:id/role. The role-matched
// permission template is reassigned along with the role.
func (h *Handler) AssignRole(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Role == "" {
		errorx.Respond(c, errorx.ErrMissingFields.WithMessage("Role is required"))
		return
	}
	if !database.ValidCustomerUserRole(req.Role) {
		errorx.Respond(c, errorx.ErrInvalidRole)
		return
	}

	user, err := h.db.GetCustomerUserByID(c.Request.Context(), id)
	if err == database.ErrNotFound {
		errorx.Respond(c, errorx.ErrTargetUserNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	user.Role = database.CustomerUserRole(req.Role)
	if pc, err := h.db.GetPermissionCodeForRole(c.Request.Context(), user.Role); err == nil {
		user.PermissionCode = pc.Code
	} else if err != database.ErrNotFound {
		h.logger.Error("permission code lookup failed", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	if err := h.db.UpdateCustomerUser(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to update user role", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	h.logger.Info("role assigned",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)))

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated",
		"user":    adminUserPayload(user),
	})
}

// UpdatePermissions handles PUT /api/admin/users/:id/permissions, replacing
// the per-user overrides and depot list wholesale.
func (h *Handler) UpdatePermissions(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, errorx.ErrMissingFields)
		return
	}

	user, err := h.db.GetCustomerUserByID(c.Request.Context(), id)
	if err == database.ErrNotFound {
		errorx.Respond(c, errorx.ErrTargetUserNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	if req.DepotAccess != nil {
		depots, err := h.db.GetDepotsByCodes(c.Request.Context(), req.DepotAccess)
		if err != nil {
			h.logger.Error("depot lookup failed", zap.Error(err))
			errorx.Respond(c, errorx.ErrInternal)
			return
		}
		if len(depots) != len(uniqueStrings(req.DepotAccess)) {
			errorx.Respond(c, errorx.ErrInvalidDepots)
			return
		}
		user.DepotAccess = req.DepotAccess
	}
	if req.CustomPermissions != nil {
		user.CustomPermissions = req.CustomPermissions
	}

	if err := h.db.UpdateCustomerUser(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to update permissions", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	effective, err := h.resolver.Resolve(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("permission resolution failed", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Permissions updated",
		"user":        adminUserPayload(user),
		"permissions": effective.Permissions,
	})
}

// ListCustomers handles GET /api/admin/customers with an optional status
// filter.
func (h *Handler) ListCustomers(c *gin.Context) {
	customers, err := h.db.ListCustomers(c.Request.Context(), database.CustomerStatus(c.Query("status")))
	if err != nil {
		h.logger.Error("failed to list customers", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers, "total": len(customers)})
}

// SetCustomerStatus handles PUT /api/admin/customers/:id/status
func (h *Handler) SetCustomerStatus(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		errorx.Respond(c, errorx.ErrMissingFields.WithMessage("Invalid customer id"))
		return
	}

	var req dto.CustomerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		errorx.Respond(c, errorx.ErrMissingFields.WithMessage("Status is required"))
		return
	}

	customer, err := h.workflow.SetCustomerStatus(c.Request.Context(), uint(id), database.CustomerStatus(req.Status))
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Customer status updated",
		"customer": customer,
	})
}

// ListDepots handles GET /api/admin/depots
func (h *Handler) ListDepots(c *gin.Context) {
	depots, err := h.db.ListDepots(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list depots", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"depots": depots, "total": len(depots)})
}

// ListPermissionCodes handles GET /api/admin/permission-codes
func (h *Handler) ListPermissionCodes(c *gin.Context) {
	codes, err := h.db.ListPermissionCodes(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list permission codes", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"permission_codes": codes, "total": len(codes)})
}

// Stats handles GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.db.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load stats", zap.Error(err))
		errorx.Respond(c, errorx.ErrInternal)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func userIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		errorx.Respond(c, errorx.ErrMissingFields.WithMessage("Invalid user id"))
		return 0, false
	}
	return uint(id), true
}

func adminUserPayload(user *database.CustomerUser) *dto.AdminUserPayload {
	p := &dto.AdminUserPayload{
		UserPayload: dto.UserPayload{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Phone:      user.Phone,
			Role:       string(user.Role),
			Status:     string(user.Status),
			CustomerID: user.CustomerID,
			LastLogin:  user.LastLogin,
			CreatedAt:  user.CreatedAt,
		},
		DepotAccess: user.DepotAccess,
		Permissions: user.CustomPermissions,
	}
	if user.Customer != nil {
		p.CustomerName = user.Customer.Name
		p.Customer = &dto.AdminCustomerSummary{
			ID:     user.Customer.ID,
			Code:   user.Customer.Code,
			Name:   user.Customer.Name,
			Status: string(user.Customer.Status),
		}
	}
	if user.Status == database.UserPending {
		p.DaysPending = int(time.Since(user.CreatedAt).Hours() / 24)
	}
	return p
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
