package approval

import (
	"context"
	"time"

	"github.com/quarrydirect/portal/internal/common/errorx"
	"github.com/quarrydirect/portal/internal/database"

	"go.uber.org/zap"
)

// customerTransitions is the allowed state graph for customers. Approval is
// one-way out of pending; the administrative states are reversible.
var customerTransitions = map[database.CustomerStatus][]database.CustomerStatus{
	database.CustomerPending:   {database.CustomerApproved, database.CustomerRejected},
	database.CustomerApproved:  {database.CustomerOnHold, database.CustomerSuspended},
	database.CustomerOnHold:    {database.CustomerApproved, database.CustomerSuspended},
	database.CustomerSuspended: {database.CustomerApproved, database.CustomerOnHold},
}

// userTransitions is the allowed state graph for customer users. pending →
// approved/rejected happens through ApproveUser/RejectUser; the rest are
// administrative.
var userTransitions = map[database.CustomerUserStatus][]database.CustomerUserStatus{
	database.UserApproved:  {database.UserSuspended, database.UserInactive},
	database.UserSuspended: {database.UserApproved},
	database.UserInactive:  {database.UserApproved},
}

func transitionAllowed[S comparable](graph map[S][]S, from, to S) bool {
	for _, s := range graph[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Workflow governs the customer and customer-user lifecycle and provides
// the gate the authenticator consults before any login succeeds.
type Workflow struct {
	logger *zap.Logger
	db     database.Database
}

// NewWorkflow creates an approval workflow over the credential store.
func NewWorkflow(logger *zap.Logger, db database.Database) *Workflow {
	return &Workflow{
		logger: logger.Named("approval.workflow"),
		db:     db,
	}
}

// CanAuthenticate is the gate predicate: the user and its customer must
// both be approved. The error distinguishes which side blocked, so the
// client can render the correct message.
func CanAuthenticate(user *database.CustomerUser) error {
	if user.Status != database.UserApproved {
		return errorx.ErrUserNotApproved
	}
	if user.Customer == nil || user.Customer.Status != database.CustomerApproved {
		return errorx.ErrCustomerNotActive
	}
	return nil
}

// ApproveUser transitions a pending customer user to approved, optionally
// assigning depot access and a permission code. Valid only from pending.
func (w *Workflow) ApproveUser(ctx context.Context, userID uint, depotAccess []string, permissionCode string) (*database.CustomerUser, error) {
	user, err := w.db.GetCustomerUserByID(ctx, userID)
	if err == database.ErrNotFound {
		return nil, errorx.ErrTargetUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.Status != database.UserPending {
		return nil, errorx.ErrInvalidStatus.WithMessage(
			"User status is %s, not pending", user.Status)
	}

	if len(depotAccess) > 0 {
		valid, err := w.db.GetDepotsByCodes(ctx, depotAccess)
		if err != nil {
			return nil, err
		}
		if len(valid) != len(uniqueStrings(depotAccess)) {
			return nil, errorx.ErrInvalidDepots.WithDetail("requested", depotAccess)
		}
	}

	if permissionCode != "" {
		if _, err := w.db.GetPermissionCode(ctx, permissionCode); err != nil {
			if err == database.ErrNotFound {
				return nil, errorx.ErrInvalidPermissionCode
			}
			return nil, err
		}
	}

	user.Status = database.UserApproved
	user.UpdatedAt = time.Now().UTC()
	if depotAccess != nil {
		user.DepotAccess = depotAccess
	}
	if permissionCode != "" {
		user.PermissionCode = permissionCode
	}

	if err := w.db.UpdateCustomerUser(ctx, user); err != nil {
		return nil, err
	}

	w.logger.Info("customer user approved",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
		zap.Strings("depot_access", user.DepotAccess))
	return user, nil
}

// RejectUser transitions a pending customer user to rejected. The reason is
// mandatory and retained for audit.
func (w *Workflow) RejectUser(ctx context.Context, userID uint, reason string) (*database.CustomerUser, error) {
	if reason == "" {
		return nil, errorx.ErrMissingReason
	}

	user, err := w.db.GetCustomerUserByID(ctx, userID)
	if err == database.ErrNotFound {
		return nil, errorx.ErrTargetUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.Status != database.UserPending {
		return nil, errorx.ErrInvalidStatus.WithMessage(
			"User status is %s, not pending", user.Status)
	}

	user.Status = database.UserRejected
	user.ApprovalNote = reason
	user.UpdatedAt = time.Now().UTC()

	if err := w.db.UpdateCustomerUser(ctx, user); err != nil {
		return nil, err
	}

	w.logger.Info("customer user rejected",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("reason", reason))
	return user, nil
}

// SetUserStatus applies an administrative transition on an already-decided
// user (approved ↔ suspended/inactive).
func (w *Workflow) SetUserStatus(ctx context.Context, userID uint, status database.CustomerUserStatus) (*database.CustomerUser, error) {
	user, err := w.db.GetCustomerUserByID(ctx, userID)
	if err == database.ErrNotFound {
		return nil, errorx.ErrTargetUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(userTransitions, user.Status, status) {
		return nil, errorx.ErrInvalidStatus.WithMessage(
			"Cannot move user from %s to %s", user.Status, status)
	}

	user.Status = status
	user.UpdatedAt = time.Now().UTC()
	if err := w.db.UpdateCustomerUser(ctx, user); err != nil {
		return nil, err
	}

	w.logger.Info("customer user status changed",
		zap.Uint("user_id", user.ID),
		zap.String("status", string(status)))
	return user, nil
}

// SetCustomerStatus applies a customer transition. Holding or suspending a
// customer does not alter its users' statuses, but the gate predicate
// blocks all their subsequent authentications immediately.
func (w *Workflow) SetCustomerStatus(ctx context.Context, customerID uint, status database.CustomerStatus) (*database.Customer, error) {
	customer, err := w.db.GetCustomerByID(ctx, customerID)
	if err == database.ErrNotFound {
		return nil, errorx.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(customerTransitions, customer.Status, status) {
		return nil, errorx.ErrInvalidStatus.WithMessage(
			"Cannot move customer from %s to %s", customer.Status, status)
	}

	customer.Status = status
	customer.UpdatedAt = time.Now().UTC()
	if err := w.db.UpdateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	w.logger.Info("customer status changed",
		zap.Uint("customer_id", customer.ID),
		zap.String("code", customer.Code),
		zap.String("status", string(status)))
	return customer, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
