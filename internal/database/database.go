package database

import (
	"context"
	"errors"
)

// CustomerUserFilter narrows ListCustomerUsers results. Zero values mean
// "no filter" for their field.
type CustomerUserFilter struct {
	Status     CustomerUserStatus
	CustomerID uint
	Role       CustomerUserRole
	Search     string // matches name or email, case-insensitive substring
}

// Stats is an aggregate snapshot used by the admin dashboard.
type Stats struct {
	CustomersByStatus map[CustomerStatus]int64     `json:"customers_by_status"`
	UsersByStatus     map[CustomerUserStatus]int64 `json:"users_by_status"`
	PlatformUsers     int64                        `json:"platform_users"`
}

// Database defines the methods for credential-store operations.
type Database interface {
	// Close closes the database connection.
	Close() error

	// CreateCustomer creates a new customer tenant.
	CreateCustomer(ctx context.Context, customer *Customer) error

	// GetCustomerByID gets a customer by primary key.
	GetCustomerByID(ctx context.Context, id uint) (*Customer, error)

	// GetCustomerByCode gets a customer by its unique ERP code.
	GetCustomerByCode(ctx context.Context, code string) (*Customer, error)

	// UpdateCustomer persists changes to a customer.
	UpdateCustomer(ctx context.Context, customer *Customer) error

	// ListCustomers returns all customers, optionally filtered by status.
	ListCustomers(ctx context.Context, status CustomerStatus) ([]*Customer, error)

	// CreateCustomerUser creates a new customer user.
	CreateCustomerUser(ctx context.Context, user *CustomerUser) error

	// GetCustomerUserByID gets a customer user with its customer preloaded.
	GetCustomerUserByID(ctx context.Context, id uint) (*CustomerUser, error)

	// GetCustomerUserByEmail gets a customer user by lowercase email with its
	// customer preloaded.
	GetCustomerUserByEmail(ctx context.Context, email string) (*CustomerUser, error)

	// GetCustomerUserByPhone gets a customer user by phone with its customer
	// preloaded.
	GetCustomerUserByPhone(ctx context.Context, phone string) (*CustomerUser, error)

	// UpdateCustomerUser persists changes to a customer user.
	UpdateCustomerUser(ctx context.Context, user *CustomerUser) error

	// ListCustomerUsers returns customer users matching the filter, newest
	// first, with customers preloaded.
	ListCustomerUsers(ctx context.Context, filter CustomerUserFilter) ([]*CustomerUser, error)

	// CountOwners counts customer users holding the owner role for a customer.
	CountOwners(ctx context.Context, customerID uint) (int64, error)

	// CreatePlatformUser creates a new platform user.
	CreatePlatformUser(ctx context.Context, user *PlatformUser) error

	// GetPlatformUserByID gets a platform user by primary key.
	GetPlatformUserByID(ctx context.Context, id uint) (*PlatformUser, error)

	// GetPlatformUserByEmail gets a platform user by lowercase email.
	GetPlatformUserByEmail(ctx context.Context, email string) (*PlatformUser, error)

	// GetPlatformUserByPhone gets a platform user by phone.
	GetPlatformUserByPhone(ctx context.Context, phone string) (*PlatformUser, error)

	// UpdatePlatformUser persists changes to a platform user.
	UpdatePlatformUser(ctx context.Context, user *PlatformUser) error

	// GetPermissionCode gets a permission template by code.
	GetPermissionCode(ctx context.Context, code string) (*PermissionCode, error)

	// GetPermissionCodeForRole gets the default permission template assigned
	// to new users of the given role, or ErrNotFound when none is configured.
	GetPermissionCodeForRole(ctx context.Context, role CustomerUserRole) (*PermissionCode, error)

	// ListPermissionCodes returns all permission templates.
	ListPermissionCodes(ctx context.Context) ([]*PermissionCode, error)

	// SavePermissionCode creates or replaces a permission template.
	SavePermissionCode(ctx context.Context, pc *PermissionCode) error

	// ListDepots returns all depots.
	ListDepots(ctx context.Context) ([]*Depot, error)

	// GetDepotsByCodes returns the depots matching the given codes; missing
	// codes are simply absent from the result.
	GetDepotsByCodes(ctx context.Context, codes []string) ([]*Depot, error)

	// SaveDepot creates or replaces a depot.
	SaveDepot(ctx context.Context, depot *Depot) error

	// GetStats returns aggregate counts for the admin dashboard.
	GetStats(ctx context.Context) (*Stats, error)
}

// ErrNotFound is returned by Get* methods when no row matches, so callers
// stay free of gorm imports.
var ErrNotFound = errors.New("record not found")
