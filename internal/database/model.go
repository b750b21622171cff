package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CustomerType represents the kind of trading account
type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "individual"
	CustomerTypeCompany    CustomerType = "company"
)

// CustomerStatus is the tenant lifecycle state. It gates every one of the
// customer's users independently of their own status.
type CustomerStatus string

const (
	CustomerPending   CustomerStatus = "pending"
	CustomerApproved  CustomerStatus = "approved"
	CustomerRejected  CustomerStatus = "rejected"
	CustomerOnHold    CustomerStatus = "on_hold"
	CustomerSuspended CustomerStatus = "suspended"
)

// CustomerUserRole represents a customer user's role within the tenant
type CustomerUserRole string

const (
	RoleOwner  CustomerUserRole = "owner"
	RoleAdmin  CustomerUserRole = "admin"
	RoleStaff  CustomerUserRole = "staff"
	RoleViewer CustomerUserRole = "viewer"
)

// ValidCustomerUserRole reports whether s names a known role.
func ValidCustomerUserRole(s string) bool {
	switch CustomerUserRole(s) {
	case RoleOwner, RoleAdmin, RoleStaff, RoleViewer:
		return true
	}
	return false
}

// CustomerUserStatus is the per-user lifecycle state
type CustomerUserStatus string

const (
	UserPending   CustomerUserStatus = "pending"
	UserApproved  CustomerUserStatus = "approved"
	UserRejected  CustomerUserStatus = "rejected"
	UserSuspended CustomerUserStatus = "suspended"
	UserInactive  CustomerUserStatus = "inactive"
)

// PlatformRole represents a platform user's role
type PlatformRole string

const (
	PlatformAdmin     PlatformRole = "admin"
	PlatformSupport   PlatformRole = "support"
	PlatformDeveloper PlatformRole = "developer"
)

// PermissionMap is a capability name → allowed mapping stored as JSON
type PermissionMap map[string]bool

// Value implements driver.Valuer
func (m PermissionMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *PermissionMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported type for PermissionMap")
	}
}

// StringList is a list of codes stored as JSON
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Customer is a tenant matched against the external ERP by code. Customers
// are never physically deleted; status transitions model removal.
type Customer struct {
	ID            uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Code          string         `json:"code" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null;index"`
	AccountNumber string         `json:"account_number" gorm:"type:varchar(100);index"`
	ContactName   string         `json:"contact_name,omitempty" gorm:"type:varchar(100)"`
	Telephone     string         `json:"telephone,omitempty" gorm:"type:varchar(20)"`
	BranchCode    string         `json:"branch_code,omitempty" gorm:"type:varchar(20)"`
	AssignedRep   string         `json:"assigned_rep,omitempty" gorm:"type:varchar(50)"`
	Type          CustomerType   `json:"type" gorm:"type:varchar(20);not null;default:'company'"`
	Status        CustomerStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CustomerUser belongs to exactly one Customer. Email is stored lowercase;
// lookups must lowercase their input.
type CustomerUser struct {
	ID                uint               `json:"id" gorm:"primaryKey;autoIncrement"`
	CustomerID        uint               `json:"customer_id" gorm:"not null;index"`
	Customer          *Customer          `json:"-" gorm:"foreignKey:CustomerID"`
	Name              string             `json:"name" gorm:"type:varchar(255);not null"`
	Email             string             `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone             string             `json:"phone" gorm:"type:varchar(50);uniqueIndex"`
	PasswordHash      string             `json:"-" gorm:"type:varchar(255)"`
	Role              CustomerUserRole   `json:"role" gorm:"type:varchar(20);default:'viewer';index"`
	Status            CustomerUserStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PermissionCode    string             `json:"permission_code,omitempty" gorm:"type:varchar(10)"`
	CustomPermissions PermissionMap      `json:"custom_permissions,omitempty" gorm:"type:text"`
	DepotAccess       StringList         `json:"depot_access" gorm:"type:text"`
	ApprovalNote      string             `json:"approval_note,omitempty" gorm:"type:text"`
	LastLogin         *time.Time         `json:"last_login,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// PlatformUser exists outside the tenant structure and is never linked to a
// Customer.
type PlatformUser struct {
	ID           uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string       `json:"name" gorm:"type:varchar(255);not null"`
	Email        string       `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone        string       `json:"phone,omitempty" gorm:"type:varchar(50);uniqueIndex"`
	PasswordHash string       `json:"-" gorm:"type:varchar(255)"`
	Role         PlatformRole `json:"role" gorm:"type:varchar(20);not null;default:'support'"`
	LastLogin    *time.Time   `json:"last_login,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsAdmin reports whether the platform user holds the admin role.
func (u *PlatformUser) IsAdmin() bool {
	return u.Role == PlatformAdmin
}

// PermissionCode is a reusable named permission template assigned to
// customer users on approval.
type PermissionCode struct {
	Code               string           `json:"code" gorm:"type:varchar(10);primaryKey"`
	Name               string           `json:"name" gorm:"type:varchar(100)"`
	Description        string           `json:"description,omitempty" gorm:"type:text"`
	Role               CustomerUserRole `json:"role,omitempty" gorm:"type:varchar(20);index"`
	DefaultPermissions PermissionMap    `json:"default_permissions" gorm:"type:text"`
}

// Depot is a stock location referenced by CustomerUser.DepotAccess.
type Depot struct {
	Code     string `json:"code" gorm:"type:varchar(10);primaryKey"`
	Name     string `json:"name" gorm:"type:varchar(255)"`
	Location string `json:"location,omitempty" gorm:"type:varchar(255)"`
}
