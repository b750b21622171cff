package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ormDB implements Database on top of a gorm connection. The dialect-specific
// constructors in postgres.go, mysql.go and sqlite.go all share this
// implementation; only the dialector differs.
type ormDB struct {
	db *gorm.DB
}

var _ Database = (*ormDB)(nil)

func newORMDB(gormDB *gorm.DB) (*ormDB, error) {
	if err := gormDB.AutoMigrate(
		&Customer{},
		&CustomerUser{},
		&PlatformUser{},
		&PermissionCode{},
		&Depot{},
	); err != nil {
		return nil, err
	}
	return &ormDB{db: gormDB}, nil
}

func (d *ormDB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (d *ormDB) CreateCustomer(ctx context.Context, customer *Customer) error {
	return d.db.WithContext(ctx).Create(customer).Error
}

func (d *ormDB) GetCustomerByID(ctx context.Context, id uint) (*Customer, error) {
	var customer Customer
	err := d.db.WithContext(ctx).First(&customer, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &customer, nil
}

func (d *ormDB) GetCustomerByCode(ctx context.Context, code string) (*Customer, error) {
	var customer Customer
	err := d.db.WithContext(ctx).
		Where("code = ?", code).
		First(&customer).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &customer, nil
}

func (d *ormDB) UpdateCustomer(ctx context.Context, customer *Customer) error {
	return d.db.WithContext(ctx).Save(customer).Error
}

func (d *ormDB) ListCustomers(ctx context.Context, status CustomerStatus) ([]*Customer, error) {
	var customers []*Customer
	q := d.db.WithContext(ctx).Order("name asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&customers).Error
	return customers, err
}

func (d *ormDB) CreateCustomerUser(ctx context.Context, user *CustomerUser) error {
	user.Email = strings.ToLower(user.Email)
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *ormDB) GetCustomerUserByID(ctx context.Context, id uint) (*CustomerUser, error) {
	var user CustomerUser
	err := d.db.WithContext(ctx).
		Preload("Customer").
		First(&user, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (d *ormDB) GetCustomerUserByEmail(ctx context.Context, email string) (*CustomerUser, error) {
	var user CustomerUser
	err := d.db.WithContext(ctx).
		Preload("Customer").
		Where("email = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (d *ormDB) GetCustomerUserByPhone(ctx context.Context, phone string) (*CustomerUser, error) {
	var user CustomerUser
	err := d.db.WithContext(ctx).
		Preload("Customer").
		Where("phone = ?", phone).
		First(&user).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (d *ormDB) UpdateCustomerUser(ctx context.Context, user *CustomerUser) error {
	user.Email = strings.ToLower(user.Email)
	return d.db.WithContext(ctx).Save(user).Error
}

func (d *ormDB) ListCustomerUsers(ctx context.Context, filter CustomerUserFilter) ([]*CustomerUser, error) {
	q := d.db.WithContext(ctx).Preload("Customer").Order("created_at desc")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("lower(name) LIKE ? OR lower(email) LIKE ?", like, like)
	}

	var users []*CustomerUser
	err := q.Find(&users).Error
	return users, err
}

func (d *ormDB) CountOwners(ctx context.Context, customerID uint) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&CustomerUser{}).
		Where("customer_id = ? AND role = ?", customerID, RoleOwner).
		Count(&count).Error
	return count, err
}

func (d *ormDB) CreatePlatformUser(ctx context.Context, user *PlatformUser) error {
	user.Email = strings.ToLower(user.Email)
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *ormDB) GetPlatformUserByID(ctx context.Context, id uint) (*PlatformUser, error) {
	var user PlatformUser
	err := d.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (d *ormDB) GetPlatformUserByEmail(ctx context.Context, email string) (*PlatformUser, error) {
	var user PlatformUser
	err := d.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (d *ormDB) GetPlatformUserByPhone(ctx context.Context, phone string) (*PlatformUser, error) {
	var user PlatformUser
	err := d.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&user).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (d *ormDB) UpdatePlatformUser(ctx context.Context, user *PlatformUser) error {
	user.Email = strings.ToLower(user.Email)
	return d.db.WithContext(ctx).Save(user).Error
}

func (d *ormDB) GetPermissionCode(ctx context.Context, code string) (*PermissionCode, error) {
	var pc PermissionCode
	err := d.db.WithContext(ctx).
		Where("code = ?", code).
		First(&pc).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &pc, nil
}

func (d *ormDB) GetPermissionCodeForRole(ctx context.Context, role CustomerUserRole) (*PermissionCode, error) {
	var pc PermissionCode
	err := d.db.WithContext(ctx).
		Where("role = ?", role).
		First(&pc).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &pc, nil
}

func (d *ormDB) ListPermissionCodes(ctx context.Context) ([]*PermissionCode, error) {
	var codes []*PermissionCode
	err := d.db.WithContext(ctx).Order("code asc").Find(&codes).Error
	return codes, err
}

func (d *ormDB) SavePermissionCode(ctx context.Context, pc *PermissionCode) error {
	return d.db.WithContext(ctx).Save(pc).Error
}

func (d *ormDB) ListDepots(ctx context.Context) ([]*Depot, error) {
	var depots []*Depot
	err := d.db.WithContext(ctx).Order("code asc").Find(&depots).Error
	return depots, err
}

func (d *ormDB) GetDepotsByCodes(ctx context.Context, codes []string) ([]*Depot, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var depots []*Depot
	err := d.db.WithContext(ctx).
		Where("code IN ?", codes).
		Find(&depots).Error
	return depots, err
}

func (d *ormDB) SaveDepot(ctx context.Context, depot *Depot) error {
	return d.db.WithContext(ctx).Save(depot).Error
}

func (d *ormDB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		CustomersByStatus: make(map[CustomerStatus]int64),
		UsersByStatus:     make(map[CustomerUserStatus]int64),
	}

	for _, s := range []CustomerStatus{CustomerPending, CustomerApproved, CustomerRejected, CustomerOnHold, CustomerSuspended} {
		var count int64
		if err := d.db.WithContext(ctx).Model(&Customer{}).Where("status = ?", s).Count(&count).Error; err != nil {
			return nil, err
		}
		stats.CustomersByStatus[s] = count
	}

	for _, s := range []CustomerUserStatus{UserPending, UserApproved, UserRejected, UserSuspended, UserInactive} {
		var count int64
		if err := d.db.WithContext(ctx).Model(&CustomerUser{}).Where("status = ?", s).Count(&count).Error; err != nil {
			return nil, err
		}
		stats.UsersByStatus[s] = count
	}

	if err := d.db.WithContext(ctx).Model(&PlatformUser{}).Count(&stats.PlatformUsers).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
