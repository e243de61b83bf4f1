package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TaskNest-Marketplace/service-admin/internal/domain/catalog"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
)

// UserModel is the read model for the externally-owned users table.
type UserModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName string    `gorm:"type:varchar(100)"`
	Email    string    `gorm:"type:varchar(255)"`
	Role     string    `gorm:"type:varchar(30)"`
}

// TableName specifies the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// ServiceModel is the read model for the externally-owned services table.
type ServiceModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ServiceName string     `gorm:"type:varchar(150)"`
	City        string     `gorm:"type:varchar(100)"`
	CategoryID  *uuid.UUID `gorm:"type:uuid"`
}

// TableName specifies the table name for GORM.
func (ServiceModel) TableName() string {
	return "services"
}

// CategoryModel is the read model for the externally-owned categories table.
type CategoryModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:varchar(100)"`
}

// TableName specifies the table name for GORM.
func (CategoryModel) TableName() string {
	return "categories"
}

// CatalogRepositoryImpl is the GORM-based read-only catalog resolver.
type CatalogRepositoryImpl struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new GORM-based catalog resolver.
func NewCatalogRepository(db *gorm.DB) *CatalogRepositoryImpl {
	return &CatalogRepositoryImpl{db: db}
}

// UserByID resolves display fields for a user.
func (r *CatalogRepositoryImpl) UserByID(ctx context.Context, id uuid.UUID) (*catalog.UserInfo, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id.String())
		}
		return nil, err
	}
	return &catalog.UserInfo{ID: model.ID, FullName: model.FullName, Email: model.Email}, nil
}

// ServiceByID resolves display fields for a service listing. A dangling
// category link degrades the category name to Unknown, not to an error.
func (r *CatalogRepositoryImpl) ServiceByID(ctx context.Context, id uuid.UUID) (*catalog.ServiceInfo, error) {
	var model ServiceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Service", id.String())
		}
		return nil, err
	}

	categoryName := catalog.UnknownLabel
	if model.CategoryID != nil {
		var cat CategoryModel
		if err := r.db.WithContext(ctx).Where("id = ?", *model.CategoryID).First(&cat).Error; err == nil {
			categoryName = cat.Name
		}
	}

	return &catalog.ServiceInfo{
		ID:           model.ID,
		ServiceName:  model.ServiceName,
		City:         model.City,
		CategoryName: categoryName,
	}, nil
}

// CountUsersByRole counts users grouped by their role literal.
func (r *CatalogRepositoryImpl) CountUsersByRole(ctx context.Context) (map[string]int64, error) {
	type roleCount struct {
		Role  string
		Count int64
	}
	var results []roleCount
	if err := r.db.WithContext(ctx).Model(&UserModel{}).
		Select("role, count(*) as count").
		Group("role").
		Find(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, rc := range results {
		counts[rc.Role] = rc.Count
	}
	return counts, nil
}
