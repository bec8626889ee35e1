// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
)

// CategoryRepository 接口定义了文档分类参考数据的访问方法。
type CategoryRepository interface {
	// FindActiveByName 按名称查找启用状态的分类。
	FindActiveByName(name string) (*model.DocumentCategory, error)
	FindActive() ([]model.DocumentCategory, error)
	FindBatchByIDs(ids []uint) ([]model.DocumentCategory, error)
	// CountDocuments 返回指定分类下的档案数。
	CountDocuments(categoryID uint) (int64, error)
	// SeedDefaults 在分类表为空时写入默认分类，幂等。
	SeedDefaults() error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建一个新的 CategoryRepository 实例。
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// FindActiveByName 按名称查找启用状态的分类。
func (r *categoryRepository) FindActiveByName(name string) (*model.DocumentCategory, error) {
	var category model.DocumentCategory
	err := r.db.Where("category_name = ? AND is_active = ?", name, true).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindActive 检索所有启用状态的分类，按名称排序。
func (r *categoryRepository) FindActive() ([]model.DocumentCategory, error) {
	var categories []model.DocumentCategory
	err := r.db.Where("is_active = ?", true).Order("category_name ASC").Find(&categories).Error
	return categories, err
}

// FindBatchByIDs 批量查找分类记录。
func (r *categoryRepository) FindBatchByIDs(ids []uint) ([]model.DocumentCategory, error) {
	var categories []model.DocumentCategory
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.Where("category_id IN ?", ids).Find(&categories).Error
	return categories, err
}

// CountDocuments 返回指定分类下的档案数。
func (r *categoryRepository) CountDocuments(categoryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ArchiveDocument{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

// defaultCategories 是首次启动时种入的分类参考数据。
var defaultCategories = []model.DocumentCategory{
	{CategoryName: "Medical Records", Description: "Clinical notes, lab results and medication lists", AllowedFileTypes: ".pdf,.doc,.docx,.jpg,.jpeg,.png,.txt", RetentionYears: 10},
	{CategoryName: "Nursing Assessments", Description: "Intake and periodic nursing assessment forms", AllowedFileTypes: ".pdf,.doc,.docx", RetentionYears: 10},
	{CategoryName: "Consent Forms", Description: "Signed consent and authorization forms", AllowedFileTypes: ".pdf,.jpg,.jpeg,.png", RetentionYears: 7},
	{CategoryName: "Identification", Description: "IDs, benefit cards and eligibility documents", AllowedFileTypes: ".pdf,.jpg,.jpeg,.png", RetentionYears: 7},
	{CategoryName: "Discharge Planning", Description: "Discharge summaries and housing placement documents", AllowedFileTypes: ".pdf,.doc,.docx", RetentionYears: 10},
	{CategoryName: "Other", Description: "Documents that do not fit an existing category", AllowedFileTypes: ".pdf,.doc,.docx,.jpg,.jpeg,.png,.txt", RetentionYears: 7},
}

// SeedDefaults 在分类表为空时写入默认分类。已有数据时不做任何事。
func (r *categoryRepository) SeedDefaults() error {
	var count int64
	if err := r.db.Model(&model.DocumentCategory{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	categories := make([]model.DocumentCategory, len(defaultCategories))
	copy(categories, defaultCategories)
	for i := range categories {
		categories[i].IsActive = true
	}
	return r.db.Create(&categories).Error
}
