// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
)

// ArchiveFilter 封装档案列表/搜索的可选过滤条件，零值表示不过滤。
type ArchiveFilter struct {
	// CategoryID 按分类过滤
	CategoryID uint
	// Search 对 document_name/description/keywords/original_file_name 做子串匹配
	Search string
	// ConfidentialityLevel 按保密级别过滤
	ConfidentialityLevel string
	// StartDate/EndDate 按上传时间过滤
	StartDate *time.Time
	EndDate   *time.Time
}

// ArchiveRepository 接口定义了档案元数据的持久化操作。
type ArchiveRepository interface {
	Create(doc *model.ArchiveDocument) error
	FindByID(archiveID uint) (*model.ArchiveDocument, error)
	FindByClient(clientID uint, filter ArchiveFilter) ([]model.ArchiveDocument, error)
	FindBatchByIDs(ids []uint) ([]model.ArchiveDocument, error)
	// UpdateColumns 只覆盖给定的列，并返回受影响行数。
	UpdateColumns(archiveID uint, columns map[string]interface{}) (int64, error)
	Delete(archiveID uint) (int64, error)
	// IncrementDownload 将 download_count 加一并刷新最近访问信息。
	IncrementDownload(archiveID uint, accessedBy string, accessedAt time.Time) error
}

// archiveRepository 是 ArchiveRepository 接口的 GORM 实现。
type archiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository 创建一个新的 ArchiveRepository 实例。
func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

// Create 在数据库中插入一条新的档案记录。
func (r *archiveRepository) Create(doc *model.ArchiveDocument) error {
	return r.db.Create(doc).Error
}

// FindByID 根据 archiveID 查找一条档案记录。
func (r *archiveRepository) FindByID(archiveID uint) (*model.ArchiveDocument, error) {
	var doc model.ArchiveDocument
	err := r.db.Where("archive_id = ?", archiveID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByClient 查找指定客户的档案，按上传时间倒序返回。
func (r *archiveRepository) FindByClient(clientID uint, filter ArchiveFilter) ([]model.ArchiveDocument, error) {
	var docs []model.ArchiveDocument
	query := r.db.Where("client_id = ?", clientID)

	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			r.db.Where("document_name LIKE ?", pattern).
				Or("description LIKE ?", pattern).
				Or("keywords LIKE ?", pattern).
				Or("original_file_name LIKE ?", pattern),
		)
	}
	if filter.ConfidentialityLevel != "" {
		query = query.Where("confidentiality_level = ?", filter.ConfidentialityLevel)
	}
	if filter.StartDate != nil {
		query = query.Where("uploaded_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("uploaded_at <= ?", *filter.EndDate)
	}

	err := query.Order("uploaded_at DESC").Find(&docs).Error
	return docs, err
}

// FindBatchByIDs 批量查找档案记录。
func (r *archiveRepository) FindBatchByIDs(ids []uint) ([]model.ArchiveDocument, error) {
	var docs []model.ArchiveDocument
	if len(ids) == 0 {
		return docs, nil
	}
	err := r.db.Where("archive_id IN ?", ids).Find(&docs).Error
	return docs, err
}

// UpdateColumns 只覆盖给定的列。返回受影响的行数，0 表示记录不存在。
func (r *archiveRepository) UpdateColumns(archiveID uint, columns map[string]interface{}) (int64, error) {
	result := r.db.Model(&model.ArchiveDocument{}).
		Where("archive_id = ?", archiveID).
		Updates(columns)
	return result.RowsAffected, result.Error
}

// Delete 硬删除一条档案记录。返回受影响的行数。
func (r *archiveRepository) Delete(archiveID uint) (int64, error) {
	result := r.db.Delete(&model.ArchiveDocument{}, "archive_id = ?", archiveID)
	return result.RowsAffected, result.Error
}

// IncrementDownload 将 download_count 原子加一并刷新最近访问人/时间。
func (r *archiveRepository) IncrementDownload(archiveID uint, accessedBy string, accessedAt time.Time) error {
	return r.db.Model(&model.ArchiveDocument{}).
		Where("archive_id = ?", archiveID).
		Updates(map[string]interface{}{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_accessed_by": accessedBy,
			"last_accessed_at": accessedAt,
		}).Error
}
