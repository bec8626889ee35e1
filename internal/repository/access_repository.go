// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
)

// AccessFilter 封装审计查询的可选过滤条件，零值表示不过滤。
type AccessFilter struct {
	// AccessType 按事件类型过滤（UPLOAD/VIEW/DOWNLOAD）
	AccessType string
	// StartDate/EndDate 按事件时间过滤
	StartDate *time.Time
	EndDate   *time.Time
}

// AccessRepository 接口定义了档案访问审计日志的持久化操作。
// 日志只追加，没有修改和删除。
type AccessRepository interface {
	Create(event *model.DocumentAccessEvent) error
	// FindByClient 返回指定客户全部档案的访问事件，按时间倒序。
	FindByClient(clientID uint, filter AccessFilter) ([]model.DocumentAccessEvent, error)
	// FindByArchiveID 返回单份档案的访问事件，按时间倒序。
	FindByArchiveID(archiveID uint) ([]model.DocumentAccessEvent, error)
}

type accessRepository struct {
	db *gorm.DB
}

// NewAccessRepository 创建一个新的 AccessRepository 实例。
func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

// Create 追加一条访问事件。
func (r *accessRepository) Create(event *model.DocumentAccessEvent) error {
	return r.db.Create(event).Error
}

// FindByClient 返回指定客户全部档案的访问事件。
// 通过子查询按 client_id 圈定档案范围；档案被删除后，其事件行仍保留在表中，
// 但因档案行已不存在而不再出现在按客户的查询结果里。
func (r *accessRepository) FindByClient(clientID uint, filter AccessFilter) ([]model.DocumentAccessEvent, error) {
	var events []model.DocumentAccessEvent
	query := r.db.Where(
		"archive_id IN (?)",
		r.db.Model(&model.ArchiveDocument{}).Select("archive_id").Where("client_id = ?", clientID),
	)

	if filter.AccessType != "" {
		query = query.Where("access_type = ?", filter.AccessType)
	}
	if filter.StartDate != nil {
		query = query.Where("accessed_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("accessed_at <= ?", *filter.EndDate)
	}

	err := query.Order("accessed_at DESC").Order("access_id DESC").Find(&events).Error
	return events, err
}

// FindByArchiveID 返回单份档案的访问事件。
func (r *accessRepository) FindByArchiveID(archiveID uint) ([]model.DocumentAccessEvent, error) {
	var events []model.DocumentAccessEvent
	err := r.db.Where("archive_id = ?", archiveID).
		Order("accessed_at DESC").Order("access_id DESC").
		Find(&events).Error
	return events, err
}
