// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"time"

	"nursing-archive-go/internal/model"
	"nursing-archive-go/internal/repository"
	"nursing-archive-go/pkg/events"
	"nursing-archive-go/pkg/log"
)

// AccessContext 携带一次请求的访问者信息，由 handler 从请求中提取。
type AccessContext struct {
	// User 操作者标识（来自上游网关注入的身份头）
	User string
	// IPAddress 客户端地址
	IPAddress string
	// UserAgent 客户端 UA
	UserAgent string
}

// AccessEventDTO 是审计查询的返回结构，事件行附带档案与分类名称。
type AccessEventDTO struct {
	model.DocumentAccessEvent
	DocumentName string `json:"documentName"`
	CategoryName string `json:"categoryName"`
}

// AuditService 接口定义了档案访问审计的业务操作。
type AuditService interface {
	// Record 追加一条访问事件并（可选）发布到事件流。
	// 与档案主操作不共享事务，调用方按尽力而为处理错误。
	Record(ctx context.Context, clientID, archiveID uint, accessType string, access AccessContext) error
	// History 返回指定客户的访问事件历史，按时间倒序。
	History(ctx context.Context, clientID uint, filter repository.AccessFilter) ([]AccessEventDTO, error)
}

type auditService struct {
	accessRepo   repository.AccessRepository
	archiveRepo  repository.ArchiveRepository
	categoryRepo repository.CategoryRepository
	publisher    events.Publisher
}

// NewAuditService 创建一个新的 AuditService 实例。
func NewAuditService(
	accessRepo repository.AccessRepository,
	archiveRepo repository.ArchiveRepository,
	categoryRepo repository.CategoryRepository,
	publisher events.Publisher,
) AuditService {
	return &auditService{
		accessRepo:   accessRepo,
		archiveRepo:  archiveRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

// Record 追加一条访问事件。事件先落库，再旁路发布到事件流；
// 发布失败只记日志，不影响已落库的事件。
func (s *auditService) Record(ctx context.Context, clientID, archiveID uint, accessType string, access AccessContext) error {
	event := &model.DocumentAccessEvent{
		ArchiveID:  archiveID,
		AccessedBy: access.User,
		AccessType: accessType,
		AccessedAt: time.Now(),
		IPAddress:  access.IPAddress,
		UserAgent:  access.UserAgent,
	}
	if err := s.accessRepo.Create(event); err != nil {
		return err
	}

	if err := s.publisher.PublishAccess(ctx, clientID, event); err != nil {
		log.Warnf("[AuditService] 发布访问事件失败, archiveID: %d, type: %s, err: %v", archiveID, accessType, err)
	}
	return nil
}

// History 返回指定客户的访问事件历史，并补齐每条事件对应的档案与分类名称。
func (s *auditService) History(ctx context.Context, clientID uint, filter repository.AccessFilter) ([]AccessEventDTO, error) {
	rows, err := s.accessRepo.FindByClient(clientID, filter)
	if err != nil {
		return nil, err
	}

	// 批量取回关联的档案与分类，避免逐行查询
	archiveIDs := make([]uint, 0, len(rows))
	seen := make(map[uint]bool)
	for _, e := range rows {
		if !seen[e.ArchiveID] {
			seen[e.ArchiveID] = true
			archiveIDs = append(archiveIDs, e.ArchiveID)
		}
	}
	docs, err := s.archiveRepo.FindBatchByIDs(archiveIDs)
	if err != nil {
		return nil, err
	}
	docByID := make(map[uint]model.ArchiveDocument, len(docs))
	categoryIDs := make([]uint, 0, len(docs))
	for _, d := range docs {
		docByID[d.ArchiveID] = d
		categoryIDs = append(categoryIDs, d.CategoryID)
	}
	categories, err := s.categoryRepo.FindBatchByIDs(categoryIDs)
	if err != nil {
		return nil, err
	}
	categoryNameByID := make(map[uint]string, len(categories))
	for _, c := range categories {
		categoryNameByID[c.CategoryID] = c.CategoryName
	}

	result := make([]AccessEventDTO, 0, len(rows))
	for _, e := range rows {
		dto := AccessEventDTO{DocumentAccessEvent: e}
		if doc, ok := docByID[e.ArchiveID]; ok {
			dto.DocumentName = doc.DocumentName
			dto.CategoryName = categoryNameByID[doc.CategoryID]
		}
		result = append(result, dto)
	}
	return result, nil
}
