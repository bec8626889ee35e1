// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
	"nursing-archive-go/internal/repository"
	"nursing-archive-go/pkg/log"
	"nursing-archive-go/pkg/storage"
)

// allowedMimeTypes 是上传允许的 MIME 类型白名单。
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
	"text/plain": true,
}

// UploadMeta 携带整批上传共享的表单字段。
type UploadMeta struct {
	// Category 分类名称（必填）
	Category string
	// Description 档案描述
	Description string
	// Keywords 逗号分隔的关键字
	Keywords string
	// DocumentDate 文档日期
	DocumentDate *time.Time
	// ConfidentialityLevel 保密级别，空值时取默认值 Standard
	ConfidentialityLevel string
}

// UploadResult 汇总一次批量上传的结果。单个文件失败不中断整批。
type UploadResult struct {
	// Documents 成功创建的档案记录
	Documents []model.ArchiveDocument `json:"documents"`
	// Uploaded 成功数
	Uploaded int `json:"uploaded"`
	// Total 请求附带的文件总数
	Total int `json:"total"`
}

// ArchiveDocumentDTO 在档案记录上附加分类名称与描述，用于对外返回。
type ArchiveDocumentDTO struct {
	model.ArchiveDocument
	CategoryName        string `json:"categoryName"`
	CategoryDescription string `json:"categoryDescription"`
}

// UpdateParams 是元数据编辑接口可修改的字段子集，nil 表示不修改。
type UpdateParams struct {
	DocumentName         *string    `json:"documentName"`
	Description          *string    `json:"description"`
	Keywords             *string    `json:"keywords"`
	ConfidentialityLevel *string    `json:"confidentialityLevel"`
	DocumentDate         *time.Time `json:"documentDate"`
}

// DownloadResult 封装下载所需的文件流与元数据。调用方负责关闭 Reader。
type DownloadResult struct {
	Document *model.ArchiveDocument
	Reader   io.ReadCloser
}

// ListFilter 是列表/搜索接口的过滤条件。
type ListFilter struct {
	// Category 分类名称
	Category string
	// Search 自由文本搜索
	Search string
	// ConfidentialityLevel 保密级别
	ConfidentialityLevel string
	// StartDate/EndDate 上传时间范围
	StartDate *time.Time
	EndDate   *time.Time
}

// ArchiveService 接口定义了档案管理的业务操作。
type ArchiveService interface {
	Upload(ctx context.Context, clientID uint, files []*multipart.FileHeader, meta UploadMeta, access AccessContext) (*UploadResult, error)
	List(ctx context.Context, clientID uint, filter ListFilter) ([]ArchiveDocumentDTO, error)
	// Get 返回单份档案并记录一条 VIEW 审计事件。
	Get(ctx context.Context, archiveID uint, access AccessContext) (*ArchiveDocumentDTO, error)
	// Download 校验档案与文件都存在后递增下载计数、记录 DOWNLOAD 事件，返回文件流。
	Download(ctx context.Context, archiveID uint, access AccessContext) (*DownloadResult, error)
	Update(ctx context.Context, archiveID uint, params UpdateParams, access AccessContext) (*model.ArchiveDocument, error)
	Delete(ctx context.Context, archiveID uint) error
	// Search 与 List 相同，但要求非空的搜索关键字。
	Search(ctx context.Context, clientID uint, query string, filter ListFilter) ([]ArchiveDocumentDTO, error)
}

type archiveService struct {
	archiveRepo     repository.ArchiveRepository
	categoryRepo    repository.CategoryRepository
	categoryService CategoryService
	auditService    AuditService
	store           storage.Storage
	maxFileSize     int64
}

// NewArchiveService 创建一个新的 ArchiveService 实例。
func NewArchiveService(
	archiveRepo repository.ArchiveRepository,
	categoryRepo repository.CategoryRepository,
	categoryService CategoryService,
	auditService AuditService,
	store storage.Storage,
	maxFileSize int64,
) ArchiveService {
	return &archiveService{
		archiveRepo:     archiveRepo,
		categoryRepo:    categoryRepo,
		categoryService: categoryService,
		auditService:    auditService,
		store:           store,
		maxFileSize:     maxFileSize,
	}
}

// Upload 处理一批文件的上传。每个文件独立校验、存储、落库，
// 单个文件失败只跳过该文件，其余继续（部分成功是预期行为）。
func (s *archiveService) Upload(ctx context.Context, clientID uint, files []*multipart.FileHeader, meta UploadMeta, access AccessContext) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	category, err := s.categoryService.ResolveName(ctx, meta.Category)
	if err != nil {
		return nil, err
	}

	confidentiality := meta.ConfidentialityLevel
	if confidentiality == "" {
		confidentiality = model.DefaultConfidentialityLevel
	}

	result := &UploadResult{Total: len(files)}
	for _, fh := range files {
		doc, err := s.uploadOne(ctx, clientID, fh, category, confidentiality, meta, access)
		if err != nil {
			log.Warnf("[ArchiveService] 跳过文件 '%s': %v", fh.Filename, err)
			continue
		}
		result.Documents = append(result.Documents, *doc)
		result.Uploaded++
	}
	return result, nil
}

// uploadOne 处理单个文件：校验 → 存储（边写边算 SHA-256）→ 落库 → 审计。
// 落库失败时把已写入的文件清掉，不在存储里留孤儿。
func (s *archiveService) uploadOne(ctx context.Context, clientID uint, fh *multipart.FileHeader, category *model.DocumentCategory, confidentiality string, meta UploadMeta, access AccessContext) (*model.ArchiveDocument, error) {
	mimeType := fh.Header.Get("Content-Type")
	if !allowedMimeTypes[mimeType] {
		return nil, errors.New("不支持的文件类型: " + mimeType)
	}
	if fh.Size == 0 {
		return nil, errors.New("文件内容为空")
	}
	if fh.Size > s.maxFileSize {
		return nil, errors.New("文件超出大小限制")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	storedName := uuid.New().String() + ext

	// 通过 TeeReader 在写入存储的同时计算校验和，避免读两遍
	hasher := sha256.New()
	path, err := s.store.Save(ctx, storedName, io.TeeReader(src, hasher), fh.Size, mimeType)
	if err != nil {
		return nil, err
	}
	checksum := hex.EncodeToString(hasher.Sum(nil))

	doc := &model.ArchiveDocument{
		ClientID:             clientID,
		DocumentName:         fh.Filename,
		OriginalFileName:     fh.Filename,
		FileExtension:        ext,
		FilePath:             path,
		FileSize:             fh.Size,
		MimeType:             mimeType,
		CategoryID:           category.CategoryID,
		Description:          meta.Description,
		Keywords:             meta.Keywords,
		DocumentDate:         meta.DocumentDate,
		ConfidentialityLevel: confidentiality,
		VersionNumber:        1,
		IsCurrentVersion:     true,
		Checksum:             checksum,
		UploadedBy:           access.User,
	}
	if err := s.archiveRepo.Create(doc); err != nil {
		if delErr := s.store.Delete(ctx, path); delErr != nil {
			log.Warnf("[ArchiveService] 回收失败文件出错, path: %s, err: %v", path, delErr)
		}
		return nil, err
	}

	if err := s.auditService.Record(ctx, clientID, doc.ArchiveID, model.AccessTypeUpload, access); err != nil {
		// 审计与主操作不共享事务，失败只记日志
		log.Warnf("[ArchiveService] 记录 UPLOAD 审计事件失败, archiveID: %d, err: %v", doc.ArchiveID, err)
	}
	return doc, nil
}

// List 返回指定客户的档案列表（附分类信息），按上传时间倒序。
func (s *archiveService) List(ctx context.Context, clientID uint, filter ListFilter) ([]ArchiveDocumentDTO, error) {
	repoFilter := repository.ArchiveFilter{
		Search:               filter.Search,
		ConfidentialityLevel: filter.ConfidentialityLevel,
		StartDate:            filter.StartDate,
		EndDate:              filter.EndDate,
	}
	if filter.Category != "" {
		category, err := s.categoryService.ResolveName(ctx, filter.Category)
		if err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				// 过滤条件指向不存在的分类时返回空列表而不是报错
				return []ArchiveDocumentDTO{}, nil
			}
			return nil, err
		}
		repoFilter.CategoryID = category.CategoryID
	}

	docs, err := s.archiveRepo.FindByClient(clientID, repoFilter)
	if err != nil {
		return nil, err
	}
	return s.attachCategories(docs)
}

// Get 返回单份档案并记录一条 VIEW 审计事件。
func (s *archiveService) Get(ctx context.Context, archiveID uint, access AccessContext) (*ArchiveDocumentDTO, error) {
	doc, err := s.findDocument(archiveID)
	if err != nil {
		return nil, err
	}

	if err := s.auditService.Record(ctx, doc.ClientID, doc.ArchiveID, model.AccessTypeView, access); err != nil {
		log.Warnf("[ArchiveService] 记录 VIEW 审计事件失败, archiveID: %d, err: %v", archiveID, err)
	}

	dtos, err := s.attachCategories([]model.ArchiveDocument{*doc})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

// Download 返回档案文件流。记录不存在与文件缺失都以未找到对待，
// 由调用方统一返回 404，日志里区分两种情况。
func (s *archiveService) Download(ctx context.Context, archiveID uint, access AccessContext) (*DownloadResult, error) {
	doc, err := s.findDocument(archiveID)
	if err != nil {
		return nil, err
	}

	reader, err := s.store.Open(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileMissing) {
			log.Warnf("[ArchiveService] 档案记录存在但文件缺失, archiveID: %d, path: %s", archiveID, doc.FilePath)
			return nil, ErrFileMissing
		}
		return nil, err
	}

	now := time.Now()
	if err := s.archiveRepo.IncrementDownload(archiveID, access.User, now); err != nil {
		_ = reader.Close()
		return nil, err
	}
	doc.DownloadCount++
	doc.LastAccessedBy = access.User
	doc.LastAccessedAt = &now

	if err := s.auditService.Record(ctx, doc.ClientID, doc.ArchiveID, model.AccessTypeDownload, access); err != nil {
		log.Warnf("[ArchiveService] 记录 DOWNLOAD 审计事件失败, archiveID: %d, err: %v", archiveID, err)
	}

	return &DownloadResult{Document: doc, Reader: reader}, nil
}

// Update 覆盖元数据的可编辑子集并加盖 updated_by/updated_at 戳。
func (s *archiveService) Update(ctx context.Context, archiveID uint, params UpdateParams, access AccessContext) (*model.ArchiveDocument, error) {
	if _, err := s.findDocument(archiveID); err != nil {
		return nil, err
	}

	columns := map[string]interface{}{}
	if params.DocumentName != nil {
		columns["document_name"] = *params.DocumentName
	}
	if params.Description != nil {
		columns["description"] = *params.Description
	}
	if params.Keywords != nil {
		columns["keywords"] = *params.Keywords
	}
	if params.ConfidentialityLevel != nil {
		columns["confidentiality_level"] = *params.ConfidentialityLevel
	}
	if params.DocumentDate != nil {
		columns["document_date"] = *params.DocumentDate
	}
	if len(columns) > 0 {
		columns["updated_by"] = access.User
		columns["updated_at"] = time.Now()
		if _, err := s.archiveRepo.UpdateColumns(archiveID, columns); err != nil {
			return nil, err
		}
	}

	return s.findDocument(archiveID)
}

// Delete 删除档案记录，随后尽力删除底层文件。
// 文件删除失败只记日志：记录已经删掉，对调用方而言档案即已不存在。
func (s *archiveService) Delete(ctx context.Context, archiveID uint) error {
	doc, err := s.findDocument(archiveID)
	if err != nil {
		return err
	}

	if _, err := s.archiveRepo.Delete(archiveID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		log.Warnf("[ArchiveService] 删除档案文件失败, archiveID: %d, path: %s, err: %v", archiveID, doc.FilePath, err)
	}
	return nil
}

// Search 与 List 相同，但要求非空的搜索关键字。
func (s *archiveService) Search(ctx context.Context, clientID uint, query string, filter ListFilter) ([]ArchiveDocumentDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	filter.Search = query
	return s.List(ctx, clientID, filter)
}

// findDocument 查找档案记录，把 gorm 的未找到错误统一映射为业务哨兵。
func (s *archiveService) findDocument(archiveID uint) (*model.ArchiveDocument, error) {
	doc, err := s.archiveRepo.FindByID(archiveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// attachCategories 批量补齐档案记录的分类名称与描述。
func (s *archiveService) attachCategories(docs []model.ArchiveDocument) ([]ArchiveDocumentDTO, error) {
	categoryIDs := make([]uint, 0, len(docs))
	seen := make(map[uint]bool)
	for _, d := range docs {
		if !seen[d.CategoryID] {
			seen[d.CategoryID] = true
			categoryIDs = append(categoryIDs, d.CategoryID)
		}
	}
	categories, err := s.categoryRepo.FindBatchByIDs(categoryIDs)
	if err != nil {
		return nil, err
	}
	categoryByID := make(map[uint]model.DocumentCategory, len(categories))
	for _, c := range categories {
		categoryByID[c.CategoryID] = c
	}

	dtos := make([]ArchiveDocumentDTO, 0, len(docs))
	for _, d := range docs {
		dto := ArchiveDocumentDTO{ArchiveDocument: d}
		if c, ok := categoryByID[d.CategoryID]; ok {
			dto.CategoryName = c.CategoryName
			dto.CategoryDescription = c.Description
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}
