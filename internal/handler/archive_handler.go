// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nursing-archive-go/internal/middleware"
	"nursing-archive-go/internal/service"
	"nursing-archive-go/pkg/log"
)

// ArchiveHandler 负责处理所有与档案管理相关的 API 请求。
type ArchiveHandler struct {
	archiveService service.ArchiveService
	maxFiles       int
}

// NewArchiveHandler 创建一个新的 ArchiveHandler 实例。
func NewArchiveHandler(archiveService service.ArchiveService, maxFiles int) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService, maxFiles: maxFiles}
}

// List 处理获取客户档案列表的请求。
// 查询参数：category、search、startDate、endDate。
func (h *ArchiveHandler) List(c *gin.Context) {
	clientID, ok := parseIDParam(c, "clientID")
	if !ok {
		return
	}

	filter, ok := parseListFilter(c)
	if !ok {
		return
	}

	docs, err := h.archiveService.List(c.Request.Context(), clientID, filter)
	if err != nil {
		log.Error("List: 获取档案列表失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Upload 处理批量文件上传的请求。
// multipart 字段：files（至多 maxFiles 个）；表单字段：category（必填）、
// description、documentDate、confidentialityLevel、keywords。
func (h *ArchiveHandler) Upload(c *gin.Context) {
	clientID, ok := parseIDParam(c, "clientID")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法解析 multipart 表单"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求中没有附带文件"})
		return
	}
	if len(files) > h.maxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("单次最多上传 %d 个文件", h.maxFiles)})
		return
	}

	category := c.PostForm("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 category 字段"})
		return
	}

	meta := service.UploadMeta{
		Category:             category,
		Description:          c.PostForm("description"),
		Keywords:             c.PostForm("keywords"),
		ConfidentialityLevel: c.PostForm("confidentialityLevel"),
	}
	if dateStr := c.PostForm("documentDate"); dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 documentDate"})
			return
		}
		meta.DocumentDate = &date
	}

	result, err := h.archiveService.Upload(c.Request.Context(), clientID, files, meta, accessContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound), errors.Is(err, service.ErrNoFiles):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error("Upload: 档案上传失败", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("成功上传 %d/%d 个文件", result.Uploaded, result.Total),
		"documents": result.Documents,
	})
}

// Get 处理获取单份档案的请求，同时记录一条 VIEW 审计事件。
func (h *ArchiveHandler) Get(c *gin.Context) {
	archiveID, ok := parseIDParam(c, "documentID")
	if !ok {
		return
	}

	doc, err := h.archiveService.Get(c.Request.Context(), archiveID, accessContext(c))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Error("Get: 获取档案失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Download 处理档案文件下载的请求，把文件流原样返回。
func (h *ArchiveHandler) Download(c *gin.Context) {
	archiveID, ok := parseIDParam(c, "documentID")
	if !ok {
		return
	}

	result, err := h.archiveService.Download(c.Request.Context(), archiveID, accessContext(c))
	if err != nil {
		// 记录不存在与文件缺失对调用方都是 404，日志里已区分
		if errors.Is(err, service.ErrDocumentNotFound) || errors.Is(err, service.ErrFileMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Error("Download: 档案下载失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer result.Reader.Close()

	doc := result.Document
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, doc.OriginalFileName),
	}
	c.DataFromReader(http.StatusOK, doc.FileSize, doc.MimeType, result.Reader, extraHeaders)
}

// Update 处理档案元数据编辑的请求，只覆盖请求体中给出的字段。
func (h *ArchiveHandler) Update(c *gin.Context) {
	archiveID, ok := parseIDParam(c, "documentID")
	if !ok {
		return
	}

	var params service.UpdateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	doc, err := h.archiveService.Update(c.Request.Context(), archiveID, params, accessContext(c))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Error("Update: 档案元数据更新失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Delete 处理删除档案的请求：先删记录，再尽力删除文件。
func (h *ArchiveHandler) Delete(c *gin.Context) {
	archiveID, ok := parseIDParam(c, "documentID")
	if !ok {
		return
	}

	if err := h.archiveService.Delete(c.Request.Context(), archiveID); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Error("Delete: 档案删除失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "档案删除成功",
		"documentID": archiveID,
	})
}

// Search 处理档案搜索的请求，要求非空的 q 参数。
func (h *ArchiveHandler) Search(c *gin.Context) {
	clientID, ok := parseIDParam(c, "clientID")
	if !ok {
		return
	}

	filter, ok := parseListFilter(c)
	if !ok {
		return
	}

	docs, err := h.archiveService.Search(c.Request.Context(), clientID, c.Query("q"), filter)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error("Search: 档案搜索失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// accessContext 从请求中提取操作者信息。
func accessContext(c *gin.Context) service.AccessContext {
	return service.AccessContext{
		User:      c.GetString(middleware.UserKey),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// parseIDParam 解析路径中的数字 ID，失败时直接写出 400 响应。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 " + name})
		return 0, false
	}
	return uint(value), true
}

// parseListFilter 解析列表/搜索共用的查询参数。
func parseListFilter(c *gin.Context) (service.ListFilter, bool) {
	filter := service.ListFilter{
		Category:             c.Query("category"),
		Search:               c.Query("search"),
		ConfidentialityLevel: c.Query("confidentialityLevel"),
	}
	if startStr := c.Query("startDate"); startStr != "" {
		start, err := parseDate(startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 startDate"})
			return filter, false
		}
		filter.StartDate = &start
	}
	if endStr := c.Query("endDate"); endStr != "" {
		end, err := parseDate(endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 endDate"})
			return filter, false
		}
		// 仅给出日期时按当天末尾对待，使日期区间闭合
		if len(endStr) == len("2006-01-02") {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		filter.EndDate = &end
	}
	return filter, true
}

// parseDate 解析日期参数，接受 "2006-01-02" 与 RFC3339 两种格式。
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
