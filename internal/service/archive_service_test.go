package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
	"nursing-archive-go/internal/repository"
	"nursing-archive-go/pkg/storage"
)

// capturingPublisher 记录发布的事件，替代真实的 Kafka 生产者。
type capturingPublisher struct {
	published []string
}

func (p *capturingPublisher) PublishAccess(_ context.Context, _ uint, event *model.DocumentAccessEvent) error {
	p.published = append(p.published, event.AccessType)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

// testEnv 汇集一套跑在临时资源上的完整服务栈。
type testEnv struct {
	db         *gorm.DB
	uploadDir  string
	archives   ArchiveService
	categories CategoryService
	audit      AuditService
	accessRepo repository.AccessRepository
	publisher  *capturingPublisher
	categoryID uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(&model.ArchiveDocument{}, &model.DocumentCategory{}, &model.DocumentAccessEvent{})
	if err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	category := model.DocumentCategory{CategoryName: "Medical Records", Description: "Clinical documents", IsActive: true}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("写入测试分类失败: %v", err)
	}

	uploadDir := t.TempDir()
	store, err := storage.NewLocal(uploadDir)
	if err != nil {
		t.Fatalf("创建本地存储失败: %v", err)
	}

	archiveRepo := repository.NewArchiveRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	publisher := &capturingPublisher{}

	categoryService := NewCategoryService(categoryRepo, nil)
	auditService := NewAuditService(accessRepo, archiveRepo, categoryRepo, publisher)
	archiveService := NewArchiveService(archiveRepo, categoryRepo, categoryService, auditService, store, 50*1024*1024)

	return &testEnv{
		db:         db,
		uploadDir:  uploadDir,
		archives:   archiveService,
		categories: categoryService,
		audit:      auditService,
		accessRepo: accessRepo,
		publisher:  publisher,
		categoryID: category.CategoryID,
	}
}

type testFile struct {
	name    string
	mime    string
	content []byte
}

// buildFileHeaders 通过真实的 multipart 编解码构造 FileHeader，贴近网关收到的请求。
func buildFileHeaders(t *testing.T, files []testFile) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, s := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, s.name))
		header.Set("Content-Type", s.mime)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("构造 multipart 失败: %v", err)
		}
		if _, err := part.Write(s.content); err != nil {
			t.Fatalf("写入 multipart 内容失败: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("关闭 multipart writer 失败: %v", err)
	}

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(64 << 20)
	if err != nil {
		t.Fatalf("解析 multipart 表单失败: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func testAccess() AccessContext {
	return AccessContext{User: "nurse.jones", IPAddress: "10.0.0.8", UserAgent: "test-agent"}
}

func uploadedFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("读取上传目录失败: %v", err)
	}
	return len(entries)
}

func TestUploadCreatesDocumentWithChecksumAndAudit(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("patient chart page one")

	result, err := env.archives.Upload(context.Background(), 7,
		buildFileHeaders(t, []testFile{{name: "chart.pdf", mime: "application/pdf", content: content}}),
		UploadMeta{Category: "Medical Records", Description: "intake chart", Keywords: "intake"},
		testAccess(),
	)
	if err != nil {
		t.Fatalf("Upload 返回错误: %v", err)
	}
	if result.Uploaded != 1 || len(result.Documents) != 1 {
		t.Fatalf("期望上传 1 个文件, 得到 %+v", result)
	}

	doc := result.Documents[0]
	wantChecksum := sha256.Sum256(content)
	if doc.Checksum != hex.EncodeToString(wantChecksum[:]) {
		t.Fatalf("校验和不符: %s", doc.Checksum)
	}
	if doc.ClientID != 7 || doc.CategoryID != env.categoryID {
		t.Fatalf("档案归属不符: %+v", doc)
	}
	if doc.OriginalFileName != "chart.pdf" || doc.FileExtension != ".pdf" {
		t.Fatalf("文件名信息不符: %+v", doc)
	}
	if !doc.IsCurrentVersion || doc.VersionNumber != 1 {
		t.Fatalf("版本标记不符: %+v", doc)
	}
	if doc.UploadedBy != "nurse.jones" {
		t.Fatalf("上传人不符: %q", doc.UploadedBy)
	}

	// 正好一条 UPLOAD 审计事件，且已发布到事件流
	rows, err := env.accessRepo.FindByArchiveID(doc.ArchiveID)
	if err != nil {
		t.Fatalf("查询审计事件失败: %v", err)
	}
	if len(rows) != 1 || rows[0].AccessType != model.AccessTypeUpload {
		t.Fatalf("审计事件不符: %+v", rows)
	}
	if rows[0].IPAddress != "10.0.0.8" || rows[0].UserAgent != "test-agent" {
		t.Fatalf("审计事件来源信息不符: %+v", rows[0])
	}
	if len(env.publisher.published) != 1 || env.publisher.published[0] != model.AccessTypeUpload {
		t.Fatalf("事件流发布不符: %+v", env.publisher.published)
	}

	// 文件落在上传目录里，且内容可读回
	if uploadedFileCount(t, env.uploadDir) != 1 {
		t.Fatal("上传目录中的文件数不符")
	}
}

func TestUploadSkipsEmptyFile(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.archives.Upload(context.Background(), 7,
		buildFileHeaders(t, []testFile{{name: "empty.pdf", mime: "application/pdf", content: nil}}),
		UploadMeta{Category: "Medical Records"},
		testAccess(),
	)
	if err != nil {
		t.Fatalf("Upload 返回错误: %v", err)
	}
	if result.Uploaded != 0 || len(result.Documents) != 0 {
		t.Fatalf("空文件不应创建档案: %+v", result)
	}
	if uploadedFileCount(t, env.uploadDir) != 0 {
		t.Fatal("空文件在磁盘上留下了残留")
	}

	var count int64
	env.db.Model(&model.ArchiveDocument{}).Count(&count)
	if count != 0 {
		t.Fatalf("期望 0 条档案记录, 得到 %d", count)
	}
}

func TestUploadPartialSuccess(t *testing.T) {
	env := newTestEnv(t)

	// 三个文件，第二个是 0 字节
	result, err := env.archives.Upload(context.Background(), 7,
		buildFileHeaders(t, []testFile{
			{name: "one.pdf", mime: "application/pdf", content: []byte("one")},
			{name: "two.pdf", mime: "application/pdf", content: nil},
			{name: "three.txt", mime: "text/plain", content: []byte("three")},
		}),
		UploadMeta{Category: "Medical Records"},
		testAccess(),
	)
	if err != nil {
		t.Fatalf("Upload 返回错误: %v", err)
	}
	if result.Uploaded != 2 || result.Total != 3 {
		t.Fatalf("期望 2/3 成功, 得到 %d/%d", result.Uploaded, result.Total)
	}

	// 列表里正好是成功的那两个
	docs, err := env.archives.List(context.Background(), 7, ListFilter{})
	if err != nil {
		t.Fatalf("List 返回错误: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("期望列表里有 2 条档案, 得到 %d", len(docs))
	}
	for _, d := range docs {
		if d.OriginalFileName == "two.pdf" {
			t.Fatal("失败的文件出现在列表里")
		}
		if d.CategoryName != "Medical Records" {
			t.Fatalf("分类名称未补齐: %+v", d)
		}
	}
	if uploadedFileCount(t, env.uploadDir) != 2 {
		t.Fatal("上传目录中的文件数不符")
	}
}

func TestUploadRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.archives.Upload(context.Background(), 7,
		buildFileHeaders(t, []testFile{{name: "a.pdf", mime: "application/pdf", content: []byte("a")}}),
		UploadMeta{Category: "No Such Category"},
		testAccess(),
	)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("期望 ErrCategoryNotFound, 得到 %v", err)
	}

	var count int64
	env.db.Model(&model.ArchiveDocument{}).Count(&count)
	if count != 0 {
		t.Fatalf("拒绝的上传不应创建记录, 得到 %d 条", count)
	}
	if uploadedFileCount(t, env.uploadDir) != 0 {
		t.Fatal("拒绝的上传在磁盘上留下了文件")
	}
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.archives.Upload(context.Background(), 7,
		buildFileHeaders(t, []testFile{{name: "tool.exe", mime: "application/octet-stream", content: []byte("MZ")}}),
		UploadMeta{Category: "Medical Records"},
		testAccess(),
	)
	if err != nil {
		t.Fatalf("Upload 返回错误: %v", err)
	}
	if result.Uploaded != 0 {
		t.Fatalf("不允许的类型不应上传成功: %+v", result)
	}
}

func TestGetRecordsViewEvent(t *testing.T) {
	env := newTestEnv(t)
	doc := mustUpload(t, env, "chart.pdf", []byte("content"))

	got, err := env.archives.Get(context.Background(), doc.ArchiveID, testAccess())
	if err != nil {
		t.Fatalf("Get 返回错误: %v", err)
	}
	if got.ArchiveID != doc.ArchiveID || got.CategoryName != "Medical Records" {
		t.Fatalf("返回的档案不符: %+v", got)
	}

	rows, err := env.accessRepo.FindByArchiveID(doc.ArchiveID)
	if err != nil {
		t.Fatalf("查询审计事件失败: %v", err)
	}
	// UPLOAD + VIEW
	if len(rows) != 2 || rows[0].AccessType != model.AccessTypeView {
		t.Fatalf("VIEW 审计事件不符: %+v", rows)
	}
}

func TestGetUnknownDocument(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.archives.Get(context.Background(), 999, testAccess()); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("期望 ErrDocumentNotFound, 得到 %v", err)
	}
}

func TestDownloadIncrementsCountPerCall(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("downloadable content")
	doc := mustUpload(t, env, "chart.pdf", content)

	for i := 1; i <= 2; i++ {
		result, err := env.archives.Download(context.Background(), doc.ArchiveID, testAccess())
		if err != nil {
			t.Fatalf("Download 返回错误: %v", err)
		}
		data := new(bytes.Buffer)
		if _, err := data.ReadFrom(result.Reader); err != nil {
			t.Fatalf("读取下载流失败: %v", err)
		}
		_ = result.Reader.Close()
		if !bytes.Equal(data.Bytes(), content) {
			t.Fatal("下载内容与上传内容不一致")
		}
		if result.Document.DownloadCount != int64(i) {
			t.Fatalf("第 %d 次下载后计数为 %d", i, result.Document.DownloadCount)
		}
	}

	// 每次下载正好一条 DOWNLOAD 审计事件
	rows, err := env.accessRepo.FindByArchiveID(doc.ArchiveID)
	if err != nil {
		t.Fatalf("查询审计事件失败: %v", err)
	}
	downloads := 0
	for _, r := range rows {
		if r.AccessType == model.AccessTypeDownload {
			downloads++
		}
	}
	if downloads != 2 {
		t.Fatalf("期望 2 条 DOWNLOAD 事件, 得到 %d", downloads)
	}
}

func TestDownloadMissingFile(t *testing.T) {
	env := newTestEnv(t)
	doc := mustUpload(t, env, "chart.pdf", []byte("content"))

	// 把文件从磁盘上拿掉，模拟存储与元数据脱节
	if err := os.Remove(doc.FilePath); err != nil {
		t.Fatalf("删除测试文件失败: %v", err)
	}

	_, err := env.archives.Download(context.Background(), doc.ArchiveID, testAccess())
	if !errors.Is(err, ErrFileMissing) {
		t.Fatalf("期望 ErrFileMissing, 得到 %v", err)
	}

	// 失败的下载不应递增计数
	got, err := env.archives.Get(context.Background(), doc.ArchiveID, testAccess())
	if err != nil {
		t.Fatalf("Get 返回错误: %v", err)
	}
	if got.DownloadCount != 0 {
		t.Fatalf("失败下载后计数应为 0, 得到 %d", got.DownloadCount)
	}
}

func TestUpdateOverwritesOnlyGivenFields(t *testing.T) {
	env := newTestEnv(t)
	doc := mustUpload(t, env, "chart.pdf", []byte("content"))

	name := "renamed chart"
	confidentiality := "Restricted"
	updated, err := env.archives.Update(context.Background(), doc.ArchiveID, UpdateParams{
		DocumentName:         &name,
		ConfidentialityLevel: &confidentiality,
	}, testAccess())
	if err != nil {
		t.Fatalf("Update 返回错误: %v", err)
	}
	if updated.DocumentName != name || updated.ConfidentialityLevel != confidentiality {
		t.Fatalf("字段未更新: %+v", updated)
	}
	if updated.OriginalFileName != "chart.pdf" {
		t.Fatalf("未指定的字段被修改: %+v", updated)
	}
	if updated.UpdatedBy != "nurse.jones" || updated.UpdatedAt == nil {
		t.Fatalf("更新戳未加盖: %+v", updated)
	}
	if updated.Checksum != doc.Checksum {
		t.Fatal("元数据更新不应改动校验和")
	}
}

func TestUpdateUnknownDocument(t *testing.T) {
	env := newTestEnv(t)
	name := "whatever"
	if _, err := env.archives.Update(context.Background(), 999, UpdateParams{DocumentName: &name}, testAccess()); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("期望 ErrDocumentNotFound, 得到 %v", err)
	}
	var count int64
	env.db.Model(&model.ArchiveDocument{}).Count(&count)
	if count != 0 {
		t.Fatalf("对未知档案的更新不应创建记录, 得到 %d 条", count)
	}
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	env := newTestEnv(t)
	doc := mustUpload(t, env, "chart.pdf", []byte("content"))

	if err := env.archives.Delete(context.Background(), doc.ArchiveID); err != nil {
		t.Fatalf("Delete 返回错误: %v", err)
	}
	if _, err := env.archives.Get(context.Background(), doc.ArchiveID, testAccess()); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("删除后仍能取到档案: %v", err)
	}
	if uploadedFileCount(t, env.uploadDir) != 0 {
		t.Fatal("删除后文件仍在磁盘上")
	}
}

func TestDeleteSucceedsWhenFileAlreadyGone(t *testing.T) {
	env := newTestEnv(t)
	doc := mustUpload(t, env, "chart.pdf", []byte("content"))

	if err := os.Remove(doc.FilePath); err != nil {
		t.Fatalf("删除测试文件失败: %v", err)
	}
	// 文件已不在磁盘上，但记录删除必须成功
	if err := env.archives.Delete(context.Background(), doc.ArchiveID); err != nil {
		t.Fatalf("Delete 返回错误: %v", err)
	}

	var count int64
	env.db.Model(&model.ArchiveDocument{}).Count(&count)
	if count != 0 {
		t.Fatalf("期望 0 条档案记录, 得到 %d", count)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	env := newTestEnv(t)
	if err := env.archives.Delete(context.Background(), 999); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("期望 ErrDocumentNotFound, 得到 %v", err)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"", "   ", "\t"} {
		if _, err := env.archives.Search(context.Background(), 7, q, ListFilter{}); !errors.Is(err, ErrEmptyQuery) {
			t.Fatalf("空关键字 %q 期望 ErrEmptyQuery, 得到 %v", q, err)
		}
	}
}

func TestSearchMatchesSubstring(t *testing.T) {
	env := newTestEnv(t)
	mustUpload(t, env, "tb-screening.pdf", []byte("a"))
	mustUpload(t, env, "intake-form.pdf", []byte("b"))

	docs, err := env.archives.Search(context.Background(), 7, "screening", ListFilter{})
	if err != nil {
		t.Fatalf("Search 返回错误: %v", err)
	}
	if len(docs) != 1 || docs[0].OriginalFileName != "tb-screening.pdf" {
		t.Fatalf("搜索结果不符: %+v", docs)
	}
}

func TestListFilterUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	mustUpload(t, env, "chart.pdf", []byte("a"))

	docs, err := env.archives.List(context.Background(), 7, ListFilter{Category: "No Such Category"})
	if err != nil {
		t.Fatalf("List 返回错误: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("未知分类过滤应返回空列表, 得到 %d 条", len(docs))
	}
}

// mustUpload 上传单个文件并返回创建的档案记录。
func mustUpload(t *testing.T, env *testEnv, name string, content []byte) model.ArchiveDocument {
	t.Helper()
	result, err := env.archives.Upload(context.Background(), 7,
		buildFileHeaders(t, []testFile{{name: name, mime: "application/pdf", content: content}}),
		UploadMeta{Category: "Medical Records"},
		testAccess(),
	)
	if err != nil {
		t.Fatalf("上传测试文件失败: %v", err)
	}
	if result.Uploaded != 1 {
		t.Fatalf("上传测试文件未成功: %+v", result)
	}
	return result.Documents[0]
}
