package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
)

// newTestDB 建立一个临时的 sqlite 数据库并完成迁移。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(&model.ArchiveDocument{}, &model.DocumentCategory{}, &model.DocumentAccessEvent{})
	if err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}
	return db
}

func seedDoc(t *testing.T, repo ArchiveRepository, doc model.ArchiveDocument) *model.ArchiveDocument {
	t.Helper()
	if err := repo.Create(&doc); err != nil {
		t.Fatalf("写入测试档案失败: %v", err)
	}
	return &doc
}

func TestArchiveRepositoryFindByClient(t *testing.T) {
	db := newTestDB(t)
	repo := NewArchiveRepository(db)

	seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "intake-form.pdf", OriginalFileName: "intake-form.pdf", FilePath: "a", CategoryID: 1, Keywords: "intake,housing"})
	seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "tb-test.jpg", OriginalFileName: "tb-test.jpg", FilePath: "b", CategoryID: 2, Description: "TB screening result"})
	seedDoc(t, repo, model.ArchiveDocument{ClientID: 2, DocumentName: "other-client.pdf", OriginalFileName: "other-client.pdf", FilePath: "c", CategoryID: 1})

	docs, err := repo.FindByClient(1, ArchiveFilter{})
	if err != nil {
		t.Fatalf("FindByClient 返回错误: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("期望 2 条档案, 得到 %d", len(docs))
	}

	// 分类过滤
	docs, err = repo.FindByClient(1, ArchiveFilter{CategoryID: 2})
	if err != nil {
		t.Fatalf("FindByClient 返回错误: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentName != "tb-test.jpg" {
		t.Fatalf("分类过滤结果不符: %+v", docs)
	}

	// 子串搜索命中 keywords
	docs, err = repo.FindByClient(1, ArchiveFilter{Search: "housing"})
	if err != nil {
		t.Fatalf("FindByClient 返回错误: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentName != "intake-form.pdf" {
		t.Fatalf("关键字搜索结果不符: %+v", docs)
	}

	// 子串搜索命中 description
	docs, err = repo.FindByClient(1, ArchiveFilter{Search: "screening"})
	if err != nil {
		t.Fatalf("FindByClient 返回错误: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentName != "tb-test.jpg" {
		t.Fatalf("描述搜索结果不符: %+v", docs)
	}

	// 未命中
	docs, err = repo.FindByClient(1, ArchiveFilter{Search: "nonexistent"})
	if err != nil {
		t.Fatalf("FindByClient 返回错误: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("期望空结果, 得到 %d 条", len(docs))
	}
}

func TestArchiveRepositoryFindByClientDateRange(t *testing.T) {
	db := newTestDB(t)
	repo := NewArchiveRepository(db)

	old := seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "old.pdf", OriginalFileName: "old.pdf", FilePath: "a", CategoryID: 1})
	// 把一条记录的上传时间拨回 30 天前
	past := time.Now().AddDate(0, 0, -30)
	if err := db.Model(old).Update("uploaded_at", past).Error; err != nil {
		t.Fatalf("回拨上传时间失败: %v", err)
	}
	seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "new.pdf", OriginalFileName: "new.pdf", FilePath: "b", CategoryID: 1})

	weekAgo := time.Now().AddDate(0, 0, -7)
	docs, err := repo.FindByClient(1, ArchiveFilter{StartDate: &weekAgo})
	if err != nil {
		t.Fatalf("FindByClient 返回错误: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentName != "new.pdf" {
		t.Fatalf("日期过滤结果不符: %+v", docs)
	}
}

func TestArchiveRepositoryIncrementDownload(t *testing.T) {
	db := newTestDB(t)
	repo := NewArchiveRepository(db)
	doc := seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "a.pdf", OriginalFileName: "a.pdf", FilePath: "a", CategoryID: 1})

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := repo.IncrementDownload(doc.ArchiveID, "nurse.jones", now); err != nil {
			t.Fatalf("IncrementDownload 返回错误: %v", err)
		}
	}

	got, err := repo.FindByID(doc.ArchiveID)
	if err != nil {
		t.Fatalf("FindByID 返回错误: %v", err)
	}
	if got.DownloadCount != 3 {
		t.Fatalf("期望下载计数 3, 得到 %d", got.DownloadCount)
	}
	if got.LastAccessedBy != "nurse.jones" {
		t.Fatalf("最近访问人未更新: %q", got.LastAccessedBy)
	}
	if got.LastAccessedAt == nil {
		t.Fatal("最近访问时间未更新")
	}
}

func TestArchiveRepositoryUpdateColumns(t *testing.T) {
	db := newTestDB(t)
	repo := NewArchiveRepository(db)
	doc := seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "a.pdf", OriginalFileName: "a.pdf", FilePath: "a", CategoryID: 1, Description: "before"})

	rows, err := repo.UpdateColumns(doc.ArchiveID, map[string]interface{}{"description": "after"})
	if err != nil {
		t.Fatalf("UpdateColumns 返回错误: %v", err)
	}
	if rows != 1 {
		t.Fatalf("期望影响 1 行, 得到 %d", rows)
	}

	got, err := repo.FindByID(doc.ArchiveID)
	if err != nil {
		t.Fatalf("FindByID 返回错误: %v", err)
	}
	if got.Description != "after" {
		t.Fatalf("描述未更新: %q", got.Description)
	}
	if got.DocumentName != "a.pdf" {
		t.Fatalf("未指定的列不应被修改: %q", got.DocumentName)
	}
}

func TestArchiveRepositoryDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewArchiveRepository(db)
	doc := seedDoc(t, repo, model.ArchiveDocument{ClientID: 1, DocumentName: "a.pdf", OriginalFileName: "a.pdf", FilePath: "a", CategoryID: 1})

	rows, err := repo.Delete(doc.ArchiveID)
	if err != nil {
		t.Fatalf("Delete 返回错误: %v", err)
	}
	if rows != 1 {
		t.Fatalf("期望删除 1 行, 得到 %d", rows)
	}

	rows, err = repo.Delete(doc.ArchiveID)
	if err != nil {
		t.Fatalf("重复 Delete 返回错误: %v", err)
	}
	if rows != 0 {
		t.Fatalf("重复删除应影响 0 行, 得到 %d", rows)
	}
}
