// Package model 定义了与数据库表对应的 Go 结构体。
package model

// DocumentCategory 对应于数据库中的 'document_categories' 表。
// 属于读多写少的参考数据；档案必须引用一个存在且启用的分类。
type DocumentCategory struct {
	CategoryID   uint   `gorm:"primaryKey;autoIncrement" json:"categoryID"`
	CategoryName string `gorm:"type:varchar(100);not null;uniqueIndex" json:"categoryName"`
	Description  string `gorm:"type:varchar(500)" json:"description"`
	// AllowedFileTypes 以逗号分隔的扩展名列表，例如 ".pdf,.doc,.docx"。
	AllowedFileTypes string `gorm:"type:varchar(255)" json:"allowedFileTypes"`
	// RetentionYears 档案保留年限。
	RetentionYears int  `gorm:"not null;default:7" json:"retentionYears"`
	IsActive       bool `gorm:"not null;default:true" json:"isActive"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentCategory) TableName() string {
	return "document_categories"
}

// CategoryWithCount 是分类列表接口的返回结构，附带该分类下的实时档案数。
type CategoryWithCount struct {
	DocumentCategory
	DocumentCount int64 `json:"documentCount"`
}
