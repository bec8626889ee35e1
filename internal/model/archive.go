// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 访问审计事件类型。
const (
	AccessTypeUpload   = "UPLOAD"
	AccessTypeView     = "VIEW"
	AccessTypeDownload = "DOWNLOAD"
)

// DefaultConfidentialityLevel 是新档案未指定保密级别时的默认值。
const DefaultConfidentialityLevel = "Standard"

// ArchiveDocument 对应于数据库中的 'nursing_archive' 表。
// 它记录一份已归档文件的全部元数据。
// ArchiveID 一经分配不再改变；DownloadCount 只增不减；
// Checksum 在上传时计算一次，之后不再重算。
type ArchiveDocument struct {
	ArchiveID            uint       `gorm:"primaryKey;autoIncrement" json:"archiveID"`
	ClientID             uint       `gorm:"not null;index" json:"clientID"`
	DocumentName         string     `gorm:"type:varchar(255);not null" json:"documentName"`
	OriginalFileName     string     `gorm:"type:varchar(255);not null" json:"originalFileName"`
	FileExtension        string     `gorm:"type:varchar(20)" json:"fileExtension"`
	FilePath             string     `gorm:"type:varchar(500);not null" json:"filePath"`
	FileSize             int64      `gorm:"not null" json:"fileSize"`
	MimeType             string     `gorm:"type:varchar(100)" json:"mimeType"`
	CategoryID           uint       `gorm:"not null;index" json:"categoryID"`
	Description          string     `gorm:"type:text" json:"description"`
	Keywords             string     `gorm:"type:varchar(500)" json:"keywords"`
	DocumentDate         *time.Time `json:"documentDate"`
	ConfidentialityLevel string     `gorm:"type:varchar(50);not null;default:'Standard'" json:"confidentialityLevel"`
	VersionNumber        int        `gorm:"not null;default:1" json:"versionNumber"`
	IsCurrentVersion     bool       `gorm:"not null;default:true" json:"isCurrentVersion"`
	AccessLevel          string     `gorm:"type:varchar(50)" json:"accessLevel"`
	// Checksum 是文件内容的 SHA-256 十六进制摘要。目前仅存档，不做去重校验。
	Checksum         string     `gorm:"type:char(64)" json:"checksum"`
	EncryptionStatus bool       `gorm:"not null;default:false" json:"encryptionStatus"`
	VirusScanStatus  string     `gorm:"type:varchar(50)" json:"virusScanStatus"`
	VirusScanDate    *time.Time `json:"virusScanDate"`
	UploadedBy       string     `gorm:"type:varchar(100)" json:"uploadedBy"`
	UploadedAt       time.Time  `gorm:"autoCreateTime" json:"uploadedAt"`
	UpdatedBy        string     `gorm:"type:varchar(100)" json:"updatedBy"`
	// UpdatedAt 只在元数据编辑时由服务层写入，不随下载计数等列更新自动刷新。
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
	LastAccessedBy   string     `gorm:"type:varchar(100)" json:"lastAccessedBy"`
	LastAccessedAt   *time.Time `json:"lastAccessedAt"`
	DownloadCount    int64      `gorm:"not null;default:0" json:"downloadCount"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ArchiveDocument) TableName() string {
	return "nursing_archive"
}
