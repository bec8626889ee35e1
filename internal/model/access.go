// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// DocumentAccessEvent 对应于数据库中的 'document_access' 表。
// 追加写入的审计日志，每次对档案的读写操作记录一行，永不修改或删除。
type DocumentAccessEvent struct {
	AccessID   uint      `gorm:"primaryKey;autoIncrement" json:"accessID"`
	ArchiveID  uint      `gorm:"not null;index" json:"archiveID"`
	AccessedBy string    `gorm:"type:varchar(100)" json:"accessedBy"`
	AccessType string    `gorm:"type:varchar(20);not null" json:"accessType"`
	AccessedAt time.Time `gorm:"autoCreateTime;index" json:"accessedAt"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ipAddress"`
	UserAgent  string    `gorm:"type:varchar(500)" json:"userAgent"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentAccessEvent) TableName() string {
	return "document_access"
}
