// Package database 负责创建数据库与缓存的连接句柄。
// 连接不再以包级全局变量暴露，而是由 main 构造后注入各层，
// 生命周期（关闭）同样由 main 管理。
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
	"nursing-archive-go/pkg/log"
)

// NewMySQL 建立 MySQL 连接并完成表结构迁移，返回注入用的 *gorm.DB。
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("MySQL 数据库连接成功")
	return db, nil
}

// Migrate 迁移档案管线用到的三张表。
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.ArchiveDocument{},
		&model.DocumentCategory{},
		&model.DocumentAccessEvent{},
	)
	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Close 关闭 GORM 持有的底层连接池。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
