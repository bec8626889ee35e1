// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务错误哨兵，由 handler 映射为对应的 HTTP 状态码。
var (
	// ErrDocumentNotFound 档案记录不存在（404）。
	ErrDocumentNotFound = errors.New("档案记录不存在")
	// ErrFileMissing 档案记录存在但文件已不在存储中（404，日志里与上者区分）。
	ErrFileMissing = errors.New("档案文件已不在存储中")
	// ErrCategoryNotFound 指定的文档分类不存在或未启用（400）。
	ErrCategoryNotFound = errors.New("文档分类不存在或未启用")
	// ErrEmptyQuery 搜索关键字为空（400）。
	ErrEmptyQuery = errors.New("搜索关键字不能为空")
	// ErrNoFiles 上传请求未附带任何文件（400）。
	ErrNoFiles = errors.New("请求中没有可用的文件")
)
