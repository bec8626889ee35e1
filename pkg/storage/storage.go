// Package storage 提供档案文件的存储后端抽象，支持本地磁盘与 MinIO 对象存储。
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrFileMissing 表示元数据记录存在但底层文件已不在存储中。
var ErrFileMissing = errors.New("存储中找不到对应的文件")

// Storage 是文件存储后端的统一接口。
// storedName 是服务层生成的无冲突文件名（uuid + 原始扩展名），
// Save 返回的 path 会写入档案记录的 file_path 列，之后的 Open/Delete 以它为准。
type Storage interface {
	Save(ctx context.Context, storedName string, reader io.Reader, size int64, contentType string) (path string, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
