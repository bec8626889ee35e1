package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local 把档案文件保存在本地磁盘的上传目录下。
type Local struct {
	baseDir string
}

// NewLocal 创建本地磁盘存储，目录不存在时自动创建。
func NewLocal(baseDir string) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// Save 把 reader 的内容写入 baseDir/storedName。
// 写入失败时清掉半成品文件，不在磁盘上留孤儿。
func (l *Local) Save(_ context.Context, storedName string, reader io.Reader, _ int64, _ string) (string, error) {
	path := filepath.Join(l.baseDir, storedName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("关闭文件失败: %w", err)
	}
	return path, nil
}

// Open 打开已保存的文件。文件不存在时返回 ErrFileMissing。
func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileMissing
		}
		return nil, err
	}
	return f, nil
}

// Delete 删除已保存的文件。文件本就不存在时视为成功。
func (l *Local) Delete(_ context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
