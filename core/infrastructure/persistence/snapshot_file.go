package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/uakfdotb/p-levelup/core/domain/repository"
)

// FileSnapshotRepository 存档保存在目录下，一个存档一个文件
type FileSnapshotRepository struct {
	dir string
}

func NewFileSnapshotRepository(dir string) repository.SnapshotRepository {
	return &FileSnapshotRepository{dir: dir}
}

func (r *FileSnapshotRepository) path(name string) (string, error) {
	cleaned, err := repository.CleanSnapshotName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dir, cleaned), nil
}

// SaveSnapshot 已存在同名文件时不覆盖
func (r *FileSnapshotRepository) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("创建存档目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return repository.ErrSnapshotExists
		}
		return fmt.Errorf("创建存档失败: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("写入存档失败: %w", err)
	}
	return f.Close()
}

func (r *FileSnapshotRepository) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}
	return data, nil
}
