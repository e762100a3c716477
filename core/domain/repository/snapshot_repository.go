package repository

import (
	"context"
	"strings"
)

// SnapshotRepository 存档仓储接口
type SnapshotRepository interface {
	// SaveSnapshot 保存存档，同名存档已存在时返回 ErrSnapshotExists
	SaveSnapshot(ctx context.Context, name string, data []byte) error

	// LoadSnapshot 读取存档，不存在时返回 ErrSnapshotNotFound
	LoadSnapshot(ctx context.Context, name string) ([]byte, error)
}

// CleanSnapshotName 只保留字母、数字和 . _ -，清理后为空或只有点时返回 ErrSnapshotName
func CleanSnapshotName(name string) (string, error) {
	cleaned := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
			cleaned = append(cleaned, c)
		}
	}
	s := string(cleaned)
	if strings.Trim(s, ".") == "" {
		return "", ErrSnapshotName
	}
	return s, nil
}
