package repository

import "errors"

var (
	// 存档相关错误
	ErrSnapshotExists   = errors.New("snapshot already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotName     = errors.New("invalid snapshot name")

	ErrRecordNotFound = errors.New("round record not found")
)
