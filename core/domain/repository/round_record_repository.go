package repository

import (
	"context"

	"github.com/uakfdotb/p-levelup/core/domain/entity"
)

// RoundRecordRepository 局记录仓储接口
type RoundRecordRepository interface {
	// SaveRoundRecord 保存局记录
	SaveRoundRecord(ctx context.Context, round *entity.RoundRecord) error

	// FindRoundRecords 查找一张桌子的所有局记录（按局数排序）
	FindRoundRecords(ctx context.Context, tableID string) ([]*entity.RoundRecord, error)
}
