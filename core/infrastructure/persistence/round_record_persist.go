package persistence

import (
	"context"
	"fmt"

	"github.com/uakfdotb/p-levelup/common/database"
	"github.com/uakfdotb/p-levelup/core/domain/entity"
	"github.com/uakfdotb/p-levelup/core/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const roundRecordCollection = "round_records"

type RoundRecordRepository struct {
	mongo *database.MongoManager
}

func NewRoundRecordRepository(mongo *database.MongoManager) repository.RoundRecordRepository {
	return &RoundRecordRepository{mongo: mongo}
}

// SaveRoundRecord 保存局记录（每局一个文档）
func (r *RoundRecordRepository) SaveRoundRecord(ctx context.Context, round *entity.RoundRecord) error {
	collection := r.mongo.Db.Collection(roundRecordCollection)
	if _, err := collection.InsertOne(ctx, round); err != nil {
		return fmt.Errorf("保存局记录失败: %w", err)
	}
	return nil
}

// FindRoundRecords 查找一张桌子的所有局记录（按局数排序）
func (r *RoundRecordRepository) FindRoundRecords(ctx context.Context, tableID string) ([]*entity.RoundRecord, error) {
	collection := r.mongo.Db.Collection(roundRecordCollection)

	opts := options.Find().SetSort(bson.M{"round_number": 1})
	cursor, err := collection.Find(ctx, bson.M{"table_id": tableID}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询局记录失败: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*entity.RoundRecord
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("解析局记录失败: %w", err)
	}
	if len(result) == 0 {
		return nil, repository.ErrRecordNotFound
	}
	return result, nil
}
