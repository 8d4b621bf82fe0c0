package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressStore 进度快照的键值存储契约：整体读、整体覆盖写、删除。
// 无局部更新、无事务、假定单写者。
type ProgressStore interface {
	Load(ctx context.Context, key string) (*model.UserProgress, error)
	Save(ctx context.Context, key string, progress *model.UserProgress) error
	Delete(ctx context.Context, key string) error
}

// GormProgressStore 以 MySQL progress_snapshots 表实现 ProgressStore
type GormProgressStore struct {
	DB *gorm.DB
}

func NewGormProgressStore(db *gorm.DB) *GormProgressStore {
	return &GormProgressStore{DB: db}
}

func (s *GormProgressStore) Load(ctx context.Context, key string) (*model.UserProgress, error) {
	var row model.ProgressSnapshot
	err := s.DB.WithContext(ctx).First(&row, "`key` = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSnapshotNotFound
		}
		return nil, err
	}

	var progress model.UserProgress
	if err := json.Unmarshal(row.Data, &progress); err != nil {
		// 损坏的快照按缓存丢弃处理，由调用方重新初始化
		return nil, fmt.Errorf("%w: %v", util.ErrSnapshotCorrupt, err)
	}
	progress.Normalize()
	return &progress, nil
}

func (s *GormProgressStore) Save(ctx context.Context, key string, progress *model.UserProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	row := model.ProgressSnapshot{Key: key, Data: data}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *GormProgressStore) Delete(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Delete(&model.ProgressSnapshot{}, "`key` = ?", key).Error
}
