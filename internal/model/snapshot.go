package model

import (
	"time"
)

// ProgressSnapshot 进度快照的持久化行：每用户一行，Data 为完整 JSON 文档，
// 保存时整行覆盖，不做局部更新
type ProgressSnapshot struct {
	Key       string    `gorm:"primaryKey;size:64"` // progress_<userID>
	Data      []byte    `gorm:"type:longblob;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ProgressSnapshot) TableName() string {
	return "progress_snapshots"
}
