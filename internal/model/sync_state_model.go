package model

import (
	"time"
)

// SyncStateModel 同步游标，单行表（id恒为1）
//
// last_synced_block 表示该区块（含）之前的所有相关日志均已入库，只会单调递增。
type SyncStateModel struct {
	Id              int64     `json:"id" gorm:"primaryKey"`
	UpdatedAt       time.Time `json:"updated_at"`
	LastSyncedBlock uint64    `json:"last_synced_block" gorm:"not null;default:0"`
}

// TableName 自定义表名
func (SyncStateModel) TableName() string {
	return "sync_state"
}
