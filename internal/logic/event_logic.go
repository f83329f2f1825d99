package logic

import (
	"errors"
	"fmt"

	"github.com/blues/tss/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCursorRegression 试图把同步游标往回拨，属于流程编排bug，必须中止整个同步轮次
var ErrCursorRegression = errors.New("sync cursor regression")

// EventLogic 事件存储层：事件表只增不改，游标单行单调递增
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件存储层
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// GetCursor 获取同步游标，首次调用时创建零值游标
func (e *EventLogic) GetCursor() (*model.SyncStateModel, error) {
	var state model.SyncStateModel
	err := e.db.First(&state, 1).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load sync cursor: %w", err)
	}

	state = model.SyncStateModel{Id: 1, LastSyncedBlock: 0}
	if err := e.db.Create(&state).Error; err != nil {
		return nil, fmt.Errorf("failed to create sync cursor: %w", err)
	}
	return &state, nil
}

// InsertIfAbsent 幂等写入事件
//
// (tx_hash, log_index) 已存在时为no-op并返回false，绝不覆盖已有行。
// 重复是部分失败后重跑的正常现象，不是错误。
func (e *EventLogic) InsertIfAbsent(event *model.EventModel) (bool, error) {
	result := e.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert event: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AdvanceCursor 推进同步游标
//
// newHeight小于当前值说明轮次编排出了bug，大声失败而不是静默跳过。
func (e *EventLogic) AdvanceCursor(newHeight uint64) error {
	state, err := e.GetCursor()
	if err != nil {
		return err
	}
	if newHeight < state.LastSyncedBlock {
		return fmt.Errorf("%w: attempted %d -> %d", ErrCursorRegression, state.LastSyncedBlock, newHeight)
	}

	if err := e.db.Model(&model.SyncStateModel{}).Where("id = ?", 1).
		Update("last_synced_block", newHeight).Error; err != nil {
		return fmt.Errorf("failed to advance sync cursor: %w", err)
	}
	return nil
}

// QueryByUser 获取用户的全部事件，按(区块号, 日志序号)倒序
func (e *EventLogic) QueryByUser(user string) ([]model.EventModel, error) {
	var events []model.EventModel
	if err := e.db.Where("\"user\" = ?", user).
		Order("block_number DESC, log_index DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query events by user: %w", err)
	}
	return events, nil
}

// QueryByAsset 获取某资产的全部事件
func (e *EventLogic) QueryByAsset(assetAddr string) ([]model.EventModel, error) {
	var events []model.EventModel
	if err := e.db.Where("asset = ?", assetAddr).
		Order("block_number DESC, log_index DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query events by asset: %w", err)
	}
	return events, nil
}

// QueryRecent 获取最新的limit条事件，按(区块号, 日志序号)倒序
func (e *EventLogic) QueryRecent(limit int) ([]model.EventModel, error) {
	var events []model.EventModel
	if err := e.db.Order("block_number DESC, log_index DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return events, nil
}

// QueryAll 获取全部事件（聚合计算用）
func (e *EventLogic) QueryAll() ([]model.EventModel, error) {
	var events []model.EventModel
	if err := e.db.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// DistinctAssets 获取出现过的全部资产地址
func (e *EventLogic) DistinctAssets() ([]string, error) {
	var assets []string
	if err := e.db.Model(&model.EventModel{}).
		Distinct("asset").
		Pluck("asset", &assets).Error; err != nil {
		return nil, fmt.Errorf("failed to query distinct assets: %w", err)
	}
	return assets, nil
}

// CountAll 获取事件总数
func (e *EventLogic) CountAll() (int64, error) {
	var count int64
	if err := e.db.Model(&model.EventModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
