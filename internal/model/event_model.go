package model

import (
	"time"
)

// 事件类型
const (
	EventTypeBuy  = "BUY"
	EventTypeSell = "SELL"
)

// ETHAsset 原生ETH的哨兵地址（零地址，小写）
const ETHAsset = "0x0000000000000000000000000000000000000000"

// EventModel 链上交易事件记录，只增不改
//
// (tx_hash, log_index) 是全表唯一的自然键，也是幂等写入的唯一依据。
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Type        string `json:"type" gorm:"not null;index"`
	BlockNumber uint64 `json:"block_number" gorm:"not null;index"`
	TxHash      string `json:"tx_hash" gorm:"not null;uniqueIndex:uq_event_tx_log"`
	LogIndex    uint   `json:"log_index" gorm:"uniqueIndex:uq_event_tx_log"`
	User        string `json:"user" gorm:"not null;index"`
	Asset       string `json:"asset" gorm:"not null;index"`
	AssetSymbol string `json:"asset_symbol"`
	// 原始最小单位金额，十进制字符串，永不使用浮点
	AmountIn  string `json:"amount_in" gorm:"not null"`
	AmountOut string `json:"amount_out" gorm:"not null"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
