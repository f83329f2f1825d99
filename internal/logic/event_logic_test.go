package logic

import (
	"errors"
	"testing"

	"github.com/blues/tss/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&model.EventModel{}, &model.SyncStateModel{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func buyEvent(block uint64, txHash string, logIndex uint, user string) *model.EventModel {
	return &model.EventModel{
		Type:        model.EventTypeBuy,
		BlockNumber: block,
		TxHash:      txHash,
		LogIndex:    logIndex,
		User:        user,
		Asset:       model.ETHAsset,
		AssetSymbol: "ETH",
		AmountIn:    "1000000000000000000",
		AmountOut:   "2000000000000000000",
	}
}

func TestGetCursorCreatesZeroValue(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	state, err := e.GetCursor()
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if state.LastSyncedBlock != 0 {
		t.Errorf("fresh cursor = %d, want 0", state.LastSyncedBlock)
	}

	// 再次读取拿到同一行
	again, err := e.GetCursor()
	if err != nil {
		t.Fatalf("GetCursor second call: %v", err)
	}
	if again.Id != state.Id {
		t.Errorf("second GetCursor returned different row: %d vs %d", again.Id, state.Id)
	}
}

func TestInsertIfAbsentDedup(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	inserted, err := e.InsertIfAbsent(buyEvent(10, "0xaaa", 0, "0x01"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Error("first insert reported as duplicate")
	}

	// 同一(txHash, logIndex)重放必须是no-op
	inserted, err = e.InsertIfAbsent(buyEvent(10, "0xaaa", 0, "0x01"))
	if err != nil {
		t.Fatalf("replayed insert: %v", err)
	}
	if inserted {
		t.Error("replayed insert reported as new")
	}

	count, err := e.CountAll()
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if count != 1 {
		t.Errorf("events stored = %d, want 1", count)
	}
}

func TestInsertSameTxDifferentLogIndex(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	// 同一笔交易的两条日志都要入库
	for _, idx := range []uint{0, 1} {
		inserted, err := e.InsertIfAbsent(buyEvent(10, "0xaaa", idx, "0x01"))
		if err != nil {
			t.Fatalf("insert logIndex %d: %v", idx, err)
		}
		if !inserted {
			t.Errorf("logIndex %d reported as duplicate", idx)
		}
	}

	count, _ := e.CountAll()
	if count != 2 {
		t.Errorf("events stored = %d, want 2", count)
	}
}

func TestInsertDoesNotOverwrite(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	original := buyEvent(10, "0xaaa", 0, "0x01")
	if _, err := e.InsertIfAbsent(original); err != nil {
		t.Fatalf("insert: %v", err)
	}

	conflicting := buyEvent(10, "0xaaa", 0, "0x02")
	conflicting.AmountIn = "999"
	if _, err := e.InsertIfAbsent(conflicting); err != nil {
		t.Fatalf("conflicting insert: %v", err)
	}

	events, err := e.QueryRecent(10)
	if err != nil {
		t.Fatalf("QueryRecent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events stored = %d, want 1", len(events))
	}
	if events[0].User != "0x01" || events[0].AmountIn != "1000000000000000000" {
		t.Error("existing row was overwritten by conflicting insert")
	}
}

func TestAdvanceCursorMonotonic(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	if err := e.AdvanceCursor(100); err != nil {
		t.Fatalf("AdvanceCursor(100): %v", err)
	}
	if err := e.AdvanceCursor(100); err != nil {
		t.Fatalf("AdvanceCursor(100) repeat: %v", err)
	}
	if err := e.AdvanceCursor(250); err != nil {
		t.Fatalf("AdvanceCursor(250): %v", err)
	}

	state, _ := e.GetCursor()
	if state.LastSyncedBlock != 250 {
		t.Errorf("cursor = %d, want 250", state.LastSyncedBlock)
	}
}

func TestAdvanceCursorRegression(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	if err := e.AdvanceCursor(100); err != nil {
		t.Fatalf("AdvanceCursor(100): %v", err)
	}

	err := e.AdvanceCursor(99)
	if !errors.Is(err, ErrCursorRegression) {
		t.Fatalf("AdvanceCursor(99) error = %v, want ErrCursorRegression", err)
	}

	// 失败的回拨不能改动游标
	state, _ := e.GetCursor()
	if state.LastSyncedBlock != 100 {
		t.Errorf("cursor after failed regression = %d, want 100", state.LastSyncedBlock)
	}
}

func TestQueryRecentOrdering(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	// 乱序写入，读取必须按(区块号, 日志序号)倒序
	e.InsertIfAbsent(buyEvent(5, "0xaaa", 1, "0x01"))
	e.InsertIfAbsent(buyEvent(9, "0xbbb", 0, "0x01"))
	e.InsertIfAbsent(buyEvent(5, "0xaaa", 3, "0x01"))
	e.InsertIfAbsent(buyEvent(7, "0xccc", 0, "0x01"))

	events, err := e.QueryRecent(3)
	if err != nil {
		t.Fatalf("QueryRecent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	wantBlocks := []uint64{9, 7, 5}
	wantIdx := []uint{0, 0, 3}
	for i := range events {
		if events[i].BlockNumber != wantBlocks[i] || events[i].LogIndex != wantIdx[i] {
			t.Errorf("events[%d] = block %d idx %d, want block %d idx %d",
				i, events[i].BlockNumber, events[i].LogIndex, wantBlocks[i], wantIdx[i])
		}
	}
}

func TestQueryByUserFiltersAndOrders(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	e.InsertIfAbsent(buyEvent(5, "0xaaa", 0, "0xalice"))
	e.InsertIfAbsent(buyEvent(8, "0xbbb", 0, "0xbob"))
	e.InsertIfAbsent(buyEvent(9, "0xccc", 0, "0xalice"))

	events, err := e.QueryByUser("0xalice")
	if err != nil {
		t.Fatalf("QueryByUser: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].BlockNumber != 9 || events[1].BlockNumber != 5 {
		t.Error("user events not in newest-first order")
	}
}

func TestDistinctAssets(t *testing.T) {
	e := NewEventLogic(newTestDB(t))

	ev := buyEvent(5, "0xaaa", 0, "0x01")
	e.InsertIfAbsent(ev)
	usdcEv := buyEvent(6, "0xbbb", 0, "0x01")
	usdcEv.Asset = "0xusdc"
	e.InsertIfAbsent(usdcEv)
	another := buyEvent(7, "0xccc", 0, "0x02")
	e.InsertIfAbsent(another)

	assets, err := e.DistinctAssets()
	if err != nil {
		t.Fatalf("DistinctAssets: %v", err)
	}
	if len(assets) != 2 {
		t.Errorf("distinct assets = %d, want 2", len(assets))
	}
}
