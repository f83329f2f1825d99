package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"sync/atomic"

	"github.com/blues/tss/internal/ethereum"
	"github.com/blues/tss/internal/logger"
	"github.com/blues/tss/internal/logic"
	"github.com/blues/tss/internal/model"
	"github.com/panjf2000/ants/v2"
)

// ErrSyncBusy 已有同步轮次在执行，并发触发被拒绝（不排队）
var ErrSyncBusy = errors.New("sync already in progress")

// LogSource 同步器依赖的链上日志源，由 ethereum.Client 实现
type LogSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	FetchLogs(ctx context.Context, kind ethereum.EventKind, fromBlock, toBlock uint64) ([]ethereum.RawLog, error)
}

// SymbolResolver 支付资产符号解析，由 asset.Resolver 实现
type SymbolResolver interface {
	SymbolOf(ctx context.Context, addr string) string
}

// Result 单次同步轮次的结果
type Result struct {
	Synced    int    `json:"synced"`
	FromBlock uint64 `json:"fromBlock"`
	ToBlock   uint64 `json:"toBlock"`
}

// Synchronizer 链上事件同步器
//
// 一次只允许一个轮次在执行：定时触发与手动触发共用同一把锁，
// 第二个触发直接拒绝而不是排队，避免两个轮次计算出重叠区块范围。
type Synchronizer struct {
	source     LogSource
	resolver   SymbolResolver
	events     *logic.EventLogic
	startBlock uint64
	mu         stdsync.Mutex
	dropped    atomic.Uint64
}

// NewSynchronizer 创建同步器。startBlock为合约部署区块号，首轮同步从它开始
func NewSynchronizer(source LogSource, resolver SymbolResolver, events *logic.EventLogic, startBlock uint64) *Synchronizer {
	return &Synchronizer{
		source:     source,
		resolver:   resolver,
		events:     events,
		startBlock: startBlock,
	}
}

// Dropped 进程生命周期内被丢弃的畸形日志总数
func (s *Synchronizer) Dropped() uint64 {
	return s.dropped.Load()
}

// RunSync 执行一次同步轮次
//
// 游标推进是整个轮次的最后一步：在此之前崩溃，下一轮会把重复日志当no-op
// 重放掉；反过来先推进游标再写事件则会静默永久丢事件，顺序不可调换。
func (s *Synchronizer) RunSync(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncBusy
	}
	defer s.mu.Unlock()

	// 本轮上界在此刻定格，之后挖出的区块留给下一轮
	latest, err := s.source.CurrentHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain height: %w", err)
	}

	state, err := s.events.GetCursor()
	if err != nil {
		return nil, err
	}

	fromBlock := state.LastSyncedBlock + 1
	if state.LastSyncedBlock == 0 && s.startBlock > fromBlock {
		fromBlock = s.startBlock
	}

	if fromBlock > latest {
		// 没有新区块，游标不动
		return &Result{Synced: 0, FromBlock: fromBlock, ToBlock: latest}, nil
	}

	// 两类事件相互独立，逐类抓取落库；中途失败时已写入的部分
	// 在下一轮会被幂等写入去重掉
	count := 0
	for _, kind := range []ethereum.EventKind{ethereum.KindBought, ethereum.KindSold} {
		raws, err := s.source.FetchLogs(ctx, kind, fromBlock, latest)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s logs: %w", kind, err)
		}

		s.prewarmSymbols(ctx, raws)

		for _, raw := range raws {
			inserted, err := s.processLog(ctx, raw)
			if err != nil {
				return nil, err
			}
			if inserted {
				count++
			}
		}
	}

	// 两类日志全部落库后才推进游标
	if err := s.events.AdvanceCursor(latest); err != nil {
		return nil, err
	}

	logger.Info("Sync pass complete: %d new events, blocks %d-%d", count, fromBlock, latest)
	return &Result{Synced: count, FromBlock: fromBlock, ToBlock: latest}, nil
}

// processLog 归一化并幂等写入单条日志，返回是否真正新增
func (s *Synchronizer) processLog(ctx context.Context, raw ethereum.RawLog) (bool, error) {
	if raw.User == "" {
		// 无法确定主体地址的日志按噪声丢弃，只计数不重试
		total := s.dropped.Add(1)
		logger.Warn("Dropping malformed %s log tx=%s idx=%d (total dropped: %d)",
			raw.Kind, raw.TxHash, raw.LogIndex, total)
		return false, nil
	}

	assetAddr := raw.Asset
	if assetAddr == "" {
		assetAddr = model.ETHAsset
	}

	eventType := model.EventTypeBuy
	if raw.Kind == ethereum.KindSold {
		eventType = model.EventTypeSell
	}

	event := &model.EventModel{
		Type:        eventType,
		BlockNumber: raw.BlockNumber,
		TxHash:      raw.TxHash,
		LogIndex:    raw.LogIndex,
		User:        raw.User,
		Asset:       assetAddr,
		AssetSymbol: s.resolver.SymbolOf(ctx, assetAddr),
		AmountIn:    raw.AmountIn.String(),
		AmountOut:   raw.AmountOut.String(),
	}

	return s.events.InsertIfAbsent(event)
}

// prewarmSymbols 用临时协程池并发预热本批次涉及资产的符号缓存
//
// 元数据解析是纯I/O，各资产相互独立，可以并行；事件写入顺序不受影响。
func (s *Synchronizer) prewarmSymbols(ctx context.Context, raws []ethereum.RawLog) {
	assets := make(map[string]struct{})
	for _, raw := range raws {
		if raw.User == "" {
			continue
		}
		addr := raw.Asset
		if addr == "" {
			addr = model.ETHAsset
		}
		assets[addr] = struct{}{}
	}
	if len(assets) == 0 {
		return
	}

	pool, err := ants.NewPool(len(assets))
	if err != nil {
		logger.Error("Failed to create resolver pool: %v", err)
		return
	}
	defer pool.Release()

	var wg stdsync.WaitGroup
	for addr := range assets {
		addr := addr
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			s.resolver.SymbolOf(ctx, addr)
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit resolver task: %v", err)
		}
	}
	wg.Wait()
}
