package asset

import (
	"context"
	"strings"
	"sync"

	"github.com/blues/tss/internal/logger"
	"github.com/blues/tss/internal/model"
)

// ChainReader 解析器依赖的链上只读接口，由 ethereum.Client 实现
type ChainReader interface {
	ERC20Symbol(ctx context.Context, token string) (string, error)
	ERC20Decimals(ctx context.Context, token string) (int, error)
	AssetDecimals(ctx context.Context, asset string) (int, error)
}

// Resolver 资产元数据解析器
//
// 符号和精度按小写地址缓存，进程生命周期内只解析一次；解析失败时缓存兜底值，
// 保证同一个不可达代币不会每条事件都打一次RPC，解析过程永不返回错误。
type Resolver struct {
	reader   ChainReader
	mu       sync.RWMutex
	symbols  map[string]string
	decimals map[string]int
}

// NewResolver 创建资产元数据解析器，预置ETH哨兵地址
func NewResolver(reader ChainReader) *Resolver {
	r := &Resolver{
		reader:   reader,
		symbols:  make(map[string]string),
		decimals: make(map[string]int),
	}
	r.symbols[model.ETHAsset] = "ETH"
	r.decimals[model.ETHAsset] = 18
	return r
}

// SymbolOf 解析资产符号：缓存 → ERC20 symbol() → 地址本身兜底
func (r *Resolver) SymbolOf(ctx context.Context, addr string) string {
	key := normalize(addr)

	r.mu.RLock()
	if symbol, ok := r.symbols[key]; ok {
		r.mu.RUnlock()
		return symbol
	}
	r.mu.RUnlock()

	symbol := key // 兜底：地址本身
	if s, err := r.reader.ERC20Symbol(ctx, key); err == nil && s != "" {
		symbol = s
	} else if err != nil {
		logger.Debug("Symbol lookup failed for %s, falling back to address: %v", key, err)
	}

	r.mu.Lock()
	r.symbols[key] = symbol
	r.mu.Unlock()
	return symbol
}

// DecimalsOf 解析资产精度：缓存 → 商店assetDecimals登记 → ERC20 decimals() → 默认18
func (r *Resolver) DecimalsOf(ctx context.Context, addr string) int {
	key := normalize(addr)

	r.mu.RLock()
	if d, ok := r.decimals[key]; ok {
		r.mu.RUnlock()
		return d
	}
	r.mu.RUnlock()

	d := 18
	if v, err := r.reader.AssetDecimals(ctx, key); err == nil && v > 0 {
		d = v
	} else if v, err := r.reader.ERC20Decimals(ctx, key); err == nil {
		d = v
	} else {
		logger.Debug("Decimals lookup failed for %s, defaulting to 18: %v", key, err)
	}

	r.mu.Lock()
	r.decimals[key] = d
	r.mu.Unlock()
	return d
}

func normalize(addr string) string {
	if addr == "" {
		return model.ETHAsset
	}
	return strings.ToLower(addr)
}
