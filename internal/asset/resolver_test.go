package asset

import (
	"context"
	"errors"
	"testing"

	"github.com/blues/tss/internal/model"
)

// fakeReader 可编程的链上只读桩
type fakeReader struct {
	symbols       map[string]string
	erc20Decimals map[string]int
	shopDecimals  map[string]int
	symbolCalls   int
	decimalsCalls int
	shopCalls     int
}

func (f *fakeReader) ERC20Symbol(_ context.Context, token string) (string, error) {
	f.symbolCalls++
	if s, ok := f.symbols[token]; ok {
		return s, nil
	}
	return "", errors.New("execution reverted")
}

func (f *fakeReader) ERC20Decimals(_ context.Context, token string) (int, error) {
	f.decimalsCalls++
	if d, ok := f.erc20Decimals[token]; ok {
		return d, nil
	}
	return 0, errors.New("execution reverted")
}

func (f *fakeReader) AssetDecimals(_ context.Context, asset string) (int, error) {
	f.shopCalls++
	if d, ok := f.shopDecimals[asset]; ok {
		return d, nil
	}
	return 0, errors.New("execution reverted")
}

const usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"

func TestResolverEthPreseeded(t *testing.T) {
	reader := &fakeReader{}
	r := NewResolver(reader)

	if got := r.SymbolOf(context.Background(), model.ETHAsset); got != "ETH" {
		t.Errorf("SymbolOf(ETH) = %q, want ETH", got)
	}
	if got := r.DecimalsOf(context.Background(), model.ETHAsset); got != 18 {
		t.Errorf("DecimalsOf(ETH) = %d, want 18", got)
	}
	if reader.symbolCalls != 0 || reader.decimalsCalls != 0 || reader.shopCalls != 0 {
		t.Error("ETH lookups must never hit the chain")
	}
}

func TestResolverSymbolCaching(t *testing.T) {
	reader := &fakeReader{symbols: map[string]string{usdc: "USDC"}}
	r := NewResolver(reader)

	for i := 0; i < 3; i++ {
		if got := r.SymbolOf(context.Background(), usdc); got != "USDC" {
			t.Fatalf("SymbolOf = %q, want USDC", got)
		}
	}
	if reader.symbolCalls != 1 {
		t.Errorf("symbol resolved %d times, want 1 (memoized)", reader.symbolCalls)
	}
}

func TestResolverSymbolFallbackToAddress(t *testing.T) {
	reader := &fakeReader{}
	r := NewResolver(reader)

	if got := r.SymbolOf(context.Background(), usdc); got != usdc {
		t.Errorf("SymbolOf = %q, want the address itself", got)
	}

	// 兜底结果也要缓存：永远失败的代币只解析一次
	r.SymbolOf(context.Background(), usdc)
	r.SymbolOf(context.Background(), usdc)
	if reader.symbolCalls != 1 {
		t.Errorf("failed symbol resolved %d times, want 1", reader.symbolCalls)
	}
}

func TestResolverSymbolNormalizesCase(t *testing.T) {
	reader := &fakeReader{symbols: map[string]string{usdc: "USDC"}}
	r := NewResolver(reader)

	r.SymbolOf(context.Background(), usdc)
	if got := r.SymbolOf(context.Background(), "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"); got != "USDC" {
		t.Errorf("SymbolOf(uppercase) = %q, want USDC from cache", got)
	}
	if reader.symbolCalls != 1 {
		t.Errorf("case-variant address re-resolved, calls = %d", reader.symbolCalls)
	}
}

func TestResolverDecimalsShopRegistryFirst(t *testing.T) {
	reader := &fakeReader{
		shopDecimals:  map[string]int{usdc: 6},
		erc20Decimals: map[string]int{usdc: 8}, // 不应被问到
	}
	r := NewResolver(reader)

	if got := r.DecimalsOf(context.Background(), usdc); got != 6 {
		t.Errorf("DecimalsOf = %d, want 6 from shop registry", got)
	}
	if reader.decimalsCalls != 0 {
		t.Error("erc20 decimals queried although shop registry answered")
	}
}

func TestResolverDecimalsErc20Fallback(t *testing.T) {
	reader := &fakeReader{erc20Decimals: map[string]int{usdc: 6}}
	r := NewResolver(reader)

	if got := r.DecimalsOf(context.Background(), usdc); got != 6 {
		t.Errorf("DecimalsOf = %d, want 6 from erc20", got)
	}
}

func TestResolverDecimalsDefault18(t *testing.T) {
	reader := &fakeReader{}
	r := NewResolver(reader)

	if got := r.DecimalsOf(context.Background(), usdc); got != 18 {
		t.Errorf("DecimalsOf = %d, want default 18", got)
	}

	r.DecimalsOf(context.Background(), usdc)
	if reader.shopCalls != 1 || reader.decimalsCalls != 1 {
		t.Errorf("default result not cached: shop=%d erc20=%d calls", reader.shopCalls, reader.decimalsCalls)
	}
}
