package logic

import (
	"context"

	"github.com/blues/tss/internal/asset"
	"github.com/blues/tss/internal/ethereum"
	"github.com/blues/tss/internal/logger"
	"github.com/blues/tss/internal/model"
)

// ShopInfoResponse 商店配置（金额字段已折算为人类可读单位）
type ShopInfoResponse struct {
	ShopAddress  string            `json:"shopAddress"`
	TokenAddress string            `json:"tokenAddress"`
	Paused       bool              `json:"paused"`
	FeeBps       int64             `json:"feeBps"`
	FeePercent   float64           `json:"feePercent"`
	MaxEthIn     string            `json:"maxEthIn"`
	MaxGenIn     string            `json:"maxGenIn"`
	Rates        map[string]string `json:"rates"`
}

// ShopLogic 商店链上只读视图：配置、流动性、GEN供应量与余额
type ShopLogic struct {
	client   *ethereum.Client
	resolver *asset.Resolver
	events   *EventLogic
}

// NewShopLogic 创建商店视图层
func NewShopLogic(client *ethereum.Client, resolver *asset.Resolver, events *EventLogic) *ShopLogic {
	return &ShopLogic{client: client, resolver: resolver, events: events}
}

// GetShopInfo 读取商店当前配置
func (s *ShopLogic) GetShopInfo(ctx context.Context) *ShopInfoResponse {
	info := s.client.GetShopInfo(ctx)

	return &ShopInfoResponse{
		ShopAddress:  info.ShopAddress,
		TokenAddress: info.TokenAddress,
		Paused:       info.Paused,
		FeeBps:       info.FeeBps,
		FeePercent:   info.FeePercent,
		MaxEthIn:     asset.FormatUnitsString(info.MaxEthIn, genDecimals),
		MaxGenIn:     asset.FormatUnitsString(info.MaxGenIn, genDecimals),
		Rates: map[string]string{
			"buyRateEth":  asset.FormatUnitsString(info.BuyRateEth, genDecimals),
			"sellRateEth": asset.FormatUnitsString(info.SellRateEth, genDecimals),
		},
	}
}

// GetGenTotalSupply 读取GEN总供应量，失败时返回"0"
func (s *ShopLogic) GetGenTotalSupply(ctx context.Context) string {
	tokenAddr, err := s.client.TokenAddress(ctx)
	if err != nil {
		logger.Debug("Failed to resolve token address: %v", err)
		return "0"
	}
	supply, err := s.client.ERC20TotalSupply(ctx, tokenAddr)
	if err != nil {
		logger.Debug("Failed to read GEN total supply: %v", err)
		return "0"
	}
	return asset.FormatUnits(supply, genDecimals)
}

// GetUserBalance 读取用户的GEN余额，失败时返回"0"
func (s *ShopLogic) GetUserBalance(ctx context.Context, userAddr string) string {
	tokenAddr, err := s.client.TokenAddress(ctx)
	if err != nil {
		return "0"
	}
	balance, err := s.client.ERC20BalanceOf(ctx, tokenAddr, userAddr)
	if err != nil {
		return "0"
	}
	return asset.FormatUnits(balance, genDecimals)
}

// GetLiquidity 商店可用流动性：ETH余额 + 事件中出现过的每个ERC20的余额
//
// 单个资产读取失败不影响其余资产，返回nil占位。
func (s *ShopLogic) GetLiquidity(ctx context.Context) (map[string]interface{}, error) {
	liquidity := make(map[string]interface{})

	ethBalance, err := s.client.EthBalance(ctx, s.client.ShopAddr.Hex())
	if err != nil {
		return nil, err
	}
	liquidity["ETH"] = asset.FormatUnits(ethBalance, 18)

	assets, err := s.events.DistinctAssets()
	if err != nil {
		return nil, err
	}

	for _, addr := range assets {
		if addr == model.ETHAsset {
			continue
		}
		symbol := s.resolver.SymbolOf(ctx, addr)
		decimals := s.resolver.DecimalsOf(ctx, addr)

		balance, err := s.client.ERC20BalanceOf(ctx, addr, s.client.ShopAddr.Hex())
		if err != nil {
			logger.Debug("Failed to read shop balance of %s: %v", addr, err)
			liquidity[symbol] = nil
			continue
		}
		liquidity[symbol] = asset.FormatUnits(balance, decimals)
	}

	return liquidity, nil
}
