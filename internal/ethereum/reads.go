package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ShopInfo 商店合约的当前链上配置
type ShopInfo struct {
	ShopAddress  string  `json:"shopAddress"`
	TokenAddress string  `json:"tokenAddress"`
	Paused       bool    `json:"paused"`
	FeeBps       int64   `json:"feeBps"`
	FeePercent   float64 `json:"feePercent"`
	MaxEthIn     string  `json:"maxEthIn"`
	MaxGenIn     string  `json:"maxGenIn"`
	BuyRateEth   string  `json:"buyRateEth"`
	SellRateEth  string  `json:"sellRateEth"`
}

// call 执行eth_call并解包返回值
func (c *Client) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	return parsed.Unpack(method, out)
}

// ERC20Symbol 查询ERC20代币符号
func (c *Client) ERC20Symbol(ctx context.Context, token string) (string, error) {
	out, err := c.call(ctx, c.erc20ABI, common.HexToAddress(token), "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected symbol return type")
	}
	return symbol, nil
}

// ERC20Decimals 查询ERC20代币精度
func (c *Client) ERC20Decimals(ctx context.Context, token string) (int, error) {
	out, err := c.call(ctx, c.erc20ABI, common.HexToAddress(token), "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals return type")
	}
	return int(decimals), nil
}

// ERC20BalanceOf 查询ERC20代币余额
func (c *Client) ERC20BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	out, err := c.call(ctx, c.erc20ABI, common.HexToAddress(token), "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type")
	}
	return balance, nil
}

// ERC20TotalSupply 查询ERC20代币总供应量
func (c *Client) ERC20TotalSupply(ctx context.Context, token string) (*big.Int, error) {
	out, err := c.call(ctx, c.erc20ABI, common.HexToAddress(token), "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply return type")
	}
	return supply, nil
}

// AssetDecimals 查询商店合约内登记的资产精度
func (c *Client) AssetDecimals(ctx context.Context, asset string) (int, error) {
	out, err := c.call(ctx, c.shopABI, c.ShopAddr, "assetDecimals", common.HexToAddress(asset))
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected assetDecimals return type")
	}
	return int(decimals), nil
}

// TokenAddress 查询商店出售的GEN代币地址
func (c *Client) TokenAddress(ctx context.Context) (string, error) {
	out, err := c.call(ctx, c.shopABI, c.ShopAddr, "token")
	if err != nil {
		return "", err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected token return type")
	}
	return addr.Hex(), nil
}

// EthBalance 查询地址的ETH余额
func (c *Client) EthBalance(ctx context.Context, addr string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	balance, err := c.client.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRpcUnavailable, err)
	}
	return balance, nil
}

// GetShopInfo 读取商店合约当前配置，单项读取失败时降级为零值（与链上各字段独立容错）
func (c *Client) GetShopInfo(ctx context.Context) ShopInfo {
	info := ShopInfo{
		ShopAddress: c.ShopAddr.Hex(),
		MaxEthIn:    "0",
		MaxGenIn:    "0",
		BuyRateEth:  "0",
		SellRateEth: "0",
	}

	if addr, err := c.TokenAddress(ctx); err == nil {
		info.TokenAddress = addr
	}

	if out, err := c.call(ctx, c.shopABI, c.ShopAddr, "paused"); err == nil {
		if paused, ok := out[0].(bool); ok {
			info.Paused = paused
		}
	}

	if out, err := c.call(ctx, c.shopABI, c.ShopAddr, "feeBps"); err == nil {
		if feeBps, ok := out[0].(*big.Int); ok {
			info.FeeBps = feeBps.Int64()
			// 展示用衍生值，此处才允许浮点
			info.FeePercent = float64(info.FeeBps) / 100
		}
	}

	if out, err := c.call(ctx, c.shopABI, c.ShopAddr, "maxEthIn"); err == nil {
		if v, ok := out[0].(*big.Int); ok {
			info.MaxEthIn = v.String()
		}
	}

	if out, err := c.call(ctx, c.shopABI, c.ShopAddr, "maxGenIn"); err == nil {
		if v, ok := out[0].(*big.Int); ok {
			info.MaxGenIn = v.String()
		}
	}

	eth := common.Address{}
	if out, err := c.call(ctx, c.shopABI, c.ShopAddr, "buyRate", eth); err == nil {
		if v, ok := out[0].(*big.Int); ok {
			info.BuyRateEth = v.String()
		}
	}
	if out, err := c.call(ctx, c.shopABI, c.ShopAddr, "sellRate", eth); err == nil {
		if v, ok := out[0].(*big.Int); ok {
			info.SellRateEth = v.String()
		}
	}

	return info
}
