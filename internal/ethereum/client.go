package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/tss/internal/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrRpcUnavailable RPC节点不可达或调用失败（瞬时错误，整个同步轮次中止，游标不动）
var ErrRpcUnavailable = errors.New("rpc unavailable")

// EventKind 事件种类
type EventKind string

const (
	KindBought EventKind = "Bought"
	KindSold   EventKind = "Sold"
)

// TokenShop合约ABI（事件 + 只读函数，当前版本）
const shopABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "user", "type": "address"},
			{"indexed": true, "name": "payAsset", "type": "address"},
			{"indexed": false, "name": "amountIn", "type": "uint256"},
			{"indexed": false, "name": "genOut", "type": "uint256"}
		],
		"name": "Bought",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "user", "type": "address"},
			{"indexed": true, "name": "payAsset", "type": "address"},
			{"indexed": false, "name": "genIn", "type": "uint256"},
			{"indexed": false, "name": "amountOut", "type": "uint256"}
		],
		"name": "Sold",
		"type": "event"
	},
	{"inputs": [], "name": "token", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "paused", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "feeBps", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "maxEthIn", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "maxGenIn", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"name": "asset", "type": "address"}], "name": "buyRate", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"name": "asset", "type": "address"}], "name": "sellRate", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"name": "asset", "type": "address"}], "name": "assetDecimals", "outputs": [{"name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

// 历史部署版本的事件ABI：只索引买/卖方地址，支付资产固定为ETH
const shopLegacyABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "buyer", "type": "address"},
			{"indexed": false, "name": "paidWei", "type": "uint256"},
			{"indexed": false, "name": "genOut", "type": "uint256"}
		],
		"name": "Bought",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "seller", "type": "address"},
			{"indexed": false, "name": "genIn", "type": "uint256"},
			{"indexed": false, "name": "paidWei", "type": "uint256"}
		],
		"name": "Sold",
		"type": "event"
	}
]`

// ERC20只读ABI
const erc20ABI = `[
	{"inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalSupply", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

// RawLog 解码后的链上日志，两种历史事件形态在解码时即归一化为此结构
type RawLog struct {
	Kind        EventKind
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
	User        string   // 小写地址；无法解析时为空串，由调用方丢弃
	Asset       string   // 小写支付资产地址，ETH为零地址哨兵
	AmountIn    *big.Int // BUY: 支付资产最小单位 / SELL: GEN最小单位
	AmountOut   *big.Int // BUY: GEN最小单位 / SELL: 支付资产最小单位
}

// Client 以太坊客户端，封装TokenShop合约的日志抓取与只读调用
type Client struct {
	client    *ethclient.Client
	ShopAddr  common.Address
	shopABI   abi.ABI
	legacyABI abi.ABI
	erc20ABI  abi.ABI
	timeout   time.Duration
}

func Init(cfg config.ShopConfig) (*Client, error) {
	// 连接以太坊客户端
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	parsedShop, err := abi.JSON(strings.NewReader(shopABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse shop ABI: %w", err)
	}
	parsedLegacy, err := abi.JSON(strings.NewReader(shopLegacyABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse legacy shop ABI: %w", err)
	}
	parsedERC20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	timeout := time.Duration(cfg.RpcTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		client:    client,
		ShopAddr:  common.HexToAddress(cfg.Address),
		shopABI:   parsedShop,
		legacyABI: parsedLegacy,
		erc20ABI:  parsedERC20,
		timeout:   timeout,
	}, nil
}

// CurrentHeight 获取当前区块高度
func (c *Client) CurrentHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRpcUnavailable, err)
	}
	return header.Number.Uint64(), nil
}

// FetchLogs 获取指定区块范围内某一事件种类的日志，按(区块号, 日志序号)升序返回
//
// 同时过滤当前与历史两种事件签名，每条日志在解码时立即归一化为RawLog。
func (c *Client) FetchLogs(ctx context.Context, kind EventKind, fromBlock, toBlock uint64) ([]RawLog, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	currentID := c.shopABI.Events[string(kind)].ID
	legacyID := c.legacyABI.Events[string(kind)].ID

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.ShopAddr},
		Topics:    [][]common.Hash{{currentID, legacyID}},
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRpcUnavailable, err)
	}

	raws := make([]RawLog, 0, len(logs))
	for _, l := range logs {
		raw, err := c.decodeLog(kind, l)
		if err != nil {
			// 无法解码的日志按噪声处理：归一化为空user，由同步器统一丢弃计数
			raw = RawLog{
				Kind:        kind,
				BlockNumber: l.BlockNumber,
				TxHash:      l.TxHash.Hex(),
				LogIndex:    l.Index,
				AmountIn:    new(big.Int),
				AmountOut:   new(big.Int),
			}
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// decodeLog 将原始日志解码为归一化的RawLog
func (c *Client) decodeLog(kind EventKind, l types.Log) (RawLog, error) {
	if len(l.Topics) == 0 {
		return RawLog{}, fmt.Errorf("log without topics")
	}

	raw := RawLog{
		Kind:        kind,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash.Hex(),
		LogIndex:    l.Index,
		AmountIn:    new(big.Int),
		AmountOut:   new(big.Int),
	}

	switch l.Topics[0] {
	case c.shopABI.Events[string(kind)].ID:
		// 当前形态: topics[1]=user, topics[2]=payAsset, data=两个uint256
		if len(l.Topics) < 3 || len(l.Data) < 64 {
			return RawLog{}, fmt.Errorf("invalid %s event: insufficient topics or data", kind)
		}
		raw.User = strings.ToLower(common.BytesToAddress(l.Topics[1].Bytes()).Hex())
		raw.Asset = strings.ToLower(common.BytesToAddress(l.Topics[2].Bytes()).Hex())
		raw.AmountIn = new(big.Int).SetBytes(l.Data[0:32])
		raw.AmountOut = new(big.Int).SetBytes(l.Data[32:64])

	case c.legacyABI.Events[string(kind)].ID:
		// 历史形态: topics[1]=buyer/seller, 支付资产固定为ETH
		if len(l.Topics) < 2 || len(l.Data) < 64 {
			return RawLog{}, fmt.Errorf("invalid legacy %s event: insufficient topics or data", kind)
		}
		raw.User = strings.ToLower(common.BytesToAddress(l.Topics[1].Bytes()).Hex())
		raw.Asset = strings.ToLower(common.Address{}.Hex())
		raw.AmountIn = new(big.Int).SetBytes(l.Data[0:32])
		raw.AmountOut = new(big.Int).SetBytes(l.Data[32:64])

	default:
		return RawLog{}, fmt.Errorf("unknown event signature: %s", l.Topics[0].Hex())
	}

	return raw, nil
}
