package logic

import (
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/blues/tss/internal/asset"
	"github.com/blues/tss/internal/model"
)

// GEN代币与ETH的精度
const genDecimals = 18

// Summary 全局汇总统计
type Summary struct {
	TotalBuys      int64  `json:"totalBuys"`
	TotalSells     int64  `json:"totalSells"`
	TotalGenMinted string `json:"totalGenMinted"`
	TotalGenBurned string `json:"totalGenBurned"`
	GenTotalSupply string `json:"genTotalSupply"`
	UniqueBuyers   int    `json:"uniqueBuyers"`
	UniqueSellers  int    `json:"uniqueSellers"`
	UniqueUsers    int    `json:"uniqueUsers"`
}

// AssetBreakdown 单个支付资产的买卖统计
type AssetBreakdown struct {
	Asset         string `json:"asset"`
	Symbol        string `json:"symbol"`
	Buys          int    `json:"buys"`
	Sells         int    `json:"sells"`
	UniqueBuyers  int    `json:"uniqueBuyers"`
	UniqueSellers int    `json:"uniqueSellers"`
	// 支付资产进出为原始最小单位，GEN进出为人类可读单位
	TotalPaidIn  string `json:"totalPaidIn"`
	TotalGenOut  string `json:"totalGenOut"`
	TotalGenIn   string `json:"totalGenIn"`
	TotalPaidOut string `json:"totalPaidOut"`
}

// ActivityItem 活动流中的一条事件
type ActivityItem struct {
	Type        string    `json:"type"`
	Block       uint64    `json:"block"`
	TxHash      string    `json:"txHash"`
	User        string    `json:"user"`
	Asset       string    `json:"asset"`
	AssetSymbol string    `json:"assetSymbol"`
	AmountIn    string    `json:"amountIn"`
	AmountOut   string    `json:"amountOut"`
	Timestamp   time.Time `json:"timestamp"`
}

// UserPosition 用户在单个资产上的净头寸
type UserPosition struct {
	Asset        string `json:"asset"`
	Symbol       string `json:"symbol"`
	Buys         int    `json:"buys"`
	Sells        int    `json:"sells"`
	TotalPaidIn  string `json:"totalPaidIn"`
	TotalPaidOut string `json:"totalPaidOut"`
	TotalGenOut  string `json:"totalGenOut"`
	TotalGenIn   string `json:"totalGenIn"`
	NetGen       string `json:"netGen"`
}

// UserHistory 用户交易历史与净头寸
type UserHistory struct {
	User      string         `json:"user"`
	Positions []UserPosition `json:"positions"`
	Events    []ActivityItem `json:"events"`
}

// AnalyticsLogic 聚合统计，对事件表的纯读取，空表返回零值结果
//
// 所有求和都在 *big.Int 上进行，只在出参边界格式化为十进制字符串。
type AnalyticsLogic struct {
	events *EventLogic
}

// NewAnalyticsLogic 创建聚合统计层
func NewAnalyticsLogic(events *EventLogic) *AnalyticsLogic {
	return &AnalyticsLogic{events: events}
}

func parseAmount(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

// GetSummary 全局汇总：买卖笔数、GEN铸造/销毁量、去重用户数
//
// uniqueUsers 是买卖双方地址的集合并集，同时买过又卖过的用户只计一次。
func (a *AnalyticsLogic) GetSummary(genTotalSupply string) (*Summary, error) {
	events, err := a.events.QueryAll()
	if err != nil {
		return nil, err
	}

	minted := new(big.Int)
	burned := new(big.Int)
	buyers := make(map[string]struct{})
	sellers := make(map[string]struct{})
	users := make(map[string]struct{})

	summary := &Summary{GenTotalSupply: genTotalSupply}

	for _, e := range events {
		users[e.User] = struct{}{}
		if e.Type == model.EventTypeBuy {
			summary.TotalBuys++
			minted.Add(minted, parseAmount(e.AmountOut))
			buyers[e.User] = struct{}{}
		} else {
			summary.TotalSells++
			burned.Add(burned, parseAmount(e.AmountIn))
			sellers[e.User] = struct{}{}
		}
	}

	summary.TotalGenMinted = asset.FormatUnits(minted, genDecimals)
	summary.TotalGenBurned = asset.FormatUnits(burned, genDecimals)
	summary.UniqueBuyers = len(buyers)
	summary.UniqueSellers = len(sellers)
	summary.UniqueUsers = len(users)
	return summary, nil
}

type assetAccum struct {
	symbol       string
	buys         int
	sells        int
	buyers       map[string]struct{}
	sellers      map[string]struct{}
	totalPaidIn  *big.Int
	totalGenOut  *big.Int
	totalGenIn   *big.Int
	totalPaidOut *big.Int
}

// GetPerAsset 按(资产, 符号)分组的买卖统计，按资产地址排序返回
func (a *AnalyticsLogic) GetPerAsset() ([]AssetBreakdown, error) {
	events, err := a.events.QueryAll()
	if err != nil {
		return nil, err
	}

	accums := make(map[string]*assetAccum)
	for _, e := range events {
		acc, ok := accums[e.Asset]
		if !ok {
			acc = &assetAccum{
				symbol:       e.AssetSymbol,
				buyers:       make(map[string]struct{}),
				sellers:      make(map[string]struct{}),
				totalPaidIn:  new(big.Int),
				totalGenOut:  new(big.Int),
				totalGenIn:   new(big.Int),
				totalPaidOut: new(big.Int),
			}
			accums[e.Asset] = acc
		}

		if e.Type == model.EventTypeBuy {
			acc.buys++
			acc.buyers[e.User] = struct{}{}
			acc.totalPaidIn.Add(acc.totalPaidIn, parseAmount(e.AmountIn))
			acc.totalGenOut.Add(acc.totalGenOut, parseAmount(e.AmountOut))
		} else {
			acc.sells++
			acc.sellers[e.User] = struct{}{}
			acc.totalGenIn.Add(acc.totalGenIn, parseAmount(e.AmountIn))
			acc.totalPaidOut.Add(acc.totalPaidOut, parseAmount(e.AmountOut))
		}
	}

	result := make([]AssetBreakdown, 0, len(accums))
	for addr, acc := range accums {
		symbol := acc.symbol
		if symbol == "" {
			symbol = addr
		}
		result = append(result, AssetBreakdown{
			Asset:         addr,
			Symbol:        symbol,
			Buys:          acc.buys,
			Sells:         acc.sells,
			UniqueBuyers:  len(acc.buyers),
			UniqueSellers: len(acc.sellers),
			TotalPaidIn:   acc.totalPaidIn.String(),
			TotalGenOut:   asset.FormatUnits(acc.totalGenOut, genDecimals),
			TotalGenIn:    asset.FormatUnits(acc.totalGenIn, genDecimals),
			TotalPaidOut:  acc.totalPaidOut.String(),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Asset < result[j].Asset })
	return result, nil
}

// GetRecentActivity 最新的limit条事件，由调用方负责把limit钳制到[1,100]
func (a *AnalyticsLogic) GetRecentActivity(limit int) ([]ActivityItem, error) {
	events, err := a.events.QueryRecent(limit)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(events))
	for _, e := range events {
		items = append(items, toActivityItem(e))
	}
	return items, nil
}

// GetUserHistory 用户交易历史：逐资产折算净头寸，附事件列表（按区块倒序）
func (a *AnalyticsLogic) GetUserHistory(userAddr string) (*UserHistory, error) {
	user := strings.ToLower(userAddr)

	events, err := a.events.QueryByUser(user)
	if err != nil {
		return nil, err
	}

	accums := make(map[string]*assetAccum)
	for _, e := range events {
		acc, ok := accums[e.Asset]
		if !ok {
			acc = &assetAccum{
				symbol:       e.AssetSymbol,
				totalPaidIn:  new(big.Int),
				totalGenOut:  new(big.Int),
				totalGenIn:   new(big.Int),
				totalPaidOut: new(big.Int),
			}
			accums[e.Asset] = acc
		}

		if e.Type == model.EventTypeBuy {
			acc.buys++
			acc.totalPaidIn.Add(acc.totalPaidIn, parseAmount(e.AmountIn))
			acc.totalGenOut.Add(acc.totalGenOut, parseAmount(e.AmountOut))
		} else {
			acc.sells++
			acc.totalGenIn.Add(acc.totalGenIn, parseAmount(e.AmountIn))
			acc.totalPaidOut.Add(acc.totalPaidOut, parseAmount(e.AmountOut))
		}
	}

	positions := make([]UserPosition, 0, len(accums))
	for addr, acc := range accums {
		symbol := acc.symbol
		if symbol == "" {
			symbol = addr
		}
		net := new(big.Int).Sub(acc.totalGenOut, acc.totalGenIn)
		positions = append(positions, UserPosition{
			Asset:        addr,
			Symbol:       symbol,
			Buys:         acc.buys,
			Sells:        acc.sells,
			TotalPaidIn:  acc.totalPaidIn.String(),
			TotalPaidOut: acc.totalPaidOut.String(),
			TotalGenOut:  asset.FormatUnits(acc.totalGenOut, genDecimals),
			TotalGenIn:   asset.FormatUnits(acc.totalGenIn, genDecimals),
			NetGen:       asset.FormatUnits(net, genDecimals),
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Asset < positions[j].Asset })

	items := make([]ActivityItem, 0, len(events))
	for _, e := range events {
		items = append(items, toActivityItem(e))
	}

	return &UserHistory{User: user, Positions: positions, Events: items}, nil
}

func toActivityItem(e model.EventModel) ActivityItem {
	return ActivityItem{
		Type:        e.Type,
		Block:       e.BlockNumber,
		TxHash:      e.TxHash,
		User:        e.User,
		Asset:       e.Asset,
		AssetSymbol: e.AssetSymbol,
		AmountIn:    e.AmountIn,
		AmountOut:   e.AmountOut,
		Timestamp:   e.CreatedAt,
	}
}
