package ethereum

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	parsedShop, err := abi.JSON(strings.NewReader(shopABI))
	if err != nil {
		t.Fatalf("parse shop ABI: %v", err)
	}
	parsedLegacy, err := abi.JSON(strings.NewReader(shopLegacyABI))
	if err != nil {
		t.Fatalf("parse legacy ABI: %v", err)
	}
	parsedERC20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		t.Fatalf("parse erc20 ABI: %v", err)
	}
	return &Client{
		ShopAddr:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		shopABI:   parsedShop,
		legacyABI: parsedLegacy,
		erc20ABI:  parsedERC20,
	}
}

func uint256Bytes(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func TestEventSignaturesDiffer(t *testing.T) {
	c := newTestClient(t)

	// 当前与历史形态的事件签名必须不同，否则无法区分解码路径
	for _, kind := range []EventKind{KindBought, KindSold} {
		current := c.shopABI.Events[string(kind)].ID
		legacy := c.legacyABI.Events[string(kind)].ID
		if current == legacy {
			t.Errorf("%s: current and legacy signatures collide", kind)
		}
	}
}

func TestDecodeCurrentBought(t *testing.T) {
	c := newTestClient(t)

	user := common.HexToAddress("0xAbCdEF0123456789abcdef0123456789AbCdEf01")
	payAsset := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	amountIn := big.NewInt(10_000_000)
	genOut := new(big.Int)
	genOut.SetString("1500000000000000000", 10)

	l := types.Log{
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xdead"),
		Index:       3,
		Topics: []common.Hash{
			c.shopABI.Events["Bought"].ID,
			common.BytesToHash(user.Bytes()),
			common.BytesToHash(payAsset.Bytes()),
		},
		Data: append(uint256Bytes(amountIn), uint256Bytes(genOut)...),
	}

	raw, err := c.decodeLog(KindBought, l)
	if err != nil {
		t.Fatalf("decodeLog: %v", err)
	}

	if raw.BlockNumber != 42 || raw.LogIndex != 3 {
		t.Errorf("position = block %d idx %d, want 42/3", raw.BlockNumber, raw.LogIndex)
	}
	if raw.User != strings.ToLower(user.Hex()) {
		t.Errorf("user = %q, want lowercase %q", raw.User, strings.ToLower(user.Hex()))
	}
	if raw.Asset != strings.ToLower(payAsset.Hex()) {
		t.Errorf("asset = %q, want lowercase %q", raw.Asset, strings.ToLower(payAsset.Hex()))
	}
	if raw.AmountIn.Cmp(amountIn) != 0 {
		t.Errorf("amountIn = %s, want %s", raw.AmountIn, amountIn)
	}
	if raw.AmountOut.Cmp(genOut) != 0 {
		t.Errorf("amountOut = %s, want %s", raw.AmountOut, genOut)
	}
}

func TestDecodeLegacySoldDefaultsToEth(t *testing.T) {
	c := newTestClient(t)

	seller := common.HexToAddress("0xAbCdEF0123456789abcdef0123456789AbCdEf01")
	genIn := big.NewInt(7)
	paidWei := big.NewInt(9)

	l := types.Log{
		BlockNumber: 5,
		TxHash:      common.HexToHash("0xbeef"),
		Index:       0,
		Topics: []common.Hash{
			c.legacyABI.Events["Sold"].ID,
			common.BytesToHash(seller.Bytes()),
		},
		Data: append(uint256Bytes(genIn), uint256Bytes(paidWei)...),
	}

	raw, err := c.decodeLog(KindSold, l)
	if err != nil {
		t.Fatalf("decodeLog: %v", err)
	}

	// 历史形态没有payAsset字段，归一化为ETH零地址哨兵
	if raw.Asset != "0x0000000000000000000000000000000000000000" {
		t.Errorf("asset = %q, want zero-address sentinel", raw.Asset)
	}
	if raw.AmountIn.Cmp(genIn) != 0 || raw.AmountOut.Cmp(paidWei) != 0 {
		t.Errorf("amounts = %s/%s, want %s/%s", raw.AmountIn, raw.AmountOut, genIn, paidWei)
	}
}

func TestDecodeUnknownSignature(t *testing.T) {
	c := newTestClient(t)

	l := types.Log{
		Topics: []common.Hash{common.HexToHash("0x1234")},
		Data:   make([]byte, 64),
	}
	if _, err := c.decodeLog(KindBought, l); err == nil {
		t.Error("decodeLog should reject unknown event signature")
	}
}

func TestDecodeTruncatedData(t *testing.T) {
	c := newTestClient(t)

	user := common.HexToAddress("0x01")
	l := types.Log{
		Topics: []common.Hash{
			c.shopABI.Events["Bought"].ID,
			common.BytesToHash(user.Bytes()),
			common.BytesToHash(user.Bytes()),
		},
		Data: make([]byte, 32), // 少一个字
	}
	if _, err := c.decodeLog(KindBought, l); err == nil {
		t.Error("decodeLog should reject truncated data")
	}
}
