package asset

import (
	"math/big"
	"strings"
)

// FormatUnits 将原始最小单位金额格式化为人类可读的定点十进制字符串
//
// 始终基于整数运算，去掉小数部分的尾零，保留符号。仅在展示边界调用，
// 聚合求和一律停留在 *big.Int 上。
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}

	s := new(big.Int).Abs(raw).String()
	neg := raw.Sign() < 0

	if decimals <= 0 {
		if neg {
			return "-" + s
		}
		return s
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	intPart := s[:len(s)-decimals]
	decPart := strings.TrimRight(s[len(s)-decimals:], "0")

	out := intPart
	if decPart != "" {
		out = intPart + "." + decPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatUnitsString 十进制字符串金额的格式化便捷入口，非法输入按0处理
func FormatUnitsString(raw string, decimals int) string {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "0"
	}
	return FormatUnits(n, decimals)
}
