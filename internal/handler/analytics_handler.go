package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/blues/tss/internal/logic"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 聚合统计处理器
type AnalyticsHandler struct {
	analytics *logic.AnalyticsLogic
	shop      *logic.ShopLogic
}

// NewAnalyticsHandler 创建聚合统计处理器
func NewAnalyticsHandler(analytics *logic.AnalyticsLogic, shop *logic.ShopLogic) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, shop: shop}
}

// GetSummary 获取全局汇总统计
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	totalSupply := h.shop.GetGenTotalSupply(c.Request.Context())

	summary, err := h.analytics.GetSummary(totalSupply)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetPerAsset 获取按资产分组的买卖统计
func (h *AnalyticsHandler) GetPerAsset(c *gin.Context) {
	data, err := h.analytics.GetPerAsset()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, data)
}

// GetActivity 获取最近活动流，limit默认15，钳制在[1,100]
func (h *AnalyticsHandler) GetActivity(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "15"))
	if err != nil {
		limit = 15
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	activity, err := h.analytics.GetRecentActivity(limit)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, activity)
}

// GetUserHistory 获取用户交易历史与净头寸
func (h *AnalyticsHandler) GetUserHistory(c *gin.Context) {
	address := c.Param("address")
	if !isHexAddress(address) {
		ErrorResponse(c, http.StatusBadRequest, "invalid user address")
		return
	}

	history, err := h.analytics.GetUserHistory(address)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, history)
}

func isHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	if len(s) != 42 {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
