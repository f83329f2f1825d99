package handler

import (
	"net/http"

	"github.com/blues/tss/internal/logic"
	"github.com/gin-gonic/gin"
)

// ShopHandler 商店链上视图处理器
type ShopHandler struct {
	shop *logic.ShopLogic
}

// NewShopHandler 创建商店视图处理器
func NewShopHandler(shop *logic.ShopLogic) *ShopHandler {
	return &ShopHandler{shop: shop}
}

// GetShopInfo 获取商店当前配置
func (h *ShopHandler) GetShopInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.shop.GetShopInfo(c.Request.Context()))
}

// GetLiquidity 获取商店流动性
func (h *ShopHandler) GetLiquidity(c *gin.Context) {
	liquidity, err := h.shop.GetLiquidity(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, liquidity)
}

// GetUserBalance 获取用户GEN余额
func (h *ShopHandler) GetUserBalance(c *gin.Context) {
	address := c.Param("address")
	if !isHexAddress(address) {
		ErrorResponse(c, http.StatusBadRequest, "invalid user address")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"balance": h.shop.GetUserBalance(c.Request.Context(), address),
	})
}
