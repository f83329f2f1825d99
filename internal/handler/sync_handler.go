package handler

import (
	"errors"
	"net/http"

	"github.com/blues/tss/internal/ethereum"
	"github.com/blues/tss/internal/logic"
	"github.com/blues/tss/internal/sync"
	"github.com/gin-gonic/gin"
)

// SyncHandler 手动同步触发处理器
type SyncHandler struct {
	synchronizer *sync.Synchronizer
	events       *logic.EventLogic
}

// NewSyncHandler 创建手动同步触发处理器
func NewSyncHandler(synchronizer *sync.Synchronizer, events *logic.EventLogic) *SyncHandler {
	return &SyncHandler{synchronizer: synchronizer, events: events}
}

// TriggerSync 手动触发一次同步轮次
//
// 已有轮次在执行时返回409（触发被拒绝而不是排队），RPC不可用返回502。
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	result, err := h.synchronizer.RunSync(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrSyncBusy):
			ErrorResponse(c, http.StatusConflict, err.Error())
		case errors.Is(err, ethereum.ErrRpcUnavailable):
			ErrorResponse(c, http.StatusBadGateway, err.Error())
		default:
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	SuccessResponse(c, http.StatusOK, "sync completed", result)
}

// GetSyncStatus 获取同步器状态：游标位置与丢弃日志计数
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	state, err := h.events.GetCursor()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lastSyncedBlock": state.LastSyncedBlock,
		"droppedLogs":     h.synchronizer.Dropped(),
	})
}
