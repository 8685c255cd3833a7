package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yamakishi/tehai-ops/internal/acrossdb"
	"github.com/yamakishi/tehai-ops/internal/merge"
	"github.com/yamakishi/tehai-ops/internal/service"
)

type ReceivingHandler struct {
	svc      *service.ReceivingService
	delivery *service.DeliveryService
}

func NewReceivingHandler(svc *service.ReceivingService, delivery *service.DeliveryService) *ReceivingHandler {
	return &ReceivingHandler{svc: svc, delivery: delivery}
}

// Toggle POST /api/v1/details/:id/toggle-receive
func (h *ReceivingHandler) Toggle(c *gin.Context) {
	result, err := h.svc.ToggleReceive(c.Request.Context(), c.Param("id"), c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrDetailNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, result)
}

type receiveQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// ReceiveWithQuantity POST /api/v1/details/:id/receive-with-quantity
// 発注数と異なる数量での受入（分納・過不足）
func (h *ReceivingHandler) ReceiveWithQuantity(c *gin.Context) {
	var req receiveQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "数量を指定してください: "+err.Error())
		return
	}
	result, err := h.svc.ReceiveWithQuantity(c.Request.Context(), c.Param("id"), req.Quantity, c.ClientIP())
	switch {
	case err == nil:
		Success(c, result)
	case errors.Is(err, service.ErrDetailNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrAlreadyReceived), errors.Is(err, service.ErrInvalidQuantity):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// ReceiveByOrderNumber POST /api/v1/receive-by-order-number
// バーコードスキャン運用。バーコードの8桁ゼロ埋めを剥がして
// マージが保存する正規形の発注番号に合わせる。
func (h *ReceivingHandler) ReceiveByOrderNumber(c *gin.Context) {
	var req struct {
		OrderNumber string `json:"order_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "発注番号を指定してください: "+err.Error())
		return
	}

	orderNumber := merge.NormalizeOrderNumber(req.OrderNumber)
	result, err := h.svc.ReceiveByOrderNumber(c.Request.Context(), orderNumber, c.ClientIP())
	switch {
	case err == nil:
		Success(c, result)
	case errors.Is(err, service.ErrDetailNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrNoOrderNumber):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// DeliveryBySeiban GET /api/v1/seibans/:seiban/delivery
// 発注番号ごとの納入状況（仕入ビュー由来・キャッシュあり）
func (h *ReceivingHandler) DeliveryBySeiban(c *gin.Context) {
	m, err := h.delivery.BySeiban(c.Request.Context(), c.Param("seiban"))
	if err != nil {
		if errors.Is(err, acrossdb.ErrUnavailable) {
			SourceUnavailable(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}

	items := make(map[string]gin.H, len(m))
	for orderNumber, info := range m {
		items[orderNumber] = gin.H{
			"latest_date": info.LatestDate,
			"total_qty":   info.TotalQty.String(),
		}
	}
	Success(c, items)
}
