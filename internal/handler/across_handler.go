package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yamakishi/tehai-ops/internal/acrossdb"
	"github.com/yamakishi/tehai-ops/internal/service"
)

// AcrossQuerier 基幹DB照会の読み取り口
type AcrossQuerier interface {
	Ping(ctx context.Context) error
	QueryView(ctx context.Context, view, whereClause string, limit int, args ...any) (*acrossdb.RowSet, error)
	SearchOrder(ctx context.Context, orderNumber string) (*acrossdb.RowSet, error)
	SearchOrderRemaining(ctx context.Context, orderNumber string) (*acrossdb.RowSet, error)
	SearchReceipts(ctx context.Context, orderNumber string) (*acrossdb.RowSet, error)
}

type AcrossHandler struct {
	across   AcrossQuerier
	merge    *service.MergeService
	delivery *service.DeliveryService
}

func NewAcrossHandler(across AcrossQuerier, mergeSvc *service.MergeService, delivery *service.DeliveryService) *AcrossHandler {
	return &AcrossHandler{across: across, merge: mergeSvc, delivery: delivery}
}

// Status GET /api/v1/across/status
func (h *AcrossHandler) Status(c *gin.Context) {
	if err := h.across.Ping(c.Request.Context()); err != nil {
		SourceUnavailable(c, "基幹DBに接続できません: "+err.Error())
		return
	}
	Success(c, gin.H{"status": "ok", "views": acrossdb.AvailableViews()})
}

// CheckUpdates GET /api/v1/across/check-updates
// 前回スナップショットとの差分（件数・製番単位）を返す
func (h *AcrossHandler) CheckUpdates(c *gin.Context) {
	report, snapshot, err := h.merge.CheckUpdates(c.Request.Context())
	if err != nil {
		if errors.Is(err, acrossdb.ErrUnavailable) {
			SourceUnavailable(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"changes": report, "snapshot": snapshot})
}

// OrderLookup GET /api/v1/across/order/:orderNumber
// 発注・発注残・仕入をまとめて照会（バーコード運用の事前確認）
func (h *AcrossHandler) OrderLookup(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	ctx := c.Request.Context()

	order, err := h.across.SearchOrder(ctx, orderNumber)
	if err != nil {
		SourceUnavailable(c, err.Error())
		return
	}
	remaining, err := h.across.SearchOrderRemaining(ctx, orderNumber)
	if err != nil {
		SourceUnavailable(c, err.Error())
		return
	}
	receipts, err := h.across.SearchReceipts(ctx, orderNumber)
	if err != nil {
		SourceUnavailable(c, err.Error())
		return
	}
	Success(c, gin.H{
		"order_number": acrossdb.PadOrderNumber(orderNumber),
		"order":        order.Rows,
		"remaining":    remaining.Rows,
		"receipts":     receipts.Rows,
	})
}

type acrossQueryRequest struct {
	View  string `json:"view" binding:"required"`
	Where string `json:"where"`
	Limit int    `json:"limit"`
	Args  []any  `json:"args"`
}

// Query POST /api/v1/across/query
// ホワイトリストされたビューへのアドホック照会
func (h *AcrossHandler) Query(c *gin.Context) {
	var req acrossQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストが不正です: "+err.Error())
		return
	}

	set, err := h.across.QueryView(c.Request.Context(), req.View, req.Where, req.Limit, req.Args...)
	if err != nil {
		if errors.Is(err, acrossdb.ErrUnavailable) {
			SourceUnavailable(c, err.Error())
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, gin.H{
		"columns": set.Columns,
		"rows":    set.Rows,
		"count":   len(set.Rows),
	})
}
