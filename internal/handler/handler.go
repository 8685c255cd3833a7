package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yamakishi/tehai-ops/internal/service"
)

// Handlers 処理ハンドラ集合
type Handlers struct {
	Merge     *MergeHandler
	Order     *OrderHandler
	Receiving *ReceivingHandler
	Export    *ExportHandler
	Across    *AcrossHandler
}

func NewHandlers(svc *service.Services, across AcrossQuerier) *Handlers {
	return &Handlers{
		Merge:     NewMergeHandler(svc.Merge),
		Order:     NewOrderHandler(svc.Order),
		Receiving: NewReceivingHandler(svc.Receiving, svc.Delivery),
		Export:    NewExportHandler(svc.Export),
		Across:    NewAcrossHandler(across, svc.Merge, svc.Delivery),
	}
}

// Response 共通レスポンス
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 一覧レスポンス
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// SourceUnavailable 基幹DBに届かない時の応答。リトライ前提の503。
func SourceUnavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// GetPagination ページングパラメータ取得
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 50

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 200 {
			pageSize = v
		}
	}
	return page, pageSize
}
