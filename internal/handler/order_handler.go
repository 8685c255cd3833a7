package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"github.com/yamakishi/tehai-ops/internal/service"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// List GET /api/v1/orders?seiban=&status=&archived=&keyword=&page=&page_size=
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.OrderListParams{
		Seiban:   c.Query("seiban"),
		Status:   c.Query("status"),
		Archived: c.Query("archived") == "true",
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     pageSize,
	}

	orders, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "ユニット一覧の取得に失敗しました: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: orders,
		Pagination: &Pagination{
			Page: page, PageSize: pageSize,
			Total: int(total), TotalPages: totalPages,
		},
	})
}

// Get GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, order)
}

// Details GET /api/v1/orders/:id/details
func (h *OrderHandler) Details(c *gin.Context) {
	details, err := h.svc.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, ListResponse{Items: details})
}

// ListBySeiban GET /api/v1/seibans/:seiban/orders
func (h *OrderHandler) ListBySeiban(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"
	orders, err := h.svc.ListBySeiban(c.Request.Context(), c.Param("seiban"), includeArchived)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, ListResponse{Items: orders})
}

// SeibanFamily GET /api/v1/seibans/:seiban/family
// 親製番と枝番（MHT0620, MHT0620-001...）をまとめて返す
func (h *OrderHandler) SeibanFamily(c *gin.Context) {
	family, err := h.svc.SeibanFamily(c.Request.Context(), c.Param("seiban"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"seibans": family})
}

// SearchByOrderNumber GET /api/v1/search/by-order-number/:orderNumber
// マージ済み明細の横断検索。どのユニットにもない番号は404。
func (h *OrderHandler) SearchByOrderNumber(c *gin.Context) {
	details, err := h.svc.SearchByOrderNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if len(details) == 0 {
		NotFound(c, fmt.Sprintf("発注番号 %s が見つかりません", c.Param("orderNumber")))
		return
	}
	Success(c, ListResponse{Items: details})
}

// SearchBySpec1 GET /api/v1/search/by-spec1/:spec1?limit=
func (h *OrderHandler) SearchBySpec1(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	details, err := h.svc.SearchBySpec1(c.Request.Context(), c.Param("spec1"), limit)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if len(details) == 0 {
		NotFound(c, fmt.Sprintf("仕様１ %q が見つかりません", c.Param("spec1")))
		return
	}
	Success(c, ListResponse{Items: details})
}

// Update PUT /api/v1/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストが不正です: "+err.Error())
		return
	}
	order, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, order)
}

// Archive POST /api/v1/orders/:id/archive
func (h *OrderHandler) Archive(c *gin.Context) {
	order, err := h.svc.Archive(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		Success(c, order)
	case errors.Is(err, service.ErrOrderNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrNotCompleted):
		Conflict(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// Unarchive POST /api/v1/orders/:id/unarchive
func (h *OrderHandler) Unarchive(c *gin.Context) {
	order, err := h.svc.Unarchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		Conflict(c, err.Error())
		return
	}
	Success(c, order)
}

// Delete DELETE /api/v1/orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"deleted": true})
}

// UploadImage POST /api/v1/orders/:id/image
func (h *OrderHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "画像ファイルを指定してください")
		return
	}
	defer file.Close()

	order, err := h.svc.UploadImage(c.Request.Context(), c.Param("id"), header.Filename, header.Size, file)
	switch {
	case err == nil:
		Success(c, order)
	case errors.Is(err, service.ErrOrderNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrStorageDisabled), errors.Is(err, service.ErrUnsupportedImage):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// ImageURL GET /api/v1/orders/:id/image
func (h *OrderHandler) ImageURL(c *gin.Context) {
	url, err := h.svc.ImageURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"url": url})
}

// EditLogs GET /api/v1/orders/:id/logs?limit=
func (h *OrderHandler) EditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.svc.EditLogs(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, ListResponse{Items: logs})
}
