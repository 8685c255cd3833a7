package handler

import (
	"errors"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/yamakishi/tehai-ops/internal/service"
)

type ExportHandler struct {
	svc *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// attachmentHeader 日本語ファイル名はRFC 5987形式でエンコードする
func attachmentHeader(c *gin.Context, filename string) {
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Header("Content-Transfer-Encoding", "binary")
}

// PickupList GET /api/v1/orders/:id/export
func (h *ExportHandler) PickupList(c *gin.Context) {
	f, filename, err := h.svc.PickupList(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", xlsxContentType)
	attachmentHeader(c, filename)
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// SeibanWorkbook GET /api/v1/seibans/:seiban/export
func (h *ExportHandler) SeibanWorkbook(c *gin.Context) {
	f, filename, err := h.svc.SeibanWorkbook(c.Request.Context(), c.Param("seiban"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", xlsxContentType)
	attachmentHeader(c, filename)
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// Labels GET /api/v1/orders/:id/labels
// ラベルプリンタ向けShift_JIS CSV
func (h *ExportHandler) Labels(c *gin.Context) {
	data, filename, err := h.svc.LabelCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}

	attachmentHeader(c, filename)
	c.Data(200, "text/csv; charset=Shift_JIS", data)
}
