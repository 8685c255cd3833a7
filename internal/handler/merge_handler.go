package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yamakishi/tehai-ops/internal/acrossdb"
	"github.com/yamakishi/tehai-ops/internal/merge"
	"github.com/yamakishi/tehai-ops/internal/service"
)

type MergeHandler struct {
	svc *service.MergeService
}

func NewMergeHandler(svc *service.MergeService) *MergeHandler {
	return &MergeHandler{svc: svc}
}

// Merge POST /api/v1/merge
// 製番を指定して手配リストと発注データを突合し、ユニット単位で置換保存する
func (h *MergeHandler) Merge(c *gin.Context) {
	var req service.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "リクエストが不正です: "+err.Error())
		return
	}

	report, err := h.svc.MergeSeiban(c.Request.Context(), req)
	switch {
	case err == nil:
		Success(c, report)
	case errors.Is(err, acrossdb.ErrUnavailable):
		SourceUnavailable(c, "基幹DBに接続できません: "+err.Error())
	case errors.Is(err, merge.ErrNoRows):
		NotFound(c, err.Error())
	case report != nil && len(report.FailedUnits) > 0:
		// 部分成功。成功したユニットはコミット済みなのでレポートを返す
		c.JSON(207, Response{Code: 20700, Message: err.Error(), Data: report})
	default:
		InternalError(c, "マージに失敗しました: "+err.Error())
	}
}
