package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yamakishi/tehai-ops/internal/acrossdb"
	"github.com/yamakishi/tehai-ops/internal/merge"
	"go.uber.org/zap"
)

// deliveryCacheTTL 納入状況の鮮度。当日中の分納反映が遅れても
// 業務上は翌営業日に間に合えばよい。
const deliveryCacheTTL = 8 * time.Hour

type DeliveryService struct {
	across *acrossdb.Client
	rdb    *redis.Client
	logger *zap.Logger
}

func NewDeliveryService(across *acrossdb.Client, rdb *redis.Client, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{across: across, rdb: rdb, logger: logger}
}

// DeliveryStatus 発注番号1件の納入状況
type DeliveryStatus struct {
	OrderNumber string `json:"order_number"`
	LatestDate  string `json:"latest_date"`
	TotalQty    string `json:"total_qty"`
	Found       bool   `json:"found"`
}

func deliveryCacheKey(seiban string) string {
	return "tehai-ops:delivery:" + seiban
}

// BySeiban 製番配下の納入状況マップ。redisキャッシュを先に引き、
// 無ければ仕入ビューから作り直してキャッシュする。
func (s *DeliveryService) BySeiban(ctx context.Context, seiban string) (map[string]merge.DeliveryInfo, error) {
	type cached struct {
		LatestDate string `json:"latest_date"`
		TotalQty   string `json:"total_qty"`
	}

	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, deliveryCacheKey(seiban)).Bytes(); err == nil {
			var stored map[string]cached
			if json.Unmarshal(data, &stored) == nil {
				m := make(map[string]merge.DeliveryInfo, len(stored))
				for orderNumber, c := range stored {
					m[orderNumber] = merge.DeliveryInfo{
						LatestDate: c.LatestDate,
						TotalQty:   merge.ParseDecimal(c.TotalQty),
					}
				}
				return m, nil
			}
		}
	}

	rows, err := s.across.ShiireBySeiban(ctx, seiban)
	if err != nil {
		return nil, fmt.Errorf("仕入データ読み取り失敗 (製番=%s): %w", seiban, err)
	}
	receipts := make([]merge.ReceiptRow, 0, len(rows))
	for _, row := range rows {
		receipts = append(receipts, merge.NormalizeReceiptRow(row))
	}
	m := merge.BuildDeliveryMap(receipts)

	if s.rdb != nil {
		stored := make(map[string]cached, len(m))
		for orderNumber, info := range m {
			stored[orderNumber] = cached{LatestDate: info.LatestDate, TotalQty: info.TotalQty.String()}
		}
		if data, err := json.Marshal(stored); err == nil {
			s.rdb.Set(ctx, deliveryCacheKey(seiban), data, deliveryCacheTTL)
		}
	}
	return m, nil
}

// ByOrderNumber 発注番号1件の納入状況（バーコード照会用・キャッシュなし）
func (s *DeliveryService) ByOrderNumber(ctx context.Context, orderNumber string) (*DeliveryStatus, error) {
	padded := acrossdb.PadOrderNumber(orderNumber)
	set, err := s.across.SearchReceipts(ctx, padded)
	if err != nil {
		return nil, err
	}
	receipts := make([]merge.ReceiptRow, 0, len(set.Rows))
	for _, row := range set.Rows {
		receipts = append(receipts, merge.NormalizeReceiptRow(row))
	}
	m := merge.BuildDeliveryMap(receipts)
	// 仕入行側の発注番号はゼロ埋めが剥がされた正規形で索引される
	info, ok := m[merge.NormalizeOrderNumber(padded)]
	if !ok {
		return &DeliveryStatus{OrderNumber: padded}, nil
	}
	return &DeliveryStatus{
		OrderNumber: padded,
		LatestDate:  info.LatestDate,
		TotalQty:    info.TotalQty.String(),
		Found:       true,
	}, nil
}

// Invalidate マージ直後などにキャッシュを捨てる
func (s *DeliveryService) Invalidate(ctx context.Context, seiban string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, deliveryCacheKey(seiban)).Err(); err != nil {
		s.logger.Warn("納入キャッシュ削除失敗", zap.String("seiban", seiban), zap.Error(err))
	}
}
