package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/merge"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RowSource マージ入力の行ソース。Across DBビューでもスプレッドシート由来でも、
// この契約を満たせばマージ本体は同じ（二重実装の統合）。
type RowSource interface {
	TehaiBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error)
	HacchuBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error)
	ShiireBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error)
	MihatchuBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error)
}

// SnapshotStore DB状態スナップショットの保存先（変更検知用の前回値）
type SnapshotStore interface {
	Status(ctx context.Context) (merge.Snapshot, error)
}

type MergeService struct {
	source      RowSource
	status      SnapshotStore
	orderRepo   *repository.OrderRepository
	detailRepo  *repository.DetailRepository
	historyRepo *repository.HistoryRepository
	db          *gorm.DB
	rdb         *redis.Client
	logger      *zap.Logger

	// 同一製番のマージ直列化。異なる製番は並行して良い。
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMergeService(
	source RowSource,
	status SnapshotStore,
	repos *repository.Repositories,
	db *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) *MergeService {
	return &MergeService{
		source:      source,
		status:      status,
		orderRepo:   repos.Order,
		detailRepo:  repos.Detail,
		historyRepo: repos.History,
		db:          db,
		rdb:         rdb,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *MergeService) seibanLock(seiban string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[seiban]; !ok {
		s.locks[seiban] = &sync.Mutex{}
	}
	return s.locks[seiban]
}

type MergeRequest struct {
	Seiban           string `json:"seiban" binding:"required"`
	OrderDateFrom    string `json:"order_date_from"` // YYYY-MM-DD
	OrderDateTo      string `json:"order_date_to"`
	IncludeUnordered bool   `json:"include_unordered"`

	// 製番一覧表由来のメタ情報（任意）
	ProductName  string `json:"product_name"`
	CustomerAbbr string `json:"customer_abbr"`
	Memo         string `json:"memo"`
}

// UnitChange マージ前後のユニット単位の変化
type UnitChange struct {
	Unit        string `json:"unit"`
	BeforeCount int    `json:"before_count,omitempty"`
	AfterCount  int    `json:"after_count"`
	Diff        int    `json:"diff,omitempty"`
}

// MergeReport マージAPIのレスポンス
type MergeReport struct {
	Seiban         string       `json:"seiban"`
	Stats          merge.Stats  `json:"stats"`
	AddedUnits     []UnitChange `json:"added_units"`
	UpdatedUnits   []UnitChange `json:"updated_units"`
	UnchangedUnits []string     `json:"unchanged_units"`
	FailedUnits    []string     `json:"failed_units,omitempty"`
	Message        string       `json:"message"`
}

// MergeSeiban 1製番のマージを実行して置換セットを永続化する。
// 同一製番の並行実行はミューテックスで直列化され、後勝ちになる。
// ユニットごとに独立したトランザクションで置換するため、
// あるユニットの書き込み失敗は他ユニットの成功を巻き戻さない。
func (s *MergeService) MergeSeiban(ctx context.Context, req MergeRequest) (*MergeReport, error) {
	lock := s.seibanLock(req.Seiban)
	lock.Lock()
	defer lock.Unlock()

	// ソース読み取り。ここで失敗したら何も書かずに終わる（SourceUnavailable）。
	bomRows, err := s.source.TehaiBySeiban(ctx, req.Seiban)
	if err != nil {
		return nil, fmt.Errorf("手配リスト読み取り失敗 (製番=%s): %w", req.Seiban, err)
	}
	orderRows, err := s.source.HacchuBySeiban(ctx, req.Seiban)
	if err != nil {
		return nil, fmt.Errorf("発注データ読み取り失敗 (製番=%s): %w", req.Seiban, err)
	}
	receiptRows, err := s.source.ShiireBySeiban(ctx, req.Seiban)
	if err != nil {
		return nil, fmt.Errorf("仕入データ読み取り失敗 (製番=%s): %w", req.Seiban, err)
	}

	var extraRows []merge.RawRow
	if req.IncludeUnordered {
		extraRows, err = s.source.MihatchuBySeiban(ctx, req.Seiban)
		if err != nil {
			return nil, fmt.Errorf("未発注データ読み取り失敗 (製番=%s): %w", req.Seiban, err)
		}
	}

	// 受入スナップショット（同一製番の既存受入済み明細）
	snapshot := merge.NewReceiptSnapshot()
	received, err := s.detailRepo.ListReceivedBySeiban(ctx, req.Seiban)
	if err != nil {
		return nil, fmt.Errorf("受入スナップショット作成失敗: %w", err)
	}
	for i := range received {
		d := &received[i]
		snapshot.Add(d.OrderNumber, merge.ReceivedItem{
			ItemName:         d.ItemName,
			Spec1:            d.Spec1,
			Quantity:         d.Quantity,
			ReceivedAt:       d.ReceivedAt,
			ReceivedQuantity: d.ReceivedQuantity,
		})
	}

	// マージ前のユニット状態（変更レポート用）
	before, err := s.unitCounts(ctx, req.Seiban)
	if err != nil {
		return nil, err
	}

	in := merge.Input{
		Seiban:       req.Seiban,
		BOMRows:      bomRows,
		OrderRows:    orderRows,
		ReceiptRows:  receiptRows,
		ExtraBOMRows: extraRows,
		IncludeExtra: req.IncludeUnordered,
		Snapshot:     snapshot,
		Ledger:       s.historyRepo,
		Logger:       s.logger,
	}
	if t := parseDateParam(req.OrderDateFrom); t != nil {
		in.OrderDateFrom = t
	}
	if t := parseDateParam(req.OrderDateTo); t != nil {
		in.OrderDateTo = t
	}

	result, err := merge.Run(in)
	if err != nil {
		if errors.Is(err, merge.ErrNoRows) {
			return nil, fmt.Errorf("製番 %s のデータが見つかりません: %w", req.Seiban, err)
		}
		return nil, err
	}

	// ユニットごとに置換セットを書き込む
	report := &MergeReport{Seiban: req.Seiban, Stats: result.Stats}
	for _, unit := range result.Units {
		if err := s.persistUnit(ctx, req, unit); err != nil {
			s.logger.Error("ユニット書き込み失敗",
				zap.String("seiban", req.Seiban),
				zap.String("unit", unit.Name),
				zap.Error(err))
			report.FailedUnits = append(report.FailedUnits, unit.Name)
		}
	}

	after, err := s.unitCounts(ctx, req.Seiban)
	if err != nil {
		return nil, err
	}
	buildChangeReport(report, before, after)

	report.Message = fmt.Sprintf("%s の更新完了 / 新規ユニット: %d件 / 更新ユニット: %d件 / 合計: %d件",
		req.Seiban, len(report.AddedUnits), len(report.UpdatedUnits), result.Stats.BOMRows)

	if len(report.FailedUnits) > 0 {
		return report, fmt.Errorf("一部ユニットの書き込みに失敗: %v", report.FailedUnits)
	}
	return report, nil
}

// persistUnit 1ユニットの置換セットを単一トランザクションで書き込む。
// 削除→再挿入の間の中途半端な状態は外から見えない。
// Orderのメタ情報（品名・客先・メモ）は更新するが、
// 備考・置場・パレット・画像・ステータスはユーザ操作でしか変わらないので触らない。
func (s *MergeService) persistUnit(ctx context.Context, req MergeRequest, unit merge.Unit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order entity.Order
		err := tx.Where("seiban = ? AND unit = ? AND is_archived = false", req.Seiban, unit.Name).
			First(&order).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			order = entity.Order{
				ID:           uuid.New().String(),
				Seiban:       req.Seiban,
				Unit:         unit.Name,
				ProductName:  req.ProductName,
				CustomerAbbr: req.CustomerAbbr,
				Memo:         req.Memo,
				Status:       entity.StatusBeforeReceipt,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			s.logger.Info("新規ユニット作成",
				zap.String("seiban", req.Seiban), zap.String("unit", unit.Name))
		case err != nil:
			return err
		default:
			order.ProductName = req.ProductName
			order.CustomerAbbr = req.CustomerAbbr
			order.Memo = req.Memo
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&entity.OrderDetail{}).Error; err != nil {
			return err
		}

		details := make([]entity.OrderDetail, 0, len(unit.Details))
		ids := make(map[*merge.Detail]string, len(unit.Details))
		for _, d := range unit.Details {
			ids[d] = uuid.New().String()
		}
		for seq, d := range unit.Details {
			row := toEntityDetail(d, order.ID, ids[d], seq)
			if d.Parent != nil {
				parentID := ids[d.Parent]
				row.ParentID = &parentID
			}
			details = append(details, row)
		}
		if len(details) > 0 {
			if err := tx.CreateInBatches(&details, 200).Error; err != nil {
				return err
			}
		}

		order.Status = entity.DeriveStatus(details)
		return tx.Save(&order).Error
	})
}

func toEntityDetail(d *merge.Detail, orderID, id string, seq int) entity.OrderDetail {
	qty, _ := d.DeliveredQty.Float64()
	return entity.OrderDetail{
		ID:                    id,
		OrderID:               orderID,
		Seq:                   seq,
		DeliveryDate:          d.DeliveryDate,
		Supplier:              d.Supplier,
		SupplierCd:            d.SupplierCd,
		OrderNumber:           d.OrderNumber,
		Quantity:              d.Quantity,
		UnitMeasure:           d.UnitMeasure,
		ItemName:              d.ItemName,
		Spec1:                 d.Spec1,
		Spec2:                 d.Spec2,
		ItemCode:              d.ItemCode,
		TypeCode:              d.TypeCode,
		TypeLabel:             d.TypeLabel,
		Maker:                 d.Maker,
		Remarks:               d.Remarks,
		MemberCount:           d.MemberCount,
		RequiredCount:         d.RequiredCount,
		Seiban:                d.Seiban,
		Material:              d.Material,
		IsReceived:            d.IsReceived,
		ReceivedAt:            d.ReceivedAt,
		ReceivedQuantity:      d.ReceivedQuantity,
		HasInternalProcessing: d.HasInternalProcessing,
		PartNumber:            d.PartNumber,
		PageNumber:            d.PageNumber,
		RowNumber:             d.RowNumber,
		Hierarchy:             d.Hierarchy,
		ReplyDeliveryDate:     d.ReplyDeliveryDate,
		DeliveredDate:         d.DeliveredDate,
		DeliveredQty:          qty,
	}
}

func (s *MergeService) unitCounts(ctx context.Context, seiban string) (map[string]int, error) {
	orders, err := s.orderRepo.ListBySeiban(ctx, seiban, false)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(orders))
	for _, o := range orders {
		n, err := s.detailRepo.CountByOrderID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		counts[o.Unit] = int(n)
	}
	return counts, nil
}

func buildChangeReport(report *MergeReport, before, after map[string]int) {
	for unit, afterCount := range after {
		beforeCount, existed := before[unit]
		switch {
		case !existed:
			report.AddedUnits = append(report.AddedUnits, UnitChange{Unit: unit, AfterCount: afterCount})
		case beforeCount != afterCount:
			report.UpdatedUnits = append(report.UpdatedUnits, UnitChange{
				Unit: unit, BeforeCount: beforeCount, AfterCount: afterCount, Diff: afterCount - beforeCount,
			})
		default:
			report.UnchangedUnits = append(report.UnchangedUnits, unit)
		}
	}
}

const snapshotKey = "tehai-ops:across:snapshot"

// CheckUpdates ソースDBの変更検知。前回スナップショットはredisに保存し、
// 差分計算自体は純関数 merge.Diff に任せる。
func (s *MergeService) CheckUpdates(ctx context.Context) (*merge.ChangeReport, merge.Snapshot, error) {
	cur, err := s.status.Status(ctx)
	if err != nil {
		return nil, cur, err
	}

	var prev merge.Snapshot
	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, snapshotKey).Bytes(); err == nil {
			_ = json.Unmarshal(data, &prev)
		}
		if data, err := json.Marshal(cur); err == nil {
			s.rdb.Set(ctx, snapshotKey, data, 24*time.Hour)
		}
	}

	report := merge.Diff(prev, cur)
	return &report, cur, nil
}

func parseDateParam(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
