package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrDetailNotFound  = errors.New("明細が見つかりません")
	ErrAlreadyReceived = errors.New("既に受入済みです")
	ErrInvalidQuantity = errors.New("受入数量が不正です")
	ErrNoOrderNumber   = errors.New("発注番号のない明細です")
)

type ReceivingService struct {
	detailRepo  *repository.DetailRepository
	historyRepo *repository.HistoryRepository
	db          *gorm.DB
	logger      *zap.Logger
}

func NewReceivingService(repos *repository.Repositories, db *gorm.DB, logger *zap.Logger) *ReceivingService {
	return &ReceivingService{
		detailRepo:  repos.Detail,
		historyRepo: repos.History,
		db:          db,
		logger:      logger,
	}
}

// ToggleResult 受入操作後の明細と親ユニットのステータス
type ToggleResult struct {
	Detail *entity.OrderDetail `json:"detail"`
	Status string              `json:"status"`
}

// ToggleReceive 受入フラグの反転。明細更新・受入履歴・ステータス再計算を
// 1トランザクションで行う。actorは操作元のクライアントIP。
func (s *ReceivingService) ToggleReceive(ctx context.Context, detailID, actor string) (*ToggleResult, error) {
	var result ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		detail, err := findDetailForUpdate(tx, detailID)
		if err != nil {
			return err
		}

		if detail.IsReceived {
			detail.IsReceived = false
			detail.ReceivedAt = nil
			detail.ReceivedQuantity = nil
			if detail.OrderNumber != "" {
				if err := s.historyRepo.RecordCancel(ctx, tx, detail.OrderNumber, detail.ItemName, detail.Spec1, detail.Quantity, actor); err != nil {
					return err
				}
			}
		} else {
			now := time.Now()
			detail.IsReceived = true
			detail.ReceivedAt = &now
			if detail.OrderNumber != "" {
				if err := s.historyRepo.RecordReceive(ctx, tx, detail.OrderNumber, detail.ItemName, detail.Spec1, detail.Quantity, actor, nil); err != nil {
					return err
				}
			}
		}

		if err := tx.Save(detail).Error; err != nil {
			return err
		}
		action := "receive"
		if !detail.IsReceived {
			action = "unreceive"
		}
		if err := s.historyRepo.CreateEditLog(ctx, tx, &entity.EditLog{
			ID:         uuid.New().String(),
			TargetID:   detail.ID,
			TargetType: "detail",
			Action:     action,
			IPAddress:  actor,
		}); err != nil {
			return err
		}
		status, err := recomputeStatus(tx, detail.OrderID)
		if err != nil {
			return err
		}
		result.Detail = detail
		result.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("受入フラグ切替",
		zap.String("detail_id", detailID),
		zap.Bool("is_received", result.Detail.IsReceived),
		zap.String("actor", actor))
	return &result, nil
}

// ReceiveWithQuantity 数量指定の受入。発注数と異なる数量での受入を記録する。
func (s *ReceivingService) ReceiveWithQuantity(ctx context.Context, detailID string, quantity int, actor string) (*ToggleResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	var result ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		detail, err := findDetailForUpdate(tx, detailID)
		if err != nil {
			return err
		}
		if detail.IsReceived {
			return ErrAlreadyReceived
		}

		now := time.Now()
		detail.IsReceived = true
		detail.ReceivedAt = &now
		detail.ReceivedQuantity = &quantity
		detail.Remarks = annotateQuantityGap(detail.Remarks, detail.Quantity, quantity)
		if detail.OrderNumber != "" {
			if err := s.historyRepo.RecordReceive(ctx, tx, detail.OrderNumber, detail.ItemName, detail.Spec1, detail.Quantity, actor, &quantity); err != nil {
				return err
			}
		}

		if err := tx.Save(detail).Error; err != nil {
			return err
		}
		status, err := recomputeStatus(tx, detail.OrderID)
		if err != nil {
			return err
		}
		result.Detail = detail
		result.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("数量指定受入",
		zap.String("detail_id", detailID),
		zap.Int("quantity", quantity),
		zap.String("actor", actor))
	return &result, nil
}

// ScanResult バーコード受入のレスポンス。該当明細が複数ユニットに
// またがる場合はすべて受入済みにする。
type ScanResult struct {
	OrderNumber string               `json:"order_number"`
	Received    []entity.OrderDetail `json:"received"`
	Skipped     int                  `json:"skipped"` // 既に受入済みだった件数
}

// ReceiveByOrderNumber 発注番号（バーコード）での一括受入。
// 発注番号はゼロ埋めを剥がした正規形（明細の保存形）を受け取る前提。
func (s *ReceivingService) ReceiveByOrderNumber(ctx context.Context, orderNumber, actor string) (*ScanResult, error) {
	if orderNumber == "" {
		return nil, ErrNoOrderNumber
	}
	result := &ScanResult{OrderNumber: orderNumber}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var details []entity.OrderDetail
		if err := tx.Where("order_number = ?", orderNumber).Find(&details).Error; err != nil {
			return err
		}
		if len(details) == 0 {
			return fmt.Errorf("発注番号 %s: %w", orderNumber, ErrDetailNotFound)
		}

		now := time.Now()
		touched := make(map[string]bool)
		for i := range details {
			d := &details[i]
			if d.IsReceived {
				result.Skipped++
				continue
			}
			d.IsReceived = true
			d.ReceivedAt = &now
			if err := s.historyRepo.RecordReceive(ctx, tx, d.OrderNumber, d.ItemName, d.Spec1, d.Quantity, actor, nil); err != nil {
				return err
			}
			if err := tx.Save(d).Error; err != nil {
				return err
			}
			touched[d.OrderID] = true
			result.Received = append(result.Received, *d)
		}
		for orderID := range touched {
			if _, err := recomputeStatus(tx, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("バーコード受入",
		zap.String("order_number", orderNumber),
		zap.Int("received", len(result.Received)),
		zap.Int("skipped", result.Skipped),
		zap.String("actor", actor))
	return result, nil
}

var quantityGapNotePattern = regexp.MustCompile(`【(不足|超過)：\d+個】\s*`)

// annotateQuantityGap 受入数量が発注数と異なるとき、過不足を備考の先頭に記録する。
// 既存の過不足メモは置き換え、過不足が解消したら取り除く。発注数未設定の行は触らない。
func annotateQuantityGap(remarks string, ordered, received int) string {
	if ordered <= 0 {
		return remarks
	}
	base := strings.TrimSpace(quantityGapNotePattern.ReplaceAllString(remarks, ""))
	diff := ordered - received
	var note string
	switch {
	case diff > 0:
		note = fmt.Sprintf("【不足：%d個】", diff)
	case diff < 0:
		note = fmt.Sprintf("【超過：%d個】", -diff)
	default:
		return base
	}
	if base == "" {
		return note
	}
	return note + " " + base
}

func findDetailForUpdate(tx *gorm.DB, detailID string) (*entity.OrderDetail, error) {
	var detail entity.OrderDetail
	if err := tx.First(&detail, "id = ?", detailID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDetailNotFound
		}
		return nil, err
	}
	return &detail, nil
}

// recomputeStatus 明細の受入フラグからユニットのステータスを再計算して保存する
func recomputeStatus(tx *gorm.DB, orderID string) (string, error) {
	var details []entity.OrderDetail
	if err := tx.Where("order_id = ?", orderID).Find(&details).Error; err != nil {
		return "", err
	}
	status := entity.DeriveStatus(details)
	if err := tx.Model(&entity.Order{}).Where("id = ?", orderID).
		Update("status", status).Error; err != nil {
		return "", err
	}
	return status, nil
}
