package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/merge"
	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) find(db *gorm.DB, orderNumber, itemName, spec1 string, quantity int) (*entity.ReceivedHistory, error) {
	var history entity.ReceivedHistory
	err := db.
		Where("order_number = ? AND item_name = ? AND spec1 = ? AND quantity = ?",
			orderNumber, itemName, spec1, quantity).
		First(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// RecordReceive 受入イベントを記録する。複合キーでの upsert。
// receivedQuantity がnilなら全数受入とみなして手配数を記録する。
func (r *HistoryRepository) RecordReceive(ctx context.Context, tx *gorm.DB, orderNumber, itemName, spec1 string, quantity int, clientIP string, receivedQuantity *int) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	now := time.Now().UTC()
	qty := quantity
	if receivedQuantity != nil {
		qty = *receivedQuantity
	}

	existing, err := r.find(tx, orderNumber, itemName, spec1, quantity)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.IsReceived = true
		existing.ReceivedAt = &now
		existing.ReceivedBy = clientIP
		existing.ReceivedQuantity = &qty
		existing.CancelledAt = nil
		existing.CancelledBy = ""
		return tx.Save(existing).Error
	}

	history := &entity.ReceivedHistory{
		OrderNumber:      orderNumber,
		ItemName:         itemName,
		Spec1:            spec1,
		Quantity:         quantity,
		ReceivedQuantity: &qty,
		IsReceived:       true,
		ReceivedAt:       &now,
		ReceivedBy:       clientIP,
	}
	return tx.Create(history).Error
}

// RecordCancel 受入取消を記録する。既存レコードが無ければ何もしない。
func (r *HistoryRepository) RecordCancel(ctx context.Context, tx *gorm.DB, orderNumber, itemName, spec1 string, quantity int, clientIP string) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	existing, err := r.find(tx, orderNumber, itemName, spec1, quantity)
	if err != nil || existing == nil {
		return err
	}
	now := time.Now().UTC()
	existing.IsReceived = false
	existing.CancelledAt = &now
	existing.CancelledBy = clientIP
	return tx.Save(existing).Error
}

// ReceivedInfo merge.HistoryLedger の実装。受入済み(is_received=true)の履歴だけを返す。
func (r *HistoryRepository) ReceivedInfo(orderNumber, itemName, spec1 string, quantity int) (*merge.ReceivedItem, error) {
	history, err := r.find(r.db, orderNumber, itemName, spec1, quantity)
	if err != nil || history == nil {
		return nil, err
	}
	if !history.IsReceived {
		return nil, nil
	}
	return &merge.ReceivedItem{
		ItemName:         history.ItemName,
		Spec1:            history.Spec1,
		Quantity:         history.Quantity,
		ReceivedAt:       history.ReceivedAt,
		ReceivedQuantity: history.ReceivedQuantity,
	}, nil
}

// --- Edit log ---

func (r *HistoryRepository) CreateEditLog(ctx context.Context, tx *gorm.DB, log *entity.EditLog) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	return tx.Create(log).Error
}

func (r *HistoryRepository) ListEditLogs(ctx context.Context, targetID string, limit int) ([]entity.EditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []entity.EditLog
	err := r.db.WithContext(ctx).Where("target_id = ?", targetID).
		Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
