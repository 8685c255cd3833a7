package repository

import (
	"context"
	"errors"

	"github.com/yamakishi/tehai-ops/internal/entity"
	"gorm.io/gorm"
)

type DetailRepository struct {
	db *gorm.DB
}

func NewDetailRepository(db *gorm.DB) *DetailRepository {
	return &DetailRepository{db: db}
}

func (r *DetailRepository) FindByID(ctx context.Context, id string) (*entity.OrderDetail, error) {
	var detail entity.OrderDetail
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&detail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &detail, err
}

func (r *DetailRepository) Update(ctx context.Context, detail *entity.OrderDetail) error {
	return r.db.WithContext(ctx).Save(detail).Error
}

func (r *DetailRepository) ListByOrderID(ctx context.Context, orderID string) ([]entity.OrderDetail, error) {
	var details []entity.OrderDetail
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("seq ASC").Find(&details).Error
	return details, err
}

func (r *DetailRepository) CountByOrderID(ctx context.Context, orderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.OrderDetail{}).
		Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

// ListReceivedBySeiban 製番配下の受入済みかつ発注番号付きの明細。
// マージ前のスナップショット作成に使う。
func (r *DetailRepository) ListReceivedBySeiban(ctx context.Context, seiban string) ([]entity.OrderDetail, error) {
	var details []entity.OrderDetail
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_details.order_id").
		Where("orders.seiban = ? AND order_details.is_received = true AND order_details.order_number <> ''", seiban).
		Find(&details).Error
	return details, err
}

// FindByOrderNumber 発注番号で明細を検索する（バーコード受入用）
func (r *DetailRepository) FindByOrderNumber(ctx context.Context, orderNumber string) ([]entity.OrderDetail, error) {
	var details []entity.OrderDetail
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_details.order_id").
		Where("order_details.order_number = ? AND orders.is_archived = false", orderNumber).
		Find(&details).Error
	return details, err
}

// FindBySpec1 仕様１の部分一致検索
func (r *DetailRepository) FindBySpec1(ctx context.Context, spec1 string, limit int) ([]entity.OrderDetail, error) {
	if limit <= 0 {
		limit = 100
	}
	var details []entity.OrderDetail
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_details.order_id").
		Where("order_details.spec1 ILIKE ? AND orders.is_archived = false", "%"+spec1+"%").
		Limit(limit).Find(&details).Error
	return details, err
}
