package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/merge"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound    = errors.New("ユニットが見つかりません")
	ErrNotCompleted     = errors.New("納品完了前のユニットはアーカイブできません")
	ErrStorageDisabled  = errors.New("画像ストレージが構成されていません")
	ErrUnsupportedImage = errors.New("対応していない画像形式です")
)

type OrderService struct {
	orderRepo   *repository.OrderRepository
	detailRepo  *repository.DetailRepository
	historyRepo *repository.HistoryRepository
	db          *gorm.DB
	storage     *minio.Client
	bucket      string
	logger      *zap.Logger
}

func NewOrderService(repos *repository.Repositories, db *gorm.DB, storage *minio.Client, bucket string, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:   repos.Order,
		detailRepo:  repos.Detail,
		historyRepo: repos.History,
		db:          db,
		storage:     storage,
		bucket:      bucket,
		logger:      logger,
	}
}

// OrderView 明細つきユニット。明細は表示順で、子は親の直後に並ぶ。
type OrderView struct {
	entity.Order
	DetailCount   int `json:"detail_count"`
	ReceivedCount int `json:"received_count"`
}

func (s *OrderService) List(ctx context.Context, params repository.OrderListParams) ([]OrderView, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		details, err := s.detailRepo.ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, 0, err
		}
		received := 0
		for _, d := range details {
			if d.IsReceived {
				received++
			}
		}
		o.Details = details
		views = append(views, OrderView{Order: o, DetailCount: len(details), ReceivedCount: received})
	}
	return views, total, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*OrderView, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	details, err := s.detailRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	received := 0
	for _, d := range details {
		if d.IsReceived {
			received++
		}
	}
	order.Details = details
	return &OrderView{Order: *order, DetailCount: len(details), ReceivedCount: received}, nil
}

// ListBySeiban 製番配下の全ユニット（ユニット名順）
func (s *OrderService) ListBySeiban(ctx context.Context, seiban string, includeArchived bool) ([]OrderView, error) {
	orders, err := s.orderRepo.ListBySeiban(ctx, seiban, includeArchived)
	if err != nil {
		return nil, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		details, err := s.detailRepo.ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		received := 0
		for _, d := range details {
			if d.IsReceived {
				received++
			}
		}
		o.Details = details
		views = append(views, OrderView{Order: o, DetailCount: len(details), ReceivedCount: received})
	}
	return views, nil
}

// Details ユニットの明細一覧（表示順）
func (s *OrderService) Details(ctx context.Context, id string) ([]entity.OrderDetail, error) {
	if _, err := s.orderRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.detailRepo.ListByOrderID(ctx, id)
}

// SearchByOrderNumber 発注番号でマージ済み明細を横断検索する（現役ユニットのみ）。
// バーコード由来のゼロ埋め・浮動小数点表記はここで剥がす。
func (s *OrderService) SearchByOrderNumber(ctx context.Context, orderNumber string) ([]entity.OrderDetail, error) {
	normalized := merge.NormalizeOrderNumber(orderNumber)
	if normalized == "" {
		return nil, nil
	}
	return s.detailRepo.FindByOrderNumber(ctx, normalized)
}

// SearchBySpec1 仕様１の部分一致でマージ済み明細を横断検索する
func (s *OrderService) SearchBySpec1(ctx context.Context, spec1 string, limit int) ([]entity.OrderDetail, error) {
	return s.detailRepo.FindBySpec1(ctx, spec1, limit)
}

// UpdateRequest ユーザが編集できるフィールドだけを受け付ける。
// ステータス・受入系・明細本体はマージと受入操作でしか変わらない。
type UpdateRequest struct {
	Floor        *string `json:"floor"`
	PalletNumber *string `json:"pallet_number"`
	Location     *string `json:"location"`
	Remarks      *string `json:"remarks"`
	Memo         *string `json:"memo"`
}

func (s *OrderService) Update(ctx context.Context, id string, req UpdateRequest, actor string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	changes := make([]string, 0, 5)
	apply := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			changes = append(changes, fmt.Sprintf("%s: %q → %q", field, *dst, *src))
			*dst = *src
		}
	}
	apply("floor", &order.Floor, req.Floor)
	apply("pallet_number", &order.PalletNumber, req.PalletNumber)
	apply("location", &order.Location, req.Location)
	apply("remarks", &order.Remarks, req.Remarks)
	apply("memo", &order.Memo, req.Memo)

	if len(changes) == 0 {
		return order, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		return s.historyRepo.CreateEditLog(ctx, tx, &entity.EditLog{
			ID:         uuid.New().String(),
			TargetID:   order.ID,
			TargetType: "order",
			Action:     "update",
			Summary:    strings.Join(changes, " / "),
			IPAddress:  actor,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("ユニット更新",
		zap.String("order_id", id),
		zap.Strings("changes", changes),
		zap.String("actor", actor))
	return order, nil
}

// Archive 納品完了済みユニットのアーカイブ。完了前は拒否する。
func (s *OrderService) Archive(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status != entity.StatusCompleted {
		return nil, fmt.Errorf("%w (現在: %s)", ErrNotCompleted, order.Status)
	}
	now := time.Now()
	order.IsArchived = true
	order.ArchivedAt = &now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("アーカイブ", zap.String("order_id", id), zap.String("seiban", order.Seiban))
	return order, nil
}

// Unarchive アーカイブ解除。(seiban, unit) の未アーカイブ一意性を壊さないよう、
// 同じ組の現役ユニットが既にあれば拒否する。
func (s *OrderService) Unarchive(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if existing, err := s.orderRepo.FindBySeibanAndUnit(ctx, order.Seiban, order.Unit); err == nil && existing.ID != order.ID {
		return nil, fmt.Errorf("同じ製番・ユニットの現役データが存在します (%s / %s)", order.Seiban, order.Unit)
	}
	order.IsArchived = false
	order.ArchivedAt = nil
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	s.logger.Info("ユニット削除", zap.String("order_id", id))
	return nil
}

// SeibanFamily 親製番＋枝番の一覧（MHT0620, MHT0620-001, ...）
func (s *OrderService) SeibanFamily(ctx context.Context, seiban string) ([]string, error) {
	return s.orderRepo.ListSeibanFamily(ctx, seiban)
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadImage ユニット画像をMinIOへ保存し、オブジェクトキーをimage_pathに記録する
func (s *OrderService) UploadImage(ctx context.Context, id, filename string, size int64, reader io.Reader) (*entity.Order, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return nil, ErrUnsupportedImage
	}

	objectKey := fmt.Sprintf("orders/%s/%s%s", order.Seiban, uuid.New().String(), ext)
	_, err = s.storage.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("画像アップロード失敗: %w", err)
	}

	order.ImagePath = objectKey
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("画像アップロード",
		zap.String("order_id", id), zap.String("object", objectKey))
	return order, nil
}

// ImageURL 画像の期限付き取得URL（1時間）
func (s *OrderService) ImageURL(ctx context.Context, id string) (string, error) {
	if s.storage == nil {
		return "", ErrStorageDisabled
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	if order.ImagePath == "" {
		return "", nil
	}
	u, err := s.storage.PresignedGetObject(ctx, s.bucket, order.ImagePath, time.Hour, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// EditLogs 明細・ユニットの編集履歴
func (s *OrderService) EditLogs(ctx context.Context, orderID string, limit int) ([]entity.EditLog, error) {
	return s.historyRepo.ListEditLogs(ctx, orderID, limit)
}
