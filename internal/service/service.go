package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/yamakishi/tehai-ops/internal/acrossdb"
	"github.com/yamakishi/tehai-ops/internal/config"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services サービス集合
type Services struct {
	Merge     *MergeService
	Receiving *ReceivingService
	Order     *OrderService
	Delivery  *DeliveryService
	Export    *ExportService
}

// NewServices サービス集合を組み立てる。MinIOは設定が無ければ
// 画像機能だけ落として他はそのまま動く。
func NewServices(
	repos *repository.Repositories,
	db *gorm.DB,
	rdb *redis.Client,
	across *acrossdb.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO初期化失敗。画像機能を無効化します", zap.Error(err))
			minioClient = nil
		}
	}

	return &Services{
		Merge:     NewMergeService(across, across, repos, db, rdb, logger),
		Receiving: NewReceivingService(repos, db, logger),
		Order:     NewOrderService(repos, db, minioClient, cfg.MinIO.Bucket, logger),
		Delivery:  NewDeliveryService(across, rdb, logger),
		Export:    NewExportService(repos, logger),
	}
}
