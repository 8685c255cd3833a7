package entity

import "gorm.io/gorm"

// AutoMigrate 全テーブルの自動マイグレーション
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Order{},
		&OrderDetail{},
		&ReceivedHistory{},
		&EditLog{},
	)
}
