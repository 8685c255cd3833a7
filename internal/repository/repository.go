package repository

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Repositories リポジトリ集合
type Repositories struct {
	Order   *OrderRepository
	Detail  *DetailRepository
	History *HistoryRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:   NewOrderRepository(db),
		Detail:  NewDetailRepository(db),
		History: NewHistoryRepository(db),
	}
}
