package entity

import "time"

// ReceivedHistory 受入履歴台帳。明細はマージで消えて作り直されるため、
// (発注番号, 品名, 仕様１, 数量) を行の自然キーとして受入・取消イベントを永続記録する。
type ReceivedHistory struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderNumber      string     `json:"order_number" gorm:"size:50;not null;index"`
	ItemName         string     `json:"item_name" gorm:"size:200"`
	Spec1            string     `json:"spec1" gorm:"size:200"`
	Quantity         int        `json:"quantity"`
	ReceivedQuantity *int       `json:"received_quantity"`
	IsReceived       bool       `json:"is_received" gorm:"default:true"`
	ReceivedAt       *time.Time `json:"received_at"`
	CancelledAt      *time.Time `json:"cancelled_at"`
	ReceivedBy       string     `json:"received_by" gorm:"size:100"`  // 受入者（クライアントIP）
	CancelledBy      string     `json:"cancelled_by" gorm:"size:100"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (ReceivedHistory) TableName() string {
	return "received_histories"
}

// EditLog ユニット・明細への操作ログ。TargetTypeで対象を区別する。
type EditLog struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TargetID   string    `json:"target_id" gorm:"type:uuid;index"`
	TargetType string    `json:"target_type" gorm:"size:20"` // order / detail
	Action     string    `json:"action" gorm:"size:50"`      // update / receive / unreceive
	Summary    string    `json:"summary" gorm:"size:500"`
	IPAddress  string    `json:"ip_address" gorm:"size:45"`
	CreatedAt  time.Time `json:"created_at"`
}

func (EditLog) TableName() string {
	return "edit_logs"
}
