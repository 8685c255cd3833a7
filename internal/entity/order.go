package entity

import (
	"time"
)

// OrderStatus ユニットの受入ステータス。明細の受入フラグから導出される純関数であり、
// 単体で書き換えられるのはアーカイブだけ（それも納品完了が前提）。
const (
	StatusBeforeReceipt = "BEFORE_RECEIPT" // 受入準備前
	StatusInProgress    = "IN_PROGRESS"    // 納品中
	StatusCompleted     = "COMPLETED"      // 納品完了
)

// Order 製番×ユニット（材質グルーピング）単位の論理ユニット。
// (seiban, unit) は未アーカイブの中で一意。
type Order struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Seiban       string     `json:"seiban" gorm:"size:50;not null;index:idx_orders_seiban_unit"`
	Unit         string     `json:"unit" gorm:"size:100;index:idx_orders_seiban_unit"` // 空=ユニット名無し
	ProductName  string     `json:"product_name" gorm:"size:200"`
	CustomerAbbr string     `json:"customer_abbr" gorm:"size:100"`
	Memo         string     `json:"memo" gorm:"size:200"`
	Status       string     `json:"status" gorm:"size:20;not null;default:BEFORE_RECEIPT"`
	Floor        string     `json:"floor" gorm:"size:10"`
	PalletNumber string     `json:"pallet_number" gorm:"size:50"`
	Location     string     `json:"location" gorm:"size:50;default:未定"`
	Remarks      string     `json:"remarks" gorm:"type:text"`
	ImagePath    string     `json:"image_path" gorm:"size:500"` // MinIOオブジェクトキー
	IsArchived   bool       `json:"is_archived" gorm:"default:false;index"`
	ArchivedAt   *time.Time `json:"archived_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Details []OrderDetail `json:"details,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// DeriveStatus 明細の受入フラグからステータスを導出する
func DeriveStatus(details []OrderDetail) string {
	if len(details) == 0 {
		return StatusBeforeReceipt
	}
	received := 0
	for _, d := range details {
		if d.IsReceived {
			received++
		}
	}
	switch {
	case received == len(details):
		return StatusCompleted
	case received > 0:
		return StatusInProgress
	default:
		return StatusBeforeReceipt
	}
}

// OrderDetail ユニット内の明細1行。マージのたびに削除・再作成される。
// 受入系フィールド(is_received/received_at/received_quantity)だけが
// スナップショット＋受入履歴経由で持ち越される。
type OrderDetail struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID      string `json:"order_id" gorm:"type:uuid;not null;index"`
	Seq          int    `json:"seq" gorm:"not null;default:0"` // ユニット内の表示順
	DeliveryDate string `json:"delivery_date" gorm:"size:20"`
	Supplier     string `json:"supplier" gorm:"size:100"`
	SupplierCd   string `json:"supplier_cd" gorm:"size:50"`
	OrderNumber  string `json:"order_number" gorm:"size:50;index"`
	Quantity     int    `json:"quantity"`
	UnitMeasure  string `json:"unit_measure" gorm:"size:20"`
	ItemName     string `json:"item_name" gorm:"size:200"`
	Spec1        string `json:"spec1" gorm:"size:200;index"`
	Spec2        string `json:"spec2" gorm:"size:200"`
	ItemCode     string `json:"item_code" gorm:"size:50"`
	TypeCode     string `json:"order_type_code" gorm:"column:order_type_code;size:20"`
	TypeLabel    string `json:"order_type" gorm:"column:order_type;size:50"`
	Maker        string `json:"maker" gorm:"size:100"`
	Remarks      string `json:"remarks" gorm:"type:text"`

	MemberCount   int    `json:"member_count"`
	RequiredCount int    `json:"required_count"`
	Seiban        string `json:"seiban" gorm:"size:50;index"`
	Material      string `json:"material" gorm:"size:100"`

	IsReceived       bool       `json:"is_received" gorm:"default:false"`
	ReceivedAt       *time.Time `json:"received_at"`
	ReceivedQuantity *int       `json:"received_quantity"` // nil=全数受入

	HasInternalProcessing bool `json:"has_internal_processing" gorm:"default:false"`

	// 親子関係（追加工→ブランク）。同一ユニット内の明細だけを指す。
	ParentID *string `json:"parent_id" gorm:"type:uuid;index"`

	PartNumber        string `json:"part_number" gorm:"size:50"`
	PageNumber        string `json:"page_number" gorm:"size:20"`
	RowNumber         string `json:"row_number" gorm:"size:20"`
	Hierarchy         int    `json:"hierarchy"`
	ReplyDeliveryDate string `json:"reply_delivery_date" gorm:"size:20"`

	// 納入状況（V_D仕入からの付加情報）
	DeliveredDate string  `json:"delivered_date" gorm:"size:20"`
	DeliveredQty  float64 `json:"delivered_qty" gorm:"type:decimal(12,4);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parent   *OrderDetail  `json:"-" gorm:"foreignKey:ParentID"`
	Children []OrderDetail `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

func (OrderDetail) TableName() string {
	return "order_details"
}
