package merge

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Detail マージが生み出す明細1行。永続化前の中間表現で、
// 親子リンクは同一ユニット内のDetailへのポインタで持つ。
type Detail struct {
	DeliveryDate      string
	Supplier          string
	SupplierCd        string
	OrderNumber       string
	Quantity          int
	UnitMeasure       string
	ItemName          string
	Spec1             string
	Spec2             string
	ItemCode          string
	TypeCode          string
	TypeLabel         string
	Maker             string
	Remarks           string
	MemberCount       int
	RequiredCount     int
	Seiban            string
	Material          string
	PartNumber        string
	PageNumber        string
	RowNumber         string
	Hierarchy         int
	ReplyDeliveryDate string

	HasInternalProcessing bool

	IsReceived       bool
	ReceivedAt       *time.Time
	ReceivedQuantity *int

	DeliveredDate string
	DeliveredQty  decimal.Decimal

	Parent    *Detail
	MatchTier MatchTier
}

// NewDetail 正規化済みBOM行から明細を組み立てる。
// 材質はハイフンを落として保存する（検索用の表示形式に合わせる）。
func NewDetail(row *BOMRow) *Detail {
	label := row.TypeLabel
	return &Detail{
		DeliveryDate:      row.DeliveryDate,
		Supplier:          row.SupplierAbbr,
		SupplierCd:        row.SupplierCd,
		OrderNumber:       row.OrderNumber,
		Quantity:          row.Quantity,
		UnitMeasure:       row.Unit,
		ItemName:          row.ItemName,
		Spec1:             row.Spec1,
		Spec2:             row.Spec2,
		ItemCode:          row.ItemCode,
		TypeCode:          row.TypeCode,
		TypeLabel:         label,
		Maker:             row.Maker,
		Remarks:           row.Remarks,
		MemberCount:       row.MemberCount,
		RequiredCount:     row.RequiredCount,
		Seiban:            row.Seiban,
		Material:          strings.ReplaceAll(row.Material, "-", ""),
		PartNumber:        row.PartNo,
		PageNumber:        row.PageNo,
		RowNumber:         row.RowNo,
		Hierarchy:         row.Hierarchy,
		ReplyDeliveryDate: row.ReplyDeliveryDate,

		HasInternalProcessing: strings.Contains(label, "社内加工") || strings.Contains(label, "追加工"),
		MatchTier:             row.MatchTier,
	}
}
