package merge

import (
	"time"

	"github.com/shopspring/decimal"
)

// Across DBビューのカラム名。V_D手配リスト / V_D発注 / V_D仕入 の列名をそのまま使う。
const (
	ColSeiban        = "製番"
	ColPageNo        = "ページNo"
	ColRowNo         = "行No"
	ColPartNo        = "部品No"
	ColHierarchy     = "階層"
	ColItemCode      = "品目CD"
	ColItemName      = "品名"
	ColSpec1         = "仕様１"
	ColSpec2         = "仕様２"
	ColTypeCode      = "手配区分CD"
	ColTypeLabel     = "手配区分"
	ColMaker         = "メーカー"
	ColMaterial      = "材質"
	ColMemberCount   = "員数"
	ColRequiredCount = "必要数"
	ColQuantity      = "手配数"
	ColUnit          = "単位"
	ColRemarks       = "備考"
	ColDate          = "日付"

	ColOrderNumber    = "発注番号"
	ColSupplierCd     = "仕入先CD"
	ColSupplierName   = "仕入先名"
	ColSupplierAbbr   = "仕入先略称"
	ColOrderQty       = "発注数"
	ColUnitPrice      = "発注単価"
	ColAmount         = "発注金額"
	ColOrderDate      = "発注日"
	ColDeliveryDate   = "納期"
	ColReplyDelivery  = "回答納期"
	ColDeliveredDate  = "納入日"
	ColDeliveredQty   = "納入数"
)

// RawRow ソースビューの1行（カラム名→生値）
type RawRow map[string]any

// BOMRow 正規化済みの手配リスト行
type BOMRow struct {
	Seiban        string
	PartNo        string
	PageNo        string
	RowNo         string
	Hierarchy     int
	ItemCode      string
	ItemName      string
	Spec1         string
	Spec2         string
	TypeCode      string
	TypeLabel     string
	Maker         string
	Material      string
	MemberCount   int
	RequiredCount int
	Quantity      int
	Unit          string
	Remarks       string
	Date          string

	// マッチ結果（MatchEngineが書き込む。未マッチなら空のまま）
	OrderNumber       string
	SupplierAbbr      string
	SupplierCd        string
	DeliveryDate      string
	ReplyDeliveryDate string
	MatchTier         MatchTier
}

// OrderRow 正規化済みの発注データ行
type OrderRow struct {
	OrderNumber       string
	Seiban            string
	ItemName          string
	Spec1             string
	Spec2             string
	TypeCode          string
	TypeLabel         string
	Material          string
	SupplierCd        string
	SupplierName      string
	SupplierAbbr      string
	Quantity          int
	Unit              string
	UnitPrice         decimal.Decimal
	Amount            decimal.Decimal
	OrderDate         *time.Time
	DeliveryDate      string
	ReplyDeliveryDate string
	Remarks           string
}

// ReceiptRow 仕入（納入実績）行。分納があるため同一発注番号で複数行になりうる。
type ReceiptRow struct {
	OrderNumber string
	Date        string
	Quantity    decimal.Decimal
}

// DeliveryInfo 発注番号ごとの納入状況（分納は数量を合計し、日付は最新を採る）
type DeliveryInfo struct {
	LatestDate string
	TotalQty   decimal.Decimal
}

// MatchTier どのキーでマッチしたか
type MatchTier string

const (
	MatchNone     MatchTier = ""
	MatchPrimary  MatchTier = "材質+仕様１"
	MatchFallback MatchTier = "仕様１(+区分)"
)
