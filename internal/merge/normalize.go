package merge

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseTrimmedString 安全な文字列変換。nil→空文字、小数点付きで来た整数値は整数表記に戻す。
func ParseTrimmedString(v any) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return ParseTrimmedString(float64(x))
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02")
	case []byte:
		return strings.TrimSpace(string(x))
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// ParseIntOrDefault 安全な整数変換。変換失敗時はdefを返す（行を落とさない方針）。
func ParseIntOrDefault(v any, def int) int {
	if v == nil {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		if math.IsNaN(x) {
			return def
		}
		return int(x)
	case float32:
		return ParseIntOrDefault(float64(x), def)
	}
	s := strings.TrimSpace(ParseTrimmedString(v))
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return int(f)
}

// NormalizeOrderNumber 発注番号・手配区分CD等の識別子正規化。
// ゼロパディング("00086922")と浮動小数点表記(86922.0)の両方を除去する。
// 数値化できない文字列はトリムだけして返し、空は空のまま。
func NormalizeOrderNumber(v any) string {
	s := ParseTrimmedString(v)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

// ParseDecimal 金額・数量のDecimal変換。失敗は0。
func ParseDecimal(v any) decimal.Decimal {
	s := ParseTrimmedString(v)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDate 日付らしき値のパース。発注日フィルタで使う。
func ParseDate(v any) *time.Time {
	if v == nil {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		return &t
	}
	s := ParseTrimmedString(v)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", "2006-01-02 15:04:05", "06/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// NormalizeBOMRow 手配リスト行を正規化する
func NormalizeBOMRow(raw RawRow) BOMRow {
	return BOMRow{
		Seiban:        ParseTrimmedString(raw[ColSeiban]),
		PartNo:        ParseTrimmedString(raw[ColPartNo]),
		PageNo:        ParseTrimmedString(raw[ColPageNo]),
		RowNo:         ParseTrimmedString(raw[ColRowNo]),
		Hierarchy:     ParseIntOrDefault(raw[ColHierarchy], 0),
		ItemCode:      ParseTrimmedString(raw[ColItemCode]),
		ItemName:      ParseTrimmedString(raw[ColItemName]),
		Spec1:         ParseTrimmedString(raw[ColSpec1]),
		Spec2:         ParseTrimmedString(raw[ColSpec2]),
		TypeCode:      NormalizeOrderNumber(raw[ColTypeCode]),
		TypeLabel:     ParseTrimmedString(raw[ColTypeLabel]),
		Maker:         ParseTrimmedString(raw[ColMaker]),
		Material:      ParseTrimmedString(raw[ColMaterial]),
		MemberCount:   ParseIntOrDefault(raw[ColMemberCount], 0),
		RequiredCount: ParseIntOrDefault(raw[ColRequiredCount], 0),
		Quantity:      ParseIntOrDefault(raw[ColQuantity], 0),
		Unit:          ParseTrimmedString(raw[ColUnit]),
		Remarks:       ParseTrimmedString(raw[ColRemarks]),
		Date:          ParseTrimmedString(raw[ColDate]),
		OrderNumber:   NormalizeOrderNumber(raw[ColOrderNumber]),
	}
}

// NormalizeOrderRow 発注データ行を正規化する。
// 比較前に両側へ同じ正規化をかけないとMatchEngineの等値判定が静かに外れるので、
// 識別子系（発注番号・手配区分CD・仕入先CD）は必ずここを通す。
func NormalizeOrderRow(raw RawRow) OrderRow {
	return OrderRow{
		OrderNumber:       NormalizeOrderNumber(raw[ColOrderNumber]),
		Seiban:            ParseTrimmedString(raw[ColSeiban]),
		ItemName:          ParseTrimmedString(raw[ColItemName]),
		Spec1:             ParseTrimmedString(raw[ColSpec1]),
		Spec2:             ParseTrimmedString(raw[ColSpec2]),
		TypeCode:          NormalizeOrderNumber(raw[ColTypeCode]),
		TypeLabel:         ParseTrimmedString(raw[ColTypeLabel]),
		Material:          ParseTrimmedString(raw[ColMaterial]),
		SupplierCd:        NormalizeOrderNumber(raw[ColSupplierCd]),
		SupplierName:      ParseTrimmedString(raw[ColSupplierName]),
		SupplierAbbr:      ParseTrimmedString(raw[ColSupplierAbbr]),
		Quantity:          ParseIntOrDefault(raw[ColOrderQty], 0),
		Unit:              ParseTrimmedString(raw[ColUnit]),
		UnitPrice:         ParseDecimal(raw[ColUnitPrice]),
		Amount:            ParseDecimal(raw[ColAmount]),
		OrderDate:         ParseDate(raw[ColOrderDate]),
		DeliveryDate:      formatDeliveryDate(raw[ColDeliveryDate]),
		ReplyDeliveryDate: formatDeliveryDate(raw[ColReplyDelivery]),
		Remarks:           ParseTrimmedString(raw[ColRemarks]),
	}
}

// NormalizeReceiptRow 仕入行を正規化する
func NormalizeReceiptRow(raw RawRow) ReceiptRow {
	return ReceiptRow{
		OrderNumber: NormalizeOrderNumber(raw[ColOrderNumber]),
		Date:        ParseTrimmedString(raw[ColDeliveredDate]),
		Quantity:    ParseDecimal(raw[ColDeliveredQty]),
	}
}

// formatDeliveryDate 納期の表示形式（yy/mm/dd）。パースできない値はそのまま残す。
func formatDeliveryDate(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("06/01/02")
	}
	s := ParseTrimmedString(v)
	if s == "" {
		return ""
	}
	if t := ParseDate(s); t != nil {
		return t.Format("06/01/02")
	}
	return s
}
