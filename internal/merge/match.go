package merge

// MatchEngine 手配リスト行と発注データの突合。
//
// 2段階のキーで先勝ちマッチする（スコアリングはしない。同点は入力順で決まる仕様）:
//  1. 材質 + 仕様１ + 製番（最も特定性が高いが、どちらかの材質が欠けることがある）
//  2. 製番 + 仕様１（広いキーのため誤マッチの恐れあり。両側に手配区分がある場合のみ
//     区分一致を追加条件にする。片側が空なら区分条件はスキップ — 区分未登録データへの
//     意図的な許容であり、仕様として固定）
type MatchEngine struct{}

// Match bomRowに対応する発注行を探す。見つからなければnil。
// ヒット時はbomRowへ発注番号・仕入先・納期・回答納期を書き込む。
func (MatchEngine) Match(bomRow *BOMRow, orderRows []OrderRow, seiban string) *OrderRow {
	// Primary: 材質 + 仕様１ + 製番
	if bomRow.Material != "" && bomRow.Spec1 != "" {
		for i := range orderRows {
			h := &orderRows[i]
			if h.Material == bomRow.Material && h.Spec1 == bomRow.Spec1 && h.Seiban == seiban {
				applyMatch(bomRow, h, MatchPrimary)
				return h
			}
		}
	}

	// Fallback: 製番 + 仕様１ (+手配区分)
	if bomRow.Spec1 != "" {
		for i := range orderRows {
			h := &orderRows[i]
			if h.Seiban != seiban || h.Spec1 != bomRow.Spec1 {
				continue
			}
			if bomRow.TypeLabel != "" && h.TypeLabel != "" && bomRow.TypeLabel != h.TypeLabel {
				continue
			}
			applyMatch(bomRow, h, MatchFallback)
			return h
		}
	}

	return nil
}

func applyMatch(bomRow *BOMRow, h *OrderRow, tier MatchTier) {
	bomRow.OrderNumber = h.OrderNumber
	bomRow.SupplierAbbr = h.SupplierAbbr
	bomRow.SupplierCd = h.SupplierCd
	bomRow.DeliveryDate = h.DeliveryDate
	bomRow.ReplyDeliveryDate = h.ReplyDeliveryDate
	bomRow.MatchTier = tier
}

// BuildDeliveryMap 仕入行から発注番号→納入状況の索引を作る。
// 分納（同一発注番号の複数行）は数量を合計し、納入日は最新を採用する。
// マッチ階層とは独立に、マッチ済み行へ後から結合される。
func BuildDeliveryMap(receipts []ReceiptRow) map[string]DeliveryInfo {
	m := make(map[string]DeliveryInfo, len(receipts))
	for _, r := range receipts {
		if r.OrderNumber == "" {
			continue
		}
		info := m[r.OrderNumber]
		info.TotalQty = info.TotalQty.Add(r.Quantity)
		if r.Date != "" && (info.LatestDate == "" || r.Date > info.LatestDate) {
			info.LatestDate = r.Date
		}
		m[r.OrderNumber] = info
	}
	return m
}
