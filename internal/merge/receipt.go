package merge

import "time"

// ReceivedItem 受入済み明細のスナップショットエントリ
type ReceivedItem struct {
	ItemName         string
	Spec1            string
	Quantity         int
	ReceivedAt       *time.Time
	ReceivedQuantity *int
}

// ReceiptSnapshot マージ前に採る受入状態のスナップショット。
// 明細はマージのたびに削除・再作成されるため、発注番号＋品名＋仕様１＋数量を
// 「マージをまたいだ行の自然キー」として受入フラグを持ち越す。
type ReceiptSnapshot struct {
	byOrderNumber map[string][]ReceivedItem
}

func NewReceiptSnapshot() *ReceiptSnapshot {
	return &ReceiptSnapshot{byOrderNumber: make(map[string][]ReceivedItem)}
}

// Add 受入済みかつ発注番号付きの既存明細を登録する
func (s *ReceiptSnapshot) Add(orderNumber string, item ReceivedItem) {
	if orderNumber == "" {
		return
	}
	s.byOrderNumber[orderNumber] = append(s.byOrderNumber[orderNumber], item)
}

// Lookup (発注番号, 品名, 仕様１, 数量) での照合
func (s *ReceiptSnapshot) Lookup(orderNumber, itemName, spec1 string, quantity int) *ReceivedItem {
	for i, item := range s.byOrderNumber[orderNumber] {
		if item.ItemName == itemName && item.Spec1 == spec1 && item.Quantity == quantity {
			return &s.byOrderNumber[orderNumber][i]
		}
	}
	return nil
}

func (s *ReceiptSnapshot) Len() int {
	n := 0
	for _, items := range s.byOrderNumber {
		n += len(items)
	}
	return n
}

// HistoryLedger 受入履歴台帳への照会。スナップショットで復元できなかった行の
// 二段目のフォールバック。マージ再実行で発注番号の対応が変わった場合
// （前回は未発注だった行に発注番号が付いた等）でも台帳は生き残る。
type HistoryLedger interface {
	// ReceivedInfo 受入済み(is_received=true)の履歴を返す。無ければnil, nil。
	ReceivedInfo(orderNumber, itemName, spec1 string, quantity int) (*ReceivedItem, error)
}

// RestoreReceiptState 新規明細へ受入状態を復元する。
// 1. スナップショット（同一製番の既存データ）を優先
// 2. 外れたら受入履歴台帳を照会
// 復元できたかどうかを返す。台帳エラーは復元失敗として握りつぶさず返す。
func RestoreReceiptState(d *Detail, snapshot *ReceiptSnapshot, ledger HistoryLedger) (bool, error) {
	if d.OrderNumber == "" {
		return false, nil
	}

	if snapshot != nil {
		if item := snapshot.Lookup(d.OrderNumber, d.ItemName, d.Spec1, d.Quantity); item != nil {
			d.IsReceived = true
			d.ReceivedAt = item.ReceivedAt
			d.ReceivedQuantity = item.ReceivedQuantity
			return true, nil
		}
	}

	if ledger != nil {
		item, err := ledger.ReceivedInfo(d.OrderNumber, d.ItemName, d.Spec1, d.Quantity)
		if err != nil {
			return false, err
		}
		if item != nil {
			d.IsReceived = true
			d.ReceivedAt = item.ReceivedAt
			d.ReceivedQuantity = item.ReceivedQuantity
			return true, nil
		}
	}

	return false, nil
}
