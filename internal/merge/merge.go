package merge

import (
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ErrNoRows 対象製番の手配リストが空（マージ不成立）
var ErrNoRows = errors.New("merge: no arrangement rows for seiban")

// MaterialSentinel 材質未設定の行をまとめる番兵値
const MaterialSentinel = "-"

// Input 1回のマージ実行への入力。永続化は呼び出し側（サービス層）の責務で、
// ここは正規化→突合→受入復元→親子再構成までを純粋に行う。
type Input struct {
	Seiban      string
	BOMRows     []RawRow
	OrderRows   []RawRow
	ReceiptRows []RawRow

	// ExtraBOMRows 未発注（社内加工・在庫）行の追加バッチ。
	// IncludeExtraが真のときグループ化の前に連結される。
	ExtraBOMRows []RawRow
	IncludeExtra bool

	// 発注日フィルタ（両端含む）
	OrderDateFrom *time.Time
	OrderDateTo   *time.Time

	Snapshot *ReceiptSnapshot
	Ledger   HistoryLedger

	Logger *zap.Logger
}

// Unit マージが発見した1ユニット（材質グルーピング）分の明細
type Unit struct {
	Name     string // 空文字は「ユニット名無し」
	Material string // グループキー（番兵を含む）
	Details  []*Detail
}

// Stats マージ統計
type Stats struct {
	BOMRows   int      `json:"tehai_count"`
	OrderRows int      `json:"hatchu_count"`
	Matched   int      `json:"match_count"`
	Unmatched int      `json:"unmatch_count"`
	MatchRate float64  `json:"match_rate"` // パーセント（小数1桁）
	UnitCount int      `json:"unit_count"`
	UnitNames []string `json:"units"`
	Excluded  int      `json:"excluded_count"`
}

// Result 1回のマージ実行の出力
type Result struct {
	Seiban string
	Units  []Unit
	Stats  Stats
}

// Run マージ本体。手配リストと発注データを突合し、ユニット別の明細置換セットを作る。
//
// 同一入力での再実行は（間に受入操作がなければ）同一の出力になる。
// 受入状態だけはスナップショット＋履歴台帳経由で持ち越す。
func Run(in Input) (*Result, error) {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// (a) 発注日フィルタ → (b) 正規化
	orderRows := make([]OrderRow, 0, len(in.OrderRows))
	for _, raw := range in.OrderRows {
		row := NormalizeOrderRow(raw)
		if !withinDateRange(row.OrderDate, in.OrderDateFrom, in.OrderDateTo) {
			continue
		}
		orderRows = append(orderRows, row)
	}

	bomRaw := in.BOMRows
	if in.IncludeExtra && len(in.ExtraBOMRows) > 0 {
		bomRaw = append(append([]RawRow{}, in.BOMRows...), in.ExtraBOMRows...)
	}

	bomRows := make([]*BOMRow, 0, len(bomRaw))
	for _, raw := range bomRaw {
		row := NormalizeBOMRow(raw)
		bomRows = append(bomRows, &row)
	}

	if len(bomRows) == 0 {
		return nil, ErrNoRows
	}

	// 突合（マッチ結果は行へ注釈される）
	engine := MatchEngine{}
	matched := 0
	for _, row := range bomRows {
		if engine.Match(row, orderRows, in.Seiban) != nil {
			matched++
		}
	}

	// 発注番号あり（番号昇順）→ 発注番号なし、の表示順に整列
	sortByOrderNumber(bomRows)

	// 納入状況の索引
	receipts := make([]ReceiptRow, 0, len(in.ReceiptRows))
	for _, raw := range in.ReceiptRows {
		receipts = append(receipts, NormalizeReceiptRow(raw))
	}
	deliveries := BuildDeliveryMap(receipts)

	// (c) 材質ごとに1ユニット
	var materials []string
	byMaterial := make(map[string][]*BOMRow)
	for _, row := range bomRows {
		mat := row.Material
		if mat == "" {
			mat = MaterialSentinel
		}
		if _, ok := byMaterial[mat]; !ok {
			materials = append(materials, mat)
		}
		byMaterial[mat] = append(byMaterial[mat], row)
	}

	result := &Result{Seiban: in.Seiban}
	excluded := 0

	for _, mat := range materials {
		unitName := ""
		if mat != MaterialSentinel {
			unitName = mat
		}

		rec := Reconcile(byMaterial[mat], logger)
		excluded += rec.Excluded

		details := make([]*Detail, 0, len(rec.Details))
		for _, d := range rec.Details {
			// 発注番号があるのに区分CDゼロの行は不正ソースデータとして弾く
			if d.OrderNumber != "" && (d.TypeCode == "" || d.TypeCode == "0") {
				excluded++
				logger.Debug("除外: 発注番号付きで区分CDなし",
					zap.String("order_number", d.OrderNumber),
					zap.String("item_name", d.ItemName))
				continue
			}

			if info, ok := deliveries[d.OrderNumber]; ok && d.OrderNumber != "" {
				d.DeliveredDate = info.LatestDate
				d.DeliveredQty = info.TotalQty
			}

			if _, err := RestoreReceiptState(d, in.Snapshot, in.Ledger); err != nil {
				return nil, err
			}
			details = append(details, d)
		}

		result.Units = append(result.Units, Unit{
			Name:     unitName,
			Material: mat,
			Details:  details,
		})
	}

	// (f) 統計
	unmatched := len(bomRows) - matched
	rate := 0.0
	if len(bomRows) > 0 {
		rate = math.Round(float64(matched)/float64(len(bomRows))*1000) / 10
	}
	names := make([]string, 0, len(result.Units))
	for _, u := range result.Units {
		names = append(names, u.Name)
	}
	result.Stats = Stats{
		BOMRows:   len(bomRows),
		OrderRows: len(orderRows),
		Matched:   matched,
		Unmatched: unmatched,
		MatchRate: rate,
		UnitCount: len(result.Units),
		UnitNames: names,
		Excluded:  excluded,
	}

	logger.Info("マージ完了",
		zap.String("seiban", in.Seiban),
		zap.Int("tehai", result.Stats.BOMRows),
		zap.Int("hatchu", result.Stats.OrderRows),
		zap.Int("matched", matched),
		zap.Float64("match_rate", rate),
		zap.Int("units", len(result.Units)))

	return result, nil
}

// withinDateRange 発注日フィルタ（両端含む）。発注日が読めない行はフィルタ指定時に除外する。
func withinDateRange(d *time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if d == nil {
		return false
	}
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func sortByOrderNumber(rows []*BOMRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].OrderNumber, rows[j].OrderNumber
		if (a == "") != (b == "") {
			return a != "" // 発注番号ありが先
		}
		if a == "" {
			return false // 番号なし同士は元の順序を保つ
		}
		return a < b
	})
}
