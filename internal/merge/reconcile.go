package merge

import (
	"regexp"
	"sort"

	"go.uber.org/zap"
)

// 手配区分CD
const (
	TypeCodeProcessed = "11" // 追加工（社内の後加工工程）
	TypeCodeBlank     = "13" // 加工用ブランク（追加工の素材になる生材）
	TypeCodeStock     = "15" // 在庫部品
)

// 親子ペアリングの規則。帳票生成の慣習として、追加工行の「少し後ろ・1段深い階層」に
// 対応するブランク行が現れる。外部キーではなくヒューリスティックなので、
// どちら側も未マッチのまま残ることは正常な結果である。
const (
	PairRowWindow      = 300 // ブランクの行No上限: 追加工の行No + window（両端含む上限）
	PairHierarchyDelta = 1   // ブランクの階層 = 追加工の階層 + delta
)

// 在庫部品のうち発注対象にならないプレースホルダ（仕様１が M+数字 で始まる）
var stockPlaceholderPattern = regexp.MustCompile(`^M\d`)

// GroupKey (部品No, ページNo, 材質) の論理グループ
type GroupKey struct {
	PartNo   string
	PageNo   string
	Material string
}

// ReconcileResult 1ユニット分の親子再構成の結果
type ReconcileResult struct {
	Details  []*Detail // 親→直後に子、の順で並ぶ
	Excluded int       // 区分CD空欄・在庫プレースホルダで落とした行数
}

// Reconcile 1ユニット分の正規化済みBOM行から親子リンクを解決した明細群を作る。
//
//  1. (部品No, ページNo, 材質) でグループ化
//  2. グループ内を区分CDで ブランク(13) / 追加工(11) / その他 に分ける。
//     区分CDが空欄の行は不正データとして除外（診断ログのみ）
//  3. 追加工・ブランクを行No昇順に整列
//  4. 各追加工Pに対し、未使用のブランクBを順に走査して
//     P.行No < B.行No <= P.行No+PairRowWindow かつ B.階層 == P.階層+PairHierarchyDelta
//     を満たす最初のBを子にする。見つからなければP単独
//  5. 子にならなかったブランクは単独
//  6. その他は単独。ただし区分15で仕様１が M+数字 のものは除外
func Reconcile(rows []*BOMRow, logger *zap.Logger) ReconcileResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	var keys []GroupKey
	groups := make(map[GroupKey][]*BOMRow)
	for _, row := range rows {
		key := GroupKey{PartNo: row.PartNo, PageNo: row.PageNo, Material: row.Material}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}

	var result ReconcileResult

	for _, key := range keys {
		var blanks, processed, others []*BOMRow

		for _, row := range groups[key] {
			if row.TypeCode == "" {
				result.Excluded++
				logger.Debug("除外: 手配区分CDが空欄",
					zap.String("item_name", row.ItemName),
					zap.String("seiban", row.Seiban))
				continue
			}
			switch row.TypeCode {
			case TypeCodeBlank:
				blanks = append(blanks, row)
			case TypeCodeProcessed:
				processed = append(processed, row)
			default:
				others = append(others, row)
			}
		}

		sort.SliceStable(blanks, func(i, j int) bool {
			return rowNoOf(blanks[i]) < rowNoOf(blanks[j])
		})
		sort.SliceStable(processed, func(i, j int) bool {
			return rowNoOf(processed[i]) < rowNoOf(processed[j])
		})

		usedBlanks := make(map[int]bool)

		for _, procRow := range processed {
			procNo := rowNoOf(procRow)
			procHier := procRow.Hierarchy

			blankIdx := -1
			for i, blankRow := range blanks {
				if usedBlanks[i] {
					continue
				}
				blankNo := rowNoOf(blankRow)
				if blankNo > procNo && blankNo <= procNo+PairRowWindow &&
					blankRow.Hierarchy == procHier+PairHierarchyDelta {
					blankIdx = i
					break
				}
			}

			parent := NewDetail(procRow)
			result.Details = append(result.Details, parent)

			if blankIdx >= 0 {
				usedBlanks[blankIdx] = true
				child := NewDetail(blanks[blankIdx])
				child.Parent = parent
				result.Details = append(result.Details, child)
				logger.Debug("親子設定",
					zap.String("parent", procRow.ItemName),
					zap.String("child", blanks[blankIdx].ItemName),
					zap.Int("parent_row_no", procNo),
					zap.Int("child_row_no", rowNoOf(blanks[blankIdx])))
			}
		}

		for i, blankRow := range blanks {
			if !usedBlanks[i] {
				result.Details = append(result.Details, NewDetail(blankRow))
			}
		}

		for _, row := range others {
			if row.TypeCode == TypeCodeStock && stockPlaceholderPattern.MatchString(row.Spec1) {
				result.Excluded++
				logger.Debug("除外: 在庫部品のM+数値",
					zap.String("item_name", row.ItemName),
					zap.String("spec1", row.Spec1))
				continue
			}
			result.Details = append(result.Details, NewDetail(row))
		}
	}

	return result
}

func rowNoOf(row *BOMRow) int {
	return ParseIntOrDefault(row.RowNo, 0)
}
