package merge

import (
	"sort"
	"time"
)

// Snapshot ソースDBの状態の不変スナップショット。
// 変更検知は「前回スナップショットを入力として受け取り差分を返す」純関数で行い、
// プロセス全体で持ち回るグローバル状態は置かない。前回分の保存は呼び出し側の責務。
type Snapshot struct {
	TehaiCount   int            `json:"tehai_count"`
	HacchuCount  int            `json:"hacchu_count"`
	SeibanCounts map[string]int `json:"seiban_counts"`
	TakenAt      time.Time      `json:"taken_at"`
}

// ChangeReport 2つのスナップショット間の差分
type ChangeReport struct {
	TehaiDelta     int      `json:"tehai_delta"`
	HacchuDelta    int      `json:"hacchu_delta"`
	AddedSeibans   []string `json:"added_seibans"`
	RemovedSeibans []string `json:"removed_seibans"`
	ChangedSeibans []string `json:"changed_seibans"`
	HasChanges     bool     `json:"has_changes"`
}

// Diff prevからcurへの変化を計算する。prevがゼロ値（初回）なら全件を追加扱いにする。
func Diff(prev, cur Snapshot) ChangeReport {
	report := ChangeReport{
		TehaiDelta:  cur.TehaiCount - prev.TehaiCount,
		HacchuDelta: cur.HacchuCount - prev.HacchuCount,
	}

	for seiban, count := range cur.SeibanCounts {
		prevCount, ok := prev.SeibanCounts[seiban]
		switch {
		case !ok:
			report.AddedSeibans = append(report.AddedSeibans, seiban)
		case prevCount != count:
			report.ChangedSeibans = append(report.ChangedSeibans, seiban)
		}
	}
	for seiban := range prev.SeibanCounts {
		if _, ok := cur.SeibanCounts[seiban]; !ok {
			report.RemovedSeibans = append(report.RemovedSeibans, seiban)
		}
	}

	// マップ走査順をレスポンスに漏らさない
	sort.Strings(report.AddedSeibans)
	sort.Strings(report.RemovedSeibans)
	sort.Strings(report.ChangedSeibans)

	report.HasChanges = report.TehaiDelta != 0 || report.HacchuDelta != 0 ||
		len(report.AddedSeibans) > 0 || len(report.RemovedSeibans) > 0 ||
		len(report.ChangedSeibans) > 0
	return report
}
