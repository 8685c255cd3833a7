package merge

import (
	"reflect"
	"testing"
)

func TestDiffNoChanges(t *testing.T) {
	s := Snapshot{TehaiCount: 10, HacchuCount: 5, SeibanCounts: map[string]int{"NKA-1": 10}}
	report := Diff(s, s)
	if report.HasChanges {
		t.Errorf("identical snapshots must report no changes: %+v", report)
	}
}

func TestDiffDetectsSeibanChanges(t *testing.T) {
	prev := Snapshot{
		TehaiCount:   10,
		SeibanCounts: map[string]int{"NKA-1": 6, "MHT0620": 4},
	}
	cur := Snapshot{
		TehaiCount:   13,
		SeibanCounts: map[string]int{"NKA-1": 8, "KTX-9": 5},
	}

	report := Diff(prev, cur)
	if !report.HasChanges || report.TehaiDelta != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(report.AddedSeibans) != 1 || report.AddedSeibans[0] != "KTX-9" {
		t.Errorf("AddedSeibans = %v", report.AddedSeibans)
	}
	if len(report.RemovedSeibans) != 1 || report.RemovedSeibans[0] != "MHT0620" {
		t.Errorf("RemovedSeibans = %v", report.RemovedSeibans)
	}
	if len(report.ChangedSeibans) != 1 || report.ChangedSeibans[0] != "NKA-1" {
		t.Errorf("ChangedSeibans = %v", report.ChangedSeibans)
	}
}

// 製番リストはマップ走査順に依存せず常に辞書順で返る
func TestDiffSeibansSorted(t *testing.T) {
	cur := Snapshot{
		SeibanCounts: map[string]int{"ZZZ-9": 1, "MHT0620": 2, "AAA-1": 3, "NKA-1": 4},
	}
	want := []string{"AAA-1", "MHT0620", "NKA-1", "ZZZ-9"}
	for i := 0; i < 20; i++ {
		report := Diff(Snapshot{}, cur)
		if !reflect.DeepEqual(report.AddedSeibans, want) {
			t.Fatalf("AddedSeibans = %v, want %v", report.AddedSeibans, want)
		}
	}
}

// 初回（前回スナップショットなし）は全製番が追加扱い
func TestDiffFirstRun(t *testing.T) {
	cur := Snapshot{TehaiCount: 3, SeibanCounts: map[string]int{"NKA-1": 3}}
	report := Diff(Snapshot{}, cur)
	if !report.HasChanges || len(report.AddedSeibans) != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}
