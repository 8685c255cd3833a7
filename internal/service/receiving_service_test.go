package service

import "testing"

func TestAnnotateQuantityGap(t *testing.T) {
	tests := []struct {
		name     string
		remarks  string
		ordered  int
		received int
		want     string
	}{
		{"不足", "", 5, 3, "【不足：2個】"},
		{"超過", "", 5, 7, "【超過：2個】"},
		{"既存備考の先頭に付く", "要検査", 5, 3, "【不足：2個】 要検査"},
		{"既存の過不足メモは置き換える", "【不足：1個】 要検査", 5, 7, "【超過：2個】 要検査"},
		{"過不足解消でメモを除去", "【超過：2個】 要検査", 5, 5, "要検査"},
		{"発注数未設定の行は触らない", "備考", 0, 3, "備考"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := annotateQuantityGap(tt.remarks, tt.ordered, tt.received)
			if got != tt.want {
				t.Errorf("annotateQuantityGap(%q, %d, %d) = %q, want %q",
					tt.remarks, tt.ordered, tt.received, got, tt.want)
			}
		})
	}
}
