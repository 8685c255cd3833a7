package merge

import "testing"

func bomRow(typeCode, rowNo string, hierarchy int, itemName string) *BOMRow {
	return &BOMRow{
		PartNo:    "P01",
		PageNo:    "1",
		Material:  "STEEL",
		TypeCode:  typeCode,
		RowNo:     rowNo,
		Hierarchy: hierarchy,
		ItemName:  itemName,
	}
}

func TestReconcilePairsProcessedWithBlank(t *testing.T) {
	rows := []*BOMRow{
		bomRow("13", "250", 3, "ブランク材"),
		bomRow("11", "100", 2, "追加工プレート"),
	}
	res := Reconcile(rows, nil)
	if len(res.Details) != 2 {
		t.Fatalf("details = %d, want 2", len(res.Details))
	}
	if res.Details[0].ItemName != "追加工プレート" {
		t.Errorf("parent must come first, got %q", res.Details[0].ItemName)
	}
	child := res.Details[1]
	if child.ItemName != "ブランク材" || child.Parent != res.Details[0] {
		t.Errorf("blank must be linked to the processed row: %+v", child)
	}
}

// 行No窓の両端: 追加工の行No+300までは子、+301は対象外。
func TestReconcileRowWindowBoundary(t *testing.T) {
	tests := []struct {
		name       string
		blankRowNo string
		wantChild  bool
	}{
		{"窓の上限ちょうど", "400", true},
		{"上限+1", "401", false},
		{"親より前", "99", false},
		{"親と同じ行No", "100", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []*BOMRow{
				bomRow("11", "100", 2, "追加工"),
				bomRow("13", tt.blankRowNo, 3, "ブランク"),
			}
			res := Reconcile(rows, nil)
			var child *Detail
			for _, d := range res.Details {
				if d.Parent != nil {
					child = d
				}
			}
			if (child != nil) != tt.wantChild {
				t.Errorf("paired = %v, want %v", child != nil, tt.wantChild)
			}
		})
	}
}

// 階層は親+1ちょうどでなければペアにならない
func TestReconcileHierarchyDelta(t *testing.T) {
	rows := []*BOMRow{
		bomRow("11", "100", 2, "追加工"),
		bomRow("13", "150", 4, "階層が深すぎるブランク"),
		bomRow("13", "200", 2, "階層が同じブランク"),
	}
	res := Reconcile(rows, nil)
	for _, d := range res.Details {
		if d.Parent != nil {
			t.Errorf("no blank should pair: %q got parent %q", d.ItemName, d.Parent.ItemName)
		}
	}
	if len(res.Details) != 3 {
		t.Errorf("all rows kept standalone, got %d", len(res.Details))
	}
}

// ブランクは一度使われたら次の追加工には回らない
func TestReconcileBlankUsedOnce(t *testing.T) {
	rows := []*BOMRow{
		bomRow("11", "100", 2, "追加工A"),
		bomRow("11", "110", 2, "追加工B"),
		bomRow("13", "150", 3, "ブランク"),
	}
	res := Reconcile(rows, nil)
	paired := 0
	for _, d := range res.Details {
		if d.Parent != nil {
			paired++
			if d.Parent.ItemName != "追加工A" {
				t.Errorf("blank paired with %q, want 追加工A (行No順の早い者勝ち)", d.Parent.ItemName)
			}
		}
	}
	if paired != 1 {
		t.Errorf("paired = %d, want 1", paired)
	}
}

// グループ(部品No, ページNo, 材質)をまたいだペアリングはしない
func TestReconcileGroupIsolation(t *testing.T) {
	proc := bomRow("11", "100", 2, "追加工")
	blank := bomRow("13", "150", 3, "別ページのブランク")
	blank.PageNo = "2"
	res := Reconcile([]*BOMRow{proc, blank}, nil)
	for _, d := range res.Details {
		if d.Parent != nil {
			t.Error("rows in different groups must not pair")
		}
	}
}

func TestReconcileExcludesEmptyTypeCode(t *testing.T) {
	rows := []*BOMRow{
		bomRow("", "100", 1, "区分なし行"),
		bomRow("21", "110", 1, "購入品"),
	}
	res := Reconcile(rows, nil)
	if res.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1", res.Excluded)
	}
	if len(res.Details) != 1 || res.Details[0].ItemName != "購入品" {
		t.Errorf("unexpected details: %+v", res.Details)
	}
}

// 区分15で仕様１が M+数字 の在庫プレースホルダは手配対象外
func TestReconcileExcludesStockPlaceholder(t *testing.T) {
	placeholder := bomRow("15", "100", 1, "在庫プレート")
	placeholder.Spec1 = "M12標準"
	kept := bomRow("15", "110", 1, "在庫部品")
	kept.Spec1 = "SS400"

	res := Reconcile([]*BOMRow{placeholder, kept}, nil)
	if res.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1", res.Excluded)
	}
	if len(res.Details) != 1 || res.Details[0].ItemName != "在庫部品" {
		t.Errorf("unexpected details: %+v", res.Details)
	}
}
