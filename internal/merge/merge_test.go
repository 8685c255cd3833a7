package merge

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// 手配リスト・発注・仕入がそろった小さな製番を一式マージする
func testInput() Input {
	bomRows := []RawRow{
		{
			ColSeiban: "NKA-00001-00-00", ColPartNo: "P01", ColPageNo: "1", ColRowNo: "100",
			ColHierarchy: 2.0, ColItemName: "追加工プレート", ColSpec1: "SS400 t6",
			ColTypeCode: "11.0", ColTypeLabel: "追加工", ColMaterial: "STEEL", ColQuantity: 4.0,
		},
		{
			ColSeiban: "NKA-00001-00-00", ColPartNo: "P01", ColPageNo: "1", ColRowNo: "250",
			ColHierarchy: 3.0, ColItemName: "ブランク材", ColSpec1: "SS400 t9",
			ColTypeCode: "13", ColTypeLabel: "ブランク", ColMaterial: "STEEL", ColQuantity: 4.0,
		},
		{
			ColSeiban: "NKA-00001-00-00", ColPartNo: "P02", ColPageNo: "1", ColRowNo: "300",
			ColHierarchy: 1.0, ColItemName: "樹脂カバー", ColSpec1: "POM t5",
			ColTypeCode: "21", ColTypeLabel: "購入品", ColMaterial: "", ColQuantity: 2.0,
		},
	}
	orderRows := []RawRow{
		{
			ColSeiban: "NKA-00001-00-00", ColOrderNumber: "00086922", ColSpec1: "SS400 t6",
			ColMaterial: "STEEL", ColSupplierAbbr: "山田鋼材", ColSupplierCd: 1001.0,
			ColDeliveryDate: "2025-05-10", ColOrderQty: 4.0,
		},
		{
			ColSeiban: "NKA-00001-00-00", ColOrderNumber: 86801.0, ColSpec1: "POM t5",
			ColMaterial: "", ColSupplierAbbr: "協和樹脂", ColSupplierCd: "1002",
			ColDeliveryDate: "2025-05-20", ColOrderQty: 2.0,
		},
	}
	receiptRows := []RawRow{
		{ColOrderNumber: "86922", ColDeliveredDate: "25/04/01", ColDeliveredQty: 2.0},
		{ColOrderNumber: "86922", ColDeliveredDate: "25/04/10", ColDeliveredQty: 2.0},
	}
	return Input{
		Seiban:      "NKA-00001-00-00",
		BOMRows:     bomRows,
		OrderRows:   orderRows,
		ReceiptRows: receiptRows,
	}
}

func TestRunEndToEnd(t *testing.T) {
	result, err := Run(testInput())
	if err != nil {
		t.Fatal(err)
	}

	// 材質STEELと材質なし（番兵"-"）の2ユニット
	if result.Stats.UnitCount != 2 {
		t.Fatalf("UnitCount = %d, want 2: %+v", result.Stats.UnitCount, result.Stats)
	}

	var steel, unnamed *Unit
	for i := range result.Units {
		switch result.Units[i].Material {
		case "STEEL":
			steel = &result.Units[i]
		case MaterialSentinel:
			unnamed = &result.Units[i]
		}
	}
	if steel == nil || unnamed == nil {
		t.Fatalf("missing units: %+v", result.Units)
	}
	if unnamed.Name != "" {
		t.Errorf("sentinel unit keeps empty name, got %q", unnamed.Name)
	}

	// STEELユニット: 追加工(マッチ済み) + ブランク(子)
	if len(steel.Details) != 2 {
		t.Fatalf("steel details = %d, want 2", len(steel.Details))
	}
	parent := steel.Details[0]
	if parent.OrderNumber != "86922" {
		t.Errorf("parent OrderNumber = %q, want 86922 (ゼロパディング除去後)", parent.OrderNumber)
	}
	if parent.DeliveryDate != "25/05/10" {
		t.Errorf("parent DeliveryDate = %q", parent.DeliveryDate)
	}
	if !parent.HasInternalProcessing {
		t.Error("追加工 label must set HasInternalProcessing")
	}
	child := steel.Details[1]
	if child.Parent != parent {
		t.Error("blank must be child of the processed row")
	}

	// 納入状況: 分納2+2が合算され、日付は最新
	if parent.DeliveredQty.IntPart() != 4 || parent.DeliveredDate != "25/04/10" {
		t.Errorf("delivery info: qty=%s date=%q", parent.DeliveredQty, parent.DeliveredDate)
	}

	// 統計
	if result.Stats.BOMRows != 3 || result.Stats.Matched != 2 || result.Stats.Unmatched != 1 {
		t.Errorf("stats: %+v", result.Stats)
	}
	if result.Stats.MatchRate != 66.7 {
		t.Errorf("MatchRate = %v, want 66.7 (小数1桁丸め)", result.Stats.MatchRate)
	}
}

// 同一入力での再実行は同一の結果
func TestRunIdempotent(t *testing.T) {
	a, err := Run(testInput())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(testInput())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Stats, b.Stats) || len(a.Units) != len(b.Units) {
		t.Errorf("results differ:\n%+v\n%+v", a.Stats, b.Stats)
	}
	for i := range a.Units {
		if len(a.Units[i].Details) != len(b.Units[i].Details) {
			t.Errorf("unit %q detail counts differ", a.Units[i].Name)
		}
	}
}

func TestRunEmptyBOM(t *testing.T) {
	in := testInput()
	in.BOMRows = nil
	if _, err := Run(in); !errors.Is(err, ErrNoRows) {
		t.Errorf("err = %v, want ErrNoRows", err)
	}
}

func TestRunOrderDateFilter(t *testing.T) {
	in := testInput()
	for i := range in.OrderRows {
		in.OrderRows[i][ColOrderDate] = "2025-03-01"
	}
	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	in.OrderDateFrom = &from

	result, err := Run(in)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.OrderRows != 0 || result.Stats.Matched != 0 {
		t.Errorf("orders before the filter window must be dropped: %+v", result.Stats)
	}
}

// 受入状態はスナップショット経由でマージをまたいで持ち越される
func TestRunPreservesReceiptState(t *testing.T) {
	receivedAt := time.Date(2025, 4, 12, 8, 30, 0, 0, time.UTC)
	snapshot := NewReceiptSnapshot()
	snapshot.Add("86922", ReceivedItem{
		ItemName: "追加工プレート", Spec1: "SS400 t6", Quantity: 4, ReceivedAt: &receivedAt,
	})

	in := testInput()
	in.Snapshot = snapshot
	result, err := Run(in)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, u := range result.Units {
		for _, d := range u.Details {
			if d.OrderNumber == "86922" {
				found = true
				if !d.IsReceived || d.ReceivedAt == nil {
					t.Errorf("receipt state lost across merge: %+v", d)
				}
			}
		}
	}
	if !found {
		t.Fatal("expected matched detail with order number 86922")
	}
}

// 未発注バッチはIncludeExtraのときだけ取り込まれる
func TestRunExtraRows(t *testing.T) {
	extra := RawRow{
		ColSeiban: "NKA-00001-00-00", ColPartNo: "P03", ColPageNo: "2", ColRowNo: "500",
		ColHierarchy: 1.0, ColItemName: "社内加工ベース", ColSpec1: "SS400 t12",
		ColTypeCode: "11", ColTypeLabel: "追加工", ColMaterial: "STEEL", ColQuantity: 1.0,
	}

	in := testInput()
	in.ExtraBOMRows = []RawRow{extra}
	result, err := Run(in)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.BOMRows != 3 {
		t.Errorf("extra rows must be ignored without IncludeExtra: %+v", result.Stats)
	}

	in = testInput()
	in.ExtraBOMRows = []RawRow{extra}
	in.IncludeExtra = true
	result, err = Run(in)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.BOMRows != 4 {
		t.Errorf("BOMRows = %d, want 4 with IncludeExtra", result.Stats.BOMRows)
	}
}

func TestSortByOrderNumber(t *testing.T) {
	rows := []*BOMRow{
		{ItemName: "c", OrderNumber: ""},
		{ItemName: "b", OrderNumber: "200"},
		{ItemName: "a", OrderNumber: "100"},
		{ItemName: "d", OrderNumber: ""},
	}
	sortByOrderNumber(rows)
	got := []string{rows[0].ItemName, rows[1].ItemName, rows[2].ItemName, rows[3].ItemName}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v (番号あり昇順→番号なしは安定)", got, want)
		}
	}
}
