package merge

import (
	"math"
	"testing"
	"time"
)

func TestParseTrimmedString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"空白トリム", "  SS400  ", "SS400"},
		{"整数float", 86922.0, "86922"},
		{"小数float", 12.5, "12.5"},
		{"NaN", math.NaN(), ""},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"bytes", []byte(" ABC "), "ABC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTrimmedString(tt.in); got != tt.want {
				t.Errorf("ParseTrimmedString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeOrderNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"ゼロパディング除去", "00086922", "86922"},
		{"浮動小数点表記", 86922.0, "86922"},
		{"文字列の浮動小数点", "86922.0", "86922"},
		{"既に正規形", "86922", "86922"},
		{"空", "", ""},
		{"nil", nil, ""},
		{"nan文字列", "nan", ""},
		{"数値化できない識別子はそのまま", "A-123", "A-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeOrderNumber(tt.in); got != tt.want {
				t.Errorf("NormalizeOrderNumber(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// 同じ値の別表現が同じ正規形に落ちること。突合キーの大前提。
func TestNormalizeOrderNumberConverges(t *testing.T) {
	variants := []any{"00086922", 86922.0, "86922", "86922.0"}
	for _, v := range variants {
		if got := NormalizeOrderNumber(v); got != "86922" {
			t.Errorf("NormalizeOrderNumber(%v) = %q, want 86922", v, got)
		}
	}
}

func TestParseIntOrDefault(t *testing.T) {
	if got := ParseIntOrDefault("3.0", 0); got != 3 {
		t.Errorf("ParseIntOrDefault(3.0) = %d, want 3", got)
	}
	if got := ParseIntOrDefault(nil, 5); got != 5 {
		t.Errorf("ParseIntOrDefault(nil, 5) = %d, want 5", got)
	}
	if got := ParseIntOrDefault("xyz", -1); got != -1 {
		t.Errorf("ParseIntOrDefault(xyz, -1) = %d, want -1", got)
	}
	if got := ParseIntOrDefault(math.NaN(), 9); got != 9 {
		t.Errorf("ParseIntOrDefault(NaN, 9) = %d, want 9", got)
	}
}

func TestFormatDeliveryDate(t *testing.T) {
	d := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	if got := formatDeliveryDate(d); got != "25/04/15" {
		t.Errorf("formatDeliveryDate(time) = %q, want 25/04/15", got)
	}
	if got := formatDeliveryDate("2025-04-15"); got != "25/04/15" {
		t.Errorf("formatDeliveryDate(iso) = %q, want 25/04/15", got)
	}
	// パース不能な値は素通し
	if got := formatDeliveryDate("納期未定"); got != "納期未定" {
		t.Errorf("formatDeliveryDate(raw) = %q", got)
	}
}

func TestNormalizeBOMRow(t *testing.T) {
	raw := RawRow{
		ColSeiban:    "NKA-00001-00-00",
		ColPartNo:    "P01",
		ColPageNo:    1.0,
		ColRowNo:     "100",
		ColHierarchy: 2.0,
		ColItemName:  " ブラケット ",
		ColSpec1:     "SS400 t6",
		ColTypeCode:  "11.0",
		ColTypeLabel: "追加工",
		ColMaterial:  "STEEL",
		ColQuantity:  "4",
	}
	row := NormalizeBOMRow(raw)
	if row.Seiban != "NKA-00001-00-00" || row.PageNo != "1" || row.Hierarchy != 2 {
		t.Errorf("unexpected identity fields: %+v", row)
	}
	if row.TypeCode != "11" {
		t.Errorf("TypeCode = %q, want 11", row.TypeCode)
	}
	if row.ItemName != "ブラケット" || row.Quantity != 4 {
		t.Errorf("unexpected item fields: %+v", row)
	}
}
