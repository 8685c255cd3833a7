package repository

import (
	"reflect"
	"testing"
)

func TestParentSeiban(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MHT0620-001", "MHT0620"},
		{"MHT0620-12", "MHT0620"},
		{"MHT0620", ""}, // 枝番なし
		{"NKA-00001-00-00", "NKA-00001-00"}, // 末尾の数字列を枝番とみなす
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParentSeiban(tt.in); got != tt.want {
			t.Errorf("ParentSeiban(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortSeibanFamily(t *testing.T) {
	family := []string{"MHT0620-10", "MHT0620-2", "MHT0620", "MHT0620-1"}
	sortSeibanFamily(family, "MHT0620")
	want := []string{"MHT0620", "MHT0620-1", "MHT0620-2", "MHT0620-10"}
	if !reflect.DeepEqual(family, want) {
		t.Errorf("sorted = %v, want %v", family, want)
	}
}
