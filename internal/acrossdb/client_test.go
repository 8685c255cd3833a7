package acrossdb

import "testing"

func TestPadOrderNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"86922", "00086922"},
		{"00086922", "00086922"},
		{" 86922 ", "00086922"},
		{"123456789", "123456789"}, // 8桁超はそのまま
		{"", "00000000"},
	}
	for _, tt := range tests {
		if got := PadOrderNumber(tt.in); got != tt.want {
			t.Errorf("PadOrderNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAvailableViews(t *testing.T) {
	views := AvailableViews()
	for _, v := range []string{ViewTehai, ViewHacchu, ViewZan, ViewShiire} {
		if _, ok := views[v]; !ok {
			t.Errorf("view %q missing from AvailableViews", v)
		}
	}

	// 呼び出し側で書き換えても内部マップに影響しない
	views[ViewTehai] = "changed"
	if AvailableViews()[ViewTehai] == "changed" {
		t.Error("AvailableViews must return a copy")
	}
}
