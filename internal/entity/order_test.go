package entity

import "testing"

func TestDeriveStatus(t *testing.T) {
	received := OrderDetail{IsReceived: true}
	pending := OrderDetail{}

	tests := []struct {
		name    string
		details []OrderDetail
		want    string
	}{
		{"明細なし", nil, StatusBeforeReceipt},
		{"全件未受入", []OrderDetail{pending, pending}, StatusBeforeReceipt},
		{"一部受入", []OrderDetail{received, pending}, StatusInProgress},
		{"全件受入", []OrderDetail{received, received}, StatusCompleted},
		{"1件のみ受入済み", []OrderDetail{received}, StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.details); got != tt.want {
				t.Errorf("DeriveStatus = %q, want %q", got, tt.want)
			}
		})
	}
}
