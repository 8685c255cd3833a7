package merge

import (
	"errors"
	"testing"
	"time"
)

type fakeLedger struct {
	items map[string]*ReceivedItem
	err   error
}

func (f *fakeLedger) ReceivedInfo(orderNumber, itemName, spec1 string, quantity int) (*ReceivedItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[orderNumber], nil
}

func TestRestoreReceiptStateFromSnapshot(t *testing.T) {
	receivedAt := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	snapshot := NewReceiptSnapshot()
	snapshot.Add("86922", ReceivedItem{
		ItemName: "ブラケット", Spec1: "SS400 t6", Quantity: 4, ReceivedAt: &receivedAt,
	})

	d := &Detail{OrderNumber: "86922", ItemName: "ブラケット", Spec1: "SS400 t6", Quantity: 4}
	restored, err := RestoreReceiptState(d, snapshot, nil)
	if err != nil || !restored {
		t.Fatalf("restored=%v err=%v", restored, err)
	}
	if !d.IsReceived || d.ReceivedAt == nil || !d.ReceivedAt.Equal(receivedAt) {
		t.Errorf("receipt state not restored: %+v", d)
	}
}

// 自然キーの数量まで一致しないと別の行とみなす
func TestRestoreReceiptStateQuantityMismatch(t *testing.T) {
	snapshot := NewReceiptSnapshot()
	snapshot.Add("86922", ReceivedItem{ItemName: "ブラケット", Spec1: "SS400 t6", Quantity: 4})

	d := &Detail{OrderNumber: "86922", ItemName: "ブラケット", Spec1: "SS400 t6", Quantity: 5}
	restored, err := RestoreReceiptState(d, snapshot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if restored || d.IsReceived {
		t.Error("quantity mismatch must not restore")
	}
}

func TestRestoreReceiptStateLedgerFallback(t *testing.T) {
	receivedAt := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	qty := 3
	ledger := &fakeLedger{items: map[string]*ReceivedItem{
		"77001": {ItemName: "シャフト", Spec1: "S45C φ30", Quantity: 3, ReceivedAt: &receivedAt, ReceivedQuantity: &qty},
	}}

	// スナップショットには無い → 台帳で復元
	d := &Detail{OrderNumber: "77001", ItemName: "シャフト", Spec1: "S45C φ30", Quantity: 3}
	restored, err := RestoreReceiptState(d, NewReceiptSnapshot(), ledger)
	if err != nil || !restored {
		t.Fatalf("restored=%v err=%v", restored, err)
	}
	if !d.IsReceived || d.ReceivedQuantity == nil || *d.ReceivedQuantity != 3 {
		t.Errorf("ledger state not restored: %+v", d)
	}
}

// スナップショットでヒットしたら台帳は引かない
func TestRestoreReceiptStateSnapshotPriority(t *testing.T) {
	snapshot := NewReceiptSnapshot()
	snapshot.Add("86922", ReceivedItem{ItemName: "ブラケット", Spec1: "SS400 t6", Quantity: 4})

	ledger := &fakeLedger{err: errors.New("must not be called")}
	d := &Detail{OrderNumber: "86922", ItemName: "ブラケット", Spec1: "SS400 t6", Quantity: 4}
	restored, err := RestoreReceiptState(d, snapshot, ledger)
	if err != nil {
		t.Fatalf("ledger was consulted despite snapshot hit: %v", err)
	}
	if !restored {
		t.Error("expected snapshot restore")
	}
}

func TestRestoreReceiptStateLedgerError(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("db down")}
	d := &Detail{OrderNumber: "86922", ItemName: "X", Spec1: "Y", Quantity: 1}
	if _, err := RestoreReceiptState(d, nil, ledger); err == nil {
		t.Error("ledger error must propagate")
	}
}

func TestRestoreReceiptStateNoOrderNumber(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("must not be called")}
	d := &Detail{OrderNumber: ""}
	restored, err := RestoreReceiptState(d, NewReceiptSnapshot(), ledger)
	if err != nil || restored {
		t.Errorf("rows without order number are never restored: restored=%v err=%v", restored, err)
	}
}
