package ws

import (
	"testing"
	"time"
)

func TestOrdersFingerprintChangesWhenOrderLeavesBoard(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	board := []activeOrder{
		{ID: 1, OrderNumber: "ORD-20260831-AA11BB", Status: "PENDING", UpdatedAt: now},
		{ID: 2, OrderNumber: "ORD-20260831-CC22DD", Status: "READY", UpdatedAt: now},
	}
	before := ordersFingerprint(board)

	// Order 2 gets completed: the row drops off the board entirely.
	after := ordersFingerprint(board[:1])
	if after == before {
		t.Fatalf("fingerprint unchanged after an order left the board")
	}

	// The last active order finalizes too and the board goes empty.
	empty := ordersFingerprint(nil)
	if empty == after {
		t.Fatalf("fingerprint unchanged after the board emptied")
	}
}

func TestOrdersFingerprintChangesOnStatusUpdate(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	before := ordersFingerprint([]activeOrder{{ID: 1, Status: "PENDING", UpdatedAt: now}})
	after := ordersFingerprint([]activeOrder{{ID: 1, Status: "CONFIRMED", UpdatedAt: now.Add(time.Second)}})
	if after == before {
		t.Fatalf("fingerprint unchanged after a status update")
	}
}

func TestOrdersFingerprintStableForUnchangedBoard(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	board := []activeOrder{
		{ID: 1, Status: "PENDING", UpdatedAt: now},
		{ID: 2, Status: "READY", UpdatedAt: now.Add(time.Minute)},
	}
	if ordersFingerprint(board) != ordersFingerprint(board) {
		t.Fatalf("fingerprint must be deterministic for the same board")
	}
}
