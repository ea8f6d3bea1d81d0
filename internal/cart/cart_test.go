package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func product(id int64, price string) Product {
	return Product{ID: id, Name: "item", UnitPrice: decimal.RequireFromString(price)}
}

func assertTotals(t *testing.T, c *Cart, items int32, price string) {
	t.Helper()
	totals := c.Totals()
	if totals.Items != items {
		t.Fatalf("expected %d items, got %d", items, totals.Items)
	}
	if !totals.Price.Equal(decimal.RequireFromString(price)) {
		t.Fatalf("expected total %s, got %s", price, totals.Price)
	}
}

func TestAddItemMergesLines(t *testing.T) {
	c := New()
	c.AddItem(product(1, "5"), 1)
	c.AddItem(product(1, "5"), 2)

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", lines[0].Quantity)
	}
	assertTotals(t, c, 3, "15")
}

func TestAddItemClampsQuantity(t *testing.T) {
	c := New()
	c.AddItem(product(1, "2.50"), 0)
	assertTotals(t, c, 1, "2.50")
}

func TestTotalsNeverStale(t *testing.T) {
	c := New()
	c.AddItem(product(1, "3.00"), 2)
	c.AddItem(product(2, "1.25"), 4)
	assertTotals(t, c, 6, "11.00")

	c.UpdateQuantity(2, 1)
	assertTotals(t, c, 3, "7.25")

	c.RemoveItem(1)
	assertTotals(t, c, 1, "1.25")

	c.Clear()
	assertTotals(t, c, 0, "0")
}

func TestUpdateQuantityZeroEqualsRemove(t *testing.T) {
	left := New()
	left.AddItem(product(7, "4"), 2)
	left.UpdateQuantity(7, 0)

	right := New()
	right.AddItem(product(7, "4"), 2)
	right.RemoveItem(7)

	if len(left.Lines()) != 0 || len(right.Lines()) != 0 {
		t.Fatalf("expected both carts empty, got %d and %d lines", len(left.Lines()), len(right.Lines()))
	}
}

func TestUpdateQuantityReplacesNotDelta(t *testing.T) {
	c := New()
	c.AddItem(product(1, "2"), 5)
	c.UpdateQuantity(1, 2)
	if got := c.Lines()[0].Quantity; got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
}

func TestRemoveItemIdempotent(t *testing.T) {
	c := New()
	c.AddItem(product(1, "2"), 1)
	c.RemoveItem(1)
	c.RemoveItem(1)
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestUpdateItemNotes(t *testing.T) {
	c := New()
	c.AddItem(product(1, "2"), 1)
	c.UpdateItemNotes(1, "no onions")
	c.UpdateItemNotes(99, "ignored")

	if got := c.Lines()[0].Notes; got != "no onions" {
		t.Fatalf("expected notes set, got %q", got)
	}
	if len(c.Lines()) != 1 {
		t.Fatalf("notes on missing line must not create a line")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New()
	c.AddItem(product(1, "9.90"), 2)
	c.UpdateItemNotes(1, "extra sauce")

	data, err := EncodeSnapshot(c.Snapshot())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	restored := New()
	restored.Restore(snap)
	assertTotals(t, restored, 2, "19.80")
	if restored.Lines()[0].Notes != "extra sauce" {
		t.Fatalf("notes lost in round trip")
	}
}

func TestRestoreDropsInvalidLines(t *testing.T) {
	c := New()
	c.Restore(Snapshot{Lines: []Line{
		{ProductID: 1, UnitPrice: decimal.NewFromInt(2), Quantity: 0},
		{ProductID: 2, UnitPrice: decimal.NewFromInt(3), Quantity: 1},
	}})
	if len(c.Lines()) != 1 || c.Lines()[0].ProductID != 2 {
		t.Fatalf("expected zero-quantity line dropped")
	}
}
