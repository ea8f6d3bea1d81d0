package handlers

import "testing"

func TestReceiptItemLines(t *testing.T) {
	items := []orderItem{
		{MealID: 1, Name: "Nasi Goreng", UnitPrice: "25000", Quantity: 3, Subtotal: "75000", Notes: "extra spicy"},
		{MealID: 2, Name: "Es Teh", UnitPrice: "8000", Quantity: 1, Subtotal: "8000"},
	}
	lines := receiptItemLines(items)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Label != "Nasi Goreng" || lines[0].Quantity != 3 || lines[0].Amount != "75000" || lines[0].Notes != "extra spicy" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Quantity != 1 || lines[1].Notes != "" {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestReceiptSelectionLines(t *testing.T) {
	selections := []orderSelection{
		{StepID: 1, StepTitle: "Main Course", MealID: 10, MealName: "Rendang"},
		{StepID: 2, StepTitle: "Drink", MealID: 20, MealName: "Es Jeruk"},
	}
	lines := receiptSelectionLines(selections)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Label != "Main Course: Rendang" {
		t.Fatalf("unexpected label: %q", lines[0].Label)
	}
	if lines[0].Quantity != 0 || lines[0].Amount != "" {
		t.Fatalf("selection lines carry no quantity or amount: %+v", lines[0])
	}
}
