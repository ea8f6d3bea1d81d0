package wizard

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func sessionAtSteps(t *testing.T, steps []Step) *Session {
	t.Helper()
	s := NewSession("sess-1")
	if err := s.SelectPackage(Package{ID: 10, Name: "Family Buffet"}, steps); err != nil {
		t.Fatalf("selectPackage failed: %v", err)
	}
	if err := s.SelectPersonOption(PersonOption{ID: 20, Label: "10 persons", Price: decimal.NewFromInt(150)}); err != nil {
		t.Fatalf("selectPersonOption failed: %v", err)
	}
	return s
}

func TestToggleNeverExceedsMax(t *testing.T) {
	s := sessionAtSteps(t, []Step{{ID: 1, Number: 1, MinSelections: 1, MaxSelections: 2}})

	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if ok, _ := s.CanAdvance(); !ok {
		t.Fatalf("expected canAdvance with count 1, min 1")
	}
	if err := s.ToggleMeal(1, 11); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if ok, _ := s.CanAdvance(); !ok {
		t.Fatalf("expected canAdvance with count 2, max 2")
	}

	err := s.ToggleMeal(1, 12)
	var limit *LimitReachedError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitReachedError, got %v", err)
	}
	got := s.SelectedMeals(1)
	if len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("selection changed on rejected toggle: %v", got)
	}
}

func TestToggleRemoveAlwaysAllowed(t *testing.T) {
	s := sessionAtSteps(t, []Step{{ID: 1, Number: 1, MinSelections: 0, MaxSelections: 1}})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(s.SelectedMeals(1)) != 0 {
		t.Fatalf("expected empty selection after remove")
	}
}

func TestSingleChoiceStepReplaces(t *testing.T) {
	s := sessionAtSteps(t, []Step{{ID: 1, Number: 1, MinSelections: 1, MaxSelections: 1}})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("toggle A failed: %v", err)
	}
	if err := s.ToggleMeal(1, 11); err != nil {
		t.Fatalf("toggle B failed: %v", err)
	}
	got := s.SelectedMeals(1)
	if len(got) != 1 || got[0] != 11 {
		t.Fatalf("expected exactly {11}, got %v", got)
	}
}

func TestCanAdvanceNamesViolatedBound(t *testing.T) {
	s := sessionAtSteps(t, []Step{{ID: 1, Number: 1, MinSelections: 2, MaxSelections: 3}})
	ok, guard := s.CanAdvance()
	if ok {
		t.Fatalf("expected guard to fail with empty selection")
	}
	if guard == nil || guard.Violated != "min" || guard.Min != 2 {
		t.Fatalf("expected min bound named, got %+v", guard)
	}

	if err := s.Advance(); err == nil {
		t.Fatalf("expected advance to be refused")
	}
	if s.State != StateMealSelection || s.StepIndex != 1 {
		t.Fatalf("state moved despite failed guard")
	}
}

func TestAdvanceThroughStepsToSummary(t *testing.T) {
	s := sessionAtSteps(t, []Step{
		{ID: 1, Number: 1, MinSelections: 1, MaxSelections: 1},
		{ID: 2, Number: 2, MinSelections: 0, MaxSelections: 2},
	})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance to step 2 failed: %v", err)
	}
	if s.StepIndex != 2 {
		t.Fatalf("expected step index 2, got %d", s.StepIndex)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance to summary failed: %v", err)
	}
	if s.State != StateSummary {
		t.Fatalf("expected summary state, got %s", s.State)
	}
}

func TestZeroStepPackageSkipsMealSelection(t *testing.T) {
	s := NewSession("sess-2")
	if err := s.SelectPackage(Package{ID: 10}, nil); err != nil {
		t.Fatalf("selectPackage failed: %v", err)
	}
	if err := s.SelectPersonOption(PersonOption{ID: 20, Price: decimal.NewFromInt(80)}); err != nil {
		t.Fatalf("selectPersonOption failed: %v", err)
	}
	if s.State != StateSummary {
		t.Fatalf("expected summary for zero-step package, got %s", s.State)
	}
}

func TestSelectPackageClearsDownstream(t *testing.T) {
	s := sessionAtSteps(t, []Step{{ID: 1, Number: 1, MinSelections: 0, MaxSelections: 2}})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	if err := s.SelectPackage(Package{ID: 11}, []Step{{ID: 5, Number: 1, MinSelections: 0, MaxSelections: 1}}); err != nil {
		t.Fatalf("reselect failed: %v", err)
	}
	if s.PersonOption != nil {
		t.Fatalf("person option survived package change")
	}
	if len(s.Selections) != 0 {
		t.Fatalf("selections survived package change")
	}
	if s.State != StatePersonOptionSelection {
		t.Fatalf("expected person option selection, got %s", s.State)
	}
}

func TestBackOutOfFirstStepClearsSelections(t *testing.T) {
	s := sessionAtSteps(t, []Step{
		{ID: 1, Number: 1, MinSelections: 0, MaxSelections: 2},
		{ID: 2, Number: 2, MinSelections: 0, MaxSelections: 2},
	})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if err := s.Back(); err != nil {
		t.Fatalf("back to step 1 failed: %v", err)
	}
	if len(s.Selections) == 0 {
		t.Fatalf("backing between steps must keep selections")
	}

	if err := s.Back(); err != nil {
		t.Fatalf("back to person option failed: %v", err)
	}
	if s.State != StatePersonOptionSelection {
		t.Fatalf("expected person option selection, got %s", s.State)
	}
	if len(s.Selections) != 0 {
		t.Fatalf("selections must be cleared when leaving the first step")
	}
	if s.PersonOption != nil {
		t.Fatalf("person option must be cleared when leaving the first step")
	}
}

func TestCanSubmitRequiresSummaryFields(t *testing.T) {
	s := sessionAtSteps(t, []Step{{ID: 1, Number: 1, MinSelections: 1, MaxSelections: 2}})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	ok, err := s.CanSubmit()
	var missing *MissingFieldError
	if ok || !errors.As(err, &missing) || missing.Field != "customer" {
		t.Fatalf("expected missing customer, got ok=%v err=%v", ok, err)
	}

	s.SetCustomer(77)
	if ok, err = s.CanSubmit(); ok || !errors.As(err, &missing) || missing.Field != "deliveryDate" {
		t.Fatalf("expected missing deliveryDate, got ok=%v err=%v", ok, err)
	}

	s.SetDelivery("2026-09-12", "18:30")
	if ok, err = s.CanSubmit(); !ok {
		t.Fatalf("expected submit allowed, got %v", err)
	}
}

func TestBuildSubmissionFlattensPairsExactlyOnce(t *testing.T) {
	s := sessionAtSteps(t, []Step{
		{ID: 1, Number: 1, MinSelections: 1, MaxSelections: 2},
		{ID: 2, Number: 2, MinSelections: 1, MaxSelections: 1},
	})
	if err := s.ToggleMeal(1, 10); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := s.ToggleMeal(1, 11); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if err := s.ToggleMeal(2, 30); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	s.SetCustomer(77)
	s.SetDelivery("2026-09-12", "18:30")
	s.SetNotes("birthday")

	sub, err := s.BuildSubmission()
	if err != nil {
		t.Fatalf("buildSubmission failed: %v", err)
	}
	if sub.PackageID != 10 || sub.PersonOptionID != 20 || sub.CustomerID != 77 {
		t.Fatalf("unexpected ids in submission: %+v", sub)
	}
	if !sub.Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected person option price 150, got %s", sub.Price)
	}

	seen := map[[2]int64]int{}
	for _, pair := range sub.Selections {
		seen[[2]int64{pair.StepID, pair.MealID}]++
	}
	expected := [][2]int64{{1, 10}, {1, 11}, {2, 30}}
	if len(sub.Selections) != len(expected) {
		t.Fatalf("expected %d pairs, got %d", len(expected), len(sub.Selections))
	}
	for _, pair := range expected {
		if seen[pair] != 1 {
			t.Fatalf("pair %v appears %d times", pair, seen[pair])
		}
	}
}

func TestFailedSubmissionKeepsSession(t *testing.T) {
	s := sessionAtSteps(t, nil)
	s.SetCustomer(77)
	s.SetDelivery("2026-09-12", "18:30")
	if ok, err := s.CanSubmit(); !ok {
		t.Fatalf("expected submit allowed, got %v", err)
	}

	// Caller's submission failed: no MarkSubmitted. Session must be intact.
	if s.State != StateSummary {
		t.Fatalf("session left summary without a successful submit")
	}
	if ok, err := s.CanSubmit(); !ok {
		t.Fatalf("retry must be possible with the same state, got %v", err)
	}

	if err := s.MarkSubmitted("ORD-1001"); err != nil {
		t.Fatalf("markSubmitted failed: %v", err)
	}
	if s.State != StateSubmitted || s.OrderNumber != "ORD-1001" {
		t.Fatalf("expected submitted state with order number")
	}
	if err := s.MarkSubmitted("ORD-1002"); err == nil {
		t.Fatalf("double submit must be refused")
	}
}

func TestOperationsOutsideTheirState(t *testing.T) {
	s := NewSession("sess-3")

	var transition *TransitionError
	if err := s.ToggleMeal(1, 10); !errors.As(err, &transition) {
		t.Fatalf("expected TransitionError for toggle before package, got %v", err)
	}
	if err := s.SelectPersonOption(PersonOption{ID: 1}); !errors.As(err, &transition) {
		t.Fatalf("expected TransitionError for person option before package, got %v", err)
	}
	if err := s.Back(); !errors.As(err, &transition) {
		t.Fatalf("expected TransitionError for back at initial state, got %v", err)
	}
}
