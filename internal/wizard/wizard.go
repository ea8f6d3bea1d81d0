package wizard

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State is the wizard's current screen. Transitions are driven entirely by
// the session's own operations; the machine performs no I/O.
type State string

const (
	StatePackageSelection      State = "PACKAGE_SELECTION"
	StatePersonOptionSelection State = "PERSON_OPTION_SELECTION"
	StateMealSelection         State = "MEAL_SELECTION"
	StateSummary               State = "SUMMARY"
	StateSubmitted             State = "SUBMITTED"
)

// Package is the catalog view of a buffet package as handed in by the
// caller after a catalog fetch. The wizard never mutates it.
type Package struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PersonOption struct {
	ID    int64           `json:"id"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

type Step struct {
	ID            int64  `json:"id"`
	Number        int32  `json:"stepNumber"`
	Title         string `json:"title"`
	MinSelections int32  `json:"minSelections"`
	MaxSelections int32  `json:"maxSelections"`
}

// StepSelection holds the meal ids chosen for one step. Duplicates are
// forbidden; insertion order is kept only for stable serialization.
type StepSelection struct {
	StepID  int64   `json:"stepId"`
	MealIDs []int64 `json:"mealIds"`
}

// Session is one buffet order in progress. It is owned by a single guest
// session and persisted as an opaque JSON document between requests.
type Session struct {
	ID           string          `json:"id"`
	State        State           `json:"state"`
	StepIndex    int             `json:"stepIndex"` // 1-based, valid in MEAL_SELECTION
	Package      *Package        `json:"package,omitempty"`
	PersonOption *PersonOption   `json:"personOption,omitempty"`
	Steps        []Step          `json:"steps,omitempty"`
	Selections   []StepSelection `json:"selections,omitempty"`
	CustomerID   *int64          `json:"customerId,omitempty"`
	DeliveryDate string          `json:"deliveryDate,omitempty"`
	DeliveryTime string          `json:"deliveryTime,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	OrderNumber  string          `json:"orderNumber,omitempty"`
}

func NewSession(id string) *Session {
	return &Session{ID: id, State: StatePackageSelection}
}

// LimitReachedError reports a rejected toggle: the step already holds the
// maximum number of selections. The selection is left unchanged.
type LimitReachedError struct {
	StepID int64
	Max    int32
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("step %d already has the maximum of %d selections", e.StepID, e.Max)
}

// OutOfRangeError reports a failed advance guard and names the violated
// bound ("min" or "max").
type OutOfRangeError struct {
	StepID   int64
	Count    int32
	Min      int32
	Max      int32
	Violated string
}

func (e *OutOfRangeError) Error() string {
	if e.Violated == "min" {
		return fmt.Sprintf("step %d needs at least %d selections, has %d", e.StepID, e.Min, e.Count)
	}
	return fmt.Sprintf("step %d allows at most %d selections, has %d", e.StepID, e.Max, e.Count)
}

// TransitionError reports an operation invoked in a state that does not
// accept it. Like the guard errors it is advisory: the session is intact.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed in state %s", e.Op, e.State)
}

// SelectPackage stores the package together with its steps (fetched by the
// caller) and moves to person-option selection. Any prior person option and
// all accumulated selections are cleared: they belong to the old package.
func (s *Session) SelectPackage(pkg Package, steps []Step) error {
	if s.State == StateSubmitted {
		return &TransitionError{Op: "selectPackage", State: s.State}
	}
	s.Package = &pkg
	s.Steps = steps
	s.PersonOption = nil
	s.Selections = nil
	s.StepIndex = 0
	s.State = StatePersonOptionSelection
	return nil
}

// SelectPersonOption stores the chosen tier and enters the first meal step,
// or goes straight to the summary when the package has no steps.
func (s *Session) SelectPersonOption(opt PersonOption) error {
	if s.State != StatePersonOptionSelection {
		return &TransitionError{Op: "selectPersonOption", State: s.State}
	}
	s.PersonOption = &opt
	if len(s.Steps) == 0 {
		s.State = StateSummary
		return nil
	}
	s.StepIndex = 1
	s.State = StateMealSelection
	return nil
}

// ToggleMeal adds or removes a meal for a step. Removing is always allowed.
// Adding is rejected once the step holds max_selections meals, except that
// a step capped at one selection replaces instead (radio semantics).
func (s *Session) ToggleMeal(stepID, mealID int64) error {
	if s.State != StateMealSelection {
		return &TransitionError{Op: "toggleMeal", State: s.State}
	}
	step, ok := s.findStep(stepID)
	if !ok {
		return fmt.Errorf("unknown step %d", stepID)
	}

	sel := s.selection(stepID)
	for i, id := range sel.MealIDs {
		if id == mealID {
			sel.MealIDs = append(sel.MealIDs[:i], sel.MealIDs[i+1:]...)
			return nil
		}
	}

	if step.MaxSelections == 1 {
		sel.MealIDs = []int64{mealID}
		return nil
	}
	if int32(len(sel.MealIDs)) >= step.MaxSelections {
		return &LimitReachedError{StepID: stepID, Max: step.MaxSelections}
	}
	sel.MealIDs = append(sel.MealIDs, mealID)
	return nil
}

// CurrentStep returns the step the wizard is on, when in meal selection.
func (s *Session) CurrentStep() (Step, bool) {
	if s.State != StateMealSelection || s.StepIndex < 1 || s.StepIndex > len(s.Steps) {
		return Step{}, false
	}
	return s.Steps[s.StepIndex-1], true
}

// CanAdvance checks the current step's cardinality guard.
func (s *Session) CanAdvance() (bool, *OutOfRangeError) {
	step, ok := s.CurrentStep()
	if !ok {
		return false, nil
	}
	return s.checkBounds(step)
}

func (s *Session) checkBounds(step Step) (bool, *OutOfRangeError) {
	count := s.selectionCount(step.ID)
	if count < step.MinSelections {
		return false, &OutOfRangeError{StepID: step.ID, Count: count, Min: step.MinSelections, Max: step.MaxSelections, Violated: "min"}
	}
	if count > step.MaxSelections {
		return false, &OutOfRangeError{StepID: step.ID, Count: count, Min: step.MinSelections, Max: step.MaxSelections, Violated: "max"}
	}
	return true, nil
}

// Advance moves to the next meal step, or to the summary after the last
// one. It refuses, leaving the session untouched, while the current step's
// selection count is out of bounds.
func (s *Session) Advance() error {
	if s.State != StateMealSelection {
		return &TransitionError{Op: "advance", State: s.State}
	}
	if ok, guard := s.CanAdvance(); !ok {
		if guard != nil {
			return guard
		}
		return &TransitionError{Op: "advance", State: s.State}
	}
	if s.StepIndex >= len(s.Steps) {
		s.State = StateSummary
		s.StepIndex = 0
		return nil
	}
	s.StepIndex++
	return nil
}

// Back navigates one screen backwards and is always allowed. Backing out of
// the first meal step clears every accumulated selection: selections are
// tied to the chosen tier and are meaningless if it changes.
func (s *Session) Back() error {
	switch s.State {
	case StateSummary:
		if len(s.Steps) == 0 {
			s.PersonOption = nil
			s.State = StatePersonOptionSelection
			return nil
		}
		s.StepIndex = len(s.Steps)
		s.State = StateMealSelection
		return nil
	case StateMealSelection:
		if s.StepIndex > 1 {
			s.StepIndex--
			return nil
		}
		s.Selections = nil
		s.PersonOption = nil
		s.StepIndex = 0
		s.State = StatePersonOptionSelection
		return nil
	case StatePersonOptionSelection:
		s.Package = nil
		s.Steps = nil
		s.State = StatePackageSelection
		return nil
	default:
		return &TransitionError{Op: "back", State: s.State}
	}
}

func (s *Session) SetCustomer(customerID int64) {
	s.CustomerID = &customerID
}

func (s *Session) SetDelivery(date, timeOfDay string) {
	s.DeliveryDate = date
	s.DeliveryTime = timeOfDay
}

func (s *Session) SetNotes(notes string) {
	s.Notes = notes
}

// Price is the person option's price, the only price in this model. Step
// selections are informational and never add cost.
func (s *Session) Price() decimal.Decimal {
	if s.PersonOption == nil {
		return decimal.Zero
	}
	return s.PersonOption.Price
}

// MissingFieldError names the summary field blocking submission.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// CanSubmit requires the summary fields to be set and re-checks every
// step's bounds, since selections may have been edited after advancing.
func (s *Session) CanSubmit() (bool, error) {
	if s.State != StateSummary {
		return false, &TransitionError{Op: "submit", State: s.State}
	}
	if s.Package == nil {
		return false, &MissingFieldError{Field: "package"}
	}
	if s.PersonOption == nil {
		return false, &MissingFieldError{Field: "personOption"}
	}
	if s.CustomerID == nil {
		return false, &MissingFieldError{Field: "customer"}
	}
	if s.DeliveryDate == "" {
		return false, &MissingFieldError{Field: "deliveryDate"}
	}
	if s.DeliveryTime == "" {
		return false, &MissingFieldError{Field: "deliveryTime"}
	}
	for _, step := range s.Steps {
		if ok, guard := s.checkBounds(step); !ok {
			return false, guard
		}
	}
	return true, nil
}

// SelectionPair is one flattened (step, meal) choice in the submission.
type SelectionPair struct {
	StepID int64 `json:"stepId"`
	MealID int64 `json:"mealId"`
}

type Submission struct {
	PackageID      int64           `json:"packageId"`
	PersonOptionID int64           `json:"personOptionId"`
	Selections     []SelectionPair `json:"selections"`
	CustomerID     int64           `json:"customerId"`
	DeliveryDate   string          `json:"deliveryDate"`
	DeliveryTime   string          `json:"deliveryTime"`
	Notes          string          `json:"notes,omitempty"`
	Price          decimal.Decimal `json:"price"`
}

// BuildSubmission flattens the selection state into (step, meal) pairs,
// each selected pair exactly once.
func (s *Session) BuildSubmission() (Submission, error) {
	if ok, err := s.CanSubmit(); !ok {
		return Submission{}, err
	}
	pairs := make([]SelectionPair, 0)
	for _, sel := range s.Selections {
		for _, mealID := range sel.MealIDs {
			pairs = append(pairs, SelectionPair{StepID: sel.StepID, MealID: mealID})
		}
	}
	return Submission{
		PackageID:      s.Package.ID,
		PersonOptionID: s.PersonOption.ID,
		Selections:     pairs,
		CustomerID:     *s.CustomerID,
		DeliveryDate:   s.DeliveryDate,
		DeliveryTime:   s.DeliveryTime,
		Notes:          s.Notes,
		Price:          s.Price(),
	}, nil
}

// MarkSubmitted is called only after the external submission succeeded.
// On failure the caller leaves the session in summary so the guest can
// retry without re-entering anything.
func (s *Session) MarkSubmitted(orderNumber string) error {
	if s.State != StateSummary {
		return &TransitionError{Op: "markSubmitted", State: s.State}
	}
	s.OrderNumber = orderNumber
	s.State = StateSubmitted
	return nil
}

func (s *Session) findStep(stepID int64) (Step, bool) {
	for _, step := range s.Steps {
		if step.ID == stepID {
			return step, true
		}
	}
	return Step{}, false
}

func (s *Session) selectionCount(stepID int64) int32 {
	for _, sel := range s.Selections {
		if sel.StepID == stepID {
			return int32(len(sel.MealIDs))
		}
	}
	return 0
}

// SelectedMeals returns the meal ids chosen for a step.
func (s *Session) SelectedMeals(stepID int64) []int64 {
	for _, sel := range s.Selections {
		if sel.StepID == stepID {
			out := make([]int64, len(sel.MealIDs))
			copy(out, sel.MealIDs)
			return out
		}
	}
	return nil
}

func (s *Session) selection(stepID int64) *StepSelection {
	for i := range s.Selections {
		if s.Selections[i].StepID == stepID {
			return &s.Selections[i]
		}
	}
	s.Selections = append(s.Selections, StepSelection{StepID: stepID})
	return &s.Selections[len(s.Selections)-1]
}
