package core

// Step is one backend call in an item flow.
type Step string

const (
	StepCreateItem      Step = "create_item"
	StepCreateRecurring Step = "create_recurring"
	StepUpdateItem      Step = "update_item"
	StepUpdateRecurring Step = "update_recurring"
	StepDeleteItem      Step = "delete_item"
	StepDeleteRecurring Step = "delete_recurring"
)

// PlanCreate returns the calls that create an item with the given recurrence.
func PlanCreate(r Recurrence) []Step {
	if r.IsRecurring() {
		return []Step{StepCreateRecurring}
	}
	return []Step{StepCreateItem}
}

// PlanEdit returns the calls that save an edited item whose recurrence
// changes from one value to another.
//
// Turning a one-off item into a monthly one deletes it and creates a new
// series; the deleted id is not updated afterwards.
func PlanEdit(from, to Recurrence) []Step {
	switch was, is := from.IsRecurring(), to.IsRecurring(); {
	case was && !is:
		return []Step{StepDeleteRecurring, StepUpdateItem}
	case !was && is:
		return []Step{StepDeleteItem, StepCreateRecurring}
	case was && is:
		return []Step{StepUpdateRecurring, StepUpdateItem}
	default:
		return []Step{StepUpdateItem}
	}
}

// PlanDelete returns the calls that delete an item. Items of a series drop
// the series first.
func PlanDelete(r Recurrence) []Step {
	if r.IsRecurring() {
		return []Step{StepDeleteRecurring, StepDeleteItem}
	}
	return []Step{StepDeleteItem}
}

// ResolveDrop decides the status of an item dropped on target. Income stays
// in the income column and expenses stay in the two expense columns.
// changed is false when the item already belongs to target.
func ResolveDrop(current Status, target Column) (next Status, changed bool, err error) {
	if _, err := ParseColumn(string(target)); err != nil {
		return current, false, err
	}
	if current.IsIncome() != (target == ColumnIncome) {
		return current, false, ErrCrossColumnMove
	}
	if current.Column() == target {
		return current, false, nil
	}
	return target.Status(), true, nil
}
