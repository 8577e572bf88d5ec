package core

// Overview summarizes a month.
type Overview struct {
	TotalIncome   Money `json:"total_income"`
	TotalExpenses Money `json:"total_expenses"`
	Savings       Money `json:"savings"`
}

// Summarize totals items: income is Rendimentos, expenses are both paid and
// unpaid expenses, savings is their difference.
func Summarize(items []Item) Overview {
	var o Overview
	for _, it := range items {
		if it.Type.IsIncome() {
			o.TotalIncome = o.TotalIncome.Add(it.Amount)
		} else {
			o.TotalExpenses = o.TotalExpenses.Add(it.Amount)
		}
	}
	o.Savings = o.TotalIncome.Sub(o.TotalExpenses)
	return o
}
