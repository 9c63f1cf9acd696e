package core

// MonthSummary is the read model served to reports for one user-month. It is
// assembled straight from the aggregate rows, never recomputed from the
// transaction set.
type MonthSummary struct {
	Target       MonthlyTarget
	Categories   []CategoryAmount
	PaymentModes []PaymentModeAmount
}

// PlanningValues are the user-set MonthlyTarget fields (the ones the ledger
// engine never touches).
type PlanningValues struct {
	Budget     Money
	Income     Money
	Investment Money
}
