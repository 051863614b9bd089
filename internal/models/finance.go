package models

import "time"

// TransactionType distinguishes revenue from expenses.
type TransactionType string

const (
	TransactionRevenue TransactionType = "Revenue"
	TransactionExpense TransactionType = "Expense"
)

// Transaction represents a finance ledger entry.
type Transaction struct {
	ID        string          `db:"id" json:"id"`
	Type      TransactionType `db:"type" json:"type"`
	Category  string          `db:"category" json:"category"`
	Amount    float64         `db:"amount" json:"amount"`
	Date      time.Time       `db:"date" json:"date"`
	CreatedBy string          `db:"created_by" json:"created_by"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// TransactionFilter narrows ledger listings.
type TransactionFilter struct {
	Type      *TransactionType
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// FinanceSummary aggregates the ledger for the dashboard.
type FinanceSummary struct {
	TotalRevenue float64 `db:"total_revenue" json:"total_revenue"`
	TotalExpense float64 `db:"total_expense" json:"total_expense"`
	Net          float64 `json:"net"`
}
