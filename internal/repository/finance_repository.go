package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schooldesk/schooldesk-api/internal/models"
)

// FinanceRepository provides database access for the finance ledger.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository creates a new instance of FinanceRepository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// FindByID returns a transaction by identifier.
func (r *FinanceRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	const query = `SELECT id, type, category, amount, date, created_by, created_at, updated_at FROM transactions WHERE id = $1 LIMIT 1`
	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find transaction by id: %w", err)
	}
	return &tx, nil
}

// List returns ledger entries with total count.
func (r *FinanceRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	baseQuery := `FROM transactions WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"date": true, "amount": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, type, category, amount, date, created_by, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var transactions []models.Transaction
	if err := r.db.SelectContext(ctx, &transactions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	return transactions, total, nil
}

// Summary aggregates revenue and expense over an optional date range.
func (r *FinanceRepository) Summary(ctx context.Context, from, to *time.Time) (*models.FinanceSummary, error) {
	baseQuery := `SELECT COALESCE(SUM(CASE WHEN type = 'Revenue' THEN amount ELSE 0 END), 0) AS total_revenue, COALESCE(SUM(CASE WHEN type = 'Expense' THEN amount ELSE 0 END), 0) AS total_expense FROM transactions WHERE 1=1`
	var args []interface{}
	if from != nil {
		baseQuery += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		baseQuery += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *to)
	}

	var summary models.FinanceSummary
	if err := r.db.GetContext(ctx, &summary, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("finance summary: %w", err)
	}
	summary.Net = summary.TotalRevenue - summary.TotalExpense
	return &summary, nil
}

// MonthlyRevenue sums revenue recorded in the month containing ts.
func (r *FinanceRepository) MonthlyRevenue(ctx context.Context, ts time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'Revenue' AND date_trunc('month', date) = date_trunc('month', $1::timestamptz)`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, ts); err != nil {
		return 0, fmt.Errorf("monthly revenue: %w", err)
	}
	return total, nil
}

// Create inserts a new transaction.
func (r *FinanceRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	const query = `INSERT INTO transactions (id, type, category, amount, date, created_by, created_at, updated_at) VALUES (:id, :type, :category, :amount, :date, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// Update updates a transaction.
func (r *FinanceRepository) Update(ctx context.Context, tx *models.Transaction) error {
	tx.UpdatedAt = time.Now().UTC()
	const query = `UPDATE transactions SET type = :type, category = :category, amount = :amount, date = :date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// Delete removes a transaction.
func (r *FinanceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM transactions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}
