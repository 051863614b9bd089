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

const feeColumns = `id, receipt_no, student_id, student_name, student_index, class_id, class_name, months, amount, notes, collected_by, collector_name, receipt_status, receipt_path, created_at`

// FeeRepository provides database access for fee payments and receipts.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository creates a new instance of FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// FindByID returns a fee payment by identifier.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.FeePayment, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_payments WHERE id = $1 LIMIT 1`, feeColumns)
	var payment models.FeePayment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee payment by id: %w", err)
	}
	return &payment, nil
}

// LookupStudent returns the fee collection summary for a student index.
func (r *FeeRepository) LookupStudent(ctx context.Context, indexNumber string) (*models.StudentLookup, error) {
	const query = `SELECT u.id, u.full_name, u.index_number, u.class_id, c.name AS class_name FROM users u LEFT JOIN classes c ON c.id = u.class_id WHERE u.index_number = $1 AND u.role = 'Student' AND u.active = TRUE LIMIT 1`
	var lookup models.StudentLookup
	if err := r.db.GetContext(ctx, &lookup, query, indexNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	return &lookup, nil
}

// ListPaidMonths returns months already paid by a student, to block
// double collection.
func (r *FeeRepository) ListPaidMonths(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT unnest(months) FROM fee_payments WHERE student_id = $1`
	var months []string
	if err := r.db.SelectContext(ctx, &months, query, studentID); err != nil {
		return nil, fmt.Errorf("list paid months: %w", err)
	}
	return months, nil
}

// List returns fee history with total count.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.FeePayment, int, error) {
	baseQuery := `FROM fee_payments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Month != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(months)", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(student_index) LIKE $%d OR LOWER(receipt_no) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", feeColumns, baseQuery, pageSize, offset)

	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee payments: %w", err)
	}

	return payments, total, nil
}

// Create inserts a new fee payment.
func (r *FeeRepository) Create(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if payment.ReceiptStatus == "" {
		payment.ReceiptStatus = models.ReceiptPending
	}

	const query = `INSERT INTO fee_payments (id, receipt_no, student_id, student_name, student_index, class_id, class_name, months, amount, notes, collected_by, collector_name, receipt_status, created_at) VALUES (:id, :receipt_no, :student_id, :student_name, :student_index, :class_id, :class_name, :months, :amount, :notes, :collected_by, :collector_name, :receipt_status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create fee payment: %w", err)
	}
	return nil
}

// UpdateReceipt records the outcome of an async receipt render.
func (r *FeeRepository) UpdateReceipt(ctx context.Context, id string, status models.ReceiptStatus, path *string) error {
	const query = `UPDATE fee_payments SET receipt_status = $2, receipt_path = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, path); err != nil {
		return fmt.Errorf("update fee receipt: %w", err)
	}
	return nil
}

// NextReceiptNo allocates the next receipt number from a sequence.
func (r *FeeRepository) NextReceiptNo(ctx context.Context) (string, error) {
	const query = `SELECT nextval('receipt_no_seq')`
	var seq int64
	if err := r.db.GetContext(ctx, &seq, query); err != nil {
		return "", fmt.Errorf("next receipt no: %w", err)
	}
	return fmt.Sprintf("RCP-%06d", seq), nil
}
