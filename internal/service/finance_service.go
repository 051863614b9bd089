package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type financeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
	Summary(ctx context.Context, from, to *time.Time) (*models.FinanceSummary, error)
	Create(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, id string) error
}

// TransactionRequest creates or updates a ledger entry.
type TransactionRequest struct {
	Type     models.TransactionType `json:"type" validate:"required,oneof=Revenue Expense"`
	Category string                 `json:"category" validate:"required,min=2,max=100"`
	Amount   float64                `json:"amount" validate:"required,gt=0"`
	Date     string                 `json:"date" validate:"required,datetime=2006-01-02"`
}

// FinanceService provides finance ledger use cases.
type FinanceService struct {
	repo      financeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFinanceService constructs a FinanceService instance.
func NewFinanceService(repo financeRepository, validate *validator.Validate, logger *zap.Logger) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FinanceService{repo: repo, validator: validate, logger: logger}
}

// List returns ledger entries with pagination.
func (s *FinanceService) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.Pagination, error) {
	transactions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return transactions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Summary aggregates the ledger over an optional date range.
func (s *FinanceService) Summary(ctx context.Context, from, to *time.Time) (*models.FinanceSummary, error) {
	summary, err := s.repo.Summary(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute summary")
	}
	return summary, nil
}

// Create records a ledger entry.
func (s *FinanceService) Create(ctx context.Context, actorID string, req TransactionRequest) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transaction payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid transaction date")
	}

	tx := &models.Transaction{
		Type:      req.Type,
		Category:  req.Category,
		Amount:    req.Amount,
		Date:      date,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transaction")
	}
	return tx, nil
}

// Update edits a ledger entry.
func (s *FinanceService) Update(ctx context.Context, id string, req TransactionRequest) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transaction payload")
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid transaction date")
	}

	tx.Type = req.Type
	tx.Category = req.Category
	tx.Amount = req.Amount
	tx.Date = date
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transaction")
	}
	return tx, nil
}

// Delete removes a ledger entry.
func (s *FinanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete transaction")
	}
	return nil
}
