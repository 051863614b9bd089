package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/export"
	"github.com/schooldesk/schooldesk-api/pkg/jobs"
	"github.com/schooldesk/schooldesk-api/pkg/storage"
)

// ReceiptJobType identifies async receipt render jobs.
const ReceiptJobType = "fee.receipt.render"

type feeRepository interface {
	FindByID(ctx context.Context, id string) (*models.FeePayment, error)
	LookupStudent(ctx context.Context, indexNumber string) (*models.StudentLookup, error)
	ListPaidMonths(ctx context.Context, studentID string) ([]string, error)
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeePayment, int, error)
	Create(ctx context.Context, payment *models.FeePayment) error
	UpdateReceipt(ctx context.Context, id string, status models.ReceiptStatus, path *string) error
	NextReceiptNo(ctx context.Context) (string, error)
}

type feeLedgerWriter interface {
	Create(ctx context.Context, tx *models.Transaction) error
}

type receiptQueue interface {
	Enqueue(job jobs.Job) error
}

type receiptMetrics interface {
	RecordReceiptRender(outcome string)
}

// FeeCollectRequest records a fee payment for a student.
type FeeCollectRequest struct {
	IndexNumber string   `json:"index_number" validate:"required"`
	Months      []string `json:"months" validate:"required,min=1,dive,required"`
	Amount      float64  `json:"amount" validate:"required,gt=0"`
	Notes       string   `json:"notes" validate:"max=500"`
}

// ReceiptLink is returned for a ready receipt download.
type ReceiptLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FeeService collects fee payments and drives the async receipt pipeline.
// Collection returns immediately with the receipt marked PENDING; a worker
// renders the PDF and flips the status to READY or FAILED.
type FeeService struct {
	repo      feeRepository
	ledger    feeLedgerWriter
	renderer  *export.ReceiptRenderer
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	queue     receiptQueue
	metrics   receiptMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs a FeeService instance.
func NewFeeService(repo feeRepository, ledger feeLedgerWriter, renderer *export.ReceiptRenderer, store *storage.LocalStorage, signer *storage.SignedURLSigner, queue receiptQueue, metrics receiptMetrics, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeService{repo: repo, ledger: ledger, renderer: renderer, store: store, signer: signer, queue: queue, metrics: metrics, validator: validate, logger: logger}
}

// LookupStudent returns the fee collection summary for an index number,
// including months already paid.
func (s *FeeService) LookupStudent(ctx context.Context, indexNumber string) (*models.StudentLookup, []string, error) {
	lookup, err := s.repo.LookupStudent(ctx, indexNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no active student with that index number")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}
	paid, err := s.repo.ListPaidMonths(ctx, lookup.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paid months")
	}
	return lookup, paid, nil
}

// Collect records a payment, posts it to the finance ledger and enqueues the
// receipt render. Months already paid for are rejected.
func (s *FeeService) Collect(ctx context.Context, collectorID, collectorName string, req FeeCollectRequest) (*models.FeePayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}

	lookup, paidMonths, err := s.LookupStudent(ctx, req.IndexNumber)
	if err != nil {
		return nil, err
	}

	paid := make(map[string]bool, len(paidMonths))
	for _, m := range paidMonths {
		paid[m] = true
	}
	for _, m := range req.Months {
		if paid[m] {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("fees for %s are already collected", m))
		}
	}

	receiptNo, err := s.repo.NextReceiptNo(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate receipt number")
	}

	payment := &models.FeePayment{
		ReceiptNo:     receiptNo,
		StudentID:     lookup.ID,
		StudentName:   lookup.FullName,
		StudentIndex:  lookup.IndexNumber,
		Months:        req.Months,
		Amount:        req.Amount,
		Notes:         req.Notes,
		CollectedBy:   collectorID,
		CollectorName: collectorName,
		ReceiptStatus: models.ReceiptPending,
		CreatedAt:     time.Now().UTC(),
	}
	if lookup.ClassID != nil {
		payment.ClassID = *lookup.ClassID
	}
	if lookup.ClassName != nil {
		payment.ClassName = *lookup.ClassName
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if s.ledger != nil {
		tx := &models.Transaction{
			Type:      models.TransactionRevenue,
			Category:  "School Fees",
			Amount:    req.Amount,
			Date:      payment.CreatedAt,
			CreatedBy: collectorID,
		}
		if err := s.ledger.Create(ctx, tx); err != nil {
			s.logger.Warn("failed to post fee to finance ledger", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}

	if s.queue != nil {
		job := jobs.Job{ID: payment.ID, Type: ReceiptJobType, Payload: payment.ID}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue receipt render", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}

	return payment, nil
}

// History returns fee payments with pagination.
func (s *FeeService) History(ctx context.Context, filter models.FeeFilter) ([]models.FeePayment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ReceiptLink issues a short-lived signed download link for a ready receipt.
func (s *FeeService) ReceiptLink(ctx context.Context, paymentID string) (*ReceiptLink, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.ReceiptStatus != models.ReceiptReady || payment.ReceiptPath == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "receipt is not ready yet")
	}

	token, expiresAt, err := s.signer.Generate(payment.ID, *payment.ReceiptPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &ReceiptLink{URL: "/fees/receipt/" + token, ExpiresAt: expiresAt}, nil
}

// OpenReceipt validates a signed token and opens the underlying PDF.
func (s *FeeService) OpenReceipt(token string) (*os.File, string, error) {
	receiptID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid receipt link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "receipt file missing")
	}
	return file, receiptID + ".pdf", nil
}

// RenderReceipt is the queue handler that renders and stores one receipt.
func (s *FeeService) RenderReceipt(ctx context.Context, job jobs.Job) error {
	paymentID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("receipt job payload must be a payment id")
	}

	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}

	pdf, err := s.renderer.Render(export.ReceiptData{
		ReceiptNo:    payment.ReceiptNo,
		StudentName:  payment.StudentName,
		StudentIndex: payment.StudentIndex,
		ClassName:    payment.ClassName,
		Months:       payment.Months,
		Amount:       payment.Amount,
		Notes:        payment.Notes,
		CollectedBy:  payment.CollectorName,
		PaidAt:       payment.CreatedAt,
	})
	if err != nil {
		s.markFailed(ctx, payment.ID)
		return fmt.Errorf("render receipt %s: %w", payment.ReceiptNo, err)
	}

	relPath := fmt.Sprintf("%s/%s.pdf", payment.CreatedAt.Format("2006/01"), payment.ReceiptNo)
	if _, err := s.store.Save(relPath, pdf); err != nil {
		s.markFailed(ctx, payment.ID)
		return fmt.Errorf("store receipt %s: %w", payment.ReceiptNo, err)
	}

	if err := s.repo.UpdateReceipt(ctx, payment.ID, models.ReceiptReady, &relPath); err != nil {
		return fmt.Errorf("mark receipt ready %s: %w", payment.ReceiptNo, err)
	}
	if s.metrics != nil {
		s.metrics.RecordReceiptRender("ready")
	}
	return nil
}

func (s *FeeService) markFailed(ctx context.Context, paymentID string) {
	if err := s.repo.UpdateReceipt(ctx, paymentID, models.ReceiptFailed, nil); err != nil {
		s.logger.Error("failed to mark receipt failed", zap.String("payment_id", paymentID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordReceiptRender("failed")
	}
}
