package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
	"github.com/schooldesk/schooldesk-api/pkg/export"
	"github.com/schooldesk/schooldesk-api/pkg/jobs"
	"github.com/schooldesk/schooldesk-api/pkg/storage"
)

type mockFeeRepo struct {
	payments map[string]*models.FeePayment
	paid     []string
	lookup   *models.StudentLookup
	seq      int
}

func newMockFeeRepo() *mockFeeRepo {
	className := "10-A"
	classID := "c1"
	return &mockFeeRepo{
		payments: map[string]*models.FeePayment{},
		lookup:   &models.StudentLookup{ID: "s1", FullName: "Student One", IndexNumber: "STU-001", ClassID: &classID, ClassName: &className},
	}
}

func (m *mockFeeRepo) FindByID(ctx context.Context, id string) (*models.FeePayment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockFeeRepo) LookupStudent(ctx context.Context, indexNumber string) (*models.StudentLookup, error) {
	if m.lookup == nil || m.lookup.IndexNumber != indexNumber {
		return nil, sql.ErrNoRows
	}
	return m.lookup, nil
}

func (m *mockFeeRepo) ListPaidMonths(ctx context.Context, studentID string) ([]string, error) {
	return m.paid, nil
}

func (m *mockFeeRepo) List(ctx context.Context, filter models.FeeFilter) ([]models.FeePayment, int, error) {
	var out []models.FeePayment
	for _, p := range m.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockFeeRepo) Create(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = fmt.Sprintf("pay-%d", len(m.payments)+1)
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *mockFeeRepo) UpdateReceipt(ctx context.Context, id string, status models.ReceiptStatus, path *string) error {
	p, ok := m.payments[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.ReceiptStatus = status
	p.ReceiptPath = path
	return nil
}

func (m *mockFeeRepo) NextReceiptNo(ctx context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("RCP-%06d", m.seq), nil
}

type mockLedger struct {
	transactions []*models.Transaction
}

func (m *mockLedger) Create(ctx context.Context, tx *models.Transaction) error {
	m.transactions = append(m.transactions, tx)
	return nil
}

type mockReceiptQueue struct {
	jobs []jobs.Job
}

func (m *mockReceiptQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func newFeeService(t *testing.T, repo *mockFeeRepo, ledger *mockLedger, queue *mockReceiptQueue) *FeeService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	renderer := export.NewReceiptRenderer("Sunrise High", "1 School Road")
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewFeeService(repo, ledger, renderer, store, signer, queue, nil, validator.New(), zap.NewNop())
}

func TestCollectCreatesPendingReceiptAndLedgerEntry(t *testing.T) {
	repo := newMockFeeRepo()
	ledger := &mockLedger{}
	queue := &mockReceiptQueue{}
	svc := newFeeService(t, repo, ledger, queue)

	payment, err := svc.Collect(context.Background(), "admin1", "Admin", FeeCollectRequest{
		IndexNumber: "STU-001", Months: []string{"January", "February"}, Amount: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptPending, payment.ReceiptStatus)
	assert.Equal(t, "RCP-000001", payment.ReceiptNo)
	assert.Equal(t, "10-A", payment.ClassName)

	require.Len(t, ledger.transactions, 1)
	assert.Equal(t, models.TransactionRevenue, ledger.transactions[0].Type)
	assert.Equal(t, 150.0, ledger.transactions[0].Amount)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, ReceiptJobType, queue.jobs[0].Type)
}

func TestCollectRejectsAlreadyPaidMonth(t *testing.T) {
	repo := newMockFeeRepo()
	repo.paid = []string{"January"}
	svc := newFeeService(t, repo, &mockLedger{}, &mockReceiptQueue{})

	_, err := svc.Collect(context.Background(), "admin1", "Admin", FeeCollectRequest{
		IndexNumber: "STU-001", Months: []string{"January"}, Amount: 75,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRenderReceiptMarksReady(t *testing.T) {
	repo := newMockFeeRepo()
	queue := &mockReceiptQueue{}
	svc := newFeeService(t, repo, &mockLedger{}, queue)

	payment, err := svc.Collect(context.Background(), "admin1", "Admin", FeeCollectRequest{
		IndexNumber: "STU-001", Months: []string{"March"}, Amount: 75,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RenderReceipt(context.Background(), queue.jobs[0]))

	stored := repo.payments[payment.ID]
	assert.Equal(t, models.ReceiptReady, stored.ReceiptStatus)
	require.NotNil(t, stored.ReceiptPath)

	link, err := svc.ReceiptLink(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, link.URL)

	file, name, err := svc.OpenReceipt(link.URL[len("/fees/receipt/"):])
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, payment.ID+".pdf", name)
}

func TestReceiptLinkBeforeRenderFails(t *testing.T) {
	repo := newMockFeeRepo()
	queue := &mockReceiptQueue{}
	svc := newFeeService(t, repo, &mockLedger{}, queue)

	payment, err := svc.Collect(context.Background(), "admin1", "Admin", FeeCollectRequest{
		IndexNumber: "STU-001", Months: []string{"April"}, Amount: 75,
	})
	require.NoError(t, err)

	_, err = svc.ReceiptLink(context.Background(), payment.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
