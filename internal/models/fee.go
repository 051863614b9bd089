package models

import (
	"time"

	"github.com/lib/pq"
)

// ReceiptStatus tracks asynchronous receipt rendering.
type ReceiptStatus string

const (
	ReceiptPending ReceiptStatus = "PENDING"
	ReceiptReady   ReceiptStatus = "READY"
	ReceiptFailed  ReceiptStatus = "FAILED"
)

// FeePayment records a collected fee. Student and class names are denormalised
// at collection time so receipts stay stable if rosters change later.
type FeePayment struct {
	ID            string         `db:"id" json:"id"`
	ReceiptNo     string         `db:"receipt_no" json:"receipt_no"`
	StudentID     string         `db:"student_id" json:"student_id"`
	StudentName   string         `db:"student_name" json:"student_name"`
	StudentIndex  string         `db:"student_index" json:"student_index"`
	ClassID       string         `db:"class_id" json:"class_id"`
	ClassName     string         `db:"class_name" json:"class_name"`
	Months        pq.StringArray `db:"months" json:"months"`
	Amount        float64        `db:"amount" json:"amount"`
	Notes         string         `db:"notes" json:"notes"`
	CollectedBy   string         `db:"collected_by" json:"collected_by"`
	CollectorName string         `db:"collector_name" json:"collector_name"`
	ReceiptStatus ReceiptStatus  `db:"receipt_status" json:"receipt_status"`
	ReceiptPath   *string        `db:"receipt_path" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// FeeFilter narrows fee history listings.
type FeeFilter struct {
	StudentID string
	ClassID   string
	Month     string
	Search    string
	Page      int
	PageSize  int
}

// StudentLookup is the fee collection screen's student summary.
type StudentLookup struct {
	ID          string  `db:"id" json:"id"`
	FullName    string  `db:"full_name" json:"full_name"`
	IndexNumber string  `db:"index_number" json:"index_number"`
	ClassID     *string `db:"class_id" json:"class_id,omitempty"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
}
