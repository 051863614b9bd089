package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptData carries everything printed on a fee receipt.
type ReceiptData struct {
	ReceiptNo    string
	StudentName  string
	StudentIndex string
	ClassName    string
	Months       []string
	Amount       float64
	Notes        string
	CollectedBy  string
	PaidAt       time.Time
}

// ReceiptRenderer renders fee receipts as A6 PDF documents.
type ReceiptRenderer struct {
	schoolName    string
	schoolAddress string
}

// NewReceiptRenderer constructs a renderer with the school letterhead.
func NewReceiptRenderer(schoolName, schoolAddress string) *ReceiptRenderer {
	return &ReceiptRenderer{schoolName: schoolName, schoolAddress: schoolAddress}
}

// Render produces the receipt PDF bytes.
func (r *ReceiptRenderer) Render(data ReceiptData) ([]byte, error) {
	if data.ReceiptNo == "" {
		return nil, fmt.Errorf("receipt number required")
	}

	pdf := gofpdf.New("P", "mm", "A6", "")
	pdf.SetMargins(8, 10, 8)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 7, r.schoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 4, r.schoolAddress, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "OFFICIAL FEE RECEIPT", "T", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 9)
	r.row(pdf, "Receipt #", strings.ToUpper(data.ReceiptNo))
	r.row(pdf, "Payment Date", data.PaidAt.Format("02 Jan 2006"))
	r.row(pdf, "Student", data.StudentName)
	r.row(pdf, "Index", data.StudentIndex)
	r.row(pdf, "Class", data.ClassName)
	r.row(pdf, "Fee for Month(s)", strings.Join(data.Months, ", "))
	notes := data.Notes
	if notes == "" {
		notes = "N/A"
	}
	r.row(pdf, "Notes", notes)
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(45, 8, "Amount Paid", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("%.2f", data.Amount), "T", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 7)
	pdf.CellFormat(0, 4, fmt.Sprintf("Payment collected by: %s. Thank you for your payment!", data.CollectedBy), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *ReceiptRenderer) row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(32, 5, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, value, "", 1, "R", false, 0, "")
}
