package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptRendererRender(t *testing.T) {
	renderer := NewReceiptRenderer("SchoolDesk Academy", "123 School Lane")

	data := ReceiptData{
		ReceiptNo:    "a1b2c3",
		StudentName:  "Student One",
		StudentIndex: "S12345",
		ClassName:    "Class 7A",
		Months:       []string{"May", "June"},
		Amount:       1500,
		CollectedBy:  "Admin User",
		PaidAt:       time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	pdfBytes, err := renderer.Render(data)
	require.NoError(t, err)
	assert.NotEmpty(t, pdfBytes)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestReceiptRendererRequiresReceiptNo(t *testing.T) {
	renderer := NewReceiptRenderer("SchoolDesk Academy", "")
	_, err := renderer.Render(ReceiptData{})
	require.Error(t, err)
}
