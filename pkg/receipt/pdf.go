package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Document holds every field printed on a payment receipt.
type Document struct {
	PaymentID        string
	PaidAt           time.Time
	StudentName      string
	StudentDocument  string
	StudentPhone     string
	DebtConcept      string
	Method           string
	Amount           float64
	RemainingBalance float64
}

// Renderer produces fixed-layout PDF receipts.
type Renderer struct {
	businessName string
}

// NewRenderer constructs a Renderer titled with the business name.
func NewRenderer(businessName string) *Renderer {
	if businessName == "" {
		businessName = "Proyecto Educativo"
	}
	return &Renderer{businessName: businessName}
}

// Render produces the PDF bytes for a single payment receipt.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	if doc.PaymentID == "" {
		return nil, fmt.Errorf("receipt requires a payment id")
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(18, 20, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Recibo de Pago - %s", r.businessName), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Recibo No: %s", doc.PaymentID),
		fmt.Sprintf("Fecha: %s", doc.PaidAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Estudiante: %s", doc.StudentName),
		fmt.Sprintf("Documento: %s", doc.StudentDocument),
	}
	if doc.StudentPhone != "" {
		lines = append(lines, fmt.Sprintf("Teléfono: %s", doc.StudentPhone))
	}
	lines = append(lines,
		fmt.Sprintf("Concepto: %s", doc.DebtConcept),
		fmt.Sprintf("Método de pago: %s", doc.Method),
		fmt.Sprintf("Valor pagado: $%.2f", doc.Amount),
		fmt.Sprintf("Saldo pendiente: $%.2f", doc.RemainingBalance),
	)

	for _, line := range lines {
		pdf.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
