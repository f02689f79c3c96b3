package certificate

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/storage"
)

const contentType = "application/pdf"

// PDFRenderer draws certificates of achievement and stores them in a BlobStore.
type PDFRenderer struct {
	store  storage.BlobStore
	prefix string
}

func NewPDFRenderer(store storage.BlobStore) *PDFRenderer {
	return &PDFRenderer{store: store, prefix: "certificates"}
}

// Render implements app.CertificateRenderer.
func (r *PDFRenderer) Render(ctx context.Context, data domain.CertificateData) (string, error) {
	doc, err := Draw(data)
	if err != nil {
		return "", err
	}
	path, err := r.store.Put(ctx, r.prefix+"/"+FileName(data), bytes.NewReader(doc), int64(len(doc)), contentType)
	if err != nil {
		return "", fmt.Errorf("store certificate: %w", err)
	}
	return path, nil
}

// FileName is certificate_<user>_<quiz>_<unix>_<suffix>.pdf. The random suffix keeps two
// certificates issued within the same second apart.
func FileName(data domain.CertificateData) string {
	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	user := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, data.UserID)
	return fmt.Sprintf("certificate_%s_%d_%d_%s.pdf", user, data.QuizID, ts.Unix(), uuid.NewString()[:8])
}

// Draw renders the certificate document.
func Draw(data domain.CertificateData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle("Certificate of Achievement", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.Ln(38)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(0x1e, 0x29, 0x3b)
	pdf.CellFormat(0, 12, "CERTIFICATE OF ACHIEVEMENT", "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(data.UserName), "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed the quiz", "", 1, "C", false, 0, "")
	pdf.Ln(12)

	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	rows := [][2]string{
		{"Subject:", data.SubjectName},
		{"Chapter:", data.ChapterName},
		{"Quiz:", data.QuizName},
		{"Score:", fmt.Sprintf("%.2f / %.2f", data.Awarded, data.Possible)},
		{"Percentage:", fmt.Sprintf("%.2f%%", data.Percent)},
		{"Date:", ts.Format("2006-01-02 15:04:05")},
	}
	pdf.SetDrawColor(0xe2, 0xe8, 0xf0)
	pdf.SetFillColor(0xf1, 0xf5, 0xf9)
	left := (210 - 150) / 2.0
	for _, row := range rows {
		pdf.SetX(left)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(50, 11, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(100, 11, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, "Congratulations on your achievement!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
