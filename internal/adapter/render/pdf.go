package render

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
	"github.com/go-pdf/fpdf"
)

const (
	pageMargin  = 20.0
	labelWidth  = 40.0
	valueWidth  = 120.0
	lineHeight  = 6.0
	cellPadding = 2.0
	fontFamily  = "contract"
)

// PDFOptions configures the PDF renderer
type PDFOptions struct {
	// FontPath points to a TrueType font with CJK glyphs. Without it the
	// renderer falls back to a core font and English labels.
	FontPath string
}

// PDFRenderer exports a contract as a single A4 document
type PDFRenderer struct {
	font []byte
}

var _ ports.DocumentRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer(opts PDFOptions) (*PDFRenderer, error) {
	r := &PDFRenderer{}
	if opts.FontPath != "" {
		font, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf font: %w", err)
		}
		r.font = font
	}
	return r, nil
}

// HasUnicodeFont reports whether CJK text can be rendered.
func (r *PDFRenderer) HasUnicodeFont() bool {
	return len(r.font) > 0
}

func (r *PDFRenderer) ContentType() string {
	return "application/pdf"
}

func (r *PDFRenderer) Render(contract *domain.Contract) ([]byte, error) {
	if contract == nil {
		return nil, fmt.Errorf("contract cannot be nil")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(contract.Title, true)

	family, text := "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	labels := englishLabels
	if r.HasUnicodeFont() {
		pdf.AddUTF8FontFromBytes(fontFamily, "", r.font)
		family, text = fontFamily, func(s string) string { return s }
		labels = chineseLabels
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 16)
	pdf.MultiCell(labelWidth+valueWidth, 9, text(orDash(contract.Title)), "", "L", false)
	pdf.Ln(5)

	pdf.SetFont(family, "", 10)
	pdf.SetDrawColor(128, 128, 128)
	pdf.SetLineWidth(0.2)
	for _, row := range contractRows(contract, labels) {
		writeRow(pdf, text(row[0]), text(row[1]))
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to render pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type rowLabels struct {
	contractNo, partyA, partyB, amount, signDate, expireDate, status, creator, note string
	chineseAmount                                                                  bool
}

var chineseLabels = rowLabels{
	contractNo: "合同编号", partyA: "甲方", partyB: "乙方", amount: "金额",
	signDate: "签订日期", expireDate: "到期日", status: "状态", creator: "创建人", note: "备注",
	chineseAmount: true,
}

var englishLabels = rowLabels{
	contractNo: "Contract No.", partyA: "Party A", partyB: "Party B", amount: "Amount",
	signDate: "Sign date", expireDate: "Expire date", status: "Status", creator: "Created by", note: "Note",
}

func contractRows(c *domain.Contract, l rowLabels) [][2]string {
	amount := FormatAmount(c.Amount)
	status := string(c.Status)
	if l.chineseAmount {
		amount += " （" + ChineseAmount(c.Amount) + "）"
		status = c.Status.Label()
	} else {
		amount = strings.Replace(amount, "¥", "CNY", 1)
	}

	return [][2]string{
		{l.contractNo, orDash(c.ContractNo)},
		{l.partyA, orDash(c.PartyA)},
		{l.partyB, orDash(c.PartyB)},
		{l.amount, amount},
		{l.signDate, formatDate(c.SignDate)},
		{l.expireDate, formatDate(c.ExpireDate)},
		{l.status, status},
		{l.creator, orDash(c.CreatedByUsername)},
		{l.note, orDash(c.Note)},
	}
}

// writeRow draws a bordered label/value row, wrapping the value and moving
// to a new page when the row would not fit.
func writeRow(pdf *fpdf.Fpdf, label, value string) {
	lines := pdf.SplitText(value, valueWidth-2*cellPadding)
	if len(lines) == 0 {
		lines = []string{""}
	}
	h := float64(len(lines))*lineHeight + 2*cellPadding

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom {
		pdf.AddPage()
	}
	x, y := pdf.GetX(), pdf.GetY()

	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(x, y, labelWidth, h, "FD")
	pdf.Rect(x+labelWidth, y, valueWidth, h, "D")

	pdf.SetTextColor(51, 51, 51)
	pdf.SetXY(x, y)
	pdf.CellFormat(labelWidth-cellPadding, h, label, "", 0, "RM", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	for i, line := range lines {
		pdf.SetXY(x+labelWidth+cellPadding, y+cellPadding+float64(i)*lineHeight)
		pdf.CellFormat(valueWidth-2*cellPadding, lineHeight, line, "", 0, "LM", false, 0, "")
	}
	pdf.SetXY(x, y+h)
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
